package att

// ExchangeMTURequest is the 0x02 PDU.
type ExchangeMTURequest struct {
	ClientRxMTU uint16
}

func (p *ExchangeMTURequest) Opcode() Opcode { return OpMTUReq }
func (p *ExchangeMTURequest) FixedLen() int  { return 3 }

func (p *ExchangeMTURequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3)
	b[0] = byte(OpMTUReq)
	putLE16(b[1:3], p.ClientRxMTU)
	return b, nil
}

func (p *ExchangeMTURequest) UnmarshalBinary(b []byte) error {
	if len(b) != 3 {
		return errShortBuffer("ExchangeMTURequest", 3, len(b))
	}
	if Opcode(b[0]) != OpMTUReq {
		return errBadOpcode("ExchangeMTURequest", OpMTUReq, b[0])
	}
	p.ClientRxMTU = le16(b[1:3])
	return nil
}

// ExchangeMTUResponse is the 0x03 PDU.
type ExchangeMTUResponse struct {
	ServerRxMTU uint16
}

func (p *ExchangeMTUResponse) Opcode() Opcode { return OpMTUResp }
func (p *ExchangeMTUResponse) FixedLen() int  { return 3 }

func (p *ExchangeMTUResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3)
	b[0] = byte(OpMTUResp)
	putLE16(b[1:3], p.ServerRxMTU)
	return b, nil
}

func (p *ExchangeMTUResponse) UnmarshalBinary(b []byte) error {
	if len(b) != 3 {
		return errShortBuffer("ExchangeMTUResponse", 3, len(b))
	}
	if Opcode(b[0]) != OpMTUResp {
		return errBadOpcode("ExchangeMTUResponse", OpMTUResp, b[0])
	}
	p.ServerRxMTU = le16(b[1:3])
	return nil
}
