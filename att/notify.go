package att

// HandleValueNotification is the 0x1B PDU: a server-initiated, unacknowledged
// value push.
type HandleValueNotification struct {
	Handle uint16
	Value  []byte
}

func (p *HandleValueNotification) Opcode() Opcode { return OpHandleNotify }

func (p *HandleValueNotification) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3+len(p.Value))
	b[0] = byte(OpHandleNotify)
	putLE16(b[1:3], p.Handle)
	copy(b[3:], p.Value)
	return b, nil
}

func (p *HandleValueNotification) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return errShortBuffer("HandleValueNotification", 3, len(b))
	}
	if Opcode(b[0]) != OpHandleNotify {
		return errBadOpcode("HandleValueNotification", OpHandleNotify, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Value = append([]byte(nil), b[3:]...)
	return nil
}

// HandleValueIndication is the 0x1D PDU: a server-initiated value push that
// must be acknowledged with a HandleValueConfirmation before another
// indication may be sent, per spec.md §4.6 and §5.
type HandleValueIndication struct {
	Handle uint16
	Value  []byte
}

func (p *HandleValueIndication) Opcode() Opcode { return OpHandleInd }

func (p *HandleValueIndication) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3+len(p.Value))
	b[0] = byte(OpHandleInd)
	putLE16(b[1:3], p.Handle)
	copy(b[3:], p.Value)
	return b, nil
}

func (p *HandleValueIndication) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return errShortBuffer("HandleValueIndication", 3, len(b))
	}
	if Opcode(b[0]) != OpHandleInd {
		return errBadOpcode("HandleValueIndication", OpHandleInd, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Value = append([]byte(nil), b[3:]...)
	return nil
}

// HandleValueConfirmation is the 0x1E PDU: the client's acknowledgement of
// a HandleValueIndication. It carries no fields.
type HandleValueConfirmation struct{}

func (p *HandleValueConfirmation) Opcode() Opcode { return OpHandleCnf }
func (p *HandleValueConfirmation) FixedLen() int  { return 1 }

func (p *HandleValueConfirmation) MarshalBinary() ([]byte, error) {
	return []byte{byte(OpHandleCnf)}, nil
}

func (p *HandleValueConfirmation) UnmarshalBinary(b []byte) error {
	if len(b) != 1 {
		return errShortBuffer("HandleValueConfirmation", 1, len(b))
	}
	if Opcode(b[0]) != OpHandleCnf {
		return errBadOpcode("HandleValueConfirmation", OpHandleCnf, b[0])
	}
	return nil
}
