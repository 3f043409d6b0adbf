package att

import "fmt"

// ReadRequest is the 0x0A PDU.
type ReadRequest struct {
	Handle uint16
}

func (p *ReadRequest) Opcode() Opcode { return OpReadReq }
func (p *ReadRequest) FixedLen() int  { return 3 }

func (p *ReadRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3)
	b[0] = byte(OpReadReq)
	putLE16(b[1:3], p.Handle)
	return b, nil
}

func (p *ReadRequest) UnmarshalBinary(b []byte) error {
	if len(b) != 3 {
		return errShortBuffer("ReadRequest", 3, len(b))
	}
	if Opcode(b[0]) != OpReadReq {
		return errBadOpcode("ReadRequest", OpReadReq, b[0])
	}
	p.Handle = le16(b[1:3])
	return nil
}

// ReadResponse is the 0x0B PDU.
type ReadResponse struct {
	Value []byte
}

func (p *ReadResponse) Opcode() Opcode { return OpReadResp }

func (p *ReadResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 1+len(p.Value))
	b[0] = byte(OpReadResp)
	copy(b[1:], p.Value)
	return b, nil
}

func (p *ReadResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 1 {
		return errShortBuffer("ReadResponse", 1, len(b))
	}
	if Opcode(b[0]) != OpReadResp {
		return errBadOpcode("ReadResponse", OpReadResp, b[0])
	}
	p.Value = append([]byte(nil), b[1:]...)
	return nil
}

// ReadBlobRequest is the 0x0C PDU.
type ReadBlobRequest struct {
	Handle uint16
	Offset uint16
}

func (p *ReadBlobRequest) Opcode() Opcode { return OpReadBlobReq }
func (p *ReadBlobRequest) FixedLen() int  { return 5 }

func (p *ReadBlobRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5)
	b[0] = byte(OpReadBlobReq)
	putLE16(b[1:3], p.Handle)
	putLE16(b[3:5], p.Offset)
	return b, nil
}

func (p *ReadBlobRequest) UnmarshalBinary(b []byte) error {
	if len(b) != 5 {
		return errShortBuffer("ReadBlobRequest", 5, len(b))
	}
	if Opcode(b[0]) != OpReadBlobReq {
		return errBadOpcode("ReadBlobRequest", OpReadBlobReq, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Offset = le16(b[3:5])
	return nil
}

// ReadBlobResponse is the 0x0D PDU.
type ReadBlobResponse struct {
	Value []byte
}

func (p *ReadBlobResponse) Opcode() Opcode { return OpReadBlobResp }

func (p *ReadBlobResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 1+len(p.Value))
	b[0] = byte(OpReadBlobResp)
	copy(b[1:], p.Value)
	return b, nil
}

func (p *ReadBlobResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 1 {
		return errShortBuffer("ReadBlobResponse", 1, len(b))
	}
	if Opcode(b[0]) != OpReadBlobResp {
		return errBadOpcode("ReadBlobResponse", OpReadBlobResp, b[0])
	}
	p.Value = append([]byte(nil), b[1:]...)
	return nil
}

// ReadMultipleRequest is the 0x0E PDU: two or more handles to read and
// concatenate, per spec.md §6.2's supplemented Read Multiple semantics.
type ReadMultipleRequest struct {
	Handles []uint16
}

func (p *ReadMultipleRequest) Opcode() Opcode { return OpReadMultiReq }

func (p *ReadMultipleRequest) MarshalBinary() ([]byte, error) {
	if len(p.Handles) < 2 {
		return nil, fmt.Errorf("att: ReadMultipleRequest: need at least 2 handles, got %d", len(p.Handles))
	}
	b := make([]byte, 1+2*len(p.Handles))
	b[0] = byte(OpReadMultiReq)
	for i, h := range p.Handles {
		putLE16(b[1+2*i:3+2*i], h)
	}
	return b, nil
}

func (p *ReadMultipleRequest) UnmarshalBinary(b []byte) error {
	if len(b) < 5 {
		return errShortBuffer("ReadMultipleRequest", 5, len(b))
	}
	if Opcode(b[0]) != OpReadMultiReq {
		return errBadOpcode("ReadMultipleRequest", OpReadMultiReq, b[0])
	}
	rest := b[1:]
	if len(rest)%2 != 0 {
		return fmt.Errorf("att: ReadMultipleRequest: %d bytes not a multiple of 2", len(rest))
	}
	p.Handles = p.Handles[:0]
	for len(rest) > 0 {
		p.Handles = append(p.Handles, le16(rest[0:2]))
		rest = rest[2:]
	}
	return nil
}

// ReadMultipleResponse is the 0x0F PDU: the concatenated values of every
// requested handle, truncated at the MTU. There is no per-value length
// delimiter; the client already knows which handles (and hence widths) it
// asked for.
type ReadMultipleResponse struct {
	Values []byte
}

func (p *ReadMultipleResponse) Opcode() Opcode { return OpReadMultiResp }

func (p *ReadMultipleResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 1+len(p.Values))
	b[0] = byte(OpReadMultiResp)
	copy(b[1:], p.Values)
	return b, nil
}

func (p *ReadMultipleResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 1 {
		return errShortBuffer("ReadMultipleResponse", 1, len(b))
	}
	if Opcode(b[0]) != OpReadMultiResp {
		return errBadOpcode("ReadMultipleResponse", OpReadMultiResp, b[0])
	}
	p.Values = append([]byte(nil), b[1:]...)
	return nil
}
