package att

import "fmt"

// WriteRequest is the 0x12 PDU.
type WriteRequest struct {
	Handle uint16
	Value  []byte
}

func (p *WriteRequest) Opcode() Opcode { return OpWriteReq }

func (p *WriteRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3+len(p.Value))
	b[0] = byte(OpWriteReq)
	putLE16(b[1:3], p.Handle)
	copy(b[3:], p.Value)
	return b, nil
}

func (p *WriteRequest) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return errShortBuffer("WriteRequest", 3, len(b))
	}
	if Opcode(b[0]) != OpWriteReq {
		return errBadOpcode("WriteRequest", OpWriteReq, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Value = append([]byte(nil), b[3:]...)
	return nil
}

// WriteResponse is the 0x13 PDU. It carries no fields.
type WriteResponse struct{}

func (p *WriteResponse) Opcode() Opcode { return OpWriteResp }
func (p *WriteResponse) FixedLen() int  { return 1 }

func (p *WriteResponse) MarshalBinary() ([]byte, error) {
	return []byte{byte(OpWriteResp)}, nil
}

func (p *WriteResponse) UnmarshalBinary(b []byte) error {
	if len(b) != 1 {
		return errShortBuffer("WriteResponse", 1, len(b))
	}
	if Opcode(b[0]) != OpWriteResp {
		return errBadOpcode("WriteResponse", OpWriteResp, b[0])
	}
	return nil
}

// WriteCommand is the 0x52 PDU: a write with no response expected.
type WriteCommand struct {
	Handle uint16
	Value  []byte
}

func (p *WriteCommand) Opcode() Opcode { return OpWriteCmd }

func (p *WriteCommand) MarshalBinary() ([]byte, error) {
	b := make([]byte, 3+len(p.Value))
	b[0] = byte(OpWriteCmd)
	putLE16(b[1:3], p.Handle)
	copy(b[3:], p.Value)
	return b, nil
}

func (p *WriteCommand) UnmarshalBinary(b []byte) error {
	if len(b) < 3 {
		return errShortBuffer("WriteCommand", 3, len(b))
	}
	if Opcode(b[0]) != OpWriteCmd {
		return errBadOpcode("WriteCommand", OpWriteCmd, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Value = append([]byte(nil), b[3:]...)
	return nil
}

// PrepareWriteRequest is the 0x16 PDU.
type PrepareWriteRequest struct {
	Handle    uint16
	Offset    uint16
	PartValue []byte
}

func (p *PrepareWriteRequest) Opcode() Opcode { return OpPrepWriteReq }

func (p *PrepareWriteRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5+len(p.PartValue))
	b[0] = byte(OpPrepWriteReq)
	putLE16(b[1:3], p.Handle)
	putLE16(b[3:5], p.Offset)
	copy(b[5:], p.PartValue)
	return b, nil
}

func (p *PrepareWriteRequest) UnmarshalBinary(b []byte) error {
	if len(b) < 5 {
		return errShortBuffer("PrepareWriteRequest", 5, len(b))
	}
	if Opcode(b[0]) != OpPrepWriteReq {
		return errBadOpcode("PrepareWriteRequest", OpPrepWriteReq, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Offset = le16(b[3:5])
	p.PartValue = append([]byte(nil), b[5:]...)
	return nil
}

// PrepareWriteResponse is the 0x17 PDU: an echo of the accepted request.
type PrepareWriteResponse struct {
	Handle    uint16
	Offset    uint16
	PartValue []byte
}

func (p *PrepareWriteResponse) Opcode() Opcode { return OpPrepWriteResp }

func (p *PrepareWriteResponse) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5+len(p.PartValue))
	b[0] = byte(OpPrepWriteResp)
	putLE16(b[1:3], p.Handle)
	putLE16(b[3:5], p.Offset)
	copy(b[5:], p.PartValue)
	return b, nil
}

func (p *PrepareWriteResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 5 {
		return errShortBuffer("PrepareWriteResponse", 5, len(b))
	}
	if Opcode(b[0]) != OpPrepWriteResp {
		return errBadOpcode("PrepareWriteResponse", OpPrepWriteResp, b[0])
	}
	p.Handle = le16(b[1:3])
	p.Offset = le16(b[3:5])
	p.PartValue = append([]byte(nil), b[5:]...)
	return nil
}

// Execute Write flags, per spec.md §4.2.
const (
	ExecuteWriteCancel = 0x00
	ExecuteWriteWrite  = 0x01
)

// ExecuteWriteRequest is the 0x18 PDU.
type ExecuteWriteRequest struct {
	Flags byte
}

func (p *ExecuteWriteRequest) Opcode() Opcode { return OpExecWriteReq }
func (p *ExecuteWriteRequest) FixedLen() int  { return 2 }

func (p *ExecuteWriteRequest) MarshalBinary() ([]byte, error) {
	return []byte{byte(OpExecWriteReq), p.Flags}, nil
}

func (p *ExecuteWriteRequest) UnmarshalBinary(b []byte) error {
	if len(b) != 2 {
		return errShortBuffer("ExecuteWriteRequest", 2, len(b))
	}
	if Opcode(b[0]) != OpExecWriteReq {
		return errBadOpcode("ExecuteWriteRequest", OpExecWriteReq, b[0])
	}
	if b[1] != ExecuteWriteCancel && b[1] != ExecuteWriteWrite {
		return fmt.Errorf("att: ExecuteWriteRequest: invalid flags 0x%02X", b[1])
	}
	p.Flags = b[1]
	return nil
}

// ExecuteWriteResponse is the 0x19 PDU. It carries no fields.
type ExecuteWriteResponse struct{}

func (p *ExecuteWriteResponse) Opcode() Opcode { return OpExecWriteResp }
func (p *ExecuteWriteResponse) FixedLen() int  { return 1 }

func (p *ExecuteWriteResponse) MarshalBinary() ([]byte, error) {
	return []byte{byte(OpExecWriteResp)}, nil
}

func (p *ExecuteWriteResponse) UnmarshalBinary(b []byte) error {
	if len(b) != 1 {
		return errShortBuffer("ExecuteWriteResponse", 1, len(b))
	}
	if Opcode(b[0]) != OpExecWriteResp {
		return errBadOpcode("ExecuteWriteResponse", OpExecWriteResp, b[0])
	}
	return nil
}
