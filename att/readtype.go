package att

import (
	"fmt"

	"github.com/go-ble/attgatt/uuid"
)

// ReadByTypeRequest is the 0x08 PDU.
type ReadByTypeRequest struct {
	StartingHandle uint16
	EndingHandle   uint16
	AttributeType  uuid.UUID
}

func (p *ReadByTypeRequest) Opcode() Opcode { return OpReadByTypeReq }

func (p *ReadByTypeRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5+p.AttributeType.Len())
	b[0] = byte(OpReadByTypeReq)
	putLE16(b[1:3], p.StartingHandle)
	putLE16(b[3:5], p.EndingHandle)
	copy(b[5:], p.AttributeType.Bytes())
	return b, nil
}

func (p *ReadByTypeRequest) UnmarshalBinary(b []byte) error {
	if len(b) != 7 && len(b) != 21 {
		return errShortBuffer("ReadByTypeRequest", 7, len(b))
	}
	if Opcode(b[0]) != OpReadByTypeReq {
		return errBadOpcode("ReadByTypeRequest", OpReadByTypeReq, b[0])
	}
	p.StartingHandle = le16(b[1:3])
	p.EndingHandle = le16(b[3:5])
	width := len(b) - 5
	u, _, ok := uuid.Decode(b[5:], width)
	if !ok {
		return fmt.Errorf("att: ReadByTypeRequest: bad uuid width %d", width)
	}
	p.AttributeType = u
	return nil
}

// AttributeData is one (handle, value) record of a ReadByTypeResponse.
type AttributeData struct {
	Handle uint16
	Value  []byte
}

// ReadByTypeResponse is the 0x09 PDU. Per spec.md §4.2, the first record
// alone may be truncated to fit the MTU (headerSize=4, hardCap=253);
// subsequent records are included only while they match the first
// record's value length and the response still fits.
type ReadByTypeResponse struct {
	MTU        int
	Attributes []AttributeData
}

const readByTypeHardCap = 253

func (p *ReadByTypeResponse) Opcode() Opcode { return OpReadByTypeResp }

func (p *ReadByTypeResponse) mtu() int {
	if p.MTU <= 0 {
		return 517
	}
	return p.MTU
}

func (p *ReadByTypeResponse) MarshalBinary() ([]byte, error) {
	if len(p.Attributes) == 0 {
		return nil, fmt.Errorf("att: ReadByTypeResponse: no attribute data")
	}
	mtu := p.mtu()
	budget := mtu - 1 /* opcode */ - 1 /* length byte */

	first := p.Attributes[0]
	valueLen := len(first.Value)
	if maxVal := budget - 2; valueLen > maxVal {
		valueLen = maxVal
	}
	if valueLen > readByTypeHardCap {
		valueLen = readByTypeHardCap
	}
	if valueLen < 0 {
		valueLen = 0
	}

	w := newAttWriter(mtu)
	w.WriteByte(byte(OpReadByTypeResp))
	w.WriteByte(byte(valueLen + 2))

	w.WriteUint16(first.Handle)
	w.WriteBytes(truncate(first.Value, valueLen))

	for _, a := range p.Attributes[1:] {
		if len(a.Value) != valueLen {
			break
		}
		w.Chunk()
		w.WriteUint16(a.Handle)
		w.WriteBytes(a.Value)
		if !w.Commit() {
			break
		}
	}
	return w.Bytes(), nil
}

func truncate(b []byte, n int) []byte {
	if n >= len(b) {
		return b
	}
	return b[:n]
}

func (p *ReadByTypeResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return errShortBuffer("ReadByTypeResponse", 2, len(b))
	}
	if Opcode(b[0]) != OpReadByTypeResp {
		return errBadOpcode("ReadByTypeResponse", OpReadByTypeResp, b[0])
	}
	recLen := int(b[1])
	if recLen < 3 {
		return fmt.Errorf("att: ReadByTypeResponse: record length %d too small", recLen)
	}
	rest := b[2:]
	if len(rest)%recLen != 0 {
		return fmt.Errorf("att: ReadByTypeResponse: %d bytes not a multiple of record length %d", len(rest), recLen)
	}
	p.Attributes = p.Attributes[:0]
	for len(rest) > 0 {
		handle := le16(rest[0:2])
		value := append([]byte(nil), rest[2:recLen]...)
		p.Attributes = append(p.Attributes, AttributeData{Handle: handle, Value: value})
		rest = rest[recLen:]
	}
	return nil
}

// ReadByGroupTypeRequest is the 0x10 PDU.
type ReadByGroupTypeRequest struct {
	StartingHandle uint16
	EndingHandle   uint16
	AttributeType  uuid.UUID
}

func (p *ReadByGroupTypeRequest) Opcode() Opcode { return OpReadByGroupReq }

func (p *ReadByGroupTypeRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5+p.AttributeType.Len())
	b[0] = byte(OpReadByGroupReq)
	putLE16(b[1:3], p.StartingHandle)
	putLE16(b[3:5], p.EndingHandle)
	copy(b[5:], p.AttributeType.Bytes())
	return b, nil
}

func (p *ReadByGroupTypeRequest) UnmarshalBinary(b []byte) error {
	if len(b) != 7 && len(b) != 21 {
		return errShortBuffer("ReadByGroupTypeRequest", 7, len(b))
	}
	if Opcode(b[0]) != OpReadByGroupReq {
		return errBadOpcode("ReadByGroupTypeRequest", OpReadByGroupReq, b[0])
	}
	p.StartingHandle = le16(b[1:3])
	p.EndingHandle = le16(b[3:5])
	width := len(b) - 5
	u, _, ok := uuid.Decode(b[5:], width)
	if !ok {
		return fmt.Errorf("att: ReadByGroupTypeRequest: bad uuid width %d", width)
	}
	p.AttributeType = u
	return nil
}

// GroupAttributeData is one (start, end, service value) record of a
// ReadByGroupTypeResponse.
type GroupAttributeData struct {
	AttributeHandle uint16
	EndGroupHandle  uint16
	Value           []byte
}

// ReadByGroupTypeResponse is the 0x11 PDU. Packing rule per spec.md §4.2:
// headerSize=6, hardCap=251.
type ReadByGroupTypeResponse struct {
	MTU    int
	Groups []GroupAttributeData
}

const readByGroupTypeHardCap = 251

func (p *ReadByGroupTypeResponse) Opcode() Opcode { return OpReadByGroupResp }

func (p *ReadByGroupTypeResponse) mtu() int {
	if p.MTU <= 0 {
		return 517
	}
	return p.MTU
}

func (p *ReadByGroupTypeResponse) MarshalBinary() ([]byte, error) {
	if len(p.Groups) == 0 {
		return nil, fmt.Errorf("att: ReadByGroupTypeResponse: no group data")
	}
	mtu := p.mtu()
	budget := mtu - 1 - 1

	first := p.Groups[0]
	valueLen := len(first.Value)
	if maxVal := budget - 4; valueLen > maxVal {
		valueLen = maxVal
	}
	if valueLen > readByGroupTypeHardCap {
		valueLen = readByGroupTypeHardCap
	}
	if valueLen < 0 {
		valueLen = 0
	}

	w := newAttWriter(mtu)
	w.WriteByte(byte(OpReadByGroupResp))
	w.WriteByte(byte(valueLen + 4))

	w.WriteUint16(first.AttributeHandle)
	w.WriteUint16(first.EndGroupHandle)
	w.WriteBytes(truncate(first.Value, valueLen))

	for _, g := range p.Groups[1:] {
		if len(g.Value) != valueLen {
			break
		}
		w.Chunk()
		w.WriteUint16(g.AttributeHandle)
		w.WriteUint16(g.EndGroupHandle)
		w.WriteBytes(g.Value)
		if !w.Commit() {
			break
		}
	}
	return w.Bytes(), nil
}

func (p *ReadByGroupTypeResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return errShortBuffer("ReadByGroupTypeResponse", 2, len(b))
	}
	if Opcode(b[0]) != OpReadByGroupResp {
		return errBadOpcode("ReadByGroupTypeResponse", OpReadByGroupResp, b[0])
	}
	recLen := int(b[1])
	if recLen < 5 {
		return fmt.Errorf("att: ReadByGroupTypeResponse: record length %d too small", recLen)
	}
	rest := b[2:]
	if len(rest)%recLen != 0 {
		return fmt.Errorf("att: ReadByGroupTypeResponse: %d bytes not a multiple of record length %d", len(rest), recLen)
	}
	p.Groups = p.Groups[:0]
	for len(rest) > 0 {
		value := append([]byte(nil), rest[4:recLen]...)
		p.Groups = append(p.Groups, GroupAttributeData{
			AttributeHandle: le16(rest[0:2]),
			EndGroupHandle:  le16(rest[2:4]),
			Value:           value,
		})
		rest = rest[recLen:]
	}
	return nil
}
