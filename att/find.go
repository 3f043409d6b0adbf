package att

import (
	"fmt"

	"github.com/go-ble/attgatt/uuid"
)

// FindInformationRequest is the 0x04 PDU.
type FindInformationRequest struct {
	StartingHandle uint16
	EndingHandle   uint16
}

func (p *FindInformationRequest) Opcode() Opcode { return OpFindInfoReq }
func (p *FindInformationRequest) FixedLen() int  { return 5 }

func (p *FindInformationRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 5)
	b[0] = byte(OpFindInfoReq)
	putLE16(b[1:3], p.StartingHandle)
	putLE16(b[3:5], p.EndingHandle)
	return b, nil
}

func (p *FindInformationRequest) UnmarshalBinary(b []byte) error {
	if len(b) != 5 {
		return errShortBuffer("FindInformationRequest", 5, len(b))
	}
	if Opcode(b[0]) != OpFindInfoReq {
		return errBadOpcode("FindInformationRequest", OpFindInfoReq, b[0])
	}
	p.StartingHandle = le16(b[1:3])
	p.EndingHandle = le16(b[3:5])
	return nil
}

// InformationData is one (handle, type) pair of a FindInformationResponse.
type InformationData struct {
	Handle uint16
	UUID   uuid.UUID // Len() is 2 (format bit16) or 16 (format bit128)
}

// Find Information response format markers, per spec.md §4.2.
const (
	FindInfoFormatBit16  = 0x01
	FindInfoFormatBit128 = 0x02
)

// FindInformationResponse is the 0x05 PDU. MTU bounds how many Info
// records MarshalBinary commits, per spec.md §4.2's FindInformation
// format-selection rule: all emitted records share one UUID width, fixed
// by the first.
type FindInformationResponse struct {
	MTU  int
	Info []InformationData
}

func (p *FindInformationResponse) Opcode() Opcode { return OpFindInfoResp }

func (p *FindInformationResponse) MarshalBinary() ([]byte, error) {
	if len(p.Info) == 0 {
		return nil, fmt.Errorf("att: FindInformationResponse: no information data")
	}
	width := p.Info[0].UUID.Len()
	if width != 2 && width != 16 {
		return nil, fmt.Errorf("att: FindInformationResponse: unsupported uuid width %d", width)
	}
	format := byte(FindInfoFormatBit16)
	if width == 16 {
		format = FindInfoFormatBit128
	}

	mtu := p.mtu()
	w := newAttWriter(mtu)
	w.WriteByte(byte(OpFindInfoResp))
	w.WriteByte(format)

	for _, info := range p.Info {
		if info.UUID.Len() != width {
			break
		}
		w.Chunk()
		w.WriteUint16(info.Handle)
		w.WriteUUID(info.UUID)
		if !w.Commit() {
			break
		}
	}
	return w.Bytes(), nil
}

func (p *FindInformationResponse) mtu() int {
	if p.MTU <= 0 {
		return 517
	}
	return p.MTU
}

func (p *FindInformationResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return errShortBuffer("FindInformationResponse", 2, len(b))
	}
	if Opcode(b[0]) != OpFindInfoResp {
		return errBadOpcode("FindInformationResponse", OpFindInfoResp, b[0])
	}
	var width int
	switch b[1] {
	case FindInfoFormatBit16:
		width = 2
	case FindInfoFormatBit128:
		width = 16
	default:
		return fmt.Errorf("att: FindInformationResponse: unknown format 0x%02X", b[1])
	}
	rest := b[2:]
	recLen := 2 + width
	if len(rest)%recLen != 0 {
		return fmt.Errorf("att: FindInformationResponse: %d bytes not a multiple of record length %d", len(rest), recLen)
	}
	p.Info = p.Info[:0]
	for len(rest) > 0 {
		handle := le16(rest[0:2])
		u, _, ok := uuid.Decode(rest[2:recLen], width)
		if !ok {
			return fmt.Errorf("att: FindInformationResponse: truncated record")
		}
		p.Info = append(p.Info, InformationData{Handle: handle, UUID: u})
		rest = rest[recLen:]
	}
	return nil
}

// FindByTypeValueRequest is the 0x06 PDU.
type FindByTypeValueRequest struct {
	StartingHandle uint16
	EndingHandle   uint16
	AttributeType  uint16 // always a 16-bit UUID, per the BT Core Spec
	AttributeValue []byte
}

func (p *FindByTypeValueRequest) Opcode() Opcode { return OpFindByTypeReq }

func (p *FindByTypeValueRequest) MarshalBinary() ([]byte, error) {
	b := make([]byte, 7+len(p.AttributeValue))
	b[0] = byte(OpFindByTypeReq)
	putLE16(b[1:3], p.StartingHandle)
	putLE16(b[3:5], p.EndingHandle)
	putLE16(b[5:7], p.AttributeType)
	copy(b[7:], p.AttributeValue)
	return b, nil
}

func (p *FindByTypeValueRequest) UnmarshalBinary(b []byte) error {
	if len(b) < 7 {
		return errShortBuffer("FindByTypeValueRequest", 7, len(b))
	}
	if Opcode(b[0]) != OpFindByTypeReq {
		return errBadOpcode("FindByTypeValueRequest", OpFindByTypeReq, b[0])
	}
	p.StartingHandle = le16(b[1:3])
	p.EndingHandle = le16(b[3:5])
	p.AttributeType = le16(b[5:7])
	p.AttributeValue = append([]byte(nil), b[7:]...)
	return nil
}

// HandleInformation is one (found handle, group end handle) pair of a
// FindByTypeValueResponse.
type HandleInformation struct {
	FoundAttributeHandle uint16
	GroupEndHandle       uint16
}

// FindByTypeValueResponse is the 0x07 PDU: fixed 4-byte records, no length
// prefix, so MTU bounds the record count directly.
type FindByTypeValueResponse struct {
	MTU     int
	Handles []HandleInformation
}

func (p *FindByTypeValueResponse) Opcode() Opcode { return OpFindByTypeResp }

func (p *FindByTypeValueResponse) mtu() int {
	if p.MTU <= 0 {
		return 517
	}
	return p.MTU
}

func (p *FindByTypeValueResponse) MarshalBinary() ([]byte, error) {
	w := newAttWriter(p.mtu())
	w.WriteByte(byte(OpFindByTypeResp))
	for _, h := range p.Handles {
		w.Chunk()
		w.WriteUint16(h.FoundAttributeHandle)
		w.WriteUint16(h.GroupEndHandle)
		if !w.Commit() {
			break
		}
	}
	return w.Bytes(), nil
}

func (p *FindByTypeValueResponse) UnmarshalBinary(b []byte) error {
	if len(b) < 1 {
		return errShortBuffer("FindByTypeValueResponse", 1, len(b))
	}
	if Opcode(b[0]) != OpFindByTypeResp {
		return errBadOpcode("FindByTypeValueResponse", OpFindByTypeResp, b[0])
	}
	rest := b[1:]
	if len(rest)%4 != 0 {
		return fmt.Errorf("att: FindByTypeValueResponse: %d bytes not a multiple of 4", len(rest))
	}
	p.Handles = p.Handles[:0]
	for len(rest) > 0 {
		p.Handles = append(p.Handles, HandleInformation{
			FoundAttributeHandle: le16(rest[0:2]),
			GroupEndHandle:       le16(rest[2:4]),
		})
		rest = rest[4:]
	}
	return nil
}
