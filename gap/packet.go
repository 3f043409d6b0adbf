package gap

import (
	"encoding/binary"
	"fmt"

	"github.com/go-ble/attgatt/uuid"
)

// MaxPacketLength is the maximum size of one advertising or scan response
// data payload, per the BT Core Spec.
const MaxPacketLength = 31

// Packer assembles Records into an advertising (or scan response) data
// payload bounded by MaxPacketLength, generalizing the teacher's
// advertisement.go append-and-marshal pattern.
type Packer struct {
	buf []byte
}

// Add appends r's encoded [length|type|value] AD structure. It reports an
// error if doing so would exceed MaxPacketLength, leaving the packer
// unchanged.
func (p *Packer) Add(r Record) error {
	v, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	structLen := 1 + len(v) // type byte + value
	if len(p.buf)+1+structLen > MaxPacketLength {
		return fmt.Errorf("gap: adding record type 0x%02X would exceed %d-byte packet", r.DataType(), MaxPacketLength)
	}
	p.buf = append(p.buf, byte(structLen), r.DataType())
	p.buf = append(p.buf, v...)
	return nil
}

// Bytes returns the packed payload built so far.
func (p *Packer) Bytes() []byte { return p.buf }

// Len reports the number of bytes packed so far.
func (p *Packer) Len() int { return len(p.buf) }

// RawRecord is a Parse result: an AD structure's type and raw value,
// since the parser does not know which of the typed Record constructors
// (if any) produced it.
type RawRecord struct {
	Type  byte
	Value []byte
}

// Parse splits a packed advertising/scan response payload back into its
// AD structures. It stops, without error, at the first zero-length
// structure (trailing padding), matching how real controllers pad
// advertising payloads to a fixed size.
func Parse(b []byte) ([]RawRecord, error) {
	var out []RawRecord
	for len(b) > 0 {
		n := int(b[0])
		if n == 0 {
			break
		}
		if n > len(b)-1 {
			return nil, fmt.Errorf("gap: AD structure length %d exceeds remaining %d bytes", n, len(b)-1)
		}
		out = append(out, RawRecord{Type: b[1], Value: append([]byte(nil), b[2:1+n]...)})
		b = b[1+n:]
	}
	return out, nil
}

func uuidList(typ byte, width int, v []byte) (Record, bool) {
	if len(v)%width != 0 {
		return nil, false
	}
	var uuids []uuid.UUID
	for len(v) > 0 {
		u, n, ok := uuid.Decode(v, width)
		if !ok {
			return nil, false
		}
		uuids = append(uuids, u)
		v = v[n:]
	}
	return uuidListRecord{typ: typ, uuids: uuids}, true
}

func addressList(typ byte, v []byte) (Record, bool) {
	if len(v)%6 != 0 {
		return nil, false
	}
	var addrs [][6]byte
	for len(v) > 0 {
		var a [6]byte
		copy(a[:], v[:6])
		addrs = append(addrs, a)
		v = v[6:]
	}
	return targetAddressRecord{typ: typ, addrs: addrs}, true
}

func serviceData(typ byte, width int, v []byte) (Record, bool) {
	u, n, ok := uuid.Decode(v, width)
	if !ok {
		return nil, false
	}
	return serviceDataRecord{typ: typ, uuid: u, data: append([]byte(nil), v[n:]...)}, true
}

// DecodeRecord maps a parsed AD structure back to its typed Record. It
// reports ok=false for AD types outside this catalogue or values that do
// not satisfy the type's wire shape.
func DecodeRecord(r RawRecord) (Record, bool) {
	v := r.Value
	switch r.Type {
	case TypeFlags:
		if len(v) < 1 {
			return nil, false
		}
		return Flags(v[0]), true
	case TypeShortLocalName:
		return LocalName{Name: string(v)}, true
	case TypeCompleteLocalName:
		return LocalName{Name: string(v), Complete: true}, true
	case TypeTxPowerLevel:
		if len(v) != 1 {
			return nil, false
		}
		p, err := uuid.NewTxPower(int(int8(v[0])))
		if err != nil {
			return nil, false
		}
		return TxPowerLevel{Value: p}, true
	case TypeAppearance:
		if len(v) != 2 {
			return nil, false
		}
		return Appearance{Value: uuid.Appearance(binary.LittleEndian.Uint16(v))}, true
	case TypeSlaveConnectionInterval:
		if len(v) != 4 {
			return nil, false
		}
		return SlaveConnectionInterval{
			Min: binary.LittleEndian.Uint16(v[0:2]),
			Max: binary.LittleEndian.Uint16(v[2:4]),
		}, true
	case TypeAdvertisingInterval:
		if len(v) != 2 {
			return nil, false
		}
		return AdvertisingInterval(binary.LittleEndian.Uint16(v)), true
	case TypeLEDeviceAddress:
		if len(v) != 7 {
			return nil, false
		}
		var a LEDeviceAddress
		copy(a.Address[:], v[:6])
		a.Random = v[6]&1 != 0
		return a, true
	case TypeLERole:
		if len(v) != 1 {
			return nil, false
		}
		return LERole(v[0]), true
	case TypeManufacturerSpecific:
		if len(v) < 2 {
			return nil, false
		}
		return ManufacturerSpecificData{
			CompanyID: binary.LittleEndian.Uint16(v[0:2]),
			Data:      append([]byte(nil), v[2:]...),
		}, true
	case TypeSecurityManagerTK:
		if len(v) != 16 {
			return nil, false
		}
		var k SecurityManagerTK
		copy(k.Key[:], v)
		return k, true
	case TypeSecurityManagerOOBFlags:
		if len(v) != 1 {
			return nil, false
		}
		return SecurityManagerOOBFlags(v[0]), true
	case TypeServiceUUIDs16Incomplete, TypeServiceUUIDs16Complete, TypeServiceSolicitation16:
		return uuidList(r.Type, 2, v)
	case TypeServiceUUIDs32Incomplete, TypeServiceUUIDs32Complete, TypeServiceSolicitation32:
		return uuidList(r.Type, 4, v)
	case TypeServiceUUIDs128Incomplete, TypeServiceUUIDs128Complete, TypeServiceSolicitation128:
		return uuidList(r.Type, 16, v)
	case TypeServiceData16:
		return serviceData(r.Type, 2, v)
	case TypeServiceData32:
		return serviceData(r.Type, 4, v)
	case TypeServiceData128:
		return serviceData(r.Type, 16, v)
	case TypePublicTargetAddress, TypeRandomTargetAddress:
		return addressList(r.Type, v)
	default:
		return nil, false
	}
}
