// Package gap implements Generic Access Profile advertising and scan
// response data: typed records and the length-type-value packer/parser
// the BT Core Spec defines for them, generalizing the teacher's
// advertisement.go.
package gap

import (
	"encoding/binary"
	"fmt"

	"github.com/go-ble/attgatt/uuid"
)

// Record is one AD structure: a typed, self-describing chunk of
// advertising or scan response data.
type Record interface {
	DataType() byte
	MarshalBinary() ([]byte, error)
}

// AD type values, per the Bluetooth Assigned Numbers "Generic Access
// Profile" document.
const (
	TypeFlags                     = 0x01
	TypeServiceUUIDs16Incomplete  = 0x02
	TypeServiceUUIDs16Complete    = 0x03
	TypeServiceUUIDs32Incomplete  = 0x04
	TypeServiceUUIDs32Complete    = 0x05
	TypeServiceUUIDs128Incomplete = 0x06
	TypeServiceUUIDs128Complete   = 0x07
	TypeShortLocalName            = 0x08
	TypeCompleteLocalName         = 0x09
	TypeTxPowerLevel              = 0x0A
	TypeSecurityManagerTK         = 0x10
	TypeSecurityManagerOOBFlags   = 0x11
	TypeSlaveConnectionInterval   = 0x12
	TypeServiceSolicitation16     = 0x14
	TypeServiceSolicitation128    = 0x15
	TypeServiceData16             = 0x16
	TypePublicTargetAddress       = 0x17
	TypeRandomTargetAddress       = 0x18
	TypeAppearance                = 0x19
	TypeAdvertisingInterval       = 0x1A
	TypeLEDeviceAddress           = 0x1B
	TypeLERole                    = 0x1C
	TypeServiceSolicitation32     = 0x1F
	TypeServiceData32             = 0x20
	TypeServiceData128            = 0x21
	TypeManufacturerSpecific      = 0xFF
)

// Flags bits, per the Core Spec Supplement.
const (
	FlagLimitedDiscoverable = 1 << 0
	FlagGeneralDiscoverable = 1 << 1
	FlagBREDRNotSupported   = 1 << 2
)

// Flags is the 0x01 AD structure.
type Flags byte

func (Flags) DataType() byte { return TypeFlags }
func (f Flags) MarshalBinary() ([]byte, error) { return []byte{byte(f)}, nil }

// LocalName is the 0x08/0x09 AD structure.
type LocalName struct {
	Name     string
	Complete bool
}

func (n LocalName) DataType() byte {
	if n.Complete {
		return TypeCompleteLocalName
	}
	return TypeShortLocalName
}
func (n LocalName) MarshalBinary() ([]byte, error) { return []byte(n.Name), nil }

// TxPowerLevel is the 0x0A AD structure, per spec.md's bounded TxPower.
type TxPowerLevel struct{ Value uuid.TxPower }

func (TxPowerLevel) DataType() byte { return TypeTxPowerLevel }
func (p TxPowerLevel) MarshalBinary() ([]byte, error) { return []byte{byte(p.Value)}, nil }

// Appearance is the 0x19 AD structure.
type Appearance struct{ Value uuid.Appearance }

func (Appearance) DataType() byte { return TypeAppearance }
func (a Appearance) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(a.Value))
	return b, nil
}

// SlaveConnectionInterval is the 0x12 AD structure: preferred [min, max]
// connection interval, in 1.25ms units.
type SlaveConnectionInterval struct{ Min, Max uint16 }

func (SlaveConnectionInterval) DataType() byte { return TypeSlaveConnectionInterval }
func (s SlaveConnectionInterval) MarshalBinary() ([]byte, error) {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], s.Min)
	binary.LittleEndian.PutUint16(b[2:4], s.Max)
	return b, nil
}

// AdvertisingInterval is the 0x1A AD structure, in 0.625ms units.
type AdvertisingInterval uint16

func (AdvertisingInterval) DataType() byte { return TypeAdvertisingInterval }
func (a AdvertisingInterval) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(a))
	return b, nil
}

// LEDeviceAddress is the 0x1B AD structure: a 6-byte address plus its
// public/random flag.
type LEDeviceAddress struct {
	Address [6]byte
	Random  bool
}

func (LEDeviceAddress) DataType() byte { return TypeLEDeviceAddress }
func (a LEDeviceAddress) MarshalBinary() ([]byte, error) {
	b := make([]byte, 7)
	copy(b, a.Address[:])
	if a.Random {
		b[6] = 1
	}
	return b, nil
}

// LE role values for the 0x1C AD structure.
const (
	LERoleOnlyPeripheral      = 0x00
	LERoleOnlyCentral         = 0x01
	LERolePeripheralPreferred = 0x02
	LERoleCentralPreferred    = 0x03
)

// LERole is the 0x1C AD structure.
type LERole byte

func (LERole) DataType() byte { return TypeLERole }
func (r LERole) MarshalBinary() ([]byte, error) { return []byte{byte(r)}, nil }

// ManufacturerSpecificData is the 0xFF AD structure.
type ManufacturerSpecificData struct {
	CompanyID uint16
	Data      []byte
}

func (ManufacturerSpecificData) DataType() byte { return TypeManufacturerSpecific }
func (m ManufacturerSpecificData) MarshalBinary() ([]byte, error) {
	b := make([]byte, 2+len(m.Data))
	binary.LittleEndian.PutUint16(b[0:2], m.CompanyID)
	copy(b[2:], m.Data)
	return b, nil
}

// uuidListRecord backs every width/completeness combination of the
// Service UUID and Service Solicitation AD structures, which share the
// same wire shape: a flat concatenation of same-width UUIDs.
type uuidListRecord struct {
	typ   byte
	uuids []uuid.UUID
}

func (r uuidListRecord) DataType() byte { return r.typ }
func (r uuidListRecord) MarshalBinary() ([]byte, error) {
	var b []byte
	for _, u := range r.uuids {
		if u.Len() != r.uuids[0].Len() {
			return nil, fmt.Errorf("gap: mixed uuid widths in a single AD structure")
		}
		b = append(b, u.Bytes()...)
	}
	return b, nil
}

// ServiceUUIDs16 builds a complete (or incomplete) 16-bit Service UUID
// list AD structure.
func ServiceUUIDs16(complete bool, uuids ...uuid.UUID) Record {
	typ := byte(TypeServiceUUIDs16Incomplete)
	if complete {
		typ = TypeServiceUUIDs16Complete
	}
	return uuidListRecord{typ: typ, uuids: uuids}
}

// ServiceUUIDs32 builds a complete (or incomplete) 32-bit Service UUID
// list AD structure.
func ServiceUUIDs32(complete bool, uuids ...uuid.UUID) Record {
	typ := byte(TypeServiceUUIDs32Incomplete)
	if complete {
		typ = TypeServiceUUIDs32Complete
	}
	return uuidListRecord{typ: typ, uuids: uuids}
}

// ServiceUUIDs128 builds a complete (or incomplete) 128-bit Service UUID
// list AD structure.
func ServiceUUIDs128(complete bool, uuids ...uuid.UUID) Record {
	typ := byte(TypeServiceUUIDs128Incomplete)
	if complete {
		typ = TypeServiceUUIDs128Complete
	}
	return uuidListRecord{typ: typ, uuids: uuids}
}

// ServiceSolicitation16 builds a Service Solicitation AD structure over
// 16-bit UUIDs.
func ServiceSolicitation16(uuids ...uuid.UUID) Record {
	return uuidListRecord{typ: TypeServiceSolicitation16, uuids: uuids}
}

// ServiceSolicitation32 builds a Service Solicitation AD structure over
// 32-bit UUIDs.
func ServiceSolicitation32(uuids ...uuid.UUID) Record {
	return uuidListRecord{typ: TypeServiceSolicitation32, uuids: uuids}
}

// ServiceSolicitation128 builds a Service Solicitation AD structure over
// 128-bit UUIDs.
func ServiceSolicitation128(uuids ...uuid.UUID) Record {
	return uuidListRecord{typ: TypeServiceSolicitation128, uuids: uuids}
}

// serviceDataRecord backs the 16/32/128-bit Service Data AD structures.
type serviceDataRecord struct {
	typ  byte
	uuid uuid.UUID
	data []byte
}

func (r serviceDataRecord) DataType() byte { return r.typ }
func (r serviceDataRecord) MarshalBinary() ([]byte, error) {
	return append(append([]byte(nil), r.uuid.Bytes()...), r.data...), nil
}

// ServiceData16 builds a Service Data AD structure keyed by a 16-bit
// service UUID.
func ServiceData16(u uuid.UUID, data []byte) Record {
	return serviceDataRecord{typ: TypeServiceData16, uuid: u, data: data}
}

// ServiceData32 builds a Service Data AD structure keyed by a 32-bit
// service UUID.
func ServiceData32(u uuid.UUID, data []byte) Record {
	return serviceDataRecord{typ: TypeServiceData32, uuid: u, data: data}
}

// ServiceData128 builds a Service Data AD structure keyed by a 128-bit
// service UUID.
func ServiceData128(u uuid.UUID, data []byte) Record {
	return serviceDataRecord{typ: TypeServiceData128, uuid: u, data: data}
}

// targetAddressRecord backs the Public and Random Target Address AD
// structures: a flat concatenation of 6-byte addresses.
type targetAddressRecord struct {
	typ   byte
	addrs [][6]byte
}

func (r targetAddressRecord) DataType() byte { return r.typ }
func (r targetAddressRecord) MarshalBinary() ([]byte, error) {
	b := make([]byte, 0, 6*len(r.addrs))
	for _, a := range r.addrs {
		b = append(b, a[:]...)
	}
	return b, nil
}

// PublicTargetAddress builds the 0x17 AD structure.
func PublicTargetAddress(addrs ...[6]byte) Record {
	return targetAddressRecord{typ: TypePublicTargetAddress, addrs: addrs}
}

// RandomTargetAddress builds the 0x18 AD structure.
func RandomTargetAddress(addrs ...[6]byte) Record {
	return targetAddressRecord{typ: TypeRandomTargetAddress, addrs: addrs}
}

// SecurityManagerTK is the 0x10 AD structure: the 16-byte out-of-band
// temporary key.
type SecurityManagerTK struct {
	Key [16]byte
}

func (SecurityManagerTK) DataType() byte { return TypeSecurityManagerTK }
func (k SecurityManagerTK) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), k.Key[:]...), nil
}

// Security Manager OOB flag bits.
const (
	OOBDataPresent         = 1 << 0
	OOBLESupported         = 1 << 1
	OOBSimultaneousLEBREDR = 1 << 2
	OOBRandomAddress       = 1 << 3
)

// SecurityManagerOOBFlags is the 0x11 AD structure.
type SecurityManagerOOBFlags byte

func (SecurityManagerOOBFlags) DataType() byte { return TypeSecurityManagerOOBFlags }
func (f SecurityManagerOOBFlags) MarshalBinary() ([]byte, error) {
	return []byte{byte(f)}, nil
}
