// Package gatt implements the GATT attribute database and the ATT server
// that enforces permissions, packs MTU-bounded responses, and routes
// notifications/indications over it.
package gatt

import "github.com/go-ble/attgatt/uuid"

// Permission is a bitset of the operations an attribute allows, per
// spec.md §3.2.
type Permission uint8

// Permission bits.
const (
	PermRead Permission = 1 << iota
	PermWrite
	PermReadEncrypt
	PermWriteEncrypt
	PermReadAuthentication
	PermWriteAuthentication
)

func (p Permission) allows(mask Permission) bool { return p&mask != 0 }

// Properties is the GATT characteristic property bitset, per spec.md §3.4.
type Properties uint8

// Characteristic property bits, ordered per the BT Core Spec's
// characteristic properties byte.
const (
	PropBroadcast Properties = 1 << iota
	PropRead
	PropWriteWithoutResponse
	PropWrite
	PropNotify
	PropIndicate
	PropSignedWrite
	PropExtendedProperties
)

// Attribute is the database's atomic unit, per spec.md §3.2: a handle,
// type, opaque value, and permission set. Handles are unique and strictly
// increasing in insertion order for the lifetime of the database.
type Attribute struct {
	Handle      uint16
	UUID        uuid.UUID
	Value       []byte
	Permissions Permission
}

// Well-known GATT declaration and descriptor UUIDs, per spec.md §4.3 and
// the BT Core Spec's GATT profile.
var (
	PrimaryServiceUUID   = uuid.UUID16(0x2800)
	SecondaryServiceUUID = uuid.UUID16(0x2801)
	IncludeUUID          = uuid.UUID16(0x2802)
	CharacteristicUUID   = uuid.UUID16(0x2803)

	ClientCharacteristicConfigUUID = uuid.UUID16(0x2902)
	ServerCharacteristicConfigUUID = uuid.UUID16(0x2903)

	GenericAccessServiceUUID    = uuid.UUID16(0x1800)
	GenericAttributeServiceUUID = uuid.UUID16(0x1801)

	DeviceNameUUID = uuid.UUID16(0x2A00)
	AppearanceUUID = uuid.UUID16(0x2A01)
)

// Client Characteristic Configuration bits, per spec.md §4.6/GLOSSARY.
const (
	CCCNotify   uint16 = 1 << 0
	CCCIndicate uint16 = 1 << 1
)
