package gatt

import (
	"encoding/binary"

	"github.com/go-ble/attgatt/uuid"
)

// Descriptor is the compile-time description of a characteristic
// descriptor, per spec.md §3.4, generalizing the teacher's descriptor.go.
type Descriptor struct {
	UUID        uuid.UUID
	Value       []byte
	Permissions Permission

	handle uint16
}

// Handle reports the descriptor's assigned attribute handle. Valid only
// after the owning service has been added to a Database.
func (d *Descriptor) Handle() uint16 { return d.handle }

// Characteristic is the compile-time description of a GATT characteristic,
// per spec.md §3.4, generalizing the teacher's characteristic.go.
type Characteristic struct {
	UUID        uuid.UUID
	Value       []byte
	Permissions Permission
	Properties  Properties
	Descriptors []*Descriptor

	declHandle  uint16
	valueHandle uint16
}

// AddDescriptor appends a descriptor to the characteristic and returns it
// for further configuration.
func (c *Characteristic) AddDescriptor(u uuid.UUID) *Descriptor {
	d := &Descriptor{UUID: u}
	c.Descriptors = append(c.Descriptors, d)
	return d
}

// Handle reports the characteristic's value attribute handle. Valid only
// after the owning service has been added to a Database.
func (c *Characteristic) Handle() uint16 { return c.valueHandle }

// DeclHandle reports the characteristic declaration attribute's handle.
func (c *Characteristic) DeclHandle() uint16 { return c.declHandle }

// Service is the compile-time description of a GATT service, per spec.md
// §3.4, generalizing the teacher's service.go. A Service built this way is
// a template: adding it to a Database allocates its handle range and
// flattens it into the attribute sequence the ATT queries scan.
type Service struct {
	UUID             uuid.UUID
	IsPrimary        bool
	IncludedServices []*Service
	Characteristics  []*Characteristic

	startHandle uint16
	endHandle   uint16
}

// NewService constructs a primary service template with the given UUID.
func NewService(u uuid.UUID) *Service {
	return &Service{UUID: u, IsPrimary: true}
}

// AddCharacteristic appends a characteristic to the service and returns it
// for further configuration (value, permissions, properties, descriptors).
func (s *Service) AddCharacteristic(u uuid.UUID) *Characteristic {
	c := &Characteristic{UUID: u}
	s.Characteristics = append(s.Characteristics, c)
	return c
}

// AddIncludedService registers included as an included service reference.
// included must already have been added to the same database so its
// handle range is known at flatten time.
func (s *Service) AddIncludedService(included *Service) {
	s.IncludedServices = append(s.IncludedServices, included)
}

// StartHandle and EndHandle report the service's allocated handle range.
// Valid only after the service has been added to a Database.
func (s *Service) StartHandle() uint16 { return s.startHandle }
func (s *Service) EndHandle() uint16   { return s.endHandle }

func serviceDeclUUID(s *Service) uuid.UUID {
	if s.IsPrimary {
		return PrimaryServiceUUID
	}
	return SecondaryServiceUUID
}

// charDeclValue encodes the Characteristic Declaration value: properties
// octet, 2-byte value handle, then the characteristic's UUID, per the
// BT Core Spec's GATT profile.
func charDeclValue(props Properties, valueHandle uint16, u uuid.UUID) []byte {
	b := make([]byte, 3+u.Len())
	b[0] = byte(props)
	binary.LittleEndian.PutUint16(b[1:3], valueHandle)
	copy(b[3:], u.Bytes())
	return b
}

// includeValue encodes an Include Declaration value: included service's
// start and end handles, plus its UUID when that UUID is 16-bit (the BT
// Core Spec omits the UUID from the Include value for 128-bit services,
// since a client must read it separately in that case).
func includeValue(included *Service) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b[0:2], included.startHandle)
	binary.LittleEndian.PutUint16(b[2:4], included.endHandle)
	if included.UUID.Len() == 2 {
		b = append(b, included.UUID.Bytes()...)
	}
	return b
}

// flattened is the result of laying out a service template's attributes
// before handles are assigned, plus the back-references needed to fill in
// characteristic/descriptor handles and declaration values once they are.
type flattened struct {
	attrs       []*Attribute
	charOfDecl  map[*Attribute]*Characteristic
	charOfValue map[*Attribute]*Characteristic
	descOfAttr  map[*Attribute]*Descriptor
}

// flatten lays out svc's attributes in wire order: service declaration,
// include declarations, then each characteristic's [declaration, value,
// descriptors...], per spec.md §3.3/§4.3. Handles are not yet assigned;
// the caller fills them in as it allocates the service's range.
func flatten(svc *Service) flattened {
	fl := flattened{
		charOfDecl:  make(map[*Attribute]*Characteristic),
		charOfValue: make(map[*Attribute]*Characteristic),
		descOfAttr:  make(map[*Attribute]*Descriptor),
	}
	fl.attrs = make([]*Attribute, 0, 1+len(svc.IncludedServices)+2*len(svc.Characteristics))

	fl.attrs = append(fl.attrs, &Attribute{
		UUID:        serviceDeclUUID(svc),
		Value:       svc.UUID.Bytes(),
		Permissions: PermRead,
	})

	for _, inc := range svc.IncludedServices {
		fl.attrs = append(fl.attrs, &Attribute{
			UUID:        IncludeUUID,
			Value:       includeValue(inc),
			Permissions: PermRead,
		})
	}

	for _, c := range svc.Characteristics {
		declAttr := &Attribute{UUID: CharacteristicUUID, Permissions: PermRead}
		fl.attrs = append(fl.attrs, declAttr)
		fl.charOfDecl[declAttr] = c

		valueAttr := &Attribute{
			UUID:        c.UUID,
			Value:       c.Value,
			Permissions: c.Permissions,
		}
		fl.attrs = append(fl.attrs, valueAttr)
		fl.charOfValue[valueAttr] = c

		for _, d := range c.Descriptors {
			descAttr := &Attribute{
				UUID:        d.UUID,
				Value:       d.Value,
				Permissions: d.Permissions,
			}
			fl.attrs = append(fl.attrs, descAttr)
			fl.descOfAttr[descAttr] = d
		}
	}

	return fl
}
