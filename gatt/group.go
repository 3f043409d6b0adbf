package gatt

// AttributeGroup is a service's handle range and its ordered attributes
// (service declaration first, then any include declarations, then its
// characteristics' declarations, values, and descriptors), per spec.md
// §3.3: "a group's endHandle equals the handle of its last attribute."
type AttributeGroup struct {
	StartHandle uint16
	EndHandle   uint16
	Attributes  []*Attribute // Attributes[0] is the service declaration
}

// Service returns the group's service declaration attribute.
func (g *AttributeGroup) Service() *Attribute { return g.Attributes[0] }

// indexOf returns the index of the attribute with the given handle within
// the group, or -1.
func (g *AttributeGroup) indexOf(handle uint16) int {
	for i, a := range g.Attributes {
		if a.Handle == handle {
			return i
		}
	}
	return -1
}

// cccFor returns the Client Characteristic Configuration descriptor
// attribute associated with the characteristic that owns valueHandle, per
// spec.md §4.6. The database lays characteristics out contiguously as
// [declaration, value, descriptors...]; the owning declaration is the
// nearest Characteristic Declaration attribute at or before valueHandle,
// and its descriptors run until the next declaration (characteristic or
// service/include) or the end of the group.
func (g *AttributeGroup) cccFor(valueHandle uint16) (*Attribute, bool) {
	i := g.indexOf(valueHandle)
	if i < 0 {
		return nil, false
	}
	declIdx := -1
	for j := i; j >= 0; j-- {
		if g.Attributes[j].UUID.Equal(CharacteristicUUID) {
			declIdx = j
			break
		}
	}
	if declIdx < 0 || declIdx+1 >= len(g.Attributes) || g.Attributes[declIdx+1].Handle != valueHandle {
		return nil, false
	}
	for k := declIdx + 2; k < len(g.Attributes); k++ {
		a := g.Attributes[k]
		if a.UUID.Equal(CharacteristicUUID) || a.UUID.Equal(IncludeUUID) {
			break
		}
		if a.UUID.Equal(ClientCharacteristicConfigUUID) {
			return a, true
		}
	}
	return nil, false
}
