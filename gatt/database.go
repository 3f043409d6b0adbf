package gatt

import "github.com/go-ble/attgatt/uuid"

// Database is the GATT attribute database of spec.md §3.3: an ordered,
// append-only table of attributes grouped into services, plus the four
// ATT query primitives over it. Handles are assigned monotonically and
// are never reused, even after a service is removed, per spec.md §4.3.
//
// Enclosure (which group a handle falls in) is answered by linear scan
// rather than back-pointers from Attribute, matching the flat, cache-
// friendly layout the teacher's handle.go favors for its own table.
type Database struct {
	groups     []*AttributeGroup
	byHandle   map[uint16]*Attribute
	ordered    []*Attribute // all live attributes, handle-ascending
	nextHandle uint16
}

// NewDatabase constructs an empty database. Handle 0 is reserved
// (invalid) per the BT Core Spec, so allocation starts at 1.
func NewDatabase() *Database {
	return &Database{
		byHandle:   make(map[uint16]*Attribute),
		nextHandle: 1,
	}
}

// Add flattens svc (and recursively nothing else — included services must
// already be added) into the database, allocating a contiguous handle
// range for it, and returns that range.
func (d *Database) Add(svc *Service) (start, end uint16) {
	fl := flatten(svc)

	start = d.nextHandle
	for _, a := range fl.attrs {
		a.Handle = d.nextHandle
		d.nextHandle++
		d.byHandle[a.Handle] = a
		d.ordered = append(d.ordered, a)

		if c, ok := fl.charOfDecl[a]; ok {
			c.declHandle = a.Handle
		}
		if c, ok := fl.charOfValue[a]; ok {
			c.valueHandle = a.Handle
		}
		if desc, ok := fl.descOfAttr[a]; ok {
			desc.handle = a.Handle
		}
	}
	end = d.nextHandle - 1

	// Characteristic declaration values embed the value handle, which is
	// only known once the whole range is allocated.
	for _, c := range svc.Characteristics {
		d.byHandle[c.declHandle].Value = charDeclValue(c.Properties, c.valueHandle, c.UUID)
	}

	svc.startHandle, svc.endHandle = start, end
	group := &AttributeGroup{StartHandle: start, EndHandle: end, Attributes: fl.attrs}
	d.groups = append(d.groups, group)
	return start, end
}

// Remove deletes the service group starting at startHandle, per spec.md
// §4.3. Its handles are retired, not recycled. It reports whether a group
// was found.
func (d *Database) Remove(startHandle uint16) bool {
	for i, g := range d.groups {
		if g.StartHandle != startHandle {
			continue
		}
		d.groups = append(d.groups[:i], d.groups[i+1:]...)
		for _, a := range g.Attributes {
			delete(d.byHandle, a.Handle)
		}
		filtered := d.ordered[:0]
		for _, a := range d.ordered {
			if a.Handle < g.StartHandle || a.Handle > g.EndHandle {
				filtered = append(filtered, a)
			}
		}
		d.ordered = filtered
		return true
	}
	return false
}

// Get returns the attribute at handle, if one exists.
func (d *Database) Get(handle uint16) (*Attribute, bool) {
	a, ok := d.byHandle[handle]
	return a, ok
}

// Contains reports whether handle names a live attribute.
func (d *Database) Contains(handle uint16) bool {
	_, ok := d.byHandle[handle]
	return ok
}

// Write overwrites the value of the attribute at handle. The caller is
// responsible for permission and length checks; Write is the mechanical
// primitive both local writes and Server's peer-write path build on.
func (d *Database) Write(handle uint16, value []byte) bool {
	a, ok := d.byHandle[handle]
	if !ok {
		return false
	}
	a.Value = value
	return true
}

// AttributeGroup returns the group enclosing handle (the service whose
// [StartHandle, EndHandle] contains it) along with the attribute itself.
func (d *Database) AttributeGroup(handle uint16) (*AttributeGroup, *Attribute, bool) {
	a, ok := d.byHandle[handle]
	if !ok {
		return nil, nil, false
	}
	for _, g := range d.groups {
		if handle >= g.StartHandle && handle <= g.EndHandle {
			return g, a, true
		}
	}
	return nil, a, false
}

// inRange reports whether handle lies within [start, end] inclusive.
func inRange(handle, start, end uint16) bool { return handle >= start && handle <= end }

// ReadByGroupType implements the Read By Group Type query of spec.md §4.2:
// every service whose declaration type equals typ and whose handle range
// lies wholly within [start, end], in ascending handle order.
func (d *Database) ReadByGroupType(start, end uint16, typ uuid.UUID) []GroupRecord {
	var out []GroupRecord
	for _, g := range d.groups {
		if !g.Service().UUID.Equal(typ) {
			continue
		}
		if g.StartHandle < start || g.EndHandle > end {
			continue
		}
		out = append(out, GroupRecord{
			StartHandle: g.StartHandle,
			EndHandle:   g.EndHandle,
			Value:       g.Service().Value,
		})
	}
	return out
}

// GroupRecord is one Read By Group Type match.
type GroupRecord struct {
	StartHandle uint16
	EndHandle   uint16
	Value       []byte
}

// ReadByType implements the Read By Type query of spec.md §4.2: every
// attribute in [start, end] whose type equals typ, in ascending handle
// order, without regard to group boundaries.
func (d *Database) ReadByType(start, end uint16, typ uuid.UUID) []*Attribute {
	var out []*Attribute
	for _, a := range d.ordered {
		if inRange(a.Handle, start, end) && a.UUID.Equal(typ) {
			out = append(out, a)
		}
	}
	return out
}

// FindInformation implements the Find Information query of spec.md §4.2:
// every attribute's handle and type in [start, end], in ascending handle
// order.
func (d *Database) FindInformation(start, end uint16) []*Attribute {
	var out []*Attribute
	for _, a := range d.ordered {
		if inRange(a.Handle, start, end) {
			out = append(out, a)
		}
	}
	return out
}

// FindByTypeValueRecord is one Find By Type Value match.
type FindByTypeValueRecord struct {
	FoundHandle uint16
	GroupEnd    uint16
}

// FindByTypeValue implements the Find By Type Value query of spec.md §4.2:
// every attribute in [start, end] whose type equals typ and whose value
// equals value exactly, each paired with the end handle of its enclosing
// group (or its own handle, if it is not enclosed by any group).
func (d *Database) FindByTypeValue(start, end uint16, typ uuid.UUID, value []byte) []FindByTypeValueRecord {
	var out []FindByTypeValueRecord
	for _, a := range d.ordered {
		if !inRange(a.Handle, start, end) || !a.UUID.Equal(typ) || !bytesEqual(a.Value, value) {
			continue
		}
		groupEnd := a.Handle
		if g, _, ok := d.AttributeGroup(a.Handle); ok {
			groupEnd = g.EndHandle
		}
		out = append(out, FindByTypeValueRecord{FoundHandle: a.Handle, GroupEnd: groupEnd})
	}
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
