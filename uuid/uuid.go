// Package uuid implements the Bluetooth-defined UUID and the small set of
// bounded integer newtypes used throughout the ATT/GATT/GAP/HCI codecs.
package uuid

import (
	"bytes"
	"encoding/binary"
	"fmt"

	satori "github.com/satori/go.uuid"
)

// baseUUIDLE is the little-endian wire encoding of the Bluetooth base UUID
// 00000000-0000-1000-8000-00805F9B34FB. Expanding a 16- or 32-bit UUID
// means overwriting len(short) bytes starting at byte 12 with the short
// value.
var baseUUIDLE = [16]byte{
	0xFB, 0x34, 0x9B, 0x5F, 0x80, 0x00, 0x00, 0x80,
	0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// UUID is a Bluetooth attribute type identifier. It may hold a 16-bit,
// 32-bit, or 128-bit value; Equal always compares the expanded 128-bit form.
type UUID struct {
	b []byte // 2, 4, or 16 bytes, little-endian (as carried on the wire)
}

// UUID16 constructs a 16-bit UUID.
func UUID16(v uint16) UUID {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return UUID{b: b}
}

// UUID32 constructs a 32-bit UUID.
func UUID32(v uint32) UUID {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return UUID{b: b}
}

// UUID128 constructs a 128-bit UUID from its little-endian wire bytes.
// It panics if len(b) != 16; callers with untrusted input should go through
// Parse128 or Decode instead.
func UUID128(b []byte) UUID {
	if len(b) != 16 {
		panic(fmt.Sprintf("uuid: UUID128 requires 16 bytes, got %d", len(b)))
	}
	cp := make([]byte, 16)
	copy(cp, b)
	return UUID{b: cp}
}

// UUID128From constructs a 128-bit UUID from its integer value.
func UUID128From(v UInt128) UUID {
	return UUID{b: v.AppendLE(nil)}
}

// Parse128 parses a canonical "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" string
// into a 128-bit UUID, delegating the textual parsing to satori/go.uuid and
// reversing its big-endian byte order onto the wire's little-endian order.
func Parse128(s string) (UUID, error) {
	u, err := satori.FromString(s)
	if err != nil {
		return UUID{}, fmt.Errorf("uuid: parse %q: %w", s, err)
	}
	return UUID128(reverse(u.Bytes())), nil
}

// MustParse128 is like Parse128 but panics on error; intended for use with
// UUID literals known at compile time (service/characteristic declarations).
func MustParse128(s string) UUID {
	u, err := Parse128(s)
	if err != nil {
		panic(err)
	}
	return u
}

// Len reports the width of the UUID in bytes: 2, 4, or 16.
func (u UUID) Len() int { return len(u.b) }

// IsZero reports whether u was never assigned a value.
func (u UUID) IsZero() bool { return len(u.b) == 0 }

// Bytes returns the little-endian wire bytes of u, in its current width.
func (u UUID) Bytes() []byte {
	cp := make([]byte, len(u.b))
	copy(cp, u.b)
	return cp
}

// As128 returns the 128-bit expansion of u. 16- and 32-bit UUIDs are
// expanded against the Bluetooth base UUID; 128-bit UUIDs are returned
// unchanged.
func (u UUID) As128() UUID {
	switch len(u.b) {
	case 16:
		return u
	case 2, 4:
		full := baseUUIDLE
		copy(full[12:12+len(u.b)], u.b)
		return UUID{b: full[:]}
	default:
		return u
	}
}

// UInt128 returns the integer value of u's 128-bit expansion.
func (u UUID) UInt128() UInt128 {
	v, _ := UInt128FromLE(u.As128().b)
	return v
}

// Equal reports whether u and other denote the same attribute type,
// comparing their expanded 128-bit forms.
func (u UUID) Equal(other UUID) bool {
	return bytes.Equal(u.As128().b, other.As128().b)
}

// String renders the canonical "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" form
// for 128-bit UUIDs, or a short "0xXXXX"/"0xXXXXXXXX" form otherwise.
func (u UUID) String() string {
	switch len(u.b) {
	case 2:
		return fmt.Sprintf("0x%04X", binary.LittleEndian.Uint16(u.b))
	case 4:
		return fmt.Sprintf("0x%08X", binary.LittleEndian.Uint32(u.b))
	case 16:
		be := reverse(u.b)
		return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
			be[0:4], be[4:6], be[6:8], be[8:10], be[10:16])
	default:
		return "<invalid uuid>"
	}
}

// Decode parses a UUID of the given width (2, 4, or 16 bytes) from the
// front of b, returning the UUID and the number of bytes consumed.
// It reports ok=false if b is shorter than width.
func Decode(b []byte, width int) (u UUID, n int, ok bool) {
	if len(b) < width {
		return UUID{}, 0, false
	}
	switch width {
	case 2, 4, 16:
	default:
		return UUID{}, 0, false
	}
	cp := make([]byte, width)
	copy(cp, b[:width])
	return UUID{b: cp}, width, true
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}
