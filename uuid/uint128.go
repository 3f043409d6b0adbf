package uuid

import "encoding/binary"

// UInt128 is a 128-bit unsigned integer, used as the backing value of a
// 128-bit UUID and for the wide feature bitsets HCI reports. The halves
// are plain uint64s so callers can mask and compare without byte juggling.
type UInt128 struct {
	Lo uint64
	Hi uint64
}

// UInt128FromLE decodes a little-endian 16-byte value. It reports ok=false
// if b is not exactly 16 bytes.
func UInt128FromLE(b []byte) (UInt128, bool) {
	if len(b) != 16 {
		return UInt128{}, false
	}
	return UInt128{
		Lo: binary.LittleEndian.Uint64(b[0:8]),
		Hi: binary.LittleEndian.Uint64(b[8:16]),
	}, true
}

// AppendLE appends the little-endian 16-byte encoding of v to b.
func (v UInt128) AppendLE(b []byte) []byte {
	var out [16]byte
	binary.LittleEndian.PutUint64(out[0:8], v.Lo)
	binary.LittleEndian.PutUint64(out[8:16], v.Hi)
	return append(b, out[:]...)
}

// Bit reports whether bit i (0-127, little-endian bit order) is set.
func (v UInt128) Bit(i uint) bool {
	if i < 64 {
		return v.Lo&(1<<i) != 0
	}
	return v.Hi&(1<<(i-64)) != 0
}
