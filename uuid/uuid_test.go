package uuid

import (
	"bytes"
	"testing"
)

func TestUUID16Expansion(t *testing.T) {
	// spec.md §8: BluetoothUUID::Bit16(n).as128() == base UUID with bytes
	// 12..14 replaced by n little-endian.
	got := UUID16(0x1800).As128()
	want := UUID128([]byte{
		0xFB, 0x34, 0x9B, 0x5F, 0x80, 0x00, 0x00, 0x80,
		0x00, 0x10, 0x00, 0x00, 0x00, 0x18, 0x00, 0x00,
	})
	if !got.Equal(want) {
		t.Errorf("UUID16(0x1800).As128() = %x, want %x", got.Bytes(), want.Bytes())
	}
}

func TestUUID32Expansion(t *testing.T) {
	got := UUID32(0x12345678).As128()
	want := UUID128([]byte{
		0xFB, 0x34, 0x9B, 0x5F, 0x80, 0x00, 0x00, 0x80,
		0x00, 0x10, 0x00, 0x00, 0x78, 0x56, 0x34, 0x12,
	})
	if !got.Equal(want) {
		t.Errorf("UUID32(0x12345678).As128() = %x, want %x", got.Bytes(), want.Bytes())
	}
}

func TestEqualAcrossWidths(t *testing.T) {
	if !UUID16(0x2800).Equal(UUID16(0x2800).As128()) {
		t.Error("UUID16 should equal its own 128-bit expansion")
	}
	if UUID16(0x2800).Equal(UUID16(0x2801)) {
		t.Error("distinct 16-bit uuids must not be equal")
	}
}

func TestParse128RoundTrip(t *testing.T) {
	const s = "6e400001-b5a3-f393-e0a9-e50e24dcca9e"
	u, err := Parse128(s)
	if err != nil {
		t.Fatal(err)
	}
	if got := u.String(); got != s {
		t.Errorf("String() = %q, want %q", got, s)
	}
}

func TestUInt128RoundTrip(t *testing.T) {
	v := UInt128{Lo: 0x1122334455667788, Hi: 0x99AABBCCDDEEFF00}
	got, ok := UInt128FromLE(v.AppendLE(nil))
	if !ok || got != v {
		t.Errorf("UInt128FromLE(AppendLE(v)) = %+v, %v; want %+v", got, ok, v)
	}
	if !UUID128From(v).Equal(UUID128From(v)) {
		t.Error("UUIDs built from the same UInt128 must be equal")
	}
	if !v.Bit(3) || v.Bit(0) {
		t.Errorf("Bit: lo half misread (lo=%#x)", v.Lo)
	}
	if !v.Bit(72) {
		t.Errorf("Bit: hi half misread (hi=%#x)", v.Hi)
	}
}

func TestDecode(t *testing.T) {
	b := []byte{0x00, 0x18, 0xFF, 0xFF}
	u, n, ok := Decode(b, 2)
	if !ok || n != 2 {
		t.Fatalf("Decode: ok=%v n=%d", ok, n)
	}
	if !u.Equal(UUID16(0x1800)) {
		t.Errorf("Decode: got %v want 0x1800", u)
	}
}

func TestDecodeShortBuffer(t *testing.T) {
	if _, _, ok := Decode([]byte{0x01}, 2); ok {
		t.Error("Decode should fail on a short buffer")
	}
}

func TestBoundedTxPower(t *testing.T) {
	if _, err := NewTxPower(-128); err == nil {
		t.Error("expected error for tx power below range")
	}
	if _, err := NewTxPower(127); err == nil {
		t.Error("expected error for tx power above range")
	}
	v, err := NewTxPower(-127)
	if err != nil || v != -127 {
		t.Errorf("NewTxPower(-127) = %v, %v", v, err)
	}
}

func TestBoundedMaxTxOctets(t *testing.T) {
	if _, err := NewMaxTxOctets(0x001A); err == nil {
		t.Error("expected error below range")
	}
	if _, err := NewMaxTxOctets(0x00FC); err == nil {
		t.Error("expected error above range")
	}
	if _, err := NewMaxTxOctets(0x001B); err != nil {
		t.Error("0x001B should be valid")
	}
}

func TestReverse(t *testing.T) {
	cases := []struct{ fwd, back []byte }{
		{fwd: []byte{0, 1}, back: []byte{1, 0}},
		{fwd: []byte{0, 1, 2, 3}, back: []byte{3, 2, 1, 0}},
	}
	for _, tt := range cases {
		if got := reverse(tt.fwd); !bytes.Equal(got, tt.back) {
			t.Errorf("reverse(%x) = %x, want %x", tt.fwd, got, tt.back)
		}
	}
}
