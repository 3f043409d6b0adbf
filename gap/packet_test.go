package gap

import (
	"bytes"
	"testing"

	"github.com/go-ble/attgatt/uuid"
)

func TestPackAndParseRoundTrip(t *testing.T) {
	var p Packer
	if err := p.Add(Flags(FlagGeneralDiscoverable | FlagBREDRNotSupported)); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(LocalName{Name: "attgatt", Complete: true}); err != nil {
		t.Fatal(err)
	}
	if err := p.Add(ServiceUUIDs16(true, uuid.UUID16(0x180F))); err != nil {
		t.Fatal(err)
	}

	records, err := Parse(p.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Type != TypeFlags || records[0].Value[0] != byte(FlagGeneralDiscoverable|FlagBREDRNotSupported) {
		t.Errorf("flags record = %+v", records[0])
	}
	if records[1].Type != TypeCompleteLocalName || string(records[1].Value) != "attgatt" {
		t.Errorf("name record = %+v", records[1])
	}
	if records[2].Type != TypeServiceUUIDs16Complete || !bytes.Equal(records[2].Value, []byte{0x0F, 0x18}) {
		t.Errorf("uuid record = %+v", records[2])
	}
}

func TestPackerRejectsOverflow(t *testing.T) {
	var p Packer
	big := ManufacturerSpecificData{CompanyID: 0x004C, Data: make([]byte, MaxPacketLength)}
	if err := p.Add(big); err == nil {
		t.Error("expected overflow to be rejected")
	}
	if p.Len() != 0 {
		t.Error("a rejected Add must not mutate the packer")
	}
}

func TestParseStopsAtPadding(t *testing.T) {
	b := append([]byte{2, TypeFlags, 0x06}, make([]byte, 10)...)
	records, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record before padding, got %d", len(records))
	}
}

func TestDecodeRecordRoundTrip(t *testing.T) {
	tk := SecurityManagerTK{}
	copy(tk.Key[:], bytes.Repeat([]byte{0x5A}, 16))
	records := []Record{
		Flags(FlagGeneralDiscoverable),
		LocalName{Name: "bat", Complete: true},
		TxPowerLevel{Value: -8},
		Appearance{Value: 0x0080},
		SlaveConnectionInterval{Min: 0x0006, Max: 0x0C80},
		AdvertisingInterval(0x00A0),
		LERole(LERolePeripheralPreferred),
		ManufacturerSpecificData{CompanyID: 0x004C, Data: []byte{0x01}},
		ServiceUUIDs32(true, uuid.UUID32(0x12345678)),
		ServiceData16(uuid.UUID16(0x180F), []byte{0x64}),
		PublicTargetAddress([6]byte{1, 2, 3, 4, 5, 6}),
		tk,
		SecurityManagerOOBFlags(OOBDataPresent | OOBLESupported),
	}
	for _, rec := range records {
		v, err := rec.MarshalBinary()
		if err != nil {
			t.Fatalf("type 0x%02X: %v", rec.DataType(), err)
		}
		decoded, ok := DecodeRecord(RawRecord{Type: rec.DataType(), Value: v})
		if !ok {
			t.Fatalf("type 0x%02X: DecodeRecord rejected its own encoding", rec.DataType())
		}
		v2, err := decoded.MarshalBinary()
		if err != nil {
			t.Fatalf("type 0x%02X: re-marshal: %v", rec.DataType(), err)
		}
		if decoded.DataType() != rec.DataType() || !bytes.Equal(v, v2) {
			t.Errorf("type 0x%02X: round trip mismatch: %x vs %x", rec.DataType(), v, v2)
		}
	}
}

func TestDecodeRecordRejectsMalformedValues(t *testing.T) {
	cases := []RawRecord{
		{Type: TypeAppearance, Value: []byte{0x80}},                 // needs 2 bytes
		{Type: TypeSlaveConnectionInterval, Value: []byte{1, 2, 3}}, // needs 4
		{Type: TypeServiceUUIDs16Complete, Value: []byte{0x0F}},     // odd length
		{Type: TypeSecurityManagerTK, Value: []byte{0x5A}},          // needs 16
		{Type: TypePublicTargetAddress, Value: []byte{1, 2, 3}},     // not 6-aligned
		{Type: 0x7E, Value: nil},                                    // unknown type
	}
	for _, tc := range cases {
		if _, ok := DecodeRecord(tc); ok {
			t.Errorf("type 0x%02X with %d-byte value should be rejected", tc.Type, len(tc.Value))
		}
	}
}

func TestParseRejectsTruncatedStructure(t *testing.T) {
	b := []byte{5, TypeFlags, 0x06} // claims 5 bytes follow, only 1 present
	if _, err := Parse(b); err == nil {
		t.Error("expected an error for a truncated AD structure")
	}
}
