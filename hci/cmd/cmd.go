// Package cmd implements the HCI LE Controller command parameter and
// return-parameter encodings needed to drive advertising and scanning,
// generalizing the teacher's hci/cmd package. It is a codec layer only:
// no command is ever issued over a transport here (spec.md's Non-goals
// exclude HCI transport and OS driver integration).
package cmd

import (
	"encoding/binary"
	"fmt"
)

// Opcode is a two-byte HCI command opcode: OGF in the high 6 bits, OCF in
// the low 10, per the Bluetooth Core Spec Vol 2 Part E §5.4.1.
type Opcode uint16

// ogfLEController is the Opcode Group Field for all LE Controller commands.
const ogfLEController = 0x08

func leOpcode(ocf uint16) Opcode { return Opcode(ogfLEController<<10 | ocf) }

// LE Controller command opcodes this package implements.
var (
	opLEReadBufferSize                = leOpcode(0x0002)
	opLEReadLocalSupportedFeatures    = leOpcode(0x0003)
	opLESetRandomAddress              = leOpcode(0x0005)
	opLESetAdvertisingParameters      = leOpcode(0x0006)
	opLEReadAdvertisingChannelTxPower = leOpcode(0x0007)
	opLESetAdvertisingData            = leOpcode(0x0008)
	opLESetScanResponseData           = leOpcode(0x0009)
	opLESetAdvertiseEnable            = leOpcode(0x000A)
	opLESetScanParameters             = leOpcode(0x000B)
	opLESetScanEnable                 = leOpcode(0x000C)
)

// Param is the Go rendering of the teacher's CmdParam interface: a
// command parameter that knows its own opcode and can marshal itself to
// the command packet's parameter bytes.
type Param interface {
	Opcode() Opcode
	Marshal() []byte
}

// ReturnParam is the symmetric decoder for a Command Complete event's
// return parameters.
type ReturnParam interface {
	Unmarshal(b []byte) error
}

// LESetRandomAddress is the 0x2005 command.
type LESetRandomAddress struct {
	RandomAddress [6]byte
}

func (c LESetRandomAddress) Opcode() Opcode { return opLESetRandomAddress }
func (c LESetRandomAddress) Marshal() []byte {
	b := make([]byte, 6)
	copy(b, c.RandomAddress[:])
	return b
}

// LESetRandomAddressRP is its return parameters: just a status byte,
// which the caller's generic command-complete handling already captures,
// so this type carries no fields of its own.
type LESetRandomAddressRP struct{}

func (rp *LESetRandomAddressRP) Unmarshal(b []byte) error { return nil }

// Advertising types, per the Core Spec's LE Set Advertising Parameters.
const (
	AdvInd           = 0x00
	AdvDirectIndHigh = 0x01
	AdvScanInd       = 0x02
	AdvNonconnInd    = 0x03
	AdvDirectIndLow  = 0x04
)

// LESetAdvertisingParameters is the 0x2006 command.
type LESetAdvertisingParameters struct {
	AdvertisingIntervalMin  uint16
	AdvertisingIntervalMax  uint16
	AdvertisingType         uint8
	OwnAddressType          uint8
	DirectAddressType       uint8
	DirectAddress           [6]byte
	AdvertisingChannelMap   uint8
	AdvertisingFilterPolicy uint8
}

func (c LESetAdvertisingParameters) Opcode() Opcode { return opLESetAdvertisingParameters }
func (c LESetAdvertisingParameters) Marshal() []byte {
	b := make([]byte, 15)
	binary.LittleEndian.PutUint16(b[0:2], c.AdvertisingIntervalMin)
	binary.LittleEndian.PutUint16(b[2:4], c.AdvertisingIntervalMax)
	b[4] = c.AdvertisingType
	b[5] = c.OwnAddressType
	b[6] = c.DirectAddressType
	copy(b[7:13], c.DirectAddress[:])
	b[13] = c.AdvertisingChannelMap
	b[14] = c.AdvertisingFilterPolicy
	return b
}

// LESetAdvertisingParametersRP carries no fields beyond status.
type LESetAdvertisingParametersRP struct{}

func (rp *LESetAdvertisingParametersRP) Unmarshal(b []byte) error { return nil }

// LEReadAdvertisingChannelTxPower is the 0x2007 command. It has no
// parameters.
type LEReadAdvertisingChannelTxPower struct{}

func (c LEReadAdvertisingChannelTxPower) Opcode() Opcode  { return opLEReadAdvertisingChannelTxPower }
func (c LEReadAdvertisingChannelTxPower) Marshal() []byte { return nil }

// LEReadAdvertisingChannelTxPowerRP is the signed dBm power level.
type LEReadAdvertisingChannelTxPowerRP struct {
	TransmitPowerLevel int8
}

func (rp *LEReadAdvertisingChannelTxPowerRP) Unmarshal(b []byte) error {
	if len(b) < 1 {
		return errShort("LEReadAdvertisingChannelTxPowerRP", 1, len(b))
	}
	rp.TransmitPowerLevel = int8(b[0])
	return nil
}

// LESetAdvertisingData is the 0x2008 command: up to 31 bytes of payload,
// left-padded with a length byte, per the Core Spec's fixed 31-byte field.
type LESetAdvertisingData struct {
	Data []byte
}

func (c LESetAdvertisingData) Opcode() Opcode { return opLESetAdvertisingData }
func (c LESetAdvertisingData) Marshal() []byte {
	b := make([]byte, 32)
	b[0] = byte(len(c.Data))
	copy(b[1:], c.Data)
	return b
}

// LESetAdvertisingDataRP carries no fields beyond status.
type LESetAdvertisingDataRP struct{}

func (rp *LESetAdvertisingDataRP) Unmarshal(b []byte) error { return nil }

// LESetScanResponseData is the 0x2009 command, same shape as
// LESetAdvertisingData but for the scan response payload.
type LESetScanResponseData struct {
	Data []byte
}

func (c LESetScanResponseData) Opcode() Opcode { return opLESetScanResponseData }
func (c LESetScanResponseData) Marshal() []byte {
	b := make([]byte, 32)
	b[0] = byte(len(c.Data))
	copy(b[1:], c.Data)
	return b
}

// LESetScanResponseDataRP carries no fields beyond status.
type LESetScanResponseDataRP struct{}

func (rp *LESetScanResponseDataRP) Unmarshal(b []byte) error { return nil }

// LESetAdvertiseEnable is the 0x200A command.
type LESetAdvertiseEnable struct {
	AdvertisingEnable uint8
}

func (c LESetAdvertiseEnable) Opcode() Opcode  { return opLESetAdvertiseEnable }
func (c LESetAdvertiseEnable) Marshal() []byte { return []byte{c.AdvertisingEnable} }

// LESetAdvertiseEnableRP carries no fields beyond status.
type LESetAdvertiseEnableRP struct{}

func (rp *LESetAdvertiseEnableRP) Unmarshal(b []byte) error { return nil }

// LESetScanParameters is the 0x200B command.
type LESetScanParameters struct {
	LEScanType           uint8
	LEScanInterval       uint16
	LEScanWindow         uint16
	OwnAddressType       uint8
	ScanningFilterPolicy uint8
}

func (c LESetScanParameters) Opcode() Opcode { return opLESetScanParameters }
func (c LESetScanParameters) Marshal() []byte {
	b := make([]byte, 7)
	b[0] = c.LEScanType
	binary.LittleEndian.PutUint16(b[1:3], c.LEScanInterval)
	binary.LittleEndian.PutUint16(b[3:5], c.LEScanWindow)
	b[5] = c.OwnAddressType
	b[6] = c.ScanningFilterPolicy
	return b
}

// LESetScanParametersRP carries no fields beyond status.
type LESetScanParametersRP struct{}

func (rp *LESetScanParametersRP) Unmarshal(b []byte) error { return nil }

// LESetScanEnable is the 0x200C command.
type LESetScanEnable struct {
	LEScanEnable     uint8
	FilterDuplicates uint8
}

func (c LESetScanEnable) Opcode() Opcode  { return opLESetScanEnable }
func (c LESetScanEnable) Marshal() []byte { return []byte{c.LEScanEnable, c.FilterDuplicates} }

// LESetScanEnableRP carries no fields beyond status.
type LESetScanEnableRP struct{}

func (rp *LESetScanEnableRP) Unmarshal(b []byte) error { return nil }

// LEReadBufferSize is the 0x2002 command. It has no parameters.
type LEReadBufferSize struct{}

func (c LEReadBufferSize) Opcode() Opcode  { return opLEReadBufferSize }
func (c LEReadBufferSize) Marshal() []byte { return nil }

// LEReadBufferSizeRP reports the controller's LE data buffer capacity.
type LEReadBufferSizeRP struct {
	HCLEACLDataPacketLength    uint16
	HCTotalNumLEACLDataPackets uint8
}

func (rp *LEReadBufferSizeRP) Unmarshal(b []byte) error {
	if len(b) < 3 {
		return errShort("LEReadBufferSizeRP", 3, len(b))
	}
	rp.HCLEACLDataPacketLength = binary.LittleEndian.Uint16(b[0:2])
	rp.HCTotalNumLEACLDataPackets = b[2]
	return nil
}

// LEReadLocalSupportedFeatures is the 0x2003 command. It has no
// parameters.
type LEReadLocalSupportedFeatures struct{}

func (c LEReadLocalSupportedFeatures) Opcode() Opcode  { return opLEReadLocalSupportedFeatures }
func (c LEReadLocalSupportedFeatures) Marshal() []byte { return nil }

// LEReadLocalSupportedFeaturesRP is the 8-byte LE feature mask.
type LEReadLocalSupportedFeaturesRP struct {
	LEFeatures uint64
}

func (rp *LEReadLocalSupportedFeaturesRP) Unmarshal(b []byte) error {
	if len(b) < 8 {
		return errShort("LEReadLocalSupportedFeaturesRP", 8, len(b))
	}
	rp.LEFeatures = binary.LittleEndian.Uint64(b)
	return nil
}

func errShort(name string, want, got int) error {
	return fmt.Errorf("cmd: %s: need %d bytes, got %d", name, want, got)
}
