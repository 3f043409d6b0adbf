package uuid

import "fmt"

// TxPower is a transmit power level in dBm, constrained to the range the
// Bluetooth Core Spec allows for the TX Power Level advertising record and
// the LE Read Advertising Channel Tx Power return parameter.
type TxPower int8

const (
	minTxPower TxPower = -127
	maxTxPower TxPower = 126
)

// NewTxPower validates v against [-127, 126] and returns the corresponding
// TxPower, or an error if v is out of range.
func NewTxPower(v int) (TxPower, error) {
	if v < int(minTxPower) || v > int(maxTxPower) {
		return 0, fmt.Errorf("uuid: tx power %d out of range [%d, %d]", v, minTxPower, maxTxPower)
	}
	return TxPower(v), nil
}

// MaxTxOctets bounds the LE Set Data Length command's octet parameter.
type MaxTxOctets uint16

const (
	minMaxTxOctets MaxTxOctets = 0x001B
	maxMaxTxOctets MaxTxOctets = 0x00FB
)

// NewMaxTxOctets validates v against [0x001B, 0x00FB].
func NewMaxTxOctets(v uint16) (MaxTxOctets, error) {
	if v < uint16(minMaxTxOctets) || v > uint16(maxMaxTxOctets) {
		return 0, fmt.Errorf("uuid: max tx octets 0x%04X out of range [0x%04X, 0x%04X]", v, minMaxTxOctets, maxMaxTxOctets)
	}
	return MaxTxOctets(v), nil
}

// MaxTxTime bounds the LE Set Data Length command's time parameter, in
// microseconds.
type MaxTxTime uint16

const (
	minMaxTxTime MaxTxTime = 0x0148
	maxMaxTxTime MaxTxTime = 0x4290
)

// NewMaxTxTime validates v against [0x0148, 0x4290].
func NewMaxTxTime(v uint16) (MaxTxTime, error) {
	if v < uint16(minMaxTxTime) || v > uint16(maxMaxTxTime) {
		return 0, fmt.Errorf("uuid: max tx time 0x%04X out of range [0x%04X, 0x%04X]", v, minMaxTxTime, maxMaxTxTime)
	}
	return MaxTxTime(v), nil
}

// DataLength bounds an arbitrary BLE PDU payload length field that carries
// the [0, 251] constraint shared by several HCI LE data-length parameters.
type DataLength uint8

const maxDataLength DataLength = 251

// NewDataLength validates v against [0, 251].
func NewDataLength(v uint8) (DataLength, error) {
	if DataLength(v) > maxDataLength {
		return 0, fmt.Errorf("uuid: data length %d exceeds max %d", v, maxDataLength)
	}
	return DataLength(v), nil
}

// Appearance is the 16-bit GAP appearance value (org.bluetooth.characteristic.gap.appearance).
type Appearance uint16

// Well-known appearance values used by the GAP service default characteristics.
const (
	AppearanceUnknown         Appearance = 0x0000
	AppearanceGenericComputer Appearance = 0x0080
	AppearanceGenericPhone    Appearance = 0x0040
)
