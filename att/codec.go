package att

import (
	"encoding/binary"
	"fmt"

	"github.com/go-ble/attgatt/uuid"
)

// PDU is the Go rendering of spec.md's WireCodable trait: every ATT PDU
// type knows its own opcode and can marshal/unmarshal itself to/from the
// little-endian byte layout the Bluetooth Core Spec defines for it.
type PDU interface {
	Opcode() Opcode
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// FixedLength is implemented by PDUs whose encoded form has an exact byte
// length, letting decode reject malformed frames before field-level parsing.
type FixedLength interface {
	FixedLen() int
}

// errShortBuffer is returned (wrapped) when a PDU's UnmarshalBinary is
// handed fewer bytes than its wire format requires.
func errShortBuffer(pdu string, want, got int) error {
	return fmt.Errorf("att: %s: need at least %d bytes, got %d", pdu, want, got)
}

func errBadOpcode(pdu string, want Opcode, got byte) error {
	return fmt.Errorf("att: %s: expected opcode 0x%02X, got 0x%02X", pdu, byte(want), got)
}

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }

func putLE16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }

// attWriter packs uniform-length records into an MTU-bounded buffer using
// the greedy algorithm spec.md §4.2 requires for Read By Group Type and
// Read By Type responses: each candidate record is staged with Chunk(),
// then either folded into the committed buffer by Commit() (if it still
// fits within the MTU) or discarded.
type attWriter struct {
	mtu      int
	buf      []byte
	chunk    []byte
	chunking bool
}

func newAttWriter(mtu int) *attWriter {
	return &attWriter{mtu: mtu}
}

func (w *attWriter) target() *[]byte {
	if w.chunking {
		return &w.chunk
	}
	return &w.buf
}

// WriteByte appends a single byte, unconditionally, to the current target
// (the committed buffer, or the pending chunk if one is open). Callers use
// this directly (outside of Chunk/Commit) only for fixed header bytes that
// are always guaranteed to fit (opcode, format byte).
func (w *attWriter) WriteByte(b byte) {
	t := w.target()
	*t = append(*t, b)
}

func (w *attWriter) WriteUint16(v uint16) {
	t := w.target()
	*t = append(*t, byte(v), byte(v>>8))
}

func (w *attWriter) WriteUUID(u uuid.UUID) {
	t := w.target()
	*t = append(*t, u.Bytes()...)
}

func (w *attWriter) WriteBytes(b []byte) {
	t := w.target()
	*t = append(*t, b...)
}

// Chunk opens a pending record. It panics if a chunk is already open:
// every Chunk must be paired with a Commit before the next one starts.
func (w *attWriter) Chunk() {
	if w.chunking {
		panic("att: Chunk called while a previous chunk is still open")
	}
	w.chunking = true
	w.chunk = w.chunk[:0]
}

// Commit folds the pending chunk into the committed buffer if doing so
// would not exceed the MTU, and reports whether it did so. It panics if no
// chunk is open.
func (w *attWriter) Commit() bool {
	if !w.chunking {
		panic("att: Commit called without an open Chunk")
	}
	ok := len(w.buf)+len(w.chunk) <= w.mtu
	if ok {
		w.buf = append(w.buf, w.chunk...)
	}
	w.chunking = false
	return ok
}

// Len reports the number of bytes committed so far.
func (w *attWriter) Len() int { return len(w.buf) }

// Remaining reports how many more bytes may be committed before the MTU
// is reached.
func (w *attWriter) Remaining() int { return w.mtu - len(w.buf) }

// Bytes returns the committed buffer.
func (w *attWriter) Bytes() []byte { return w.buf }
