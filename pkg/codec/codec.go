// Package codec implements the canonical byte-encoding primitives used
// throughout Echo for hashing and replay (spec.md §4.1, §4.8).
//
// Every encoder here is pure: given the same logical input it produces the
// same bytes regardless of platform, goroutine count, or map iteration
// order. Maps are always sorted by key before encoding (I2).
package codec

import "echo-engine/echo/pkg/id"

// Writer accumulates canonical bytes. It is a thin wrapper over a byte
// slice sized with a capacity hint at construction so one encoding rarely
// reallocates.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity hint.
func NewWriter(capHint int) *Writer {
	return &Writer{buf: make([]byte, 0, capHint)}
}

// Bytes returns the accumulated bytes. The returned slice aliases the
// writer's internal buffer; callers that retain it across a Reset must copy.
func (w *Writer) Bytes() []byte { return w.buf }

// Reset empties the writer for reuse.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

// Raw appends b verbatim, with no length prefix.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// U8 appends one byte — used for tags (op tags, slot tags, presence bytes).
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// U16LE appends a little-endian u16 — used for format version numbers.
func (w *Writer) U16LE(v uint16) {
	w.buf = append(w.buf, byte(v), byte(v>>8))
}

// U32LE appends a little-endian u32 — used for policy ids.
func (w *Writer) U32LE(v uint32) {
	w.buf = append(w.buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// U64LE appends a little-endian u64 — the canonical length-prefix width.
func (w *Writer) U64LE(v uint64) {
	w.buf = id.PutUint64LE(w.buf, v)
}

// Hash32 appends a raw 32-byte id, no length prefix (ids are fixed-width).
func (w *Writer) Hash32(h id.Hash) { w.buf = append(w.buf, h[:]...) }

// LenPrefixedBytes appends a u64 length prefix followed by b — the encoding
// used for variable-length attachment payloads.
func (w *Writer) LenPrefixedBytes(b []byte) {
	w.U64LE(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// ListHeader appends the u64 item-count prefix that begins every canonical
// list encoding (§4.1: "u64 little-endian length followed by item
// encodings"). Callers then encode each item themselves, in the already
// sorted order EncodeViolation requires.
func (w *Writer) ListHeader(n int) { w.U64LE(uint64(n)) }
