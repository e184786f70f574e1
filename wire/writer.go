// Package wire implements the little-endian binary framing the supervisor
// protocol uses between the controller process and the simulator: fixed
// width integers, raw byte blocks, and NUL-terminated strings, with
// accumulated-error semantics so a long chain of writes or reads can be
// checked once at the end instead of after every call.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Writer accumulates a little-endian encoded request frame with
// append-based growth and pre-allocated capacity. Once an error occurs,
// all subsequent writes become no-ops.
type Writer struct {
	buf []byte
	err error
}

// NewWriter creates a new Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{
		buf: make([]byte, 0, capacity),
	}
}

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

// WriteBool appends a single byte, 1 for true and 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// WriteUint16 appends a little-endian uint16.
func (w *Writer) WriteUint16(v uint16) {
	if w.err != nil {
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt32 appends a little-endian int32.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteUint32 appends a little-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint64 appends a little-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	if w.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteFloat64 appends a little-endian IEEE-754 double.
func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteFloat64Slice appends n consecutive doubles, used for vector-valued
// fields such as rotation (4) and color (3).
func (w *Writer) WriteFloat64Slice(vs []float64) {
	for _, v := range vs {
		w.WriteFloat64(v)
	}
}

// WriteBytes appends raw bytes.
func (w *Writer) WriteBytes(data []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, data...)
}

// WriteCString appends a NUL-terminated string.
func (w *Writer) WriteCString(s string) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteZeros appends n zero bytes.
func (w *Writer) WriteZeros(n int) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, make([]byte, n)...)
}

// WriteAt overwrites bytes at the specified offset. Used for backpatching
// a frame's length prefix once the payload size is known.
func (w *Writer) WriteAt(offset int, data []byte) {
	if w.err != nil {
		return
	}
	if offset+len(data) > len(w.buf) {
		w.err = fmt.Errorf("wire: WriteAt out of bounds: offset %d + %d > %d", offset, len(data), len(w.buf))
		return
	}
	copy(w.buf[offset:], data)
}

// Bytes returns the accumulated bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length of the buffer.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset empties the buffer and clears any error, for reuse across steps.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
}

// Err returns the first error encountered, or nil.
func (w *Writer) Err() error {
	return w.err
}
