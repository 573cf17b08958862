package bytes

import "encoding/binary"

// Writer wraps a byte slice and writes fixed-size values into it, advancing
// past each write. All Write* methods return ErrEof once the underlying
// slice is full.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer that writes into buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Rest returns the unwritten remainder of the underlying buffer.
func (w *Writer) Rest() []byte {
	return w.buf
}

// SpaceLeft returns the number of bytes that can still be written before
// the writer is full.
func (w *Writer) SpaceLeft() int {
	return len(w.buf)
}

// Skip advances the writer by n bytes without writing anything there. The
// skipped region keeps whatever it held before (normally garbage from a
// reused buffer); callers that rely on this are expected to fill it in
// later, e.g. via SplitOff.
func (w *Writer) Skip(n int) error {
	if w.SpaceLeft() < n {
		return ErrEof
	}
	w.buf = w.buf[n:]
	return nil
}

// SplitOff returns a new Writer over the next n bytes of the buffer and
// advances w past them. This is the back-patching primitive: callers split
// off a header region, write the payload through w, then come back and
// write the header once the payload length is known.
func (w *Writer) SplitOff(n int) (*Writer, error) {
	if w.SpaceLeft() < n {
		return nil, ErrEof
	}
	head := w.buf[:n]
	w.buf = w.buf[n:]
	return NewWriter(head), nil
}

// WriteSlice copies all of p into the writer. If there isn't enough room,
// ErrEof is returned and the writer is left unmodified.
func (w *Writer) WriteSlice(p []byte) error {
	if w.SpaceLeft() < len(p) {
		return ErrEof
	}
	copy(w.buf, p)
	w.buf = w.buf[len(p):]
	return nil
}

// WriteSliceTruncate writes as much of p as fits and returns the number of
// bytes written.
func (w *Writer) WriteSliceTruncate(p []byte) int {
	n := len(p)
	if left := w.SpaceLeft(); n > left {
		n = left
	}
	_ = w.WriteSlice(p[:n])
	return n
}

// WriteU8 writes a single byte.
func (w *Writer) WriteU8(b byte) error {
	return w.WriteSlice([]byte{b})
}

// WriteU16LE writes a little-endian uint16.
func (w *Writer) WriteU16LE(v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return w.WriteSlice(b[:])
}

// WriteU32LE writes a little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return w.WriteSlice(b[:])
}

// WriteU64LE writes a little-endian uint64.
func (w *Writer) WriteU64LE(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return w.WriteSlice(b[:])
}
