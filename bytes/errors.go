// Package bytes provides bounded little-endian encoders and decoders for the
// fixed-size wire formats used throughout the link-layer, L2CAP, and ATT
// codecs.
package bytes

import "errors"

// The flat error taxonomy shared by every wire codec in this module. A
// connection that hits InvalidLength or InvalidValue while decoding a PDU
// should be considered lost; Eof and IncompleteParse indicate a local
// buffer-sizing bug or a malformed peer.
var (
	// ErrInvalidLength is returned when a length field does not match the
	// data actually present.
	ErrInvalidLength = errors.New("invalid length value specified")
	// ErrInvalidValue is returned when a field holds a value that isn't
	// legal for its type (an out-of-range enum discriminant, for example).
	ErrInvalidValue = errors.New("invalid value for field")
	// ErrEof is returned when a read or write runs past the end of the
	// underlying buffer.
	ErrEof = errors.New("end of buffer")
	// ErrIncompleteParse is returned when decoding a fixed-format message
	// leaves unconsumed bytes in the buffer.
	ErrIncompleteParse = errors.New("excess data in buffer")
)
