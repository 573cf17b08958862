// Package att implements the Attribute Protocol: a server hosting a list of
// Attributes addressable by 16-bit Handle, responding to the read and
// discovery requests GATT builds on top of.
package att

import (
	"fmt"

	"github.com/nrfperiph/blestack/bytes"
)

// Handle uniquely identifies an attribute on an ATT server. The zero value,
// HandleNull, is a placeholder for "no attribute" (used in error responses)
// and must never be assigned to a real attribute.
type Handle uint16

// HandleNull is the reserved "no attribute" handle.
const HandleNull Handle = 0x0000

// AsU16 returns the raw handle value.
func (h Handle) AsU16() uint16 { return uint16(h) }

func (h Handle) String() string {
	return fmt.Sprintf("%#06x", uint16(h))
}

// ToBytes encodes the handle as a little-endian uint16.
func (h Handle) ToBytes(w *bytes.Writer) error {
	return w.WriteU16LE(uint16(h))
}

// ParseHandle decodes a handle from r.
func ParseHandle(r *bytes.Reader) (Handle, error) {
	v, err := r.ReadU16LE()
	if err != nil {
		return 0, err
	}
	return Handle(v), nil
}

// RawHandleRange is a handle range read directly off the wire, not yet
// checked for validity.
type RawHandleRange struct {
	Start Handle
	End   Handle
}

// ParseRawHandleRange decodes a RawHandleRange from r.
func ParseRawHandleRange(r *bytes.Reader) (RawHandleRange, error) {
	start, err := ParseHandle(r)
	if err != nil {
		return RawHandleRange{}, err
	}
	end, err := ParseHandle(r)
	if err != nil {
		return RawHandleRange{}, err
	}
	return RawHandleRange{Start: start, End: end}, nil
}

// ToBytes encodes the range as two little-endian handles.
func (r RawHandleRange) ToBytes(w *bytes.Writer) error {
	if err := r.Start.ToBytes(w); err != nil {
		return err
	}
	return r.End.ToBytes(w)
}

// Check validates the range according to the spec (start <= end, start !=
// NULL), returning an AttError suitable for sending back to the peer if it
// is invalid.
func (r RawHandleRange) Check() (HandleRange, *AttError) {
	if r.Start > r.End || r.Start == HandleNull {
		return HandleRange{}, NewAttError(ErrorCodeInvalidHandle, r.Start)
	}
	return HandleRange{start: r.Start, end: r.End}, nil
}

// HandleRange is a handle range that has already been validated.
type HandleRange struct {
	start, end Handle
}

// Contains reports whether handle falls within the range, inclusive.
func (r HandleRange) Contains(handle Handle) bool {
	return r.start <= handle && handle <= r.end
}

// Start returns the first handle in the range.
func (r HandleRange) Start() Handle { return r.start }

// End returns the last handle in the range.
func (r HandleRange) End() Handle { return r.end }
