package att

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nrfperiph/blestack/bytes"
)

// baseUUID is the Bluetooth Base UUID. A 16- or 32-bit UUID alias is turned
// into its full 128-bit form by placing it in the first 4 bytes of this
// UUID.
var baseUUID = uuid.MustParse("00000000-0000-1000-8000-00805F9B34FB")

// UUID is an ATT protocol UUID: either a 16-bit Bluetooth SIG alias or a full
// 128-bit UUID. ATT never carries 32-bit UUIDs; GATT profiles that use them
// convert to 128-bit form before handing the UUID to ATT.
type UUID struct {
	is16  bool
	short uint16
	long  uuid.UUID
}

// UUID16 creates a UUID from its 16-bit Bluetooth SIG alias.
func UUID16(v uint16) UUID {
	return UUID{is16: true, short: v}
}

// UUID128 creates a UUID from a full 128-bit value.
func UUID128(u uuid.UUID) UUID {
	return UUID{long: u}
}

// uuid32To128 expands a 32-bit alias into the Base-UUID-derived 128-bit
// form, matching the conversion the Bluetooth Core Spec defines for 16- and
// 32-bit aliases.
func uuid32To128(v uint32) uuid.UUID {
	full := baseUUID
	full[0] = byte(v >> 24)
	full[1] = byte(v >> 16)
	full[2] = byte(v >> 8)
	full[3] = byte(v)
	return full
}

// Full returns the UUID in its 128-bit form.
func (u UUID) Full() uuid.UUID {
	if u.is16 {
		return uuid32To128(uint32(u.short))
	}
	return u.long
}

// Equal compares two UUIDs for equality. 16-bit UUIDs are compared directly
// when both sides are 16-bit; any other combination compares in 128-bit
// form.
func (u UUID) Equal(other UUID) bool {
	if u.is16 && other.is16 {
		return u.short == other.short
	}
	return u.Full() == other.Full()
}

func (u UUID) String() string {
	if u.is16 {
		return fmt.Sprintf("UUID16(%#04x)", u.short)
	}
	return u.long.String()
}

// ToBytes encodes the UUID in whichever form it was constructed in: 2 bytes
// for a 16-bit alias, 16 bytes (little-endian, per the Bluetooth wire
// format) for a full UUID.
func (u UUID) ToBytes(w *bytes.Writer) error {
	if u.is16 {
		return w.WriteU16LE(u.short)
	}
	raw := u.long
	var le [16]byte
	for i := range raw {
		le[i] = raw[15-i]
	}
	return w.WriteSlice(le[:])
}

// ParseUUID decodes a UUID from exactly as many bytes as remain in r: 2
// bytes are read as a 16-bit alias, 16 bytes as a full UUID, anything else
// is an error.
func ParseUUID(r *bytes.Reader) (UUID, error) {
	switch r.BytesLeft() {
	case 2:
		v, err := r.ReadU16LE()
		if err != nil {
			return UUID{}, err
		}
		return UUID16(v), nil
	case 16:
		raw, err := r.ReadSlice(16)
		if err != nil {
			return UUID{}, err
		}
		var be [16]byte
		for i := range raw {
			be[i] = raw[15-i]
		}
		u, err := uuid.FromBytes(be[:])
		if err != nil {
			return UUID{}, err
		}
		return UUID128(u), nil
	default:
		return UUID{}, bytes.ErrInvalidLength
	}
}
