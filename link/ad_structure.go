package link

import "github.com/nrfperiph/blestack/bytes"

// AdType is the type-tag byte of an AD structure. Values are assigned by
// the Bluetooth SIG's Generic Access Profile numbers document.
type AdType uint8

// AD structure type tags this stack encodes or recognizes when decoding.
const (
	AdTypeFlags                      AdType = 0x01
	AdTypeIncomplete16BitServiceUuid AdType = 0x02
	AdTypeComplete16BitServiceUuid   AdType = 0x03
	AdTypeShortenedLocalName         AdType = 0x08
	AdTypeCompleteLocalName          AdType = 0x09
	AdTypeServiceData16Bit           AdType = 0x16
	AdTypeManufacturerSpecificData   AdType = 0xFF
)

// Flags is the BR/EDR and LE compatibility flags byte carried by the Flags
// AD structure.
type Flags uint8

// Known flag bits.
const (
	FlagLELimitedDiscoverable Flags = 1 << 0
	FlagLEGeneralDiscoverable Flags = 1 << 1
	FlagBREDRNotSupported     Flags = 1 << 2
	FlagSimulLEBRController   Flags = 1 << 3
	FlagSimulLEBRHost         Flags = 1 << 4
)

// DiscoverableFlags returns the flags for a device that is not BR/EDR
// capable and wants to be found and connected to.
func DiscoverableFlags() Flags {
	return FlagBREDRNotSupported | FlagLEGeneralDiscoverable
}

// BroadcastFlags returns the flags for a non-connectable, non-BR/EDR
// broadcaster.
func BroadcastFlags() Flags {
	return FlagBREDRNotSupported
}

// AdStructure is one length-prefixed type-value record carried in an
// advertising or scan response payload.
type AdStructure struct {
	ty   AdType
	data []byte
}

// NewFlagsAd builds a Flags AD structure.
func NewFlagsAd(f Flags) AdStructure {
	return AdStructure{ty: AdTypeFlags, data: []byte{byte(f)}}
}

// NewCompleteLocalNameAd builds a Complete Local Name AD structure.
func NewCompleteLocalNameAd(name string) AdStructure {
	return AdStructure{ty: AdTypeCompleteLocalName, data: []byte(name)}
}

// NewShortenedLocalNameAd builds a Shortened Local Name AD structure.
func NewShortenedLocalNameAd(name string) AdStructure {
	return AdStructure{ty: AdTypeShortenedLocalName, data: []byte(name)}
}

// NewServiceData16Ad builds a 16-bit Service Data AD structure.
func NewServiceData16Ad(uuid uint16, data []byte) AdStructure {
	buf := make([]byte, 2+len(data))
	buf[0] = byte(uuid)
	buf[1] = byte(uuid >> 8)
	copy(buf[2:], data)
	return AdStructure{ty: AdTypeServiceData16Bit, data: buf}
}

// NewManufacturerSpecificDataAd builds a Manufacturer Specific Data AD
// structure for the given company identifier.
func NewManufacturerSpecificDataAd(company CompanyId, payload []byte) AdStructure {
	buf := make([]byte, 2+len(payload))
	buf[0] = byte(company.AsU16())
	buf[1] = byte(company.AsU16() >> 8)
	copy(buf[2:], payload)
	return AdStructure{ty: AdTypeManufacturerSpecificData, data: buf}
}

// NewUnknownAd wraps an arbitrary type/data pair, used to round-trip AD
// structures this stack doesn't otherwise model.
func NewUnknownAd(ty AdType, data []byte) AdStructure {
	return AdStructure{ty: ty, data: data}
}

// Type returns the AD structure's type tag.
func (a AdStructure) Type() AdType { return a.ty }

// Data returns the AD structure's type-specific payload (not including the
// length byte or the type byte itself).
func (a AdStructure) Data() []byte { return a.data }

// ToBytes writes the length-prefixed AD structure (length, then type byte,
// then data) into w.
func (a AdStructure) ToBytes(w *bytes.Writer) error {
	lenSlot, err := w.SplitOff(1)
	if err != nil {
		return err
	}
	left := w.SpaceLeft()

	if err := w.WriteU8(uint8(a.ty)); err != nil {
		return err
	}
	if err := w.WriteSlice(a.data); err != nil {
		return err
	}

	used := left - w.SpaceLeft()
	return lenSlot.WriteU8(uint8(used))
}

// ParseAdStructures decodes a sequence of AD structures from raw advertising
// or scan response payload bytes. A zero-length or truncated record fails
// the whole parse: it returns a nil slice and the error.
func ParseAdStructures(raw []byte) ([]AdStructure, error) {
	r := bytes.NewReader(raw)
	var out []AdStructure
	for !r.IsEmpty() {
		length, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if length == 0 {
			return nil, bytes.ErrInvalidLength
		}
		tyAndData, err := r.ReadSlice(int(length))
		if err != nil {
			return nil, err
		}
		out = append(out, AdStructure{ty: AdType(tyAndData[0]), data: tyAndData[1:]})
	}
	return out, nil
}
