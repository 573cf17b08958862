package link

import "fmt"

// AddressKind distinguishes public (IEEE-assigned) from random device
// addresses.
type AddressKind int

// Address kinds.
const (
	AddressPublic AddressKind = iota
	AddressRandom
)

// DeviceAddress is a 48-bit BLE device address together with its kind.
type DeviceAddress struct {
	bytes [6]byte
	kind  AddressKind
}

// NewDeviceAddress creates a DeviceAddress from its 6 raw bytes (as found
// on air, LSB-first byte order already resolved to bytes[0] = least
// significant octet) and its kind.
func NewDeviceAddress(bytes [6]byte, kind AddressKind) DeviceAddress {
	return DeviceAddress{bytes: bytes, kind: kind}
}

// Bytes returns the 6 raw address bytes.
func (a DeviceAddress) Bytes() [6]byte {
	return a.bytes
}

// Kind reports whether this is a public or random address.
func (a DeviceAddress) Kind() AddressKind {
	return a.kind
}

// IsRandom reports whether this is a random device address.
func (a DeviceAddress) IsRandom() bool {
	return a.kind == AddressRandom
}

func (a DeviceAddress) String() string {
	b := a.bytes
	kind := "public"
	if a.IsRandom() {
		kind = "random"
	}
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X (%s)", b[5], b[4], b[3], b[2], b[1], b[0], kind)
}
