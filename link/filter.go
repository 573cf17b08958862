package link

// AddressFilter decides whether a peer device address is allowed to
// perform some action against this Link-Layer (scan or connect).
type AddressFilter interface {
	Matches(address DeviceAddress) bool
}

// AllowAll is an AddressFilter that admits every device (no whitelist).
type AllowAll struct{}

// Matches implements AddressFilter.
func (AllowAll) Matches(DeviceAddress) bool { return true }

// WhitelistFilter is an AddressFilter backed by a fixed list of allowed
// addresses.
type WhitelistFilter struct {
	addresses []DeviceAddress
}

// NewWhitelistFilter creates a filter admitting exactly the given
// addresses.
func NewWhitelistFilter(addresses []DeviceAddress) *WhitelistFilter {
	return &WhitelistFilter{addresses: addresses}
}

// NewSingleAddressFilter creates a filter admitting exactly one address.
func NewSingleAddressFilter(address DeviceAddress) *WhitelistFilter {
	return &WhitelistFilter{addresses: []DeviceAddress{address}}
}

// Matches implements AddressFilter.
func (f *WhitelistFilter) Matches(address DeviceAddress) bool {
	for _, a := range f.addresses {
		if a == address {
			return true
		}
	}
	return false
}

// AdvFilter governs which peer devices may scan and connect to an
// advertising Link-Layer. The zero value (via NewAdvFilter(AllowAll{},
// AllowAll{})) allows everyone, matching pre-whitelist behavior.
type AdvFilter struct {
	scan    AddressFilter
	connect AddressFilter
}

// NewAdvFilter builds an AdvFilter from separate scan and connect
// policies.
func NewAdvFilter(scan, connect AddressFilter) AdvFilter {
	return AdvFilter{scan: scan, connect: connect}
}

// MayScan reports whether device is allowed to receive a SCAN_RSP.
func (f AdvFilter) MayScan(device DeviceAddress) bool {
	if f.scan == nil {
		return true
	}
	return f.scan.Matches(device)
}

// MayConnect reports whether device is allowed to establish a connection.
func (f AdvFilter) MayConnect(device DeviceAddress) bool {
	if f.connect == nil {
		return true
	}
	return f.connect.Matches(device)
}
