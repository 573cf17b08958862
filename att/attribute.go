package att

// Attribute is a single entry hosted by an ATT server: a handle, a type
// UUID identifying how to interpret the value, and the value itself.
type Attribute struct {
	Type   UUID
	Handle Handle
	Value  []byte
}

// AttributeProvider is the set of attributes an AttributeServer hosts. It is
// queried by callback rather than returning an iterator, since Go has no
// lifetime-generic associated-type equivalent to express "an iterator over
// values I own" any more cleanly than Rust does.
type AttributeProvider interface {
	// ForAttrsInRange calls f with every attribute whose handle falls
	// within r, in ascending handle order. If f returns an error,
	// iteration stops and that error is propagated.
	ForAttrsInRange(r HandleRange, f func(Attribute) error) error

	// IsGroupingAttr reports whether uuid is a valid grouping attribute
	// type usable in a Read By Group Type request.
	IsGroupingAttr(uuid UUID) bool

	// GroupEnd returns the last attribute in the group started by the
	// grouping attribute at handle, if handle is in fact a grouping
	// attribute.
	GroupEnd(handle Handle) (Attribute, bool)
}

// NoAttributes is an AttributeProvider hosting an empty attribute set.
type NoAttributes struct{}

// ForAttrsInRange implements AttributeProvider.
func (NoAttributes) ForAttrsInRange(HandleRange, func(Attribute) error) error { return nil }

// IsGroupingAttr implements AttributeProvider.
func (NoAttributes) IsGroupingAttr(UUID) bool { return false }

// GroupEnd implements AttributeProvider.
func (NoAttributes) GroupEnd(Handle) (Attribute, bool) { return Attribute{}, false }
