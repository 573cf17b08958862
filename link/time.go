package link

import "fmt"

// MaxTimeBetween bounds the gap between two Instants that Sub will accept.
// Instant wraps roughly every 71 minutes; subtracting Instants further apart
// than this is a programmer error, not a legitimate wrapped duration.
const MaxTimeBetween = 5 * 60 * 1000000 // 5 minutes, in microseconds

// Instant is a 32-bit microsecond counter, monotonic modulo wraparound.
type Instant uint32

// Duration is a span of microseconds.
type Duration uint32

// DurationFromMicros builds a Duration from a microsecond count.
func DurationFromMicros(us uint32) Duration { return Duration(us) }

// Micros returns the duration's length in microseconds.
func (d Duration) Micros() uint32 { return uint32(d) }

// Add returns i advanced by d, wrapping on overflow.
func (i Instant) Add(d Duration) Instant {
	return Instant(uint32(i) + uint32(d))
}

// Sub returns the Duration from other to i. Panics if the two instants are
// further apart than MaxTimeBetween, which indicates a programmer error
// rather than a legitimate wraparound.
func (i Instant) Sub(other Instant) Duration {
	diff := uint32(i) - uint32(other)
	if diff > MaxTimeBetween {
		panic(fmt.Sprintf("link: Instant.Sub: %d and %d are more than MaxTimeBetween apart", i, other))
	}
	return Duration(diff)
}

// Timer is a microsecond-accuracy time source with one configurable
// interrupt, implemented by the hosting application.
type Timer interface {
	// Now returns the current time.
	Now() Instant

	// ConfigureInterrupt arranges for the next timer interrupt according to
	// upd.
	ConfigureInterrupt(upd NextUpdate)

	// IsInterruptPending reports whether the configured interrupt has fired.
	IsInterruptPending() bool

	// ClearInterrupt acknowledges a pending interrupt.
	ClearInterrupt()
}

// NextUpdate specifies when LinkLayer.Update should next be called.
type NextUpdate struct {
	kind nextUpdateKind
	at   Instant
}

type nextUpdateKind uint8

const (
	nextUpdateDisable nextUpdateKind = iota
	nextUpdateKeep
	nextUpdateAt
)

// NextUpdateDisable disables the timer; Update does not need to be called
// again until something else (e.g. a received packet) changes state.
func NextUpdateDisable() NextUpdate { return NextUpdate{kind: nextUpdateDisable} }

// NextUpdateKeep leaves the previously configured interrupt time unchanged.
func NextUpdateKeep() NextUpdate { return NextUpdate{kind: nextUpdateKeep} }

// NextUpdateAt schedules the next call to Update at the given Instant.
func NextUpdateAt(at Instant) NextUpdate { return NextUpdate{kind: nextUpdateAt, at: at} }

// IsDisable reports whether this is NextUpdateDisable.
func (n NextUpdate) IsDisable() bool { return n.kind == nextUpdateDisable }

// IsKeep reports whether this is NextUpdateKeep.
func (n NextUpdate) IsKeep() bool { return n.kind == nextUpdateKeep }

// At returns the scheduled Instant and true, if this is NextUpdateAt.
func (n NextUpdate) At() (Instant, bool) { return n.at, n.kind == nextUpdateAt }

func (n NextUpdate) String() string {
	switch n.kind {
	case nextUpdateDisable:
		return "NextUpdate{Disable}"
	case nextUpdateKeep:
		return "NextUpdate{Keep}"
	default:
		return fmt.Sprintf("NextUpdate{At:%d}", n.at)
	}
}
