package serial

import (
	"sync/atomic"
	"time"

	"github.com/nrfperiph/blestack/link"
)

// HostTimer implements link.Timer using the host's wall clock. It is the
// counterpart to an embedded target's hardware timer/counter peripheral:
// there is no radio hardware involved, so it doesn't need the serial link
// at all, just a monotonic clock and a way to arrange a single pending
// interrupt.
type HostTimer struct {
	start   time.Time
	pending atomic.Bool
	armed   *time.Timer
}

// NewHostTimer creates a HostTimer with its epoch at the current instant.
func NewHostTimer() *HostTimer {
	return &HostTimer{start: time.Now()}
}

// Now implements link.Timer.
func (t *HostTimer) Now() link.Instant {
	return link.Instant(uint32(time.Since(t.start).Microseconds()))
}

// ConfigureInterrupt implements link.Timer.
func (t *HostTimer) ConfigureInterrupt(upd link.NextUpdate) {
	if t.armed != nil {
		t.armed.Stop()
		t.armed = nil
	}

	if upd.IsKeep() {
		return
	}
	if upd.IsDisable() {
		return
	}

	at, _ := upd.At()
	delay := time.Duration(at.Sub(t.Now()).Micros()) * time.Microsecond
	t.armed = time.AfterFunc(delay, func() { t.pending.Store(true) })
}

// IsInterruptPending implements link.Timer.
func (t *HostTimer) IsInterruptPending() bool {
	return t.pending.Load()
}

// ClearInterrupt implements link.Timer.
func (t *HostTimer) ClearInterrupt() {
	t.pending.Store(false)
}
