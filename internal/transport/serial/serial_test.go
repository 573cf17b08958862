package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/bytes"
	"github.com/nrfperiph/blestack/link"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf [64]byte
	w := bytes.NewWriter(buf[:])
	require.NoError(t, writeFrame(w, frameTxAdvertising, []byte{0x25, 0x01, 0x02}))
	encoded := buf[:len(buf)-w.SpaceLeft()]

	r := bytes.NewReader(encoded)
	kind, length, err := readFrameHeader(r)
	require.NoError(t, err)
	assert.Equal(t, frameTxAdvertising, kind)
	assert.Equal(t, 3, length)

	body, err := r.ReadSlice(length)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x25, 0x01, 0x02}, body)
	assert.True(t, r.IsEmpty())
}

func TestHostTimerInitiallyNotPending(t *testing.T) {
	timer := NewHostTimer()
	assert.False(t, timer.IsInterruptPending())
}

func TestHostTimerFiresAtConfiguredInstant(t *testing.T) {
	timer := NewHostTimer()
	at := timer.Now().Add(link.DurationFromMicros(1000))
	timer.ConfigureInterrupt(link.NextUpdateAt(at))

	require.Eventually(t, timer.IsInterruptPending, time.Second, time.Millisecond)
}

func TestHostTimerDisableCancelsPendingArm(t *testing.T) {
	timer := NewHostTimer()
	at := timer.Now().Add(link.DurationFromMicros(50_000))
	timer.ConfigureInterrupt(link.NextUpdateAt(at))
	timer.ConfigureInterrupt(link.NextUpdateDisable())

	time.Sleep(60 * time.Millisecond)
	assert.False(t, timer.IsInterruptPending())
}

func TestHostTimerClearInterrupt(t *testing.T) {
	timer := NewHostTimer()
	timer.pending.Store(true)
	timer.ClearInterrupt()
	assert.False(t, timer.IsInterruptPending())
}
