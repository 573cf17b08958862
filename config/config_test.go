package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrfperiph/blestack/link"
)

func TestParseAddressRoundTrip(t *testing.T) {
	addr, err := ParseAddress("C0:FF:EE:C0:FF:EE", true)
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0xEE, 0xFF, 0xC0, 0xEE, 0xFF, 0xC0}, addr.Bytes())
	assert.True(t, addr.IsRandom())
}

func TestParseAddressPublic(t *testing.T) {
	addr, err := ParseAddress("01:02:03:04:05:06", false)
	require.NoError(t, err)
	assert.Equal(t, link.AddressPublic, addr.Kind())
}

func TestParseAddressRejectsWrongShape(t *testing.T) {
	_, err := ParseAddress("C0:FF:EE", true)
	assert.Error(t, err)

	_, err = ParseAddress("ZZ:FF:EE:C0:FF:EE", true)
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsWithNoConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Radio.Device)
	assert.Equal(t, 115200, cfg.Radio.BaudRate)
	assert.Equal(t, 100*time.Millisecond, cfg.Advertising.Interval)
	assert.Equal(t, "none", cfg.Security.Level)
}

func TestValidateRejectsShortAdvertisingInterval(t *testing.T) {
	cfg := &Config{
		Radio:       RadioConfig{Device: "/dev/ttyACM0"},
		Advertising: AdvertisingConfig{Address: "01:02:03:04:05:06", Interval: time.Millisecond},
		Security:    SecurityConfig{Level: "none"},
	}
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsUnsupportedSecurityLevel(t *testing.T) {
	cfg := &Config{
		Radio:       RadioConfig{Device: "/dev/ttyACM0"},
		Advertising: AdvertisingConfig{Address: "01:02:03:04:05:06", Interval: 100 * time.Millisecond},
		Security:    SecurityConfig{Level: "lesc"},
	}
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsCaptureEnabledWithoutPath(t *testing.T) {
	cfg := &Config{
		Radio:       RadioConfig{Device: "/dev/ttyACM0"},
		Advertising: AdvertisingConfig{Address: "01:02:03:04:05:06", Interval: 100 * time.Millisecond},
		Security:    SecurityConfig{Level: "none"},
		Capture:     CaptureConfig{Enabled: true},
	}
	assert.Error(t, Validate(cfg))
}

func TestSecurityLevelDefaultsToNoSecurity(t *testing.T) {
	cfg := &Config{Security: SecurityConfig{Level: "none"}}
	assert.Equal(t, uint8(23), cfg.SecurityLevel().Mtu())
}
