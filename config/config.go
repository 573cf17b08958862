// Package config loads bled's runtime configuration from a file,
// environment variables, and defaults. The only CLI input is cmd/bled's
// --config flag, which selects the file; no setting is bound to a flag.
// Environment variables (BLED_*) override the config file, which
// overrides the defaults below.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nrfperiph/blestack/link"
	"github.com/nrfperiph/blestack/sm"
)

// Config is bled's full runtime configuration.
type Config struct {
	// Logging controls log output.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Radio configures the serial-attached radio coprocessor.
	Radio RadioConfig `mapstructure:"radio" yaml:"radio"`

	// Advertising configures the GAP advertising role.
	Advertising AdvertisingConfig `mapstructure:"advertising" yaml:"advertising"`

	// Security selects the ATT/SM security level presented to peers.
	Security SecurityConfig `mapstructure:"security" yaml:"security"`

	// Capture optionally writes a pcap trace of on-air PDUs.
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`

	// Metrics configures the Prometheus metrics HTTP server.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logrus output.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Format is either "text" or "json".
	Format string `mapstructure:"format" yaml:"format"`
}

// RadioConfig addresses the UART-attached radio coprocessor.
type RadioConfig struct {
	// Device is the serial port path, e.g. /dev/ttyACM0.
	Device string `mapstructure:"device" yaml:"device"`

	// BaudRate is the UART baud rate.
	BaudRate int `mapstructure:"baud_rate" yaml:"baud_rate"`
}

// AdvertisingConfig configures GAP advertising.
type AdvertisingConfig struct {
	// Address is the device's 48-bit address, formatted "AA:BB:CC:DD:EE:FF".
	Address string `mapstructure:"address" yaml:"address"`

	// Random selects a random device address; otherwise the address is
	// treated as public.
	Random bool `mapstructure:"random" yaml:"random"`

	// Interval is the time between advertising events.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// Name, if set, is advertised as a Complete Local Name AD structure.
	Name string `mapstructure:"name" yaml:"name"`
}

// SecurityConfig selects the security posture presented over ATT/SM.
type SecurityConfig struct {
	// Level is currently only "none" (SPEC_FULL.md carries no pairing or
	// encryption; see sm.NoSecurity).
	Level string `mapstructure:"level" yaml:"level"`
}

// CaptureConfig configures pcap tracing of on-air PDUs.
type CaptureConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// Load reads configuration from configPath (if non-empty), falling back to
// the default search path, layering in BLED_* environment variables and
// defaults for anything left unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)
	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("BLED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("bled")
	v.SetConfigType("yaml")
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("radio.device", "/dev/ttyACM0")
	v.SetDefault("radio.baud_rate", 115200)
	v.SetDefault("advertising.address", "C0:FF:EE:C0:FF:EE")
	v.SetDefault("advertising.random", true)
	v.SetDefault("advertising.interval", 100*time.Millisecond)
	v.SetDefault("advertising.name", "bled")
	v.SetDefault("security.level", "none")
	v.SetDefault("capture.enabled", false)
	v.SetDefault("capture.path", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)
}

// Validate checks field values the zero-value defaults wouldn't otherwise
// catch, e.g. an advertising interval too small for the radio to keep up
// with.
func Validate(cfg *Config) error {
	if cfg.Radio.Device == "" {
		return fmt.Errorf("radio.device must be set")
	}
	if cfg.Advertising.Interval < 20*time.Millisecond {
		return fmt.Errorf("advertising.interval must be at least 20ms, got %s", cfg.Advertising.Interval)
	}
	if _, err := ParseAddress(cfg.Advertising.Address, cfg.Advertising.Random); err != nil {
		return fmt.Errorf("advertising.address: %w", err)
	}
	switch cfg.Security.Level {
	case "none":
	default:
		return fmt.Errorf("security.level %q is not supported", cfg.Security.Level)
	}
	if cfg.Capture.Enabled && cfg.Capture.Path == "" {
		return fmt.Errorf("capture.path must be set when capture.enabled is true")
	}
	return nil
}

// ParseAddress parses a "AA:BB:CC:DD:EE:FF" string into a link.DeviceAddress.
func ParseAddress(s string, random bool) (link.DeviceAddress, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return link.DeviceAddress{}, fmt.Errorf("expected 6 colon-separated hex octets, got %q", s)
	}

	var raw [6]byte
	for i, p := range parts {
		var b int
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil || b > 0xFF {
			return link.DeviceAddress{}, fmt.Errorf("invalid octet %q in address %q", p, s)
		}
		// Address octets read left-to-right on the wire/string are most
		// significant first; link.DeviceAddress stores bytes[0] as the
		// least significant octet, so reverse them here.
		raw[5-i] = byte(b)
	}

	kind := link.AddressPublic
	if random {
		kind = link.AddressRandom
	}
	return link.NewDeviceAddress(raw, kind), nil
}

// SecurityLevel builds the sm.SecurityLevel named by cfg.
func (cfg *Config) SecurityLevel() sm.SecurityLevel {
	switch cfg.Security.Level {
	case "none":
		fallthrough
	default:
		return sm.NoSecurity{}
	}
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bled")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bled")
}
