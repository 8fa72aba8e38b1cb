// Package cliconfig holds the CLI-facing configuration surface: defaults,
// validation, TOML file loading and environment overrides, merged with
// flag precedence.
package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// Default printer port for raw ZPL over TCP.
const DefaultPrinterPort = 9100

// Config holds CLI configuration for scalebridge.
type Config struct {
	// Printer connection target.
	PrinterHost string
	PrinterPort int

	// Label geometry.
	LabelWidth  float64
	LabelHeight float64
	DPI         int

	// Queue and sender behavior.
	QueueCapacity   int
	AdmissionPolicy string
	SendInterval    time.Duration
	MaxRetries      int
	ConnectTimeout  time.Duration
	WriteTimeout    time.Duration
	DrainTimeout    time.Duration
	BackoffInitial  time.Duration
	BackoffMax      time.Duration

	// Rendering.
	Template         string
	DetailedPrefix   string
	CompactThreshold float64
	UnstableMarker   bool
	LineNumber       string

	// Scale byte-source listener and monitoring endpoint.
	ListenAddr  string
	MonitorAddr string

	Verbose bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		PrinterHost:      "127.0.0.1",
		PrinterPort:      DefaultPrinterPort,
		LabelWidth:       4,
		LabelHeight:      3,
		DPI:              203,
		QueueCapacity:    100,
		AdmissionPolicy:  "reject",
		SendInterval:     500 * time.Millisecond,
		MaxRetries:       3,
		ConnectTimeout:   5 * time.Second,
		WriteTimeout:     5 * time.Second,
		DrainTimeout:     5 * time.Second,
		BackoffInitial:   500 * time.Millisecond,
		BackoffMax:       10 * time.Second,
		DetailedPrefix:   "PRM",
		CompactThreshold: 50.0,
		LineNumber:       "LINE01",
		ListenAddr:       ":4010",
		MonitorAddr:      "127.0.0.1:8766",
	}
}

// PrinterAddr returns the host:port dial target for the printer.
func (c *Config) PrinterAddr() string {
	return fmt.Sprintf("%s:%d", c.PrinterHost, c.PrinterPort)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.PrinterHost == "" {
		return fmt.Errorf("printer-host is required")
	}
	if c.PrinterPort <= 0 || c.PrinterPort > 65535 {
		return fmt.Errorf("printer-port %d out of range", c.PrinterPort)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive")
	}
	switch c.AdmissionPolicy {
	case "reject", "block":
	default:
		return fmt.Errorf("admission policy must be reject or block, got %q", c.AdmissionPolicy)
	}
	if c.DPI <= 0 {
		return fmt.Errorf("dpi must be positive")
	}
	if c.LabelWidth <= 0 || c.LabelHeight <= 0 {
		return fmt.Errorf("label dimensions must be positive")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
