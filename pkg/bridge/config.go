package bridge

import (
	"fmt"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
)

// Config holds the configuration for a Bridge instance.
// Use SetDefaults to fill unset fields with sensible values.
type Config struct {
	// PrinterAddr is the printer's TCP address (host:port).
	PrinterAddr string

	// Label geometry used for template scaling.
	LabelWidth  float64
	LabelHeight float64
	DPI         int

	// QueueCapacity bounds the number of pending labels.
	QueueCapacity int

	// AdmissionPolicy is "reject" or "block".
	AdmissionPolicy string

	// SendInterval is the minimum spacing between transmissions.
	SendInterval time.Duration

	// MaxRetries is the per-job retry budget after the first failure.
	MaxRetries int

	// ConnectTimeout and WriteTimeout bound individual network operations.
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// DrainTimeout bounds how long Stop waits for queued labels to flush.
	DrainTimeout time.Duration

	// BackoffInitial and BackoffMax shape the reconnect delay curve.
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// Template forces a template by name; empty means per-record inference.
	Template string

	// DetailedPrefix, CompactThreshold, UnstableMarker and LineNumber are
	// the rendering tunables.
	DetailedPrefix   string
	CompactThreshold float64
	UnstableMarker   bool
	LineNumber       string
}

// SetDefaults fills unset fields with default values.
func (c *Config) SetDefaults() {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 100
	}
	if c.AdmissionPolicy == "" {
		c.AdmissionPolicy = "reject"
	}
	if c.SendInterval < 0 {
		c.SendInterval = 0
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = 5 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.DPI <= 0 {
		c.DPI = 203
	}
	if c.LabelWidth <= 0 {
		c.LabelWidth = 4
	}
	if c.LabelHeight <= 0 {
		c.LabelHeight = 3
	}
	if c.CompactThreshold == 0 {
		c.CompactThreshold = 50.0
	}
	if c.LineNumber == "" {
		c.LineNumber = "LINE01"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.PrinterAddr == "" {
		return fmt.Errorf("%w: printer address is required", domain.ErrInvalidConfig)
	}
	switch c.AdmissionPolicy {
	case "reject", "block":
	default:
		return fmt.Errorf("%w: admission policy %q", domain.ErrInvalidConfig, c.AdmissionPolicy)
	}
	switch c.Template {
	case "", "standard", "compact", "detailed":
	default:
		return fmt.Errorf("%w: template %q", domain.ErrInvalidConfig, c.Template)
	}
	return nil
}
