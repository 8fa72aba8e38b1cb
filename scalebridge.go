// Package scalebridge bridges a checkweigher's serial weight stream to a
// networked label printer.
//
// Example usage:
//
//	cfg := bridge.Config{PrinterAddr: "192.168.1.50:9100"}
//	b, err := bridge.New(cfg, bridge.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Stop()
//	b.Feed(chunk) // raw bytes from the scale
package scalebridge

import (
	"github.com/packbridge/scalebridge/pkg/bridge"
)

// Config holds the configuration for a bridge instance.
type Config = bridge.Config

// Bridge is the checkweigher to printer pipeline.
type Bridge = bridge.Bridge

// New creates a stopped bridge from the configuration.
func New(cfg Config, opts ...bridge.Option) (*Bridge, error) {
	return bridge.New(cfg, opts...)
}
