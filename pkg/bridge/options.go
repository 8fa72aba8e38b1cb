package bridge

import (
	"github.com/packbridge/scalebridge/internal/app"
	"github.com/packbridge/scalebridge/internal/mettler"
	"github.com/packbridge/scalebridge/internal/ports"
	"github.com/packbridge/scalebridge/pkg/log"
)

// Logger is the logging interface accepted by the bridge.
type Logger = log.Logger

// Dialer establishes printer connections. *net.Dialer satisfies it.
type Dialer = ports.Dialer

// Clock abstracts time for tests.
type Clock = ports.Clock

// Checksum validates frame trailers.
type Checksum = mettler.Checksum

// AnyChecksum accepts every trailer. Use it with scales that emit
// placeholder checksums.
type AnyChecksum = mettler.AnyChecksum

// FilterFunc decides whether a weight record should produce a label.
type FilterFunc = app.FilterFunc

// Option configures a Bridge.
type Option func(*options)

type options struct {
	logger   Logger
	handler  EventHandler
	dialer   Dialer
	clock    Clock
	checksum Checksum
	filter   FilterFunc
}

func defaultOptions() *options {
	return &options{
		logger:  &log.NoopLogger{},
		handler: BaseEventHandler{},
	}
}

// WithLogger sets the logger used by all bridge components.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler registers a handler for bridge events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.handler = handler
		}
	}
}

// WithDialer overrides the dialer used to reach the printer.
func WithDialer(dialer Dialer) Option {
	return func(o *options) {
		o.dialer = dialer
	}
}

// WithClock overrides the clock used for pacing and backoff waits.
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithChecksum overrides the frame checksum algorithm.
func WithChecksum(checksum Checksum) Option {
	return func(o *options) {
		o.checksum = checksum
	}
}

// WithFilter overrides the status filter applied before rendering.
func WithFilter(filter FilterFunc) Option {
	return func(o *options) {
		o.filter = filter
	}
}
