package ports

import (
	"context"
	"net"
	"time"
)

// Dialer establishes the outbound printer connection.
// *net.Dialer satisfies this interface.
type Dialer interface {
	// DialContext connects to the address on the named network.
	// The context bounds the connection attempt.
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Clock is the time source used by the sender for rate limiting and
// backoff delays. The production implementation wraps the time package;
// tests substitute a simulated clock to make retry timing deterministic.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that delivers the time after duration d.
	After(d time.Duration) <-chan time.Time
}

// SystemClock implements Clock with the real time package.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// After returns time.After(d).
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
