package sender

import "time"

// Default backoff configuration values.
const (
	DefaultBackoffInitial = 500 * time.Millisecond
	DefaultBackoffMax     = 10 * time.Second
)

// backoff is an explicit exponential backoff policy: current delay,
// attempt count, cap. It never sleeps itself; the sender loop queries
// Next and waits on its own clock, which keeps reconnect timing
// deterministic under a simulated clock.
type backoff struct {
	initial  time.Duration
	max      time.Duration
	current  time.Duration
	attempts int
}

// newBackoff creates a backoff policy with the given initial and max delays.
func newBackoff(initial, max time.Duration) *backoff {
	if initial <= 0 {
		initial = DefaultBackoffInitial
	}
	if max <= 0 {
		max = DefaultBackoffMax
	}
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Next returns the delay to wait before the upcoming attempt and
// advances the policy, doubling the delay up to the cap.
func (b *backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	b.attempts++
	return d
}

// Reset restores the initial delay after a successful connection.
func (b *backoff) Reset() {
	b.current = b.initial
	b.attempts = 0
}

// Current returns the delay the next call to Next will return.
func (b *backoff) Current() time.Duration {
	return b.current
}

// Attempts returns the number of delays handed out since the last reset.
func (b *backoff) Attempts() int {
	return b.attempts
}
