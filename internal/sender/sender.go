// Package sender owns the single outbound printer connection and drains
// the print queue at the configured rate, with reconnect backoff and
// bounded per-job retries.
package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
	"github.com/packbridge/scalebridge/internal/ports"
	"github.com/packbridge/scalebridge/internal/queue"
)

// Config holds sender tunables. All timeouts are finite; zero values
// fall back to the listed defaults so no operation can block forever.
type Config struct {
	// Addr is the printer's TCP address (host:port).
	Addr string

	// ConnectTimeout bounds each dial attempt. Default 5s.
	ConnectTimeout time.Duration

	// WriteTimeout bounds each document write. Default 5s.
	WriteTimeout time.Duration

	// SendInterval is the minimum spacing between successful
	// transmissions, modeling the printer's physical throughput ceiling.
	SendInterval time.Duration

	// MaxRetries is the number of re-attempts per job after the first
	// failed transmission; once exceeded the job is dropped.
	MaxRetries int

	// BackoffInitial and BackoffMax shape the reconnect delay curve.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

const defaultTimeout = 5 * time.Second

// Sender is the sole writer to the printer connection. It takes jobs
// from the queue one at a time, so delivery is fully serialized.
type Sender struct {
	cfg     Config
	queue   *queue.Queue
	dialer  ports.Dialer
	clock   ports.Clock
	logger  ports.Logger
	emitter ports.EventEmitter
	backoff *backoff

	mu    sync.RWMutex
	state domain.ConnectionState
	conn  net.Conn
}

// New creates a sender draining q. A nil dialer defaults to a plain
// net.Dialer and a nil clock to the system clock.
func New(cfg Config, q *queue.Queue, dialer ports.Dialer, clock ports.Clock, logger ports.Logger, emitter ports.EventEmitter) *Sender {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultTimeout
	}
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Sender{
		cfg:     cfg,
		queue:   q,
		dialer:  dialer,
		clock:   clock,
		logger:  logger,
		emitter: emitter,
		backoff: newBackoff(cfg.BackoffInitial, cfg.BackoffMax),
		state:   domain.ConnDisconnected,
	}
}

// State returns the current connection state. Safe for concurrent use.
func (s *Sender) State() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Run executes the delivery loop until the queue is closed and drained
// (returns nil) or the context ends (returns the context error). Jobs
// in flight when the context ends are reported as dropped, never lost
// silently.
func (s *Sender) Run(ctx context.Context) error {
	defer s.disconnect()

	for {
		job, err := s.queue.Take(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrQueueClosed) {
				return nil
			}
			return err
		}
		if err := s.deliver(ctx, job); err != nil {
			return err
		}
	}
}

// deliver attempts one transmission of job. On write failure the job is
// requeued at the front (preserving order relative to never-attempted
// jobs) until its retry budget is exhausted, at which point it is
// reported dropped. Returns an error only when ctx ends.
func (s *Sender) deliver(ctx context.Context, job domain.PrintJob) error {
	if err := s.ensureConnected(ctx); err != nil {
		s.emitDropped(job, err)
		return err
	}

	job.Attempts++
	start := s.clock.Now()
	err := s.write(job.Doc.Bytes())
	if err == nil {
		s.logger.Info("label delivered",
			ports.String("job", job.ID.String()),
			ports.Uint64("seq", job.Seq),
			ports.Int("attempts", job.Attempts),
		)
		if s.emitter != nil {
			s.emitter.OnDelivered(job, s.clock.Now().Sub(start))
		}
		return s.pace(ctx)
	}

	s.logger.Warn("write failed",
		ports.Err(err),
		ports.String("job", job.ID.String()),
		ports.Int("attempts", job.Attempts),
	)
	s.disconnect()

	if job.Attempts > s.cfg.MaxRetries {
		s.emitDropped(job, err)
		return nil
	}
	s.queue.RequeueFront(job)
	return nil
}

// ensureConnected dials until connected, backing off between attempts.
// Returns an error only when ctx ends.
func (s *Sender) ensureConnected(ctx context.Context) error {
	for {
		s.mu.RLock()
		connected := s.conn != nil
		s.mu.RUnlock()
		if connected {
			return nil
		}

		s.setState(domain.ConnConnecting)
		dialCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		conn, err := s.dialer.DialContext(dialCtx, "tcp", s.cfg.Addr)
		cancel()

		if err == nil {
			s.mu.Lock()
			s.conn = conn
			s.mu.Unlock()
			s.setState(domain.ConnConnected)
			s.backoff.Reset()
			s.logger.Info("printer connected", ports.String("addr", s.cfg.Addr))
			return nil
		}

		s.setState(domain.ConnFailed)
		s.setState(domain.ConnDisconnected)
		delay := s.backoff.Next()
		s.logger.Warn("connect failed",
			ports.Err(err),
			ports.String("addr", s.cfg.Addr),
			ports.Duration("retry_in", delay),
			ports.Int("attempt", s.backoff.Attempts()),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(delay):
		}
	}
}

// write transmits one document under the write deadline.
func (s *Sender) write(payload []byte) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		return net.ErrClosed
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

// pace enforces the minimum inter-send interval after a success.
func (s *Sender) pace(ctx context.Context) error {
	if s.cfg.SendInterval <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.cfg.SendInterval):
		return nil
	}
}

func (s *Sender) disconnect() {
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
	s.setState(domain.ConnDisconnected)
}

func (s *Sender) setState(next domain.ConnectionState) {
	s.mu.Lock()
	prev := s.state
	if prev == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	if s.emitter != nil {
		s.emitter.OnConnectionState(prev, next)
	}
}

func (s *Sender) emitDropped(job domain.PrintJob, reason error) {
	s.logger.Error("label dropped",
		ports.Err(reason),
		ports.String("job", job.ID.String()),
		ports.Uint64("seq", job.Seq),
		ports.Int("attempts", job.Attempts),
	)
	if s.emitter != nil {
		s.emitter.OnDropped(job, reason)
	}
}
