package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
	"github.com/packbridge/scalebridge/internal/ports"
)

// ShutdownTimeout is the final grace window for workers after a drain
// has been abandoned.
const ShutdownTimeout = 30 * time.Second

// State is the bridge lifecycle state.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateDraining
	StateCrashed
)

var stateNames = [...]string{"Stopped", "Starting", "Running", "Draining", "Crashed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// transitions lists the legal next states. Draining sits between
// Running and Stopped while queued labels are flushed. Crashed is
// reachable from every active state and permits a restart.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateDraining, StateCrashed},
	StateRunning:  {StateDraining, StateCrashed},
	StateDraining: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

func legal(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateEmitter is called after each lifecycle state change.
type StateEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle is the bridge state machine. It also tracks the worker
// goroutines the drain phase must wait for.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter StateEmitter
}

// NewLifecycle creates a lifecycle manager in StateStopped.
func NewLifecycle(logger ports.Logger, emitter StateEmitter) *Lifecycle {
	return &Lifecycle{logger: logger, emitter: emitter}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to next if the transition table allows it.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !legal(prev, next) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, prev, next)
	}
	l.state = next
	l.mu.Unlock()

	// Emit outside the lock.
	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

// CanStart reports whether a transition to Starting is legal.
func (l *Lifecycle) CanStart() bool {
	return legal(l.State(), StateStarting)
}

// CanStop reports whether a transition to Draining is legal.
func (l *Lifecycle) CanStop() bool {
	return legal(l.State(), StateDraining)
}

// SetCancel stores the run context's cancel function.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the run context, releasing blocked workers.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker registers a goroutine the drain phase waits for.
func (l *Lifecycle) AddWorker() { l.wg.Add(1) }

// WorkerDone marks a registered goroutine as exited.
func (l *Lifecycle) WorkerDone() { l.wg.Done() }

// Drain waits up to timeout for registered workers to finish their
// remaining work. If they do not, it runs abandon so the caller can
// discard whatever is still pending, then cancels the run context and
// grants the workers one final ShutdownTimeout window. A nil return
// means every worker has exited.
func (l *Lifecycle) Drain(timeout time.Duration, abandon func()) error {
	if l.wait(timeout) {
		l.Cancel()
		return nil
	}

	l.logger.Warn("drain timed out, abandoning pending work",
		ports.Duration("timeout", timeout),
	)
	if abandon != nil {
		abandon()
	}
	l.Cancel()

	if l.wait(ShutdownTimeout) {
		return nil
	}
	return domain.ErrShutdownTimeout
}

func (l *Lifecycle) wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
