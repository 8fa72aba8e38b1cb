package bridge

import (
	"time"

	"github.com/packbridge/scalebridge/internal/app"
	"github.com/packbridge/scalebridge/internal/domain"
	"github.com/packbridge/scalebridge/internal/ports"
)

// State represents the lifecycle state of a Bridge.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateDraining
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateDraining:
		return StateDraining
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

// StateChangeEvent is emitted when the bridge lifecycle state changes.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ConnectionEvent is emitted when the printer connection state changes.
type ConnectionEvent struct {
	Previous string
	Current  string
}

// DeliveredEvent is emitted after a label reaches the printer.
type DeliveredEvent struct {
	JobID    string
	Seq      uint64
	Template string
	Attempts int
	Duration time.Duration
}

// DroppedEvent is emitted when a label is abandoned, either because its
// retry budget ran out or because shutdown drained past its turn.
type DroppedEvent struct {
	JobID    string
	Seq      uint64
	Template string
	Attempts int
	Reason   string
}

// RejectedEvent is emitted when the queue refuses a label at admission.
type RejectedEvent struct {
	Reason string
}

// ParseErrorEvent is emitted when a frame fails to parse.
type ParseErrorEvent struct {
	Err error
}

// RenderErrorEvent is emitted when a record fails to render.
type RenderErrorEvent struct {
	Err error
}

// EventHandler receives bridge events. Implementations must not block;
// callbacks run on the pipeline and sender goroutines.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnConnection(event ConnectionEvent)
	OnDelivered(event DeliveredEvent)
	OnDropped(event DroppedEvent)
	OnRejected(event RejectedEvent)
	OnParseError(event ParseErrorEvent)
	OnRenderError(event RenderErrorEvent)
}

// BaseEventHandler provides no-op implementations of all EventHandler
// methods. Embed it to implement only the events you care about.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(event StateChangeEvent) {}
func (BaseEventHandler) OnConnection(event ConnectionEvent)   {}
func (BaseEventHandler) OnDelivered(event DeliveredEvent)     {}
func (BaseEventHandler) OnDropped(event DroppedEvent)         {}
func (BaseEventHandler) OnRejected(event RejectedEvent)       {}
func (BaseEventHandler) OnParseError(event ParseErrorEvent)   {}
func (BaseEventHandler) OnRenderError(event RenderErrorEvent) {}

var _ EventHandler = BaseEventHandler{}

// eventBridge adapts the internal emitter interfaces to the public
// EventHandler and keeps delivery counters for Stats.
type eventBridge struct {
	handler   EventHandler
	delivered *counter
	dropped   *counter
}

var (
	_ ports.EventEmitter = (*eventBridge)(nil)
	_ app.StateEmitter   = (*eventBridge)(nil)
)

func (e *eventBridge) OnStateChange(prev, cur app.State, reason string) {
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(prev),
		Current:  convertState(cur),
		Reason:   reason,
	})
}

func (e *eventBridge) OnConnectionState(prev, cur domain.ConnectionState) {
	e.handler.OnConnection(ConnectionEvent{
		Previous: prev.String(),
		Current:  cur.String(),
	})
}

func (e *eventBridge) OnDelivered(job domain.PrintJob, d time.Duration) {
	e.delivered.inc()
	e.handler.OnDelivered(DeliveredEvent{
		JobID:    job.ID.String(),
		Seq:      job.Seq,
		Template: job.Doc.Template,
		Attempts: job.Attempts,
		Duration: d,
	})
}

func (e *eventBridge) OnDropped(job domain.PrintJob, reason error) {
	e.dropped.inc()
	e.handler.OnDropped(DroppedEvent{
		JobID:    job.ID.String(),
		Seq:      job.Seq,
		Template: job.Doc.Template,
		Attempts: job.Attempts,
		Reason:   reason.Error(),
	})
}

func (e *eventBridge) OnRejected(reason error) {
	e.handler.OnRejected(RejectedEvent{Reason: reason.Error()})
}

func (e *eventBridge) OnParseError(err error) {
	e.handler.OnParseError(ParseErrorEvent{Err: err})
}

func (e *eventBridge) OnRenderError(err error) {
	e.handler.OnRenderError(RenderErrorEvent{Err: err})
}
