package ports

import (
	"time"

	"github.com/packbridge/scalebridge/internal/domain"
)

// EventEmitter receives pipeline and delivery telemetry.
// Emitters are called synchronously from the pipeline and sender
// goroutines and must return quickly.
type EventEmitter interface {
	// OnDelivered is called once per job after a successful transmission.
	OnDelivered(job domain.PrintJob, duration time.Duration)

	// OnDropped is called once per job when retries are exhausted or the
	// job is abandoned at shutdown. A dropped job is a terminal outcome,
	// not a process fault.
	OnDropped(job domain.PrintJob, reason error)

	// OnRejected is called when a document is refused admission to the
	// queue under the reject policy.
	OnRejected(reason error)

	// OnParseError is called for each frame the parser discarded.
	OnParseError(err error)

	// OnRenderError is called for each record the template engine refused.
	OnRenderError(err error)

	// OnConnectionState is called on every sender connection state change.
	OnConnectionState(previous, current domain.ConnectionState)
}
