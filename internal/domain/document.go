package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is a rendered label: an immutable ordered sequence of printer
// commands, fully determined by the (WeightRecord, template) pair.
type Document struct {
	// Template is the name of the template that produced this document.
	Template string

	// Commands holds the printer command lines in emission order.
	Commands []string
}

// Bytes returns the wire form of the document: commands joined by CRLF
// with a trailing terminator, as the printer expects them.
func (d Document) Bytes() []byte {
	return []byte(strings.Join(d.Commands, "\r\n") + "\r\n")
}

// Contains reports whether any command line contains the given substring.
// Used by delivery verification and tests.
func (d Document) Contains(sub string) bool {
	for _, c := range d.Commands {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

// PrintJob wraps a Document with delivery bookkeeping. It is owned
// exclusively by the print queue and the sender between submission and
// its terminal outcome.
type PrintJob struct {
	// ID uniquely identifies the job in telemetry events.
	ID uuid.UUID

	// Seq is the submission sequence number; delivery preserves Seq order
	// except that retried jobs are re-attempted before later jobs.
	Seq uint64

	// Doc is the rendered label to transmit.
	Doc Document

	// Attempts counts transmission attempts made so far.
	Attempts int

	// EnqueuedAt records when the job was accepted by the queue.
	EnqueuedAt time.Time
}

// ConnectionState describes the sender's outbound printer connection.
type ConnectionState int

const (
	// ConnDisconnected means no connection exists and none is being attempted.
	ConnDisconnected ConnectionState = iota

	// ConnConnecting means a dial attempt is in progress.
	ConnConnecting

	// ConnConnected means the connection is established and writable.
	ConnConnected

	// ConnFailed means the last dial attempt failed; the sender backs off
	// and returns to ConnDisconnected before the next attempt.
	ConnFailed
)

// String returns a human-readable representation of the connection state.
func (c ConnectionState) String() string {
	switch c {
	case ConnDisconnected:
		return "Disconnected"
	case ConnConnecting:
		return "Connecting"
	case ConnConnected:
		return "Connected"
	case ConnFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}
