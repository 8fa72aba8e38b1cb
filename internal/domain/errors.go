package domain

import "errors"

// Domain errors represent error conditions in the scalebridge domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("scalebridge: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("scalebridge: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("scalebridge: shutdown timeout")

	// ErrInvalidTransition is returned for a lifecycle state change the
	// transition table does not allow.
	ErrInvalidTransition = errors.New("scalebridge: invalid state transition")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("scalebridge: invalid configuration")

	// ErrQueueFull is returned by Submit under the reject admission policy
	// when the print queue is at capacity.
	ErrQueueFull = errors.New("scalebridge: print queue full")

	// ErrQueueClosed is returned by Submit and Take after the queue is closed.
	ErrQueueClosed = errors.New("scalebridge: print queue closed")
)

// Frame validation errors. All are recoverable and scoped to a single frame:
// the parser discards the offending frame and resumes with the next one.
var (
	// ErrMalformedFrame indicates missing or out-of-order frame markers.
	ErrMalformedFrame = errors.New("scalebridge: malformed frame")

	// ErrChecksumMismatch indicates the frame trailer did not match the body.
	ErrChecksumMismatch = errors.New("scalebridge: checksum mismatch")

	// ErrFieldCountMismatch indicates the frame body had the wrong number of fields.
	ErrFieldCountMismatch = errors.New("scalebridge: field count mismatch")

	// ErrUnknownRecordType indicates the record type tag was not "WT".
	ErrUnknownRecordType = errors.New("scalebridge: unknown record type")

	// ErrNumericParse indicates the weight field was not a finite number.
	ErrNumericParse = errors.New("scalebridge: numeric parse error")

	// ErrUnknownStatusCode indicates an unrecognized status character.
	ErrUnknownStatusCode = errors.New("scalebridge: unknown status code")
)

// Rendering errors. Recoverable, scoped to one record; no job is produced.
var (
	// ErrUnknownTemplate is returned for an explicit template name that
	// does not exist.
	ErrUnknownTemplate = errors.New("scalebridge: unknown template")

	// ErrMissingField is returned when a required record attribute is blank.
	ErrMissingField = errors.New("scalebridge: missing field")
)
