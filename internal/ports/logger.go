package ports

import "github.com/packbridge/scalebridge/pkg/log"

// Logger is the structured logging port. It aliases pkg/log so internal
// packages do not import the public package directly.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field

// Field constructors re-exported for internal use.
var (
	String   = log.String
	Int      = log.Int
	Uint64   = log.Uint64
	Float64  = log.Float64
	Duration = log.Duration
	Err      = log.Err
)
