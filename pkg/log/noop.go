package log

// NoopLogger discards everything. Useful as a default when callers of
// the public API do not pass a logger.
type NoopLogger struct{}

// NewNoopLogger creates a logger that discards all messages.
func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
