// Package log provides a logging abstraction for scalebridge components.
//
// This package defines a Logger interface that can be implemented by
// any logging library. Default implementations are provided for zerolog
// and a no-op logger for testing.
//
// # Usage
//
// Use the provided zerolog adapter:
//
//	logger := log.NewZerologAdapter()
//	logger.Info("label delivered", log.Uint64("seq", 12))
//
// Or silence all output:
//
//	logger := log.NewNoopLogger()
package log
