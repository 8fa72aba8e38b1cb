// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [Dialer]: Establishes the outbound printer connection
//   - [Clock]: Time source for rate limiting and backoff (swappable in tests)
//   - [EventEmitter]: Receives per-job terminal events and state changes
//   - [Logger]: Structured logging abstraction (alias of pkg/log)
//
// # Usage
//
// The application layer (internal/app, internal/sender) depends only on
// these interfaces. Concrete implementations (net.Dialer, real clock,
// bridge event fan-out) are injected at construction time.
//
// This separation enables:
//   - Testing the sender loop with an in-memory printer and simulated clock
//   - Swapping the network transport without changing delivery logic
//   - Clear boundaries and dependency direction
package ports
