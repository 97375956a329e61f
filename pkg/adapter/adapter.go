package adapter

import (
	"context"
)

// Adapter is a network listener managed by server.Server.
//
// rmshelf runs two of them: the HTTP API and, when enabled, the Prometheus
// metrics endpoint. Both are served from the same process and share the
// application state built by pkg/app.
//
// Lifecycle:
//  1. Creation: Adapter is created with its listener configuration
//  2. Startup: Serve() binds the listener and blocks until shutdown
//  3. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. Stop() may be called
// concurrently with Serve(), and before it.
type Adapter interface {
	// Serve starts the listener and blocks until the context is cancelled,
	// Stop is called, or an unrecoverable error occurs.
	//
	// When the context is cancelled, Serve must shut down gracefully:
	//   - Stop accepting new connections
	//   - Wait for in-flight requests to complete (with timeout)
	//   - Return nil or context.Canceled
	//
	// If Serve returns an error before the context is cancelled, the server
	// treats it as fatal and stops all other adapters.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown.
	//
	// Implementations must:
	//   - Be safe to call multiple times (idempotent)
	//   - Be safe to call concurrently with Serve()
	//   - Respect the context deadline
	Stop(ctx context.Context) error

	// Protocol returns the adapter name for logging ("HTTP", "metrics").
	Protocol() string

	// Port returns the TCP port the adapter listens on.
	//
	// Returns 0 when the port is assigned by the OS and the adapter has not
	// started yet.
	Port() int
}
