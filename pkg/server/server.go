package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/adapter"
)

// DefaultStopTimeout bounds the Stop() calls issued at shutdown.
const DefaultStopTimeout = 30 * time.Second

// ErrAlreadyServed is returned by a second call to Serve.
var ErrAlreadyServed = errors.New("server already served")

// Server manages the lifecycle of the rmshelf listeners.
//
// Architecture:
// The HTTP API and the metrics endpoint are represented as Adapter
// implementations. They share the application state built by pkg/app; the
// Server only starts them together and stops them together.
//
// Lifecycle:
//  1. Creation: New()
//  2. Registration: AddAdapter() for each listener
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: Context cancellation or an adapter failure stops all adapters
//
// Thread safety:
// Server is safe for concurrent use. Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(cfg.Server.ShutdownTimeout)
//	srv.AddAdapter(web.New(webConfig, router))
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
type Server struct {
	// adapters contains all registered adapters, in registration order
	adapters []adapter.Adapter

	// stopTimeout bounds the Stop() calls at shutdown
	stopTimeout time.Duration

	// mu protects adapters and served
	mu sync.RWMutex

	// served is set by the first Serve() call
	served bool
}

// New creates a Server. stopTimeout <= 0 uses DefaultStopTimeout.
func New(stopTimeout time.Duration) *Server {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Server{
		adapters:    make([]adapter.Adapter, 0, 2),
		stopTimeout: stopTimeout,
	}
}

// AddAdapter registers an adapter.
//
// Each adapter must have a distinct protocol name and, unless the OS picks
// the port (Port() == 0), a distinct port.
//
// Returns:
//   - error if the adapter conflicts with an existing adapter or Serve()
//     has already been called
//
// Panics if adapter is nil (programmer error).
func (s *Server) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add %s adapter after Serve() has been called", a.Protocol())
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	s.adapters = append(s.adapters, a)
	logger.Info("Registered %s adapter on port %d", protocol, port)

	return nil
}

// Serve starts all registered adapters and blocks until the context is
// cancelled or an adapter fails.
//
// Shutdown behavior:
// When the context is cancelled or an adapter fails:
//   - All adapters receive Stop() calls in reverse registration order
//   - The Stop() calls share one stopTimeout deadline
//   - Serve() waits for every adapter's Serve() to return
//
// Returns:
//   - context.Canceled (or the context's error) on shutdown by context
//   - the wrapped adapter error if an adapter failed
//   - an error if no adapters are registered or Serve() was already called
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return ErrAlreadyServed
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	return s.serve(ctx, adapters)
}

// serve runs adapters until shutdown.
func (s *Server) serve(parent context.Context, adapters []adapter.Adapter) error {
	logger.Info("Starting rmshelf with %d adapter(s)", len(adapters))

	// Adapters run on a child context so a failing adapter can bring the
	// others down even when the parent context is still live
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// Buffered so failing adapters never block
	errChan := make(chan adapterError, len(adapters))

	var wg sync.WaitGroup
	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Debug("Starting %s adapter", protocol)

			err := a.Serve(ctx)
			switch {
			case err == nil || errors.Is(err, context.Canceled):
				logger.Debug("%s adapter stopped", protocol)
				if ctx.Err() == nil {
					// returned on its own, which is fatal for the server
					errChan <- adapterError{protocol: protocol, err: fmt.Errorf("stopped unexpectedly")}
				}
			case ctx.Err() != nil:
				logger.Warn("%s adapter stopped with error: %v", protocol, err)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-parent.Done():
		logger.Info("Shutdown signal received (reason: %v)", parent.Err())
		shutdownErr = parent.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	cancel()
	s.stopAllAdapters(adapters)

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("rmshelf stopped")
	return shutdownErr
}

// adapterError pairs an adapter protocol name with its error.
type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop() on every adapter in reverse registration
// order. Errors are logged and do not prevent stopping the others.
func (s *Server) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", adp.Protocol(), err)
		} else {
			logger.Debug("%s adapter stop signal sent", adp.Protocol())
		}
	}
}

// Adapters returns a snapshot of the registered adapters.
func (s *Server) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
