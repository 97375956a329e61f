package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/rmshelf/internal/logger"
)

// WebAdapter implements adapter.Adapter for the HTTP API.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections)
//  3. Wait for in-flight requests to complete (up to ShutdownTimeout)
//  4. Force-close remaining connections after timeout
//
// Thread safety:
// All methods are safe for concurrent use. Shutdown is guarded by sync.Once
// so Stop() may be called any number of times.
type WebAdapter struct {
	// config holds the listen address and timeouts
	config WebConfig

	// server serves handler on the listener
	server *http.Server

	// mu guards listener
	mu sync.RWMutex

	// listener is set once Serve has bound the address
	listener net.Listener

	// ready is closed when the listener is bound
	ready chan struct{}

	// shutdownOnce ensures shutdown is only initiated once
	shutdownOnce sync.Once

	// stopped is closed when shutdown has finished; shutdownErr is its result
	stopped     chan struct{}
	shutdownErr error
}

// WebConfig holds configuration parameters for the HTTP API listener.
//
// Default values (applied by New if zero):
//   - ReadHeaderTimeout: 10s
//   - IdleTimeout: 2m
//   - ShutdownTimeout: 30s
//
// ReadTimeout and WriteTimeout default to none because uploads stream large
// bodies.
type WebConfig struct {
	// Name labels the listener in log lines (default: "HTTP API")
	Name string

	// Listen is the host:port to bind (":0" picks a free port)
	Listen string `validate:"required"`

	// ReadHeaderTimeout bounds reading the request headers
	ReadHeaderTimeout time.Duration `validate:"min=0"`

	// ReadTimeout bounds reading a whole request (0 = none)
	ReadTimeout time.Duration `validate:"min=0"`

	// WriteTimeout bounds writing a response (0 = none)
	WriteTimeout time.Duration `validate:"min=0"`

	// IdleTimeout closes idle keep-alive connections
	IdleTimeout time.Duration `validate:"min=0"`

	// ShutdownTimeout is how long in-flight requests may take to finish
	// during graceful shutdown
	ShutdownTimeout time.Duration `validate:"required,gt=0"`
}

// applyDefaults fills in zero values with sensible defaults.
func (c *WebConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "HTTP API"
	}
	if c.ReadHeaderTimeout == 0 {
		c.ReadHeaderTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// validate checks that the configuration is usable.
func (c *WebConfig) validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}
	if c.ReadHeaderTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates a WebAdapter serving handler.
//
// The adapter is created in a stopped state. Call Serve() to bind the
// listener.
//
// Panics if config validation fails or handler is nil (programmer error).
func New(config WebConfig, handler http.Handler) *WebAdapter {
	if handler == nil {
		panic("handler cannot be nil")
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid HTTP config: %v", err))
	}

	return &WebAdapter{
		config: config,
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: config.ReadHeaderTimeout,
			ReadTimeout:       config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
			IdleTimeout:       config.IdleTimeout,
		},
		ready:   make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Serve binds the listener and serves requests until ctx is cancelled or
// Stop is called. Serve must only be called once.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener cannot be bound or shutdown timed out
func (s *WebAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to create HTTP listener on %s: %w", s.config.Listen, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	logger.Info("%s listening on %s", s.config.Name, listener.Addr())

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		logger.Info("%s shutdown signal received: %v", s.config.Name, ctx.Err())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		stopErr := s.Stop(shutdownCtx)
		<-errChan
		return stopErr

	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			// Stop() was called; report how the shutdown went
			return s.waitShutdown()
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop initiates graceful shutdown. In-flight requests get until ctx's
// deadline to complete, then remaining connections are force-closed.
func (s *WebAdapter) Stop(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		defer close(s.stopped)
		logger.Debug("%s shutdown initiated", s.config.Name)

		if err := s.server.Shutdown(ctx); err != nil {
			logger.Warn("%s shutdown did not complete: %v - forcing closure", s.config.Name, err)
			if cerr := s.server.Close(); cerr != nil {
				logger.Debug("Error force-closing %s: %v", s.config.Name, cerr)
			}
			s.shutdownErr = fmt.Errorf("HTTP shutdown timeout: %w", err)
			return
		}
		logger.Info("%s stopped gracefully", s.config.Name)
	})
	return s.waitShutdown()
}

// waitShutdown blocks until a Stop has finished and returns its result.
func (s *WebAdapter) waitShutdown() error {
	<-s.stopped
	return s.shutdownErr
}

// Protocol returns "HTTP".
func (s *WebAdapter) Protocol() string {
	return "HTTP"
}

// Port returns the bound port, or the configured one before Serve.
func (s *WebAdapter) Port() int {
	s.mu.RLock()
	listener := s.listener
	s.mu.RUnlock()

	if listener != nil {
		if addr, ok := listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}

	_, portStr, err := net.SplitHostPort(s.config.Listen)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0
	}
	return port
}

// Addr returns the bound address, or "" before Serve.
func (s *WebAdapter) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Ready is closed once the listener is bound.
func (s *WebAdapter) Ready() <-chan struct{} {
	return s.ready
}
