// Package app builds the rmshelf process state from configuration.
//
// An App is constructed once in main and owns everything the process runs:
// the document backend, content and session stores, the document store with
// its selection, the session holder, the orphan collector and the listeners.
// Nothing in rmshelf is global; handlers reach the state through the App.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/adapter/web"
	"github.com/marmos91/rmshelf/pkg/api"
	"github.com/marmos91/rmshelf/pkg/config"
	"github.com/marmos91/rmshelf/pkg/docstore"
	"github.com/marmos91/rmshelf/pkg/gc"
	"github.com/marmos91/rmshelf/pkg/server"
	"github.com/marmos91/rmshelf/pkg/session"
	"github.com/marmos91/rmshelf/pkg/store/content"
	"github.com/marmos91/rmshelf/pkg/store/kv"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
)

// App is the process state.
type App struct {
	Config *config.Config

	Backend  metadata.DocumentBackend
	Content  content.ContentStore
	Sessions kv.Store

	Store   *docstore.Store
	Session *session.Holder
	Metrics *config.MetricsResult

	// Collector is nil when the content store cannot be enumerated
	Collector *gc.Collector

	// Handler serves the HTTP API
	Handler http.Handler

	web    *web.WebAdapter
	server *server.Server
}

// New builds an App from cfg.
//
// Construction order:
//  1. Metrics collectors
//  2. Document backend, content store and session storage
//  3. Document store (initial load) and session holder (restore)
//  4. Orphan collector, HTTP router and listeners
//
// A failed initial load or session restore does not fail New: the library
// starts with its error slot set and the user logged out, as the UI would.
//
// Returns:
//   - *App: Ready to Run
//   - error: Store construction or listener configuration error; anything
//     opened so far is closed again
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			if cerr := a.Close(); cerr != nil {
				logger.Warn("Cleanup after failed start: %v", cerr)
			}
		}
	}()

	// ========================================================================
	// Step 1: Metrics
	// ========================================================================

	a.Metrics = config.InitializeMetrics(cfg)

	// ========================================================================
	// Step 2: Stores
	// ========================================================================

	a.Backend, err = config.CreateDocumentBackend(ctx, &cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to create document backend: %w", err)
	}

	a.Content, err = config.CreateContentStore(ctx, &cfg.Content, a.Metrics.S3)
	if err != nil {
		return nil, fmt.Errorf("failed to create content store: %w", err)
	}

	a.Sessions, err = config.CreateSessionStore(ctx, &cfg.Session.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create session storage: %w", err)
	}

	// ========================================================================
	// Step 3: Library and session
	// ========================================================================

	a.Store = docstore.New(a.Backend, a.Content, docstore.Config{
		Locale:  cfg.Sort.Locale,
		Metrics: a.Metrics.Store,
	})
	if err := a.Store.Load(ctx); err != nil {
		logger.Warn("Initial library load failed: %v", err)
	}

	a.Session, err = session.NewHolder(a.Sessions, session.Config{
		Email:       cfg.Session.Email,
		SyncVersion: cfg.Session.SyncVersion,
		Secret:      []byte(cfg.Session.TokenSecret),
		Metrics:     a.Metrics.Session,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session holder: %w", err)
	}
	if cfg.Session.TokenSecret == "" {
		logger.Info("No session.token_secret configured; new user tokens are signed with a random per-process key")
	}
	if err := a.Session.Init(ctx); err != nil {
		logger.Warn("Failed to restore session: %v", err)
	}

	// ========================================================================
	// Step 4: Collector, router and listeners
	// ========================================================================

	a.Collector, err = gc.NewCollector(a.Backend, a.Content, cfg.GC)
	if err != nil {
		logger.Warn("Orphan collection unavailable: %v", err)
		a.Collector, err = nil, nil
	}

	if !logger.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	}
	a.Handler = api.NewRouter(a.Store, a.Session, api.Config{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		LoginPerMinute: cfg.Server.LoginRate.PerMinute,
		LoginBurst:     cfg.Server.LoginRate.Burst,
		Health:         a.Backend,
	})

	a.web = web.New(web.WebConfig{
		Listen:          cfg.Server.Listen,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.Handler)

	a.server = server.New(cfg.Server.ShutdownTimeout)
	if err := a.server.AddAdapter(a.web); err != nil {
		return nil, err
	}
	if a.Metrics.Server != nil {
		if err := a.server.AddAdapter(a.Metrics.Server); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Run starts the collector and the listeners and blocks until ctx is
// cancelled or a listener fails. Stores stay open; call Close afterwards.
//
// Returns:
//   - nil on shutdown by ctx
//   - error if a listener failed
func (a *App) Run(ctx context.Context) error {
	if a.Collector != nil {
		a.Collector.Start()
	}

	err := a.server.Serve(ctx)

	if a.Collector != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if serr := a.Collector.Stop(stopCtx); serr != nil {
			logger.Warn("Garbage collector did not stop: %v", serr)
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// Addr returns the bound API address once Run is listening, or "".
func (a *App) Addr() string {
	if a.web == nil {
		return ""
	}
	return a.web.Addr()
}

// Ready is closed once the API listener is bound.
func (a *App) Ready() <-chan struct{} {
	return a.web.Ready()
}

// Close closes the stores. Safe to call on a partially built App.
func (a *App) Close() error {
	var errs []error
	start := time.Now()

	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session storage: %w", err))
		}
	}
	if a.Content != nil {
		if err := a.Content.Close(); err != nil {
			errs = append(errs, fmt.Errorf("content store: %w", err))
		}
	}
	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("document backend: %w", err))
		}
	}

	logger.Debug("Stores closed in %s", time.Since(start))
	return errors.Join(errs...)
}
