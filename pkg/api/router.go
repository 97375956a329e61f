// Package api exposes the document library over HTTP/JSON.
//
// The API stands in for the browser boundary: every screen action of the
// library (listing a folder, creating a folder, deleting the selection,
// uploading files, signing in) is one route under /api/v1. Document routes
// require the user token of the current session as a Bearer token.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/marmos91/rmshelf/internal/ratelimiter"
	"github.com/marmos91/rmshelf/pkg/docstore"
	"github.com/marmos91/rmshelf/pkg/session"
)

// HealthChecker is implemented by the document backend.
type HealthChecker interface {
	Healthcheck(ctx context.Context) error
}

// Config configures the router.
type Config struct {
	// CORSOrigins lists the allowed origins ("*" allows any)
	CORSOrigins []string

	// MaxUploadBytes caps a multipart upload request (0 = unlimited)
	MaxUploadBytes int64

	// LoginPerMinute and LoginBurst limit login attempts per client
	// address. LoginPerMinute = 0 disables limiting.
	LoginPerMinute float64
	LoginBurst     int

	// Health is probed by /healthz (optional)
	Health HealthChecker

	// Now overrides the clock used for relative dates (tests)
	Now func() time.Time
}

// Handler serves the API routes.
type Handler struct {
	store   *docstore.Store
	holder  *session.Holder
	health  HealthChecker
	logins  *ratelimiter.KeyedLimiter
	maxBody int64
	now     func() time.Time
}

// NewHandler creates a Handler over store and holder.
func NewHandler(store *docstore.Store, holder *session.Holder, cfg Config) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		store:   store,
		holder:  holder,
		health:  cfg.Health,
		logins:  ratelimiter.NewKeyed(cfg.LoginPerMinute/60, cfg.LoginBurst, 10*time.Minute),
		maxBody: cfg.MaxUploadBytes,
		now:     now,
	}
}

// NewRouter builds the gin engine serving the API.
func NewRouter(store *docstore.Store, holder *session.Holder, cfg Config) *gin.Engine {
	h := NewHandler(store, holder, cfg)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/session", h.loginLimit(), h.Login)
		v1.GET("/session", h.GetSession)
	}

	authed := v1.Group("")
	authed.Use(h.requireSession())
	{
		authed.DELETE("/session", h.Logout)

		authed.GET("/status", h.Status)
		authed.DELETE("/status/error", h.ClearError)

		authed.GET("/documents", h.ListDocuments)
		authed.PATCH("/documents/:id", h.UpdateDocument)
		authed.POST("/documents/delete", h.DeleteDocuments)
		authed.POST("/folders", h.CreateFolder)
		authed.POST("/uploads", h.Upload)
		authed.POST("/refresh", h.Refresh)
		authed.POST("/navigate", h.Navigate)

		authed.GET("/selection", h.GetSelection)
		authed.PUT("/selection", h.SetSelection)
		authed.DELETE("/selection", h.ClearSelection)
		authed.POST("/selection/all", h.SelectAll)
		authed.POST("/selection/toggle", h.ToggleSelection)
	}

	return r
}

// Healthz reports whether the library is loaded and the backend reachable.
func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{"status": "ok", "loaded": h.store.Loaded()}
	if h.health != nil {
		if err := h.health.Healthcheck(c.Request.Context()); err != nil {
			body["status"] = "unavailable"
			body["error"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
