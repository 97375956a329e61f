package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marmos91/rmshelf/internal/logger"
)

// requestLogger logs every request at DEBUG.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// requireSession rejects requests that do not carry the current user token.
func (h *Handler) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.holder.Verify(bearerToken(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{
				Error: "not signed in",
				Code:  "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// loginLimit limits login attempts per client address.
func (h *Handler) loginLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.logins.Allow(c.ClientIP()) {
			logger.Warn("Login rate limit exceeded for %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
				Error: "too many login attempts, try again later",
				Code:  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
