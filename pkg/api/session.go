package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	DeviceCode string `json:"device_code" binding:"required"`
}

// Login pairs the device with the code from the body and returns the new
// session including both tokens.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_code is required")
		return
	}

	s, err := h.holder.Login(c.Request.Context(), req.DeviceCode)
	if err != nil {
		writeError(c, err)
		return
	}

	issuedAt := s.IssuedAt
	c.JSON(http.StatusCreated, sessionResponse{
		Authenticated: true,
		Credentials:   &s.Credentials,
		Profile:       &s.Profile,
		IssuedAt:      &issuedAt,
	})
}

// GetSession reports whether a session is held. Tokens are never returned
// here, only at login.
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.holder.Current()
	if !ok {
		c.JSON(http.StatusOK, sessionResponse{Authenticated: false})
		return
	}
	issuedAt := s.IssuedAt
	c.JSON(http.StatusOK, sessionResponse{
		Authenticated: true,
		Profile:       &s.Profile,
		IssuedAt:      &issuedAt,
	})
}

// Logout ends the session.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.holder.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
