package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) writeSelection(c *gin.Context) {
	ids := h.store.Selected()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, selectionResponse{IDs: ids, Count: len(ids)})
}

// GetSelection returns the selected ids.
func (h *Handler) GetSelection(c *gin.Context) {
	h.writeSelection(c)
}

type setSelectionRequest struct {
	IDs []string `json:"ids" binding:"required,dive,required"`
}

// SetSelection replaces the selection. Unknown ids are ignored.
func (h *Handler) SetSelection(c *gin.Context) {
	var req setSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	h.store.SetSelection(req.IDs)
	h.writeSelection(c)
}

// ClearSelection deselects everything.
func (h *Handler) ClearSelection(c *gin.Context) {
	h.store.ClearSelection()
	h.writeSelection(c)
}

type selectAllRequest struct {
	Path string `json:"path"`
}

// SelectAll selects every child of path (default: the current path).
func (h *Handler) SelectAll(c *gin.Context) {
	var req selectAllRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindFailed(c, err)
			return
		}
	}
	if req.Path == "" {
		req.Path = h.store.CurrentPath()
	}
	h.store.SelectAll(req.Path)
	h.writeSelection(c)
}

type toggleRequest struct {
	ID string `json:"id" binding:"required"`
}

// ToggleSelection flips the selection of one document.
func (h *Handler) ToggleSelection(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	h.store.ToggleSelection(req.ID)
	h.writeSelection(c)
}
