package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/marmos91/rmshelf/pkg/docstore"
	"github.com/marmos91/rmshelf/pkg/document"
)

// sortParams parses the sort and order query parameters.
func sortParams(c *gin.Context) (document.SortKey, document.Direction, error) {
	key, err := document.ParseSortKey(c.Query("sort"))
	if err != nil {
		return "", "", err
	}
	dir, err := document.ParseDirection(c.Query("order"))
	if err != nil {
		return "", "", err
	}
	return key, dir, nil
}

// writeListing renders the listing of path sorted by the query parameters.
func (h *Handler) writeListing(c *gin.Context, path string) {
	key, dir, err := sortParams(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listingView(h.store.Listing(path, key, dir)))
}

// writeBatch renders a batch result. A batch in which nothing succeeded and
// something failed takes the status of its first failure.
func writeBatch(c *gin.Context, result docstore.BatchResult) {
	status := http.StatusOK
	ok, failed, _ := result.Counts()
	if failed > 0 && ok == 0 {
		status = statusOf(result.Failed()[0].Err)
	}
	c.JSON(status, batchView(result))
}

// ListDocuments lists the children of ?path= (default: the current path).
// An unknown path yields an empty listing with found=false.
func (h *Handler) ListDocuments(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		path = h.store.CurrentPath()
	}
	h.writeListing(c, path)
}

type createFolderRequest struct {
	Name string `json:"name" binding:"required"`
	Path string `json:"path"`
}

// CreateFolder creates a collection under path (default: the current path).
func (h *Handler) CreateFolder(c *gin.Context) {
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if req.Path == "" {
		req.Path = h.store.CurrentPath()
	}

	created, err := h.store.CreateFolder(c.Request.Context(), req.Name, req.Path)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

type updateDocumentRequest struct {
	Name *string `json:"name" binding:"required_without=Path,excluded_with=Path"`
	Path *string `json:"path" binding:"required_without=Name"`
}

// UpdateDocument renames ({"name"}) or moves ({"path"}) a document.
func (h *Handler) UpdateDocument(c *gin.Context) {
	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	id := c.Param("id")
	var (
		updated document.Document
		err     error
	)
	switch {
	case req.Name != nil && req.Path != nil:
		badRequest(c, "rename and move cannot be combined")
		return
	case req.Name != nil:
		updated, err = h.store.Rename(c.Request.Context(), id, *req.Name)
	case req.Path != nil:
		updated, err = h.store.Move(c.Request.Context(), id, *req.Path)
	default:
		badRequest(c, "one of name or path is required")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type deleteRequest struct {
	IDs             []string `json:"ids" binding:"required_without=Selection,dive,required"`
	Selection       bool     `json:"selection"`
	ContinueOnError bool     `json:"continue_on_error"`
}

// DeleteDocuments deletes the given ids, or the current selection when
// "selection" is set.
func (h *Handler) DeleteDocuments(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	opts := docstore.BatchOptions{ContinueOnError: req.ContinueOnError}
	var (
		result docstore.BatchResult
		err    error
	)
	switch {
	case req.Selection:
		result, err = h.store.DeleteSelected(c.Request.Context(), opts)
	case len(req.IDs) > 0:
		result, err = h.store.DeleteMany(c.Request.Context(), req.IDs, opts)
	default:
		badRequest(c, "ids is required")
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	writeBatch(c, result)
}

// Upload stores the multipart "files" under ?path= (default: the current
// path). Files with an unsupported extension are dropped.
func (h *Handler) Upload(c *gin.Context) {
	if h.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	}

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, errorBody{
				Error: fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
				Code:  document.ErrValidation.String(),
			})
			return
		}
		badRequest(c, "expected a multipart form")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "no files in upload")
		return
	}

	files := make([]document.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "invalid file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			badRequest(c, "invalid file "+fh.Filename)
			return
		}
		files = append(files, document.UploadFile{Name: fh.Filename, Data: data})
	}

	path := c.Query("path")
	if path == "" {
		path = h.store.CurrentPath()
	}
	continueOnError, _ := strconv.ParseBool(c.PostForm("continue_on_error"))

	result, err := h.store.Upload(c.Request.Context(), files, path,
		docstore.BatchOptions{ContinueOnError: continueOnError})
	if err != nil {
		writeError(c, err)
		return
	}
	writeBatch(c, result)
}

// Refresh re-fetches the current path and returns its listing.
func (h *Handler) Refresh(c *gin.Context) {
	if err := h.store.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	h.writeListing(c, h.store.CurrentPath())
}

type navigateRequest struct {
	Path string `json:"path" binding:"required"`
}

// Navigate makes the given path current and returns its listing.
func (h *Handler) Navigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}
	if err := h.store.Navigate(c.Request.Context(), req.Path); err != nil {
		writeError(c, err)
		return
	}
	h.writeListing(c, h.store.CurrentPath())
}

// Status reports the store state: current path, in-flight actions and the
// error slot.
func (h *Handler) Status(c *gin.Context) {
	resp := statusResponse{
		Loaded:      h.store.Loaded(),
		CurrentPath: h.store.CurrentPath(),
		Documents:   len(h.store.Documents()),
		Busy:        []string{},
	}
	for _, a := range h.store.BusyActions() {
		resp.Busy = append(resp.Busy, string(a))
	}
	if err := h.store.LastError(); err != nil {
		resp.Error = messageOf(err)
	}
	c.JSON(http.StatusOK, resp)
}

// ClearError dismisses the error slot.
func (h *Handler) ClearError(c *gin.Context) {
	h.store.ClearError()
	c.Status(http.StatusNoContent)
}
