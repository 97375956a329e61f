package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
)

// errorBody is the JSON body of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps a library error to an HTTP status.
//
//   - validation (including not_empty, unsupported_type) → 400
//   - not_found → 404
//   - busy → 409
//   - operation_failed → 502
//
// Anything else is an internal error.
func statusOf(err error) int {
	switch {
	case document.IsBusy(err):
		return http.StatusConflict
	case document.IsValidation(err):
		return http.StatusBadRequest
	case document.IsNotFound(err):
		return http.StatusNotFound
	case document.IsOperationFailed(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// codeOf returns the code name reported to clients.
func codeOf(err error) string {
	if code, ok := document.CodeOf(err); ok {
		return code.String()
	}
	return "internal"
}

// messageOf returns the message of the first StoreError in err's chain.
// Internal errors are not echoed to clients.
func messageOf(err error) string {
	var se *document.StoreError
	if errors.As(err, &se) {
		return se.Error()
	}
	return "internal error"
}

func writeError(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, errorBody{Error: messageOf(err), Code: codeOf(err)})
}

// badRequest reports malformed input that never reached the library.
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: message, Code: document.ErrValidation.String()})
}

// bindFailed reports a request body that failed to decode or failed its
// binding tags. Tag failures name the offending field.
func bindFailed(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		badRequest(c, fmt.Sprintf("%s: validation failed on '%s' tag", e.Field(), e.Tag()))
		return
	}
	badRequest(c, "invalid request body")
}
