package document

import "errors"

// StoreError represents a domain error from library operations.
//
// These are user-facing failures (empty folder name, unknown path, backend
// failure) as opposed to programming errors. The HTTP layer translates the
// Kind of a StoreError into a status code and decides whether the failure is
// rendered inline or in the screen's error slot.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Ref is the document ID or path the error is about (if applicable)
	Ref string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Ref != "" {
		msg += ": " + e.Ref
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Kind folds refined codes into the three error kinds callers branch on.
func (e *StoreError) Kind() ErrorCode {
	switch e.Code {
	case ErrNotEmpty, ErrUnsupportedType:
		return ErrValidation
	case ErrBusy:
		return ErrOperationFailed
	default:
		return e.Code
	}
}

// ErrorCode represents the category of a library error.
type ErrorCode int

const (
	// ErrValidation indicates bad user input: empty folder name, malformed
	// device code. Rendered inline next to the input, never global.
	ErrValidation ErrorCode = iota

	// ErrNotFound indicates a path or parent could not be resolved.
	ErrNotFound

	// ErrOperationFailed indicates the backend failed a create, delete,
	// upload or refresh.
	ErrOperationFailed

	// ErrNotEmpty indicates a collection still has children (validation kind)
	ErrNotEmpty

	// ErrUnsupportedType indicates an upload with a rejected extension
	// (validation kind)
	ErrUnsupportedType

	// ErrBusy indicates the same action is already in flight
	// (operation-failed kind)
	ErrBusy
)

// String returns the code name used in logs and API responses.
func (c ErrorCode) String() string {
	switch c {
	case ErrValidation:
		return "validation"
	case ErrNotFound:
		return "not_found"
	case ErrOperationFailed:
		return "operation_failed"
	case ErrNotEmpty:
		return "not_empty"
	case ErrUnsupportedType:
		return "unsupported_type"
	case ErrBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// NewValidationError returns an ErrValidation StoreError.
func NewValidationError(message, ref string) *StoreError {
	return &StoreError{Code: ErrValidation, Message: message, Ref: ref}
}

// NewNotFoundError returns an ErrNotFound StoreError.
func NewNotFoundError(message, ref string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: message, Ref: ref}
}

// NewOperationFailedError wraps a backend failure.
func NewOperationFailedError(message, ref string, cause error) *StoreError {
	return &StoreError{Code: ErrOperationFailed, Message: message, Ref: ref, Err: cause}
}

// CodeOf returns the code of the first StoreError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

func kindOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind(), true
	}
	return 0, false
}

// IsValidation reports whether err is a validation-kind StoreError.
func IsValidation(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrValidation
}

// IsNotFound reports whether err is a not-found StoreError.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrNotFound
}

// IsOperationFailed reports whether err is an operation-failed-kind StoreError.
func IsOperationFailed(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ErrOperationFailed
}

// IsBusy reports whether err signals an action already in flight.
func IsBusy(err error) bool {
	c, ok := CodeOf(err)
	return ok && c == ErrBusy
}
