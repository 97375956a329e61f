package docstore

import (
	"errors"
	"strings"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
)

// Action names a user-facing store action. At most one action of each kind
// is in flight; starting a second one fails fast with an ErrBusy error
// instead of queueing, the way a disabled button would.
type Action string

const (
	ActionLoad         Action = "load"
	ActionRefresh      Action = "refresh"
	ActionCreateFolder Action = "create_folder"
	ActionDelete       Action = "delete"
	ActionUpload       Action = "upload"
	ActionRename       Action = "rename"
	ActionMove         Action = "move"
)

// Actions lists every action kind.
var Actions = []Action{
	ActionLoad, ActionRefresh, ActionCreateFolder, ActionDelete,
	ActionUpload, ActionRename, ActionMove,
}

// Busy reports whether an action of kind a is in flight.
func (s *Store) Busy(a Action) bool {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()
	return s.busy[a]
}

// BusyActions returns the actions currently in flight.
func (s *Store) BusyActions() []Action {
	s.busyMu.Lock()
	defer s.busyMu.Unlock()

	var out []Action
	for _, a := range Actions {
		if s.busy[a] {
			out = append(out, a)
		}
	}
	return out
}

// begin marks a in flight. The returned func clears the flag and records the
// action's duration and outcome; callers defer it with the final error.
func (s *Store) begin(a Action) (func(error), error) {
	s.busyMu.Lock()
	if s.busy[a] {
		s.busyMu.Unlock()
		s.metrics.RecordRejected(string(a))
		logger.Debug("Rejected %s: already in progress", a)
		return nil, &document.StoreError{
			Code:    document.ErrBusy,
			Message: strings.ReplaceAll(string(a), "_", " ") + " already in progress",
		}
	}
	s.busy[a] = true
	s.busyMu.Unlock()

	start := s.now()
	return func(err error) {
		s.busyMu.Lock()
		delete(s.busy, a)
		s.busyMu.Unlock()
		s.metrics.ObserveOperation(string(a), s.now().Sub(start), err)
	}, nil
}

// fail converts a backend error into the error returned to the caller.
//
// Validation and not-found errors from the backend describe the request and
// are passed through unchanged. Anything else is a failed operation: it is
// wrapped as ErrOperationFailed and recorded in the error slot.
func (s *Store) fail(a Action, message, ref string, err error) error {
	if document.IsValidation(err) || document.IsNotFound(err) {
		logger.Debug("%s rejected by backend: %v", a, err)
		return err
	}

	var se *document.StoreError
	if !errors.As(err, &se) || se.Kind() != document.ErrOperationFailed {
		err = document.NewOperationFailedError(message, ref, err)
	}

	logger.Warn("%s failed: %v", a, err)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	return err
}

