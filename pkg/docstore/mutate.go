package docstore

import (
	"context"
	"strings"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
)

// CreateFolder creates a collection named name under parentPath.
//
// Parameters:
//   - ctx: Context for the backend call
//   - name: Display name; surrounding whitespace is trimmed
//   - parentPath: Navigation path of the parent collection
//
// Returns:
//   - document.Document: The created collection (version 1)
//   - error: ErrValidation for a blank name, ErrNotFound if parentPath does
//     not resolve, ErrBusy, or ErrOperationFailed from the backend
func (s *Store) CreateFolder(ctx context.Context, name, parentPath string) (created document.Document, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return document.Document{}, document.NewValidationError("folder name is required", "")
	}

	parentID, err := s.resolve(parentPath)
	if err != nil {
		return document.Document{}, err
	}

	done, err := s.begin(ActionCreateFolder)
	if err != nil {
		return document.Document{}, err
	}
	defer func() { done(err) }()

	folder := document.NewCollection(name, parentID, s.now())
	created, err = s.backend.Create(ctx, folder)
	if err != nil {
		return document.Document{}, s.fail(ActionCreateFolder, "failed to create folder", name, err)
	}

	s.mu.Lock()
	s.putLocked(created)
	s.rebuildLocked()
	s.mu.Unlock()

	logger.Debug("Created folder %q (%s) under %s", created.Name, created.ID, document.CleanPath(parentPath))
	return created.Clone(), nil
}

// Rename changes the display name of a document or collection.
//
// Returns:
//   - document.Document: The updated record (version + 1)
//   - error: ErrValidation for a blank name, ErrNotFound for an unknown id,
//     ErrBusy, or ErrOperationFailed
func (s *Store) Rename(ctx context.Context, id, name string) (updated document.Document, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return document.Document{}, document.NewValidationError("name is required", id)
	}

	current, ok := s.Document(id)
	if !ok {
		return document.Document{}, document.NewNotFoundError("document not found", id)
	}

	done, err := s.begin(ActionRename)
	if err != nil {
		return document.Document{}, err
	}
	defer func() { done(err) }()

	if current.Name == name {
		return current, nil
	}

	next := current.Clone()
	next.Name = name
	next.Touch(s.now())

	updated, err = s.update(ctx, ActionRename, "failed to rename document", next)
	if err != nil {
		return document.Document{}, err
	}

	logger.Debug("Renamed %s from %q to %q", id, current.Name, updated.Name)
	return updated, nil
}

// Move re-parents a document or collection under the collection at
// newParentPath. Moving a collection into itself or one of its descendants
// is rejected.
//
// Returns:
//   - document.Document: The updated record (version + 1), or the unchanged
//     record when it already lives there
//   - error: ErrNotFound for an unknown id or path, ErrValidation for a
//     cycle, ErrBusy, or ErrOperationFailed
func (s *Store) Move(ctx context.Context, id, newParentPath string) (updated document.Document, err error) {
	current, ok := s.Document(id)
	if !ok {
		return document.Document{}, document.NewNotFoundError("document not found", id)
	}

	s.mu.RLock()
	parentID, resolveErr := s.paths.Resolve(newParentPath)
	cycle := resolveErr == nil && current.IsContainer() &&
		(parentID == id || document.IsAncestor(s.indexLocked(), id, parentID))
	s.mu.RUnlock()

	if resolveErr != nil {
		return document.Document{}, resolveErr
	}
	if cycle {
		return document.Document{}, document.NewValidationError("cannot move a folder into itself", id)
	}

	done, err := s.begin(ActionMove)
	if err != nil {
		return document.Document{}, err
	}
	defer func() { done(err) }()

	if current.ParentID == parentID {
		return current, nil
	}

	next := current.Clone()
	next.ParentID = parentID
	next.Touch(s.now())

	updated, err = s.update(ctx, ActionMove, "failed to move document", next)
	if err != nil {
		return document.Document{}, err
	}

	logger.Debug("Moved %s to %s", id, document.CleanPath(newParentPath))
	return updated, nil
}

// update persists next and applies it locally.
func (s *Store) update(ctx context.Context, a Action, message string, next document.Document) (document.Document, error) {
	stored, err := s.backend.Update(ctx, next)
	if err != nil {
		return document.Document{}, s.fail(a, message, next.ID, err)
	}

	s.mu.Lock()
	s.putLocked(stored)
	s.rebuildLocked()
	s.mu.Unlock()

	return stored.Clone(), nil
}

// indexLocked returns id → document for the tree helpers. Callers hold mu.
func (s *Store) indexLocked() map[string]document.Document {
	return document.Index(s.docs)
}
