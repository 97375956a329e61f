package docstore

import (
	"context"

	"github.com/marmos91/rmshelf/pkg/document"
)

// Selected returns the selected ids, sorted.
func (s *Store) Selected() []string {
	return s.selection.IDs()
}

// IsSelected reports whether id is selected.
func (s *Store) IsSelected(id string) bool {
	return s.selection.Contains(id)
}

// Select adds id to the selection if it is a loaded document.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setSelectionLocked(append(s.selection.IDs(), id))
}

// Deselect removes id from the selection.
func (s *Store) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection.Deselect(id)
	s.metrics.SetSelected(s.selection.Len())
}

// ToggleSelection flips id and reports whether it is now selected. Unknown
// ids are never selected.
func (s *Store) ToggleSelection(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[id]; !ok {
		return false
	}
	selected := s.selection.Toggle(id)
	s.metrics.SetSelected(s.selection.Len())
	return selected
}

// SetSelection replaces the selection with the loaded documents among ids.
// The check and the update happen under the store lock so a concurrent
// refresh cannot leave a dropped document selected.
func (s *Store) SetSelection(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setSelectionLocked(ids)
}

func (s *Store) setSelectionLocked(ids []string) {
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.index[id]; ok {
			known = append(known, id)
		}
	}
	s.selection.Set(known)
	s.metrics.SetSelected(s.selection.Len())
}

// SelectAll selects exactly the children of path, the select-all checkbox.
// An unresolvable path clears the selection.
func (s *Store) SelectAll(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	if parentID, err := s.paths.Resolve(path); err == nil {
		ids = document.IDs(s.childrenLocked(parentID))
	}
	s.selection.SelectAll(ids)
	s.metrics.SetSelected(s.selection.Len())
}

// ClearSelection deselects everything.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selection.Clear()
	s.metrics.SetSelected(0)
}

// DeleteSelected deletes every selected document. See DeleteMany.
func (s *Store) DeleteSelected(ctx context.Context, opts BatchOptions) (BatchResult, error) {
	return s.DeleteMany(ctx, s.selection.IDs(), opts)
}
