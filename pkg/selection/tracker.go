// Package selection tracks which documents the user has selected.
//
// The tracker is a plain set of document IDs. It has no knowledge of the
// document tree: callers reconcile it against the surviving IDs after every
// mutation of the library so the selection never names a document that no
// longer exists.
package selection

import (
	"slices"
	"sync"
)

// Tracker is a concurrency-safe set of selected document IDs.
//
// All operations have set semantics: selecting an already selected ID or
// deselecting an unselected one is a no-op, never an error.
type Tracker struct {
	mu       sync.RWMutex
	selected map[string]struct{}
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{selected: make(map[string]struct{})}
}

// Select adds id to the selection.
func (t *Tracker) Select(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected[id] = struct{}{}
}

// Deselect removes id from the selection.
func (t *Tracker) Deselect(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.selected, id)
}

// Toggle flips the selection state of id and returns the new state.
func (t *Tracker) Toggle(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.selected[id]; ok {
		delete(t.selected, id)
		return false
	}
	t.selected[id] = struct{}{}
	return true
}

// SelectAll replaces the selection with exactly the visible IDs.
func (t *Tracker) SelectAll(visible []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selected = make(map[string]struct{}, len(visible))
	for _, id := range visible {
		t.selected[id] = struct{}{}
	}
}

// Set replaces the selection with ids. Duplicates collapse.
func (t *Tracker) Set(ids []string) {
	t.SelectAll(ids)
}

// Clear empties the selection.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.selected)
}

// Reconcile drops every selected ID that is not in existing, leaving the
// intersection of the selection and existing. It returns the number of IDs
// that were dropped.
func (t *Tracker) Reconcile(existing []string) int {
	keep := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		keep[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	dropped := 0
	for id := range t.selected {
		if _, ok := keep[id]; !ok {
			delete(t.selected, id)
			dropped++
		}
	}
	return dropped
}

// Contains reports whether id is selected.
func (t *Tracker) Contains(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.selected[id]
	return ok
}

// IDs returns the selected IDs in ascending order.
func (t *Tracker) IDs() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.selected))
	for id := range t.selected {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the number of selected IDs.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.selected)
}

// AllSelected reports whether every visible ID is selected. An empty listing
// is never "all selected", which keeps the select-all checkbox unchecked on
// empty folders.
func (t *Tracker) AllSelected(visible []string) bool {
	if len(visible) == 0 {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range visible {
		if _, ok := t.selected[id]; !ok {
			return false
		}
	}
	return true
}
