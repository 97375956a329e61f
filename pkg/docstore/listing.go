package docstore

import (
	"github.com/marmos91/rmshelf/pkg/document"
)

// Listing is what the file explorer shows for one path.
type Listing struct {
	// Path is the cleaned navigation path
	Path string

	// ParentID is the collection whose children are listed (RootID for the
	// root). Empty with Found false when the path did not resolve.
	ParentID string

	// Found is false when the path did not resolve; Items is then empty
	Found bool

	// Breadcrumbs are the display names from "Home" down to the path
	Breadcrumbs []string

	// Items are the sorted children
	Items []document.Document

	// Count is len(Items)
	Count int

	// Selected are the selected ids among Items, in Items order
	Selected []string

	// AllSelected drives the select-all checkbox
	AllSelected bool

	SortKey   document.SortKey
	Direction document.Direction

	// Error is the error slot. While it is set the listing is replaced by
	// the error: Items stays empty until a successful load or refresh, or
	// until the error is dismissed.
	Error error
}

// ListChildren returns the documents whose parent is the collection path
// resolves to, in store order. A path that does not resolve yields an empty
// listing, never an error.
func (s *Store) ListChildren(path string) []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parentID, err := s.paths.Resolve(path)
	if err != nil {
		return []document.Document{}
	}
	return s.childrenLocked(parentID)
}

func (s *Store) childrenLocked(parentID string) []document.Document {
	children := []document.Document{}
	for _, d := range s.docs {
		if d.ParentID == parentID {
			children = append(children, d.Clone())
		}
	}
	return children
}

// Listing returns the sorted children of path with the breadcrumbs and the
// selection state of the listed items. A pending error slot replaces the
// items.
func (s *Store) Listing(path string, key document.SortKey, dir document.Direction) Listing {
	if key == "" {
		key = document.SortByName
	}
	if dir == "" {
		dir = document.Ascending
	}

	s.mu.RLock()
	clean := document.CleanPath(path)
	listing := Listing{
		Path:        clean,
		Breadcrumbs: s.paths.Breadcrumbs(clean),
		SortKey:     key,
		Direction:   dir,
		Items:       []document.Document{},
		Selected:    []string{},
	}
	parentID, err := s.paths.Resolve(clean)
	if err == nil {
		listing.Found = true
		listing.ParentID = parentID
		if s.lastErr == nil {
			listing.Items = s.childrenLocked(parentID)
		}
	}
	listing.Error = s.lastErr
	s.mu.RUnlock()

	listing.Items = s.sorter.Sort(listing.Items, key, dir)
	listing.Count = len(listing.Items)

	visible := document.IDs(listing.Items)
	for _, id := range visible {
		if s.selection.Contains(id) {
			listing.Selected = append(listing.Selected, id)
		}
	}
	listing.AllSelected = s.selection.AllSelected(visible)
	return listing
}
