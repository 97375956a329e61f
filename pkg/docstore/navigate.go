package docstore

import (
	"context"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
)

// Refresh re-fetches the children of the current path and replaces exactly
// that slice of the local set. Documents under other parents are kept as
// they are. A successful refresh clears the error slot.
func (s *Store) Refresh(ctx context.Context) (err error) {
	done, err := s.begin(ActionRefresh)
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	s.mu.RLock()
	path := s.currentPath
	parentID, resolveErr := s.paths.Resolve(path)
	s.mu.RUnlock()
	if resolveErr != nil {
		// rebuildLocked keeps currentPath resolvable, so this only happens
		// before the first load
		path, parentID = document.RootPath, document.RootID
	}

	fresh, err := s.backend.List(ctx, parentID)
	if err != nil {
		return s.fail(ActionRefresh, "failed to refresh documents", path, err)
	}
	orderByAge(fresh)

	s.mu.Lock()
	s.replaceChildrenLocked(parentID, fresh)
	if pruned := s.pruneDetachedLocked(); pruned > 0 {
		logger.Debug("Dropped %d documents under collections that are gone", pruned)
	}
	s.lastErr = nil
	s.rebuildLocked()
	s.mu.Unlock()

	logger.Debug("Refreshed %s: %d documents", path, len(fresh))
	return nil
}

// replaceChildrenLocked swaps the children of parentID for fresh. Records
// that still exist keep their position, new ones are appended.
func (s *Store) replaceChildrenLocked(parentID string, fresh []document.Document) {
	incoming := make(map[string]document.Document, len(fresh))
	for _, d := range fresh {
		incoming[d.ID] = d
	}

	kept := make([]document.Document, 0, len(s.docs)+len(fresh))
	for _, d := range s.docs {
		if nd, ok := incoming[d.ID]; ok {
			kept = append(kept, nd)
			delete(incoming, d.ID)
			continue
		}
		if d.ParentID == parentID {
			// gone from this folder
			continue
		}
		kept = append(kept, d)
	}
	for _, d := range fresh {
		if _, pending := incoming[d.ID]; pending {
			kept = append(kept, d)
		}
	}
	s.docs = kept
}

// pruneDetachedLocked drops every document whose parent chain no longer
// reaches the root through existing collections, such as the contents of a
// folder a refresh found gone. Returns the number dropped.
func (s *Store) pruneDetachedLocked() int {
	index := document.Index(s.docs)
	attached := make(map[string]bool, len(s.docs))

	for _, d := range s.docs {
		var chain []string
		onChain := make(map[string]struct{})
		reached := false

		for cur := d; ; {
			if known, ok := attached[cur.ID]; ok {
				reached = known
				break
			}
			if _, loop := onChain[cur.ID]; loop {
				break
			}
			onChain[cur.ID] = struct{}{}
			chain = append(chain, cur.ID)

			if cur.ParentID == document.RootID {
				reached = true
				break
			}
			parent, ok := index[cur.ParentID]
			if !ok || !parent.IsContainer() {
				break
			}
			cur = parent
		}

		for _, id := range chain {
			attached[id] = reached
		}
	}

	kept := s.docs[:0]
	for _, d := range s.docs {
		if attached[d.ID] {
			kept = append(kept, d)
		}
	}
	pruned := len(s.docs) - len(kept)
	clear(s.docs[len(kept):])
	s.docs = kept
	return pruned
}

// Navigate makes path the current path and refreshes it.
//
// Returns:
//   - error: NotFound if path does not resolve (the current path is kept),
//     or the refresh error
func (s *Store) Navigate(ctx context.Context, path string) error {
	clean := document.CleanPath(path)
	if _, err := s.resolve(clean); err != nil {
		return err
	}

	s.mu.Lock()
	s.currentPath = clean
	s.mu.Unlock()

	logger.Debug("Navigated to %s", clean)
	return s.Refresh(ctx)
}
