package docstore

import (
	"context"
	"slices"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/store/content"
)

// DeleteMany deletes the documents and collections in ids.
//
// Semantics:
//   - Ids that are not in the library are reported OutcomeOK; deleting is
//     idempotent.
//   - A collection is only deleted once it is empty. Its contents must be
//     part of the same batch; otherwise it fails with ErrNotEmpty.
//   - Items run deepest first, so selecting a folder together with its
//     contents deletes all of it.
//   - With ContinueOnError unset, the first failure stops the batch and the
//     remaining items are OutcomeSkipped.
//
// The returned BatchResult has one item per input id in input order. The
// error is non-nil only when the batch could not start (ErrBusy).
func (s *Store) DeleteMany(ctx context.Context, ids []string, opts BatchOptions) (result BatchResult, err error) {
	done, err := s.begin(ActionDelete)
	if err != nil {
		return BatchResult{}, err
	}
	defer func() { done(result.Err()) }()

	// ========================================================================
	// Step 1: Plan the unique ids that exist, deepest first
	// ========================================================================

	s.mu.RLock()
	index := s.indexLocked()
	s.mu.RUnlock()

	outcomes := make(map[string]ItemResult, len(ids))
	var plan []string
	for _, id := range ids {
		if _, seen := outcomes[id]; seen {
			continue
		}
		if _, ok := index[id]; !ok {
			outcomes[id] = ItemResult{ID: id, Outcome: OutcomeOK}
			continue
		}
		outcomes[id] = ItemResult{ID: id, Outcome: OutcomeSkipped}
		plan = append(plan, id)
	}

	depth := make(map[string]int, len(plan))
	for _, id := range plan {
		depth[id] = document.Depth(index, id)
	}
	slices.SortStableFunc(plan, func(a, b string) int {
		return depth[b] - depth[a]
	})

	// ========================================================================
	// Step 2: Delete one by one, applying each success locally
	// ========================================================================

	stopped := false
	for _, id := range plan {
		if stopped {
			continue
		}

		itemErr := s.deleteOne(ctx, id)
		if itemErr == nil {
			outcomes[id] = ItemResult{ID: id, Outcome: OutcomeOK}
			continue
		}

		outcomes[id] = ItemResult{ID: id, Outcome: OutcomeError, Err: itemErr}
		if !opts.ContinueOnError {
			stopped = true
		}
	}

	// ========================================================================
	// Step 3: Report in input order
	// ========================================================================

	result.Items = make([]ItemResult, len(ids))
	for i, id := range ids {
		result.Items[i] = outcomes[id]
	}

	ok, failed, skipped := result.Counts()
	s.metrics.RecordBatchItems(string(ActionDelete), ok, failed, skipped)
	logger.Debug("Deleted batch of %d: %d ok, %d failed, %d skipped", len(ids), ok, failed, skipped)

	return result, nil
}

// Delete deletes a single document or empty collection. See DeleteMany.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.DeleteMany(ctx, []string{id}, BatchOptions{})
	if err != nil {
		return err
	}
	return result.Err()
}

// deleteOne removes id from the backend and the local set. A collection that
// still has children locally is refused without a backend call.
func (s *Store) deleteOne(ctx context.Context, id string) error {
	s.mu.RLock()
	i, ok := s.index[id]
	var doc document.Document
	hasChildren := false
	if ok {
		doc = s.docs[i]
		if doc.IsContainer() {
			for _, d := range s.docs {
				if d.ParentID == id {
					hasChildren = true
					break
				}
			}
		}
	}
	s.mu.RUnlock()

	if !ok {
		// removed concurrently, e.g. by a refresh
		return nil
	}
	if hasChildren {
		return &document.StoreError{
			Code:    document.ErrNotEmpty,
			Message: "folder is not empty",
			Ref:     id,
		}
	}

	if err := s.backend.Delete(ctx, id); err != nil && !document.IsNotFound(err) {
		return s.fail(ActionDelete, "failed to delete document", id, err)
	}

	s.mu.Lock()
	s.removeLocked(map[string]struct{}{id: {}})
	s.rebuildLocked()
	s.mu.Unlock()

	if !doc.IsContainer() {
		if err := s.content.Delete(ctx, content.ContentID(id)); err != nil {
			// the orphan collector removes it later
			logger.Warn("Failed to delete content of %s: %v", id, err)
		}
	}
	return nil
}
