package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/marmos91/rmshelf/pkg/store/content"
)

// MemoryContentStore implements content.ContentStore in memory.
//
// Data is copied on write and on read so callers never share buffers with
// the store. Content is lost when the process exits.
type MemoryContentStore struct {
	// data stores the content keyed by ContentID
	data map[content.ContentID][]byte

	// mu protects data
	mu sync.RWMutex
}

// NewMemoryContentStore creates an empty in-memory content store.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//
// Returns:
//   - *MemoryContentStore: Initialized store
//   - error: Only returns error if context is cancelled
func NewMemoryContentStore(ctx context.Context) (*MemoryContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryContentStore{
		data: make(map[content.ContentID][]byte),
	}, nil
}

// WriteContent implements content.ContentStore.
func (s *MemoryContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := bytes.Clone(data)
	if buf == nil {
		buf = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = buf
	return nil
}

// ReadContent implements content.ContentStore.
func (s *MemoryContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}

	return io.NopCloser(bytes.NewReader(bytes.Clone(data))), nil
}

// GetContentSize implements content.ContentStore.
func (s *MemoryContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[id]
	if !ok {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	return uint64(len(data)), nil
}

// ContentExists implements content.ContentStore.
func (s *MemoryContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[id]
	return ok, nil
}

// Delete implements content.ContentStore.
func (s *MemoryContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// GetStorageStats implements content.ContentStore. Statistics are computed
// on the fly from the current state.
func (s *MemoryContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	used := uint64(0)
	for _, data := range s.data {
		used += uint64(len(data))
	}
	return content.NewStorageStats(used, uint64(len(s.data))), nil
}

// ListAllContent implements content.GarbageCollectableStore.
func (s *MemoryContentStore) ListAllContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]content.ContentID, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// DeleteBatch implements content.GarbageCollectableStore.
func (s *MemoryContentStore) DeleteBatch(ctx context.Context, ids []content.ContentID) (map[content.ContentID]error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.data, id)
	}
	return map[content.ContentID]error{}, nil
}

// Close implements content.ContentStore. Nothing to release.
func (s *MemoryContentStore) Close() error {
	return nil
}

var _ content.GarbageCollectableStore = (*MemoryContentStore)(nil)
