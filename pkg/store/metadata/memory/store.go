package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
)

// LatencyConfig sets the simulated round-trip time of each backend call.
//
// The defaults mirror what the cloud service feels like from a browser and
// make busy states observable in a demo. Tests use zero latency.
type LatencyConfig struct {
	// Load applies to ListAll, List and Get
	Load time.Duration `mapstructure:"load" yaml:"load"`

	// Create applies to creating a collection
	Create time.Duration `mapstructure:"create" yaml:"create"`

	// Upload applies to creating a document
	Upload time.Duration `mapstructure:"upload" yaml:"upload"`

	// Update applies to rename and move
	Update time.Duration `mapstructure:"update" yaml:"update"`

	// Delete applies to removing a record
	Delete time.Duration `mapstructure:"delete" yaml:"delete"`
}

// DefaultLatency returns the demo latencies: 500ms loads, 1s uploads and
// 300ms for create, update and delete.
func DefaultLatency() LatencyConfig {
	return LatencyConfig{
		Load:   500 * time.Millisecond,
		Create: 300 * time.Millisecond,
		Upload: time.Second,
		Update: 300 * time.Millisecond,
		Delete: 300 * time.Millisecond,
	}
}

func (l LatencyConfig) forOp(op metadata.Op) time.Duration {
	switch op {
	case metadata.OpList, metadata.OpGet:
		return l.Load
	case metadata.OpCreate:
		return l.Create
	case metadata.OpUpload:
		return l.Upload
	case metadata.OpUpdate:
		return l.Update
	case metadata.OpDelete:
		return l.Delete
	default:
		return 0
	}
}

// MemoryDocumentStoreConfig configures the in-memory backend.
type MemoryDocumentStoreConfig struct {
	// Seed preloads the demo library (see SeedDocuments)
	Seed bool `mapstructure:"seed"`

	// Latency is the simulated latency per operation
	Latency LatencyConfig `mapstructure:"latency"`

	// Now overrides the clock used for seed timestamps (tests)
	Now func() time.Time `mapstructure:"-"`
}

// MemoryDocumentStore implements metadata.DocumentBackend in memory.
//
// It stands in for the cloud document service: every call sleeps for the
// configured latency (honouring context cancellation) and can be made to
// fail through Inject, which is how store-level error handling is tested.
//
// Storage Model:
//   - docs: id → record, the primary storage
//   - children: parentID → set of child ids, kept in step with docs so List
//     and the non-empty check do not scan the whole library
//
// Thread Safety:
// All state is guarded by mu. The simulated latency is spent before the
// lock is taken so concurrent callers overlap like real network requests.
type MemoryDocumentStore struct {
	mu       sync.RWMutex
	docs     map[string]document.Document
	children map[string]map[string]struct{}

	latency LatencyConfig
	faults  *faultTable
	closed  bool
}

// NewMemoryDocumentStore creates an in-memory backend.
//
// Parameters:
//   - config: Seed and latency settings
//
// Returns:
//   - *MemoryDocumentStore: A ready-to-use backend
func NewMemoryDocumentStore(config MemoryDocumentStoreConfig) *MemoryDocumentStore {
	store := &MemoryDocumentStore{
		docs:     make(map[string]document.Document),
		children: make(map[string]map[string]struct{}),
		latency:  config.Latency,
		faults:   newFaultTable(),
	}

	if config.Seed {
		now := time.Now
		if config.Now != nil {
			now = config.Now
		}
		for _, d := range SeedDocuments(now()) {
			store.put(d)
		}
	}

	return store
}

// NewMemoryDocumentStoreWithDefaults creates an empty backend with no latency.
func NewMemoryDocumentStoreWithDefaults() *MemoryDocumentStore {
	return NewMemoryDocumentStore(MemoryDocumentStoreConfig{})
}

// begin spends the simulated latency for op and consumes any injected fault.
func (s *MemoryDocumentStore) begin(ctx context.Context, op metadata.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d := s.latency.forOp(op); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := s.faults.take(op); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *MemoryDocumentStore) lookup(id string) (document.Document, bool, error) {
	d, ok := s.docs[id]
	return d, ok, nil
}

func (s *MemoryDocumentStore) put(d document.Document) {
	if prev, ok := s.docs[d.ID]; ok && prev.ParentID != d.ParentID {
		delete(s.children[prev.ParentID], d.ID)
	}
	s.docs[d.ID] = d.Clone()
	set, ok := s.children[d.ParentID]
	if !ok {
		set = make(map[string]struct{})
		s.children[d.ParentID] = set
	}
	set[d.ID] = struct{}{}
}

func (s *MemoryDocumentStore) checkOpen() error {
	if s.closed {
		return fmt.Errorf("memory document store is closed")
	}
	return nil
}

// ListAll implements metadata.DocumentBackend.
func (s *MemoryDocumentStore) ListAll(ctx context.Context) ([]document.Document, error) {
	if err := s.begin(ctx, metadata.OpList); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]document.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d.Clone())
	}
	return out, nil
}

// List implements metadata.DocumentBackend.
func (s *MemoryDocumentStore) List(ctx context.Context, parentID string) ([]document.Document, error) {
	if err := s.begin(ctx, metadata.OpList); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	set := s.children[parentID]
	out := make([]document.Document, 0, len(set))
	for id := range set {
		out = append(out, s.docs[id].Clone())
	}
	return out, nil
}

// Get implements metadata.DocumentBackend.
func (s *MemoryDocumentStore) Get(ctx context.Context, id string) (document.Document, error) {
	if err := s.begin(ctx, metadata.OpGet); err != nil {
		return document.Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return document.Document{}, err
	}

	d, ok := s.docs[id]
	if !ok {
		return document.Document{}, document.NewNotFoundError("document not found", id)
	}
	return d.Clone(), nil
}

// Create implements metadata.DocumentBackend.
func (s *MemoryDocumentStore) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	if err := s.begin(ctx, metadata.OpForCreate(doc)); err != nil {
		return document.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return document.Document{}, err
	}

	if err := metadata.ValidateCreate(doc, s.lookup); err != nil {
		return document.Document{}, err
	}

	s.put(doc)
	return doc.Clone(), nil
}

// Update implements metadata.DocumentBackend.
func (s *MemoryDocumentStore) Update(ctx context.Context, doc document.Document) (document.Document, error) {
	if err := s.begin(ctx, metadata.OpUpdate); err != nil {
		return document.Document{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return document.Document{}, err
	}

	if _, err := metadata.ValidateUpdate(doc, s.lookup); err != nil {
		return document.Document{}, err
	}

	s.put(doc)
	return doc.Clone(), nil
}

// Delete implements metadata.DocumentBackend.
func (s *MemoryDocumentStore) Delete(ctx context.Context, id string) error {
	if err := s.begin(ctx, metadata.OpDelete); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}

	d, ok := s.docs[id]
	if !ok {
		return document.NewNotFoundError("document not found", id)
	}
	if len(s.children[id]) > 0 {
		return &document.StoreError{Code: document.ErrNotEmpty, Message: "collection is not empty", Ref: id}
	}

	delete(s.docs, id)
	delete(s.children[d.ParentID], id)
	delete(s.children, id)
	return nil
}

// Close implements metadata.DocumentBackend. Closing twice is a no-op.
func (s *MemoryDocumentStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var _ metadata.DocumentBackend = (*MemoryDocumentStore)(nil)
