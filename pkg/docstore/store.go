// Package docstore holds the authoritative in-process view of the document
// library: the loaded document set, the current navigation path, the
// multi-selection and the error slot shown by the UI.
//
// Every action goes to the metadata backend first and only updates the
// local set once the backend confirmed it. Backend calls run outside the
// state lock, so a slow upload never blocks listings.
package docstore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/metrics"
	"github.com/marmos91/rmshelf/pkg/selection"
	"github.com/marmos91/rmshelf/pkg/store/content"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
)

// Config configures a Store.
type Config struct {
	// Locale is the BCP 47 tag used to collate names (default "en")
	Locale string

	// Metrics receives action observations (default: no-op)
	Metrics metrics.StoreMetrics

	// Now overrides the clock (tests)
	Now func() time.Time
}

// Store is the document store.
//
// State Model:
//   - docs: the loaded documents in backend order, new documents appended
//   - index: id → position in docs, rebuilt on every change
//   - paths: the navigation table, rebuilt on every change
//   - currentPath: the path the user is looking at
//   - lastErr: the error slot, set by failed backend actions
//
// Thread Safety:
// State is guarded by mu. Actions of the same kind are mutually exclusive
// (see Action); actions of different kinds may run concurrently.
type Store struct {
	backend   metadata.DocumentBackend
	content   content.ContentStore
	selection *selection.Tracker
	sorter    *document.Sorter
	metrics   metrics.StoreMetrics
	now       func() time.Time

	mu          sync.RWMutex
	docs        []document.Document
	index       map[string]int
	paths       *document.PathTable
	currentPath string
	lastErr     error
	loaded      bool

	busyMu sync.Mutex
	busy   map[Action]bool
}

// New creates a Store over backend and content.
//
// The store starts empty at the root path; call Load to fetch the library.
//
// Panics if backend or content is nil (indicates programmer error).
func New(backend metadata.DocumentBackend, blobs content.ContentStore, cfg Config) *Store {
	if backend == nil {
		panic("document backend cannot be nil")
	}
	if blobs == nil {
		panic("content store cannot be nil")
	}

	locale := cfg.Locale
	if locale == "" {
		locale = "en"
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewStoreMetricsWith(nil)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		backend:     backend,
		content:     blobs,
		selection:   selection.New(),
		sorter:      document.NewSorter(locale),
		metrics:     m,
		now:         now,
		index:       make(map[string]int),
		paths:       document.NewPathTable(nil),
		currentPath: document.RootPath,
		busy:        make(map[Action]bool),
	}
}

// Load fetches the complete library from the backend and replaces the local
// set. A successful load clears the error slot.
func (s *Store) Load(ctx context.Context) (err error) {
	done, err := s.begin(ActionLoad)
	if err != nil {
		return err
	}
	defer func() { done(err) }()

	docs, err := s.backend.ListAll(ctx)
	if err != nil {
		return s.fail(ActionLoad, "failed to load documents", "", err)
	}

	orderByAge(docs)

	s.mu.Lock()
	s.docs = docs
	s.loaded = true
	s.lastErr = nil
	s.rebuildLocked()
	s.mu.Unlock()

	logger.Debug("Loaded %d documents", len(docs))
	return nil
}

// Loaded reports whether a Load has completed successfully.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Documents returns a copy of the whole loaded set in store order.
func (s *Store) Documents() []document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]document.Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Clone()
	}
	return out
}

// Document returns one loaded document.
func (s *Store) Document(id string) (document.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return document.Document{}, false
	}
	return s.docs[i].Clone(), true
}

// CurrentPath returns the path the user is looking at.
func (s *Store) CurrentPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPath
}

// LastError returns the error slot: the last backend failure not yet
// cleared by a successful load or refresh.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// ClearError empties the error slot (the user dismissed the banner).
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// PathOf returns the navigation path of a loaded collection.
func (s *Store) PathOf(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths.PathOf(id)
}

// resolve maps path to a parent ID against the current table.
func (s *Store) resolve(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths.Resolve(path)
}

// rebuildLocked recomputes the index, the path table, the selection and the
// current path after docs changed. Callers hold mu for writing.
func (s *Store) rebuildLocked() {
	s.index = make(map[string]int, len(s.docs))
	for i, d := range s.docs {
		s.index[d.ID] = i
	}
	s.paths = document.NewPathTable(s.docs)

	if dropped := s.selection.Reconcile(document.IDs(s.docs)); dropped > 0 {
		logger.Debug("Dropped %d selected ids that no longer exist", dropped)
	}

	if _, err := s.paths.Resolve(s.currentPath); err != nil {
		s.currentPath = s.relocateLocked(s.currentPath)
	}

	s.metrics.SetDocuments(len(s.docs))
	s.metrics.SetSelected(s.selection.Len())
}

// relocateLocked finds where a no longer resolvable path went: the deepest
// collection on it that still exists (it may have moved), or the root.
func (s *Store) relocateLocked(path string) string {
	segments := splitPath(path)
	for i := len(segments) - 1; i >= 0; i-- {
		if p, ok := s.paths.PathOf(segments[i]); ok {
			logger.Debug("Current path %s relocated to %s", path, p)
			return p
		}
	}
	return document.RootPath
}

// putLocked inserts or replaces d, keeping the position of an existing
// record. Callers hold mu and call rebuildLocked afterwards.
func (s *Store) putLocked(d document.Document) {
	if i, ok := s.index[d.ID]; ok {
		s.docs[i] = d
		return
	}
	s.index[d.ID] = len(s.docs)
	s.docs = append(s.docs, d)
}

// removeLocked drops the documents whose id is in ids. Callers hold mu and
// call rebuildLocked afterwards.
func (s *Store) removeLocked(ids map[string]struct{}) {
	kept := s.docs[:0]
	for _, d := range s.docs {
		if _, drop := ids[d.ID]; !drop {
			kept = append(kept, d)
		}
	}
	clear(s.docs[len(kept):])
	s.docs = kept
}

// orderByAge gives a freshly fetched set a deterministic order: oldest
// first, ties by id. Documents created later are appended, so the order
// stays oldest first across mutations.
func orderByAge(docs []document.Document) {
	slices.SortStableFunc(docs, func(a, b document.Document) int {
		if c := a.ModifiedAt.Compare(b.ModifiedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func splitPath(path string) []string {
	clean := document.CleanPath(path)
	if clean == document.RootPath {
		return nil
	}
	return strings.Split(strings.TrimPrefix(clean, document.RootPath), "/")
}
