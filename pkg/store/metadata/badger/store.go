package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
)

// BadgerDocumentStore implements metadata.DocumentBackend using BadgerDB for
// persistence.
//
// It is the backend to use when the library must survive a restart: records
// are written in ACID transactions and read back through prefix scans (see
// keys.go for the schema).
//
// Thread Safety:
// Reads run in concurrent badger read transactions. Writes additionally hold
// writeMu so validation and the write it guards are never interleaved with
// another writer, which keeps badger from reporting transaction conflicts
// to callers.
type BadgerDocumentStore struct {
	// db is the BadgerDB database handle (thread-safe, uses internal MVCC)
	db *badger.DB

	// writeMu serializes read-validate-write sequences
	writeMu sync.Mutex
}

// BadgerDocumentStoreConfig contains configuration for creating a BadgerDB
// document store.
type BadgerDocumentStoreConfig struct {
	// DBPath is the directory where BadgerDB stores its files.
	// Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the whole database in RAM (tests, demos)
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_mb"`
}

// NewBadgerDocumentStore opens (or creates) a BadgerDB document store.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and cache sizes
//
// Returns:
//   - *BadgerDocumentStore: A store ready for use
//   - error: Error if the database cannot be opened
func NewBadgerDocumentStore(ctx context.Context, config BadgerDocumentStoreConfig) (*BadgerDocumentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if config.DBPath == "" {
			return nil, fmt.Errorf("badger document store: db_path is required")
		}
		opts = badger.DefaultOptions(config.DBPath)
	}

	// Records are small JSON blobs: compression is not worth the CPU
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	return &BadgerDocumentStore{db: db}, nil
}

// getDocument reads one record inside txn.
func getDocument(txn *badger.Txn, id string) (document.Document, bool, error) {
	item, err := txn.Get(keyDocument(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return document.Document{}, false, nil
	}
	if err != nil {
		return document.Document{}, false, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	var doc document.Document
	err = item.Value(func(val []byte) error {
		doc, err = decodeDocument(val)
		return err
	})
	if err != nil {
		return document.Document{}, false, err
	}
	return doc, true, nil
}

func txnLookup(txn *badger.Txn) metadata.LookupFunc {
	return func(id string) (document.Document, bool, error) {
		return getDocument(txn, id)
	}
}

// putDocument writes a record and its children index entry inside txn.
func putDocument(txn *badger.Txn, doc document.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := txn.Set(keyDocument(doc.ID), data); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
	}
	if err := txn.Set(keyChild(doc.ParentID, doc.ID), nil); err != nil {
		return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
	}
	return nil
}

// ListAll implements metadata.DocumentBackend.
func (s *BadgerDocumentStore) ListAll(ctx context.Context) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []document.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixDocument)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				doc, err := decodeDocument(val)
				if err != nil {
					return err
				}
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []document.Document{}
	}
	return docs, nil
}

// List implements metadata.DocumentBackend.
func (s *BadgerDocumentStore) List(ctx context.Context, parentID string) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docs := []document.Document{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := keyChildPrefix(parentID)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := childIDFromKey(it.Item().Key(), prefix)
			doc, ok, err := getDocument(txn, id)
			if err != nil {
				return err
			}
			if ok {
				docs = append(docs, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Get implements metadata.DocumentBackend.
func (s *BadgerDocumentStore) Get(ctx context.Context, id string) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}

	var doc document.Document
	err := s.db.View(func(txn *badger.Txn) error {
		d, ok, err := getDocument(txn, id)
		if err != nil {
			return err
		}
		if !ok {
			return document.NewNotFoundError("document not found", id)
		}
		doc = d
		return nil
	})
	return doc, err
}

// Create implements metadata.DocumentBackend.
func (s *BadgerDocumentStore) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := metadata.ValidateCreate(doc, txnLookup(txn)); err != nil {
			return err
		}
		return putDocument(txn, doc)
	})
	if err != nil {
		return document.Document{}, err
	}
	return doc.Clone(), nil
}

// Update implements metadata.DocumentBackend.
//
// A move rewrites the children index: the edge under the old parent is
// removed in the same transaction that adds the new one.
func (s *BadgerDocumentStore) Update(ctx context.Context, doc document.Document) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return document.Document{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		current, err := metadata.ValidateUpdate(doc, txnLookup(txn))
		if err != nil {
			return err
		}
		if current.ParentID != doc.ParentID {
			if err := txn.Delete(keyChild(current.ParentID, doc.ID)); err != nil {
				return fmt.Errorf("failed to unindex document %s: %w", doc.ID, err)
			}
		}
		return putDocument(txn, doc)
	})
	if err != nil {
		return document.Document{}, err
	}
	return doc.Clone(), nil
}

// Delete implements metadata.DocumentBackend.
func (s *BadgerDocumentStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		doc, ok, err := getDocument(txn, id)
		if err != nil {
			return err
		}
		if !ok {
			return document.NewNotFoundError("document not found", id)
		}

		if doc.IsContainer() {
			hasChildren, err := hasAnyKey(txn, keyChildPrefix(id))
			if err != nil {
				return err
			}
			if hasChildren {
				return &document.StoreError{Code: document.ErrNotEmpty, Message: "collection is not empty", Ref: id}
			}
		}

		if err := txn.Delete(keyDocument(id)); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
		if err := txn.Delete(keyChild(doc.ParentID, id)); err != nil {
			return fmt.Errorf("failed to unindex document %s: %w", id, err)
		}
		return nil
	})
}

func hasAnyKey(txn *badger.Txn, prefix []byte) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid(), nil
}

// Healthcheck verifies the database accepts read transactions.
func (s *BadgerDocumentStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return fmt.Errorf("badger document store is closed")
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// Close closes the BadgerDB database and flushes pending writes.
//
// Returns:
//   - error: Error if closing the database fails
func (s *BadgerDocumentStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

var _ metadata.DocumentBackend = (*BadgerDocumentStore)(nil)
