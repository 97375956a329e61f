// Package badger implements kv.Store on BadgerDB.
//
// Keys are stored under the "kv:" prefix so the same database directory can
// be shared with other data without collisions.
package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/rmshelf/pkg/store/kv"
)

const prefixKV = "kv:"

func keyOf(key string) []byte {
	return []byte(prefixKV + key)
}

// BadgerStore implements kv.Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// Config configures the badger kv store.
type Config struct {
	// DBPath is the database directory. Ignored when InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in RAM
	InMemory bool `mapstructure:"in_memory"`
}

// NewBadgerStore opens the database.
func NewBadgerStore(ctx context.Context, cfg Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger kv store: db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}
	return &BadgerStore{db: db}, nil
}

// Get implements kv.Store.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyOf(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return kv.ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

// Set implements kv.Store.
func (s *BadgerStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyOf(key), value)
	})
}

// Delete implements kv.Store.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(keyOf(key))
	})
}

// Close implements kv.Store. Closing twice is a no-op.
func (s *BadgerStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

var _ kv.Store = (*BadgerStore)(nil)
