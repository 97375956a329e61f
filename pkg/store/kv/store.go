// Package kv defines the small key-value store that persists the session.
//
// It plays the role browser local storage plays for a web client: a handful
// of string keys ("rmapi-tokens", "rmapi-user") mapped to JSON blobs that
// must survive a restart. Implementations: memory, file (one JSON document on
// disk) and badger.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key has no value.
var ErrNotFound = errors.New("key not found")

// Store is a string-keyed byte store.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value of key.
	//
	// Returns:
	//   - []byte: A copy of the stored value
	//   - error: ErrNotFound if key has no value
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// Close releases resources.
	Close() error
}
