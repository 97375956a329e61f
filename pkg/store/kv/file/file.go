// Package file implements kv.Store as a single JSON document on disk.
//
// The file holds a JSON object of key → string value. It is read once at
// open and rewritten atomically (temp file + rename) on every change, so it
// can be inspected or edited by hand while the server is stopped. Values are
// stored as strings; non UTF-8 bytes do not survive a round trip.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/store/kv"
)

// CorruptSuffix is appended to the name of a malformed file when it is moved
// aside at open.
const CorruptSuffix = ".corrupt"

// FileStore implements kv.Store on one JSON file.
type FileStore struct {
	path string

	mu   sync.RWMutex
	data map[string]string
}

// NewFileStore opens the store at path, creating the parent directory. A
// missing file is an empty store. A file that is not a JSON object is moved
// aside to <path>.corrupt and the store opens empty, so whatever it held is
// treated as absent.
//
// Parameters:
//   - ctx: Context for cancellation
//   - path: Location of the JSON file
//
// Returns:
//   - *FileStore: Opened store
//   - error: Unreadable file, or a malformed file that cannot be moved aside
func NewFileStore(ctx context.Context, path string) (*FileStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("file kv store: path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create kv directory: %w", err)
	}

	s := &FileStore{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read kv file: %w", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		aside := path + CorruptSuffix
		logger.Warn("KV file %s is malformed (%v); moving it to %s and starting empty", path, err, aside)
		if rerr := os.Rename(path, aside); rerr != nil {
			return nil, fmt.Errorf("failed to move malformed kv file %s aside: %w", path, rerr)
		}
		s.data = make(map[string]string)
	}
	return s, nil
}

// persist rewrites the file. Callers hold mu.
func (s *FileStore) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode kv file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set kv file mode: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write kv file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close kv file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit kv file: %w", err)
	}
	return nil
}

// Get implements kv.Store.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return []byte(v), nil
}

// Set implements kv.Store.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	s.data[key] = string(value)
	if err := s.persist(); err != nil {
		if had {
			s.data[key] = prev
		} else {
			delete(s.data, key)
		}
		return err
	}
	return nil
}

// Delete implements kv.Store.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.data[key]
	if !had {
		return nil
	}
	delete(s.data, key)
	if err := s.persist(); err != nil {
		s.data[key] = prev
		return err
	}
	return nil
}

// Close implements kv.Store. Every change is already on disk.
func (s *FileStore) Close() error {
	return nil
}

var _ kv.Store = (*FileStore)(nil)
