// Package fs implements filesystem-based content storage.
//
// Each blob is one file named after its ContentID directly under the base
// directory. Writes go to a temporary file that is renamed into place, so a
// reader never observes a half-written upload.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/rmshelf/pkg/store/content"
)

const tempSuffix = ".tmp"

// FSContentStore implements content.ContentStore using the local filesystem.
//
// Thread Safety:
// Filesystem operations are safe at the OS level. Concurrent writes to the
// same id race on the final rename and the last one wins.
type FSContentStore struct {
	basePath string
}

// NewFSContentStore creates a filesystem content store rooted at basePath.
//
// The base directory is created with permissions 0755 if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation
//   - basePath: Root directory for content files
//
// Returns:
//   - *FSContentStore: Initialized store
//   - error: Directory creation failure or context cancellation
func NewFSContentStore(ctx context.Context, basePath string) (*FSContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if basePath == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSContentStore{basePath: basePath}, nil
}

// getFilePath returns the file path of id, rejecting ids that would escape
// the base directory.
func (r *FSContentStore) getFilePath(id content.ContentID) (string, error) {
	s := string(id)
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) || strings.HasSuffix(s, tempSuffix) {
		return "", fmt.Errorf("invalid content id %q", s)
	}
	return filepath.Join(r.basePath, s), nil
}

// WriteContent implements content.ContentStore.
func (r *FSContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.basePath, string(id)+".*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close content file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to commit content: %w", err)
	}
	return nil
}

// ReadContent implements content.ContentStore.
func (r *FSContentStore) ReadContent(ctx context.Context, id content.ContentID) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open content: %w", err)
	}
	return f, nil
}

// GetContentSize implements content.ContentStore.
func (r *FSContentStore) GetContentSize(ctx context.Context, id content.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to stat content: %w", err)
	}
	return uint64(info.Size()), nil
}

// ContentExists implements content.ContentStore.
func (r *FSContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := r.GetContentSize(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements content.ContentStore.
func (r *FSContentStore) Delete(ctx context.Context, id content.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.getFilePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// GetStorageStats implements content.ContentStore by scanning the base
// directory. Temporary files of in-flight writes are not counted.
func (r *FSContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan content directory: %w", err)
	}

	var used, count uint64
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		used += uint64(info.Size())
		count++
	}
	return content.NewStorageStats(used, count), nil
}

// ListAllContent implements content.GarbageCollectableStore. Temporary files
// of in-flight writes are not listed.
func (r *FSContentStore) ListAllContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan content directory: %w", err)
	}

	ids := make([]content.ContentID, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		ids = append(ids, content.ContentID(entry.Name()))
	}
	return ids, nil
}

// DeleteBatch implements content.GarbageCollectableStore.
func (r *FSContentStore) DeleteBatch(ctx context.Context, ids []content.ContentID) (map[content.ContentID]error, error) {
	return content.DeleteEach(ctx, r, ids)
}

// Close implements content.ContentStore. Files are opened per call, so
// there is nothing to release.
func (r *FSContentStore) Close() error {
	return nil
}

var _ content.GarbageCollectableStore = (*FSContentStore)(nil)
