// Package content defines blob storage for uploaded document files.
//
// Document records live in a metadata.DocumentBackend; the bytes of an
// uploaded PDF, EPUB or notebook live in a ContentStore under the document's
// ID. Implementations: memory (tests, demo), fs (local directory) and s3
// (Amazon S3 or any S3-compatible service).
package content

import (
	"context"
	"errors"
	"io"
)

// ContentID identifies one blob. The document store uses the document ID.
type ContentID string

// ErrContentNotFound indicates the requested content does not exist.
//
// Implementations wrap it with context:
//
//	return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
var ErrContentNotFound = errors.New("content not found")

// ContentStore stores whole-file blobs.
//
// Uploads always replace the full content, so there are no offset writes.
//
// Thread Safety:
// Implementations must be safe for concurrent use. Concurrent writes to the
// same ContentID are last-write-wins.
type ContentStore interface {
	// WriteContent stores data under id, replacing any previous content.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - id: Content identifier
	//   - data: Complete content
	//
	// Returns:
	//   - error: Write failure or context cancellation
	WriteContent(ctx context.Context, id ContentID, data []byte) error

	// ReadContent returns a reader for the content. The caller closes it.
	//
	// Returns:
	//   - io.ReadCloser: Reader for the content
	//   - error: ErrContentNotFound if absent
	ReadContent(ctx context.Context, id ContentID) (io.ReadCloser, error)

	// GetContentSize returns the size of the content in bytes.
	GetContentSize(ctx context.Context, id ContentID) (uint64, error)

	// ContentExists reports whether content exists. Absence is (false, nil).
	ContentExists(ctx context.Context, id ContentID) (bool, error)

	// Delete removes content. Deleting absent content succeeds.
	Delete(ctx context.Context, id ContentID) error

	// GetStorageStats returns usage statistics.
	GetStorageStats(ctx context.Context) (*StorageStats, error)

	// Close releases resources.
	Close() error
}

// GarbageCollectableStore is implemented by content stores that can enumerate
// their blobs, which the orphan collector needs to find content no document
// references any more (an upload whose record creation failed and whose
// rollback also failed, or a delete that removed the record but not the
// bytes).
type GarbageCollectableStore interface {
	ContentStore

	// ListAllContent returns the id of every stored blob. Order is unspecified.
	ListAllContent(ctx context.Context) ([]ContentID, error)

	// DeleteBatch removes ids and reports the ones that failed. A non-nil
	// error means the batch as a whole could not be attempted.
	DeleteBatch(ctx context.Context, ids []ContentID) (map[ContentID]error, error)
}

// StorageStats describes content store usage.
type StorageStats struct {
	// UsedSize is the total size of stored content in bytes
	UsedSize uint64 `json:"used_size"`

	// ContentCount is the number of stored blobs
	ContentCount uint64 `json:"content_count"`

	// AverageSize is UsedSize / ContentCount, 0 when empty
	AverageSize uint64 `json:"average_size"`
}

// NewStorageStats computes averages from totals.
func NewStorageStats(used, count uint64) *StorageStats {
	stats := &StorageStats{UsedSize: used, ContentCount: count}
	if count > 0 {
		stats.AverageSize = used / count
	}
	return stats
}

// ReadAll reads the complete content of id.
func ReadAll(ctx context.Context, store ContentStore, id ContentID) ([]byte, error) {
	r, err := store.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

// DeleteEach is the shared DeleteBatch fallback for stores without a native
// multi-delete.
func DeleteEach(ctx context.Context, store ContentStore, ids []ContentID) (map[ContentID]error, error) {
	failures := make(map[ContentID]error)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := store.Delete(ctx, id); err != nil {
			failures[id] = err
		}
	}
	return failures, nil
}
