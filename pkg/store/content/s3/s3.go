// Package s3 implements S3-based content storage.
//
// Any S3-compatible service works (AWS, MinIO, Localstack); the client is
// built by the config layer with a custom endpoint, static credentials and a
// retrying transport.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/rmshelf/pkg/store/content"
)

// API is the subset of *s3.Client the store uses. Tests substitute a fake.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// maxDeleteBatch is the S3 limit of keys per DeleteObjects call.
const maxDeleteBatch = 1000

// S3ContentStore implements content.ContentStore on an S3 bucket.
//
// Key Design:
// The object key is KeyPrefix + ContentID. With the default prefix
// "documents/" an upload lands at "documents/<document-id>".
//
// Thread Safety:
// Safe for concurrent use; concurrent writes to one id are last-write-wins.
type S3ContentStore struct {
	client    API
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// S3ContentStoreConfig contains configuration for the S3 content store.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client
	Client API

	// Bucket is the S3 bucket name. It must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string

	// Metrics receives per-operation observations (optional)
	Metrics S3Metrics
}

// NewS3ContentStore creates an S3 content store and verifies bucket access.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Client, bucket and key prefix
//
// Returns:
//   - *S3ContentStore: Initialized store
//   - error: Missing configuration, inaccessible bucket or cancellation
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	// ========================================================================
	// Step 1: Validate configuration
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	// ========================================================================
	// Step 2: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   metrics,
	}, nil
}

// getObjectKey returns the full S3 object key for id.
func (s *S3ContentStore) getObjectKey(id content.ContentID) string {
	return s.keyPrefix + string(id)
}

// isNotFound reports whether err is S3's "no such key" for GetObject or the
// bare 404 HeadObject returns.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

func (s *S3ContentStore) observe(op string, start time.Time, err error) {
	s.metrics.ObserveOperation(op, time.Since(start), err)
}

// WriteContent implements content.ContentStore with a single PutObject.
func (s *S3ContentStore) WriteContent(ctx context.Context, id content.ContentID, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.observe("PutObject", start, err) }()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.getObjectKey(id)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to write content to S3: %w", err)
	}
	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// ReadContent implements content.ContentStore. The returned reader streams
// the object body and records bytes read when closed.
func (s *S3ContentStore) ReadContent(ctx context.Context, id content.ContentID) (rc io.ReadCloser, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { s.observe("GetObject", start, err) }()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return nil, fmt.Errorf("failed to read content from S3: %w", err)
	}

	return &metricsReadCloser{ReadCloser: out.Body, metrics: s.metrics, operation: "read"}, nil
}

// GetContentSize implements content.ContentStore using HeadObject.
func (s *S3ContentStore) GetContentSize(ctx context.Context, id content.ContentID) (size uint64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { s.observe("HeadObject", start, err) }()

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to stat content in S3: %w", err)
	}
	return uint64(aws.ToInt64(out.ContentLength)), nil
}

// ContentExists implements content.ContentStore.
func (s *S3ContentStore) ContentExists(ctx context.Context, id content.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete implements content.ContentStore. S3 DeleteObject is already
// idempotent.
func (s *S3ContentStore) Delete(ctx context.Context, id content.ContentID) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { s.observe("DeleteObject", start, err) }()

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete content from S3: %w", err)
	}
	return nil
}

// GetStorageStats implements content.ContentStore by listing every object
// under the key prefix. This is a paginated scan and can be slow on large
// buckets.
func (s *S3ContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var used, count uint64
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			used += uint64(aws.ToInt64(obj.Size))
			count++
		}
	}
	return content.NewStorageStats(used, count), nil
}

// ListAllContent implements content.GarbageCollectableStore by listing the
// keys under the prefix.
func (s *S3ContentStore) ListAllContent(ctx context.Context) ([]content.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []content.ContentID
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), s.keyPrefix)
			if key != "" {
				ids = append(ids, content.ContentID(key))
			}
		}
	}
	return ids, nil
}

// DeleteBatch implements content.GarbageCollectableStore with DeleteObjects,
// up to 1000 keys per request. Per-key errors reported by S3 are returned
// in the failure map.
func (s *S3ContentStore) DeleteBatch(ctx context.Context, ids []content.ContentID) (map[content.ContentID]error, error) {
	failures := make(map[content.ContentID]error)

	for start := 0; start < len(ids); start += maxDeleteBatch {
		if err := ctx.Err(); err != nil {
			return failures, err
		}

		end := min(start+maxDeleteBatch, len(ids))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, id := range ids[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(s.getObjectKey(id))})
		}

		began := time.Now()
		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		s.observe("DeleteObjects", began, err)
		if err != nil {
			for _, id := range ids[start:end] {
				failures[id] = err
			}
			continue
		}

		for _, e := range out.Errors {
			id := content.ContentID(strings.TrimPrefix(aws.ToString(e.Key), s.keyPrefix))
			failures[id] = fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message))
		}
	}
	return failures, nil
}

// Close implements content.ContentStore. The SDK client has no resources to
// release.
func (s *S3ContentStore) Close() error {
	return nil
}

var _ content.GarbageCollectableStore = (*S3ContentStore)(nil)
