package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/store/content"
	contentFs "github.com/marmos91/rmshelf/pkg/store/content/fs"
	contentMemory "github.com/marmos91/rmshelf/pkg/store/content/memory"
	contentS3 "github.com/marmos91/rmshelf/pkg/store/content/s3"
	"github.com/marmos91/rmshelf/pkg/store/kv"
	kvBadger "github.com/marmos91/rmshelf/pkg/store/kv/badger"
	kvFile "github.com/marmos91/rmshelf/pkg/store/kv/file"
	kvMemory "github.com/marmos91/rmshelf/pkg/store/kv/memory"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
	"github.com/marmos91/rmshelf/pkg/store/metadata/badger"
	"github.com/marmos91/rmshelf/pkg/store/metadata/memory"
	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a type-specific options map into out.
//
// Durations may be given as strings ("500ms") and numbers are converted
// between widths, which is what YAML and environment values produce.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// CreateDocumentBackend creates a document backend based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/store/metadata/memory (seeded demo library, simulated latency)
//   - "badger": Uses pkg/store/metadata/badger (BadgerDB storage, persistent)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Metadata configuration
//
// Returns:
//   - metadata.DocumentBackend: Initialized backend
//   - error: Configuration or initialization error
func CreateDocumentBackend(ctx context.Context, cfg *MetadataConfig) (metadata.DocumentBackend, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryDocumentBackend(cfg.Memory)
	case "badger":
		return createBadgerDocumentBackend(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

// createMemoryDocumentBackend creates the in-memory backend.
func createMemoryDocumentBackend(options map[string]any) (metadata.DocumentBackend, error) {
	var storeCfg memory.MemoryDocumentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory metadata store config: %w", err)
	}

	store := memory.NewMemoryDocumentStore(storeCfg)
	logger.Debug("Memory document backend initialized: seed=%t, load latency=%s",
		storeCfg.Seed, storeCfg.Latency.Load)

	return store, nil
}

// createBadgerDocumentBackend creates the BadgerDB backend.
func createBadgerDocumentBackend(ctx context.Context, options map[string]any) (metadata.DocumentBackend, error) {
	var storeCfg badger.BadgerDocumentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger metadata store config: %w", err)
	}

	if storeCfg.DBPath == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger metadata store: db_path is required")
	}

	store, err := badger.NewBadgerDocumentStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger metadata store: %w", err)
	}

	logger.Info("Badger document backend initialized: path=%s", storeCfg.DBPath)
	return store, nil
}

// CreateContentStore creates a content store based on configuration.
//
// Supported types:
//   - "memory": Uses pkg/store/content/memory (ephemeral)
//   - "filesystem": Uses pkg/store/content/fs (local filesystem storage)
//   - "s3": Uses pkg/store/content/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content store configuration
//   - s3Metrics: Optional S3 metrics collector (nil = no metrics)
//
// Returns:
//   - content.ContentStore: Initialized content store
//   - error: Configuration or initialization error
func CreateContentStore(ctx context.Context, cfg *ContentConfig, s3Metrics contentS3.S3Metrics) (content.ContentStore, error) {
	switch cfg.Type {
	case "memory":
		store, err := contentMemory.NewMemoryContentStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory content store: %w", err)
		}
		return store, nil
	case "filesystem":
		return createFilesystemContentStore(ctx, cfg.Filesystem)
	case "s3":
		return createS3ContentStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type FilesystemContentStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemContentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.NewFSContentStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}

	return store, nil
}

// s3StoreOptions is the s3 section of the content configuration.
type s3StoreOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any, s3Metrics contentS3.S3Metrics) (content.ContentStore, error) {
	var storeCfg s3StoreOptions
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	store, err := contentS3.NewS3ContentStore(ctx, contentS3.S3ContentStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// newS3Client builds an S3 client from the store options.
func newS3Client(ctx context.Context, storeCfg s3StoreOptions) (*awss3.Client, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// CreateSessionStore creates the key-value store that persists the session.
//
// Supported types:
//   - "memory": Uses pkg/store/kv/memory (session lost on restart)
//   - "file": Uses pkg/store/kv/file (single JSON file)
//   - "badger": Uses pkg/store/kv/badger (BadgerDB storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Session storage configuration
//
// Returns:
//   - kv.Store: Initialized store
//   - error: Configuration or initialization error
func CreateSessionStore(ctx context.Context, cfg *SessionStorageConfig) (kv.Store, error) {
	switch cfg.Type {
	case "memory":
		return kvMemory.NewMemoryStore(), nil
	case "file":
		return createFileSessionStore(ctx, cfg.File)
	case "badger":
		return createBadgerSessionStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown session storage type: %q", cfg.Type)
	}
}

// createFileSessionStore creates a file-backed key-value store.
func createFileSessionStore(ctx context.Context, options map[string]any) (kv.Store, error) {
	var storeCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file session storage config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("file session storage: path is required")
	}

	store, err := kvFile.NewFileStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file session storage: %w", err)
	}
	return store, nil
}

// createBadgerSessionStore creates a BadgerDB-backed key-value store.
func createBadgerSessionStore(ctx context.Context, options map[string]any) (kv.Store, error) {
	var storeCfg kvBadger.Config
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger session storage config: %w", err)
	}

	store, err := kvBadger.NewBadgerStore(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger session storage: %w", err)
	}
	return store, nil
}
