// Package gc provides garbage collection for orphaned upload content.
//
// The collector identifies and removes content that is no longer referenced
// by any document record (orphaned content). This can occur when:
//   - A document record could not be created and the rollback of its
//     content failed as well
//   - A document was deleted but its content delete failed
//   - The process stopped between writing content and creating the record
//
// Content written by an upload that is still in flight has no record yet, so
// a blob is only deleted after it was found orphaned by two consecutive runs.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/rmshelf/internal/logger"
	"github.com/marmos91/rmshelf/pkg/store/content"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
)

// Collector performs periodic garbage collection on a content store.
//
// Thread Safety: Safe for concurrent use. Runs are serialised.
type Collector struct {
	backend      metadata.DocumentBackend
	contentStore content.GarbageCollectableStore
	config       Config

	// runMu serialises collection runs and guards suspects
	runMu    sync.Mutex
	suspects map[content.ContentID]struct{}

	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// Config contains configuration for the garbage collector.
type Config struct {
	// Enabled controls whether background collection runs (default: false)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Interval is how often to run garbage collection (default: 1h)
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`

	// BatchSize is how many orphaned items to delete per batch (default: 1000)
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// DryRun logs what would be deleted without deleting
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// NewCollector creates a new garbage collector.
//
// The collector will be initialized but not started. Call Start() to begin
// background garbage collection.
//
// Parameters:
//   - backend: Document backend listing the referenced content
//   - contentStore: Content store to scan and delete orphaned content
//   - config: Garbage collection configuration
//
// Returns:
//   - *Collector: Initialized collector (not started)
//   - error: Returns error if the content store cannot be enumerated
func NewCollector(
	backend metadata.DocumentBackend,
	contentStore content.ContentStore,
	config Config,
) (*Collector, error) {
	gcStore, ok := contentStore.(content.GarbageCollectableStore)
	if !ok {
		return nil, fmt.Errorf("content store does not implement GarbageCollectableStore interface")
	}

	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}

	return &Collector{
		backend:      backend,
		contentStore: gcStore,
		config:       config,
		suspects:     make(map[content.ContentID]struct{}),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}, nil
}

// Start begins background garbage collection. Subsequent calls are no-ops.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	c.startOnce.Do(func() {
		c.started = true
		logger.Info("Starting garbage collector: interval=%s batch_size=%d dry_run=%v",
			c.config.Interval, c.config.BatchSize, c.config.DryRun)
		go c.worker()
	})
}

// Stop stops the garbage collector and waits for it to finish.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - error: Returns error if context expires before shutdown completes
func (c *Collector) Stop(ctx context.Context) error {
	if !c.started {
		return nil
	}

	c.stopOnce.Do(func() {
		logger.Info("Stopping garbage collector...")
		close(c.stopCh)
	})

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate garbage collection run and blocks until it
// completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	logger.Debug("Running garbage collection (manual trigger)")
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// collect performs a single garbage collection run:
//  1. Get all content IDs referenced by document records
//  2. Get all content IDs in the content store
//  3. orphaned = existing - referenced
//  4. Delete the orphans that were already suspects in the previous run,
//     remember the rest as suspects for the next one
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	stats := &Stats{StartTime: time.Now()}

	// ========================================================================
	// Step 1: Referenced content
	// ========================================================================

	docs, err := c.backend.ListAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list documents: %w", err)
	}

	referenced := make(map[content.ContentID]struct{}, len(docs))
	for _, d := range docs {
		if !d.IsContainer() {
			referenced[content.ContentID(d.ID)] = struct{}{}
		}
	}
	stats.ReferencedCount = uint64(len(referenced))

	// ========================================================================
	// Step 2: Existing content
	// ========================================================================

	existing, err := c.contentStore.ListAllContent(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list content: %w", err)
	}
	stats.ExistingCount = uint64(len(existing))

	// ========================================================================
	// Step 3: Orphans, split into confirmed and newly suspected
	// ========================================================================

	var confirmed []content.ContentID
	nextSuspects := make(map[content.ContentID]struct{})
	for _, id := range existing {
		if _, ok := referenced[id]; ok {
			continue
		}
		stats.OrphanedCount++
		if _, seen := c.suspects[id]; seen {
			confirmed = append(confirmed, id)
		} else {
			nextSuspects[id] = struct{}{}
		}
	}
	stats.PendingCount = uint64(len(nextSuspects))

	if len(confirmed) == 0 {
		c.suspects = nextSuspects
		stats.EndTime = time.Now()
		return stats, nil
	}

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - would delete %d orphaned items", len(confirmed))
		for _, id := range confirmed {
			logger.Debug("GC: would delete %s", id)
			nextSuspects[id] = struct{}{}
		}
		c.suspects = nextSuspects
		stats.EndTime = time.Now()
		return stats, nil
	}

	// ========================================================================
	// Step 4: Delete confirmed orphans in batches
	// ========================================================================

	for i := 0; i < len(confirmed); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			c.suspects = nextSuspects
			stats.EndTime = time.Now()
			return stats, err
		}

		batch := confirmed[i:min(i+c.config.BatchSize, len(confirmed))]

		failures, err := c.contentStore.DeleteBatch(ctx, batch)
		if err != nil {
			logger.Warn("GC: Batch delete failed: %v", err)
			stats.FailedCount += uint64(len(batch))
			for _, id := range batch {
				nextSuspects[id] = struct{}{}
			}
			continue
		}

		stats.DeletedCount += uint64(len(batch) - len(failures))
		stats.FailedCount += uint64(len(failures))
		for id, ferr := range failures {
			logger.Debug("GC: Failed to delete %s: %v", id, ferr)
			nextSuspects[id] = struct{}{}
		}
	}

	c.suspects = nextSuspects
	stats.EndTime = time.Now()

	logger.Info("GC: deleted %d orphaned items, %d failed, duration=%s",
		stats.DeletedCount, stats.FailedCount, stats.Duration())

	return stats, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime       time.Time // When collection started
	EndTime         time.Time // When collection ended
	ReferencedCount uint64    // Content IDs referenced by document records
	ExistingCount   uint64    // Content IDs in the content store
	OrphanedCount   uint64    // Orphaned content IDs found
	PendingCount    uint64    // Orphans seen for the first time, kept until the next run
	DeletedCount    uint64    // Orphans successfully deleted
	FailedCount     uint64    // Orphans that failed to delete
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d pending=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount, s.PendingCount,
		s.DeletedCount, s.FailedCount, s.Duration())
}
