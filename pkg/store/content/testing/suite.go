package testing

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/marmos91/rmshelf/pkg/store/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for ContentStore implementations.
// It tests the interface contract, not implementation details, making it
// reusable across memory, filesystem and S3.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &contenttesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.ContentStore {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty ContentStore for each test.
	NewStore func(t *testing.T) content.ContentStore
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("Statistics", suite.RunStatsTests)
	t.Run("GarbageCollection", suite.RunGarbageCollectionTests)
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}

func (suite *StoreTestSuite) newStore(t *testing.T) content.ContentStore {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// RunBasicTests covers write, read, size, existence and delete.
func (suite *StoreTestSuite) RunBasicTests(test *testing.T) {
	test.Run("WriteAndRead", func(t *testing.T) {
		store := suite.newStore(t)
		data := []byte("%PDF-1.7 technical manual")

		require.NoError(t, store.WriteContent(testContext(), "doc-1", data))

		got, err := content.ReadAll(testContext(), store, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, data, got)

		size, err := store.GetContentSize(testContext(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, uint64(len(data)), size)
	})

	test.Run("OverwriteReplaces", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.WriteContent(testContext(), "doc-1", []byte("a long first version")))
		require.NoError(t, store.WriteContent(testContext(), "doc-1", []byte("short")))

		got, err := content.ReadAll(testContext(), store, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("short"), got)
	})

	test.Run("EmptyContent", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.WriteContent(testContext(), "empty", nil))

		exists, err := store.ContentExists(testContext(), "empty")
		require.NoError(t, err)
		assert.True(t, exists)

		size, err := store.GetContentSize(testContext(), "empty")
		require.NoError(t, err)
		assert.Zero(t, size)
	})

	test.Run("WriterBufferIsNotShared", func(t *testing.T) {
		store := suite.newStore(t)
		data := []byte("original")
		require.NoError(t, store.WriteContent(testContext(), "doc-1", data))
		copy(data, "XXXXXXXX")

		got, err := content.ReadAll(testContext(), store, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), got)
	})

	test.Run("ReadNotFound", func(t *testing.T) {
		store := suite.newStore(t)
		_, err := store.ReadContent(testContext(), "missing")
		assert.True(t, errors.Is(err, content.ErrContentNotFound), "got %v", err)

		_, err = store.GetContentSize(testContext(), "missing")
		assert.True(t, errors.Is(err, content.ErrContentNotFound), "got %v", err)

		exists, err := store.ContentExists(testContext(), "missing")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	test.Run("DeleteIsIdempotent", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.WriteContent(testContext(), "doc-1", []byte("x")))

		require.NoError(t, store.Delete(testContext(), "doc-1"))
		require.NoError(t, store.Delete(testContext(), "doc-1"))
		require.NoError(t, store.Delete(testContext(), "never-written"))

		exists, err := store.ContentExists(testContext(), "doc-1")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	test.Run("CancelledContext", func(t *testing.T) {
		store := suite.newStore(t)
		ctx, cancel := context.WithCancel(testContext())
		cancel()

		assert.Error(t, store.WriteContent(ctx, "doc-1", []byte("x")))
		_, err := store.ReadContent(ctx, "doc-1")
		assert.Error(t, err)
	})
}

// RunStatsTests covers GetStorageStats.
func (suite *StoreTestSuite) RunStatsTests(test *testing.T) {
	test.Run("EmptyStore", func(t *testing.T) {
		store := suite.newStore(t)
		stats, err := store.GetStorageStats(testContext())
		require.NoError(t, err)
		assert.Zero(t, stats.ContentCount)
		assert.Zero(t, stats.UsedSize)
		assert.Zero(t, stats.AverageSize)
	})

	test.Run("CountsContent", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.WriteContent(testContext(), "a", bytes.Repeat([]byte("a"), 100)))
		require.NoError(t, store.WriteContent(testContext(), "b", bytes.Repeat([]byte("b"), 300)))

		stats, err := store.GetStorageStats(testContext())
		require.NoError(t, err)
		assert.Equal(t, uint64(2), stats.ContentCount)
		assert.Equal(t, uint64(400), stats.UsedSize)
		assert.Equal(t, uint64(200), stats.AverageSize)

		require.NoError(t, store.Delete(testContext(), "a"))
		stats, err = store.GetStorageStats(testContext())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), stats.ContentCount)
	})
}

// RunGarbageCollectionTests covers ListAllContent and DeleteBatch for stores
// implementing content.GarbageCollectableStore. Other stores are skipped.
func (suite *StoreTestSuite) RunGarbageCollectionTests(test *testing.T) {
	gcStore := func(t *testing.T) content.GarbageCollectableStore {
		store := suite.newStore(t)
		gc, ok := store.(content.GarbageCollectableStore)
		if !ok {
			t.Skip("store does not implement GarbageCollectableStore")
		}
		return gc
	}

	test.Run("ListAllContent", func(t *testing.T) {
		store := gcStore(t)
		require.NoError(t, store.WriteContent(testContext(), "a", []byte("1")))
		require.NoError(t, store.WriteContent(testContext(), "b", []byte("2")))

		ids, err := store.ListAllContent(testContext())
		require.NoError(t, err)
		assert.ElementsMatch(t, []content.ContentID{"a", "b"}, ids)
	})

	test.Run("DeleteBatch", func(t *testing.T) {
		store := gcStore(t)
		for _, id := range []content.ContentID{"a", "b", "c"} {
			require.NoError(t, store.WriteContent(testContext(), id, []byte(id)))
		}

		failures, err := store.DeleteBatch(testContext(), []content.ContentID{"a", "c", "missing"})
		require.NoError(t, err)
		assert.Empty(t, failures)

		ids, err := store.ListAllContent(testContext())
		require.NoError(t, err)
		assert.Equal(t, []content.ContentID{"b"}, ids)
	})
}
