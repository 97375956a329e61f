package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/rmshelf/pkg/store/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for kv.Store implementations.
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test.
	NewStore func(t *testing.T) kv.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	ctx := context.Background()

	test.Run("SetAndGet", func(t *testing.T) {
		store := suite.newStore(t)
		value := []byte(`{"deviceToken":"device_ABCD1234_1700000000000"}`)

		require.NoError(t, store.Set(ctx, "rmapi-tokens", value))

		got, err := store.Get(ctx, "rmapi-tokens")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	test.Run("GetMissing", func(t *testing.T) {
		store := suite.newStore(t)
		_, err := store.Get(ctx, "rmapi-user")
		assert.True(t, errors.Is(err, kv.ErrNotFound), "got %v", err)
	})

	test.Run("Overwrite", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.Set(ctx, "k", []byte("one")))
		require.NoError(t, store.Set(ctx, "k", []byte("two")))

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})

	test.Run("KeysAreIndependent", func(t *testing.T) {
		store := suite.newStore(t)
		require.NoError(t, store.Set(ctx, "a", []byte("1")))
		require.NoError(t, store.Set(ctx, "b", []byte("2")))
		require.NoError(t, store.Delete(ctx, "a"))

		_, err := store.Get(ctx, "a")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		got, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), got)
	})

	test.Run("DeleteIsIdempotent", func(t *testing.T) {
		store := suite.newStore(t)
		assert.NoError(t, store.Delete(ctx, "never-set"))
		require.NoError(t, store.Set(ctx, "k", []byte("v")))
		assert.NoError(t, store.Delete(ctx, "k"))
		assert.NoError(t, store.Delete(ctx, "k"))
	})

	test.Run("CallerBufferIsNotShared", func(t *testing.T) {
		store := suite.newStore(t)
		value := []byte("value")
		require.NoError(t, store.Set(ctx, "k", value))
		copy(value, "XXXXX")

		got, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("value"), got)
	})
}

func (suite *StoreTestSuite) newStore(t *testing.T) kv.Store {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
