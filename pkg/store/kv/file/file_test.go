package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/rmshelf/pkg/store/kv"
	kvtesting "github.com/marmos91/rmshelf/pkg/store/kv/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	suite := &kvtesting.StoreTestSuite{
		NewStore: func(t *testing.T) kv.Store {
			store, err := NewFileStore(context.Background(), filepath.Join(t.TempDir(), "state", "session.json"))
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	store, err := NewFileStore(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "rmapi-tokens", []byte(`{"a":1}`)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewFileStore(ctx, path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "rmapi-tokens")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}

func TestFileStore_MalformedFileOpensEmpty(t *testing.T) {
	ctx := context.Background()
	for _, raw := range []string{"{not json", `["a","b"]`, `{"rmapi-tokens": 42}`} {
		t.Run(raw, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			require.NoError(t, os.WriteFile(path, []byte(raw), 0600))

			store, err := NewFileStore(ctx, path)
			require.NoError(t, err)

			_, err = store.Get(ctx, "rmapi-tokens")
			assert.ErrorIs(t, err, kv.ErrNotFound)

			// the broken file is kept for inspection, not silently lost
			aside, err := os.ReadFile(path + CorruptSuffix)
			require.NoError(t, err)
			assert.Equal(t, raw, string(aside))
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))

			// the store is usable and persists again
			require.NoError(t, store.Set(ctx, "rmapi-user", []byte(`{}`)))
			reopened, err := NewFileStore(ctx, path)
			require.NoError(t, err)
			got, err := reopened.Get(ctx, "rmapi-user")
			require.NoError(t, err)
			assert.Equal(t, `{}`, string(got))
		})
	}
}

func TestFileStore_EmptyFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	store, err := NewFileStore(context.Background(), path)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}
