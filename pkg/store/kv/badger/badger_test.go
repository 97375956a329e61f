package badger

import (
	"context"
	"testing"

	"github.com/marmos91/rmshelf/pkg/store/kv"
	kvtesting "github.com/marmos91/rmshelf/pkg/store/kv/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	suite := &kvtesting.StoreTestSuite{
		NewStore: func(t *testing.T) kv.Store {
			store, err := NewBadgerStore(context.Background(), Config{DBPath: t.TempDir()})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewBadgerStore(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "rmapi-user", []byte(`{"email":"user@example.com"}`)))
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Get(ctx, "rmapi-user")
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"user@example.com"}`, string(got))
}
