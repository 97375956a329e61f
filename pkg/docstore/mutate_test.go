package docstore

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFolder_Property(t *testing.T) {
	ctx := context.Background()

	for _, parent := range []string{"/", "/1", "/4"} {
		f := newFixture(t)
		before := len(f.store.ListChildren(parent))

		created, err := f.store.CreateFolder(ctx, "  Projects  ", parent)
		require.NoError(t, err)

		assert.Equal(t, "Projects", created.Name)
		assert.Equal(t, document.KindCollection, created.Kind)
		assert.Equal(t, 1, created.Version)
		assert.Nil(t, created.ByteSize)
		assert.Nil(t, created.CurrentPage)
		assert.Equal(t, testNow, created.ModifiedAt)

		wantParent, err := f.store.resolve(parent)
		require.NoError(t, err)
		assert.Equal(t, wantParent, created.ParentID)

		children := f.store.ListChildren(parent)
		assert.Len(t, children, before+1)
		assert.Contains(t, document.IDs(children), created.ID)

		stored, err := f.backend.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Name, stored.Name)

		// the new folder is navigable
		path, ok := f.store.PathOf(created.ID)
		require.True(t, ok)
		assert.Equal(t, document.ChildPath(parent, created.ID), path)
		assert.Empty(t, f.store.ListChildren(path))
	}
}

func TestCreateFolder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := f.store.CreateFolder(ctx, name, "/")
		assert.True(t, document.IsValidation(err), "name %q: %v", name, err)
	}

	_, err := f.store.CreateFolder(ctx, "Projects", "/missing")
	assert.True(t, document.IsNotFound(err))

	assert.Len(t, f.store.Documents(), 5)
	assert.NoError(t, f.store.LastError(), "input errors never reach the error slot")
}

func TestCreateFolder_BackendFailure(t *testing.T) {
	f := newFixture(t)
	f.backend.Inject(metadata.OpCreate, nil, 1)

	_, err := f.store.CreateFolder(context.Background(), "Projects", "/")
	require.Error(t, err)
	assert.True(t, document.IsOperationFailed(err))
	assert.Equal(t, err, f.store.LastError())
	assert.Len(t, f.store.Documents(), 5)

	f.store.ClearError()
	assert.NoError(t, f.store.LastError())
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	updated, err := f.store.Rename(ctx, "1", " Notebooks ")
	require.NoError(t, err)
	assert.Equal(t, "Notebooks", updated.Name)
	assert.Equal(t, 2, updated.Version)

	listing := f.store.Listing("/1", "", "")
	assert.Equal(t, []string{"Home", "Notebooks"}, listing.Breadcrumbs)

	same, err := f.store.Rename(ctx, "1", "Notebooks")
	require.NoError(t, err)
	assert.Equal(t, 2, same.Version, "renaming to the same name is a no-op")

	_, err = f.store.Rename(ctx, "1", " ")
	assert.True(t, document.IsValidation(err))

	_, err = f.store.Rename(ctx, "missing", "x")
	assert.True(t, document.IsNotFound(err))
}

func TestMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	moved, err := f.store.Move(ctx, "5", "/1")
	require.NoError(t, err)
	assert.Equal(t, "1", moved.ParentID)
	assert.Equal(t, 2, moved.Version)
	assert.Empty(t, f.store.ListChildren("/4"))
	assert.Len(t, f.store.ListChildren("/1"), 3)

	// folders move with their contents
	_, err = f.store.Move(ctx, "4", "/1")
	require.NoError(t, err)
	path, ok := f.store.PathOf("4")
	require.True(t, ok)
	assert.Equal(t, "/1/4", path)
}

func TestMove_RejectsCycles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	child, err := f.store.CreateFolder(ctx, "Inner", "/1")
	require.NoError(t, err)

	_, err = f.store.Move(ctx, "1", "/1")
	assert.True(t, document.IsValidation(err))

	_, err = f.store.Move(ctx, "1", "/1/"+child.ID)
	assert.True(t, document.IsValidation(err))

	_, err = f.store.Move(ctx, "1", "/missing")
	assert.True(t, document.IsNotFound(err))

	doc, _ := f.store.Document("1")
	assert.Equal(t, document.RootID, doc.ParentID)
}

func TestMove_RelocatesCurrentPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Navigate(ctx, "/4"))
	_, err := f.store.Move(ctx, "4", "/1")
	require.NoError(t, err)

	assert.Equal(t, "/1/4", f.store.CurrentPath())
}

func TestBusyGuard(t *testing.T) {
	f := newFixture(t)
	gate := newGatedBackend(f.backend)
	f.store.backend = gate
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() {
		_, err := f.store.CreateFolder(ctx, "Slow", "/")
		errCh <- err
	}()
	<-gate.entered

	assert.True(t, f.store.Busy(ActionCreateFolder))
	assert.Equal(t, []Action{ActionCreateFolder}, f.store.BusyActions())

	_, err := f.store.CreateFolder(ctx, "Second", "/")
	require.Error(t, err)
	assert.True(t, document.IsBusy(err))
	assert.True(t, document.IsOperationFailed(err))
	assert.True(t, strings.Contains(err.Error(), "create folder already in progress"))
	assert.Equal(t, 1, f.metrics.rejected["create_folder"])

	// other kinds are not blocked
	_, err = f.store.Rename(ctx, "2", "Renamed")
	require.NoError(t, err)

	close(gate.release)
	require.NoError(t, <-errCh)
	assert.False(t, f.store.Busy(ActionCreateFolder))

	_, err = f.store.CreateFolder(ctx, "Third", "/")
	assert.NoError(t, err)
}

// gatedBackend blocks Create until release is closed.
type gatedBackend struct {
	metadata.DocumentBackend
	entered chan struct{}
	release chan struct{}
}

func newGatedBackend(inner metadata.DocumentBackend) *gatedBackend {
	return &gatedBackend{
		DocumentBackend: inner,
		entered:         make(chan struct{}, 16),
		release:         make(chan struct{}),
	}
}

func (g *gatedBackend) Create(ctx context.Context, doc document.Document) (document.Document, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.DocumentBackend.Create(ctx, doc)
}
