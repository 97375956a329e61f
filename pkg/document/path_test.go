package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func folder(id, name, parent string) Document {
	return Document{ID: id, Name: name, Kind: KindCollection, ParentID: parent, Version: 1, ModifiedAt: t0}
}

func TestPathTable_Resolve(t *testing.T) {
	docs := []Document{
		folder("1", "My Notebooks", RootID),
		folder("4", "PDFs", RootID),
		folder("7", "Archive", "1"),
		doc("2", "Research Notes", 2048000, t0),
	}
	table := NewPathTable(docs)

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr bool
	}{
		{name: "root", path: "/", want: RootID},
		{name: "empty is root", path: "", want: RootID},
		{name: "top level", path: "/1", want: "1"},
		{name: "nested", path: "/1/7", want: "7"},
		{name: "trailing slash", path: "/1/7/", want: "7"},
		{name: "double slash", path: "//1//7", want: "7"},
		{name: "missing leading slash", path: "4", want: "4"},
		{name: "wrong parent chain", path: "/4/7", wantErr: true},
		{name: "document is not navigable", path: "/1/2", wantErr: true},
		{name: "unknown", path: "/99", wantErr: true},
		{name: "name is not a path", path: "/my-notebooks", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Resolve(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPathTable_DuplicateNamesResolveDistinctly(t *testing.T) {
	docs := []Document{
		folder("a", "Notes", RootID),
		folder("b", "Notes", RootID),
	}
	table := NewPathTable(docs)

	first, err := table.Resolve("/a")
	require.NoError(t, err)
	second, err := table.Resolve("/b")
	require.NoError(t, err)

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
}

func TestPathTable_Idempotent(t *testing.T) {
	docs := []Document{folder("1", "One", RootID)}

	first, err1 := Resolve("/1", docs)
	second, err2 := Resolve("/1", docs)

	assert.Equal(t, first, second)
	assert.Equal(t, err1, err2)
}

func TestPathTable_OrphansAndCyclesAreNotNavigable(t *testing.T) {
	docs := []Document{
		folder("orphan", "Orphan", "gone"),
		folder("x", "X", "y"),
		folder("y", "Y", "x"),
	}
	table := NewPathTable(docs)

	assert.Equal(t, 0, table.Len())
	_, ok := table.PathOf("orphan")
	assert.False(t, ok)
}

func TestPathTable_PathOfAndBreadcrumbs(t *testing.T) {
	docs := []Document{
		folder("1", "My Notebooks", RootID),
		folder("7", "Archive", "1"),
	}
	table := NewPathTable(docs)

	p, ok := table.PathOf("7")
	require.True(t, ok)
	assert.Equal(t, "/1/7", p)

	root, ok := table.PathOf(RootID)
	require.True(t, ok)
	assert.Equal(t, RootPath, root)

	assert.Equal(t, []string{"Home", "My Notebooks", "Archive"}, table.Breadcrumbs(p))
	assert.Equal(t, "Home > My Notebooks > Archive", FormatPath(table.Breadcrumbs(p)))
	assert.Equal(t, []string{"Home"}, table.Breadcrumbs("/"))
	assert.Equal(t, "/1/7", ChildPath("/1", "7"))
	assert.Equal(t, "/1", ChildPath("/", "1"))
}
