package testing

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/store/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for DocumentBackend implementations.
// It tests the interface contract, not implementation details, making it
// reusable across the memory and badger backends.
//
// Usage:
//
//	func TestMyBackend(t *testing.T) {
//	    suite := &metadatatesting.StoreTestSuite{
//	        NewStore: func(t *testing.T) metadata.DocumentBackend {
//	            return mybackend.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty backend for each test. The suite
	// closes it when the test ends.
	NewStore func(t *testing.T) metadata.DocumentBackend
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Create", suite.RunCreateTests)
	t.Run("List", suite.RunListTests)
	t.Run("Update", suite.RunUpdateTests)
	t.Run("Delete", suite.RunDeleteTests)
	t.Run("Lifecycle", suite.RunLifecycleTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) metadata.DocumentBackend {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var testTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func testContext() context.Context {
	return context.Background()
}

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}

// mustCreateCollection stores a collection under parentID and returns it.
func mustCreateCollection(t *testing.T, store metadata.DocumentBackend, name, parentID string) document.Document {
	t.Helper()
	created, err := store.Create(testContext(), document.NewCollection(name, parentID, testTime))
	require.NoError(t, err)
	return created
}

// mustCreateDocument stores a document under parentID and returns it.
func mustCreateDocument(t *testing.T, store metadata.DocumentBackend, name, parentID string, size int64) document.Document {
	t.Helper()
	created, err := store.Create(testContext(), document.NewDocument(name, parentID, size, testTime))
	require.NoError(t, err)
	return created
}

// AssertErrorCode checks that err carries the expected StoreError code
// anywhere in its chain.
func AssertErrorCode(t *testing.T, expected document.ErrorCode, err error, msgAndArgs ...any) bool {
	t.Helper()
	if err == nil {
		return assert.Fail(t, "Expected an error but got nil", msgAndArgs...)
	}
	code, ok := document.CodeOf(err)
	if !ok {
		return assert.Fail(t, "Expected a StoreError", append([]any{err}, msgAndArgs...)...)
	}
	return assert.Equal(t, expected, code, msgAndArgs...)
}

func sameDocument(t *testing.T, want, got document.Document) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.ParentID, got.ParentID)
	assert.Equal(t, want.Version, got.Version)
	assert.True(t, want.ModifiedAt.Equal(got.ModifiedAt), "modified: want %v got %v", want.ModifiedAt, got.ModifiedAt)
	assert.Equal(t, want.ByteSize, got.ByteSize)
	assert.Equal(t, want.CurrentPage, got.CurrentPage)
}
