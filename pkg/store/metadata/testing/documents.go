package testing

import (
	"testing"
	"time"

	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Create Tests
// ============================================================================

// RunCreateTests covers Create and Get.
func (suite *StoreTestSuite) RunCreateTests(test *testing.T) {
	test.Run("CreateTopLevelCollection", func(t *testing.T) {
		store := suite.newStore(t)
		want := document.NewCollection("My Notebooks", document.RootID, testTime)

		created, err := store.Create(testContext(), want)
		require.NoError(t, err)
		sameDocument(t, want, created)

		got, err := store.Get(testContext(), want.ID)
		require.NoError(t, err)
		sameDocument(t, want, got)
	})

	test.Run("CreateDocumentInCollection", func(t *testing.T) {
		store := suite.newStore(t)
		parent := mustCreateCollection(t, store, "PDFs", document.RootID)
		want := document.NewDocument("Technical Manual", parent.ID, 5242880, testTime)

		_, err := store.Create(testContext(), want)
		require.NoError(t, err)

		got, err := store.Get(testContext(), want.ID)
		require.NoError(t, err)
		sameDocument(t, want, got)
	})

	test.Run("CreateDuplicateID", func(t *testing.T) {
		store := suite.newStore(t)
		first := mustCreateCollection(t, store, "A", document.RootID)

		dup := document.NewCollection("B", document.RootID, testTime)
		dup.ID = first.ID
		_, err := store.Create(testContext(), dup)
		AssertErrorCode(t, document.ErrValidation, err)
	})

	test.Run("CreateMissingParent", func(t *testing.T) {
		store := suite.newStore(t)
		_, err := store.Create(testContext(), document.NewCollection("Orphan", "missing", testTime))
		AssertErrorCode(t, document.ErrNotFound, err)
	})

	test.Run("CreateUnderDocument", func(t *testing.T) {
		store := suite.newStore(t)
		file := mustCreateDocument(t, store, "file", document.RootID, 1)

		_, err := store.Create(testContext(), document.NewCollection("Inside", file.ID, testTime))
		AssertErrorCode(t, document.ErrValidation, err)
	})

	test.Run("CreateInvalidRecord", func(t *testing.T) {
		store := suite.newStore(t)
		bad := document.NewCollection("  ", document.RootID, testTime)

		_, err := store.Create(testContext(), bad)
		AssertErrorCode(t, document.ErrValidation, err)

		_, err = store.Get(testContext(), bad.ID)
		AssertErrorCode(t, document.ErrNotFound, err)
	})

	test.Run("GetNotFound", func(t *testing.T) {
		store := suite.newStore(t)
		_, err := store.Get(testContext(), "nope")
		AssertErrorCode(t, document.ErrNotFound, err)
	})

	test.Run("ReturnedRecordIsACopy", func(t *testing.T) {
		store := suite.newStore(t)
		created := mustCreateDocument(t, store, "doc", document.RootID, 10)
		*created.ByteSize = 99

		got, err := store.Get(testContext(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(10), got.Size())
	})
}

// ============================================================================
// List Tests
// ============================================================================

// RunListTests covers List and ListAll.
func (suite *StoreTestSuite) RunListTests(test *testing.T) {
	test.Run("ListEmpty", func(t *testing.T) {
		store := suite.newStore(t)

		all, err := store.ListAll(testContext())
		require.NoError(t, err)
		assert.Empty(t, all)

		top, err := store.List(testContext(), document.RootID)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	test.Run("ListChildrenOnly", func(t *testing.T) {
		store := suite.newStore(t)
		notebooks := mustCreateCollection(t, store, "My Notebooks", document.RootID)
		pdfs := mustCreateCollection(t, store, "PDFs", document.RootID)
		research := mustCreateDocument(t, store, "Research Notes", notebooks.ID, 2048000)
		minutes := mustCreateDocument(t, store, "Meeting Minutes", notebooks.ID, 1536000)
		mustCreateDocument(t, store, "Manual", pdfs.ID, 5242880)

		top, err := store.List(testContext(), document.RootID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{notebooks.ID, pdfs.ID}, document.IDs(top))

		children, err := store.List(testContext(), notebooks.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{research.ID, minutes.ID}, document.IDs(children))

		all, err := store.ListAll(testContext())
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	test.Run("ListUnknownParent", func(t *testing.T) {
		store := suite.newStore(t)
		children, err := store.List(testContext(), "does-not-exist")
		require.NoError(t, err)
		assert.Empty(t, children)
	})
}

// ============================================================================
// Update Tests
// ============================================================================

// RunUpdateTests covers rename and move through Update.
func (suite *StoreTestSuite) RunUpdateTests(test *testing.T) {
	test.Run("Rename", func(t *testing.T) {
		store := suite.newStore(t)
		doc := mustCreateDocument(t, store, "draft", document.RootID, 1)

		doc.Name = "final"
		doc.Touch(testTime.Add(time.Minute))
		_, err := store.Update(testContext(), doc)
		require.NoError(t, err)

		got, err := store.Get(testContext(), doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "final", got.Name)
		assert.Equal(t, 2, got.Version)
	})

	test.Run("MoveUpdatesListings", func(t *testing.T) {
		store := suite.newStore(t)
		a := mustCreateCollection(t, store, "A", document.RootID)
		b := mustCreateCollection(t, store, "B", document.RootID)
		doc := mustCreateDocument(t, store, "doc", a.ID, 1)

		doc.ParentID = b.ID
		doc.Touch(testTime)
		_, err := store.Update(testContext(), doc)
		require.NoError(t, err)

		inA, err := store.List(testContext(), a.ID)
		require.NoError(t, err)
		assert.Empty(t, inA)

		inB, err := store.List(testContext(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{doc.ID}, document.IDs(inB))
	})

	test.Run("StaleVersion", func(t *testing.T) {
		store := suite.newStore(t)
		doc := mustCreateCollection(t, store, "A", document.RootID)

		doc.Name = "B"
		_, err := store.Update(testContext(), doc)
		AssertErrorCode(t, document.ErrValidation, err)
	})

	test.Run("MoveIntoOwnSubtree", func(t *testing.T) {
		store := suite.newStore(t)
		a := mustCreateCollection(t, store, "A", document.RootID)
		b := mustCreateCollection(t, store, "B", a.ID)

		a.ParentID = b.ID
		a.Touch(testTime)
		_, err := store.Update(testContext(), a)
		AssertErrorCode(t, document.ErrValidation, err)

		got, err := store.Get(testContext(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, document.RootID, got.ParentID)
	})

	test.Run("UpdateNotFound", func(t *testing.T) {
		store := suite.newStore(t)
		ghost := document.NewCollection("ghost", document.RootID, testTime)
		ghost.Touch(testTime)

		_, err := store.Update(testContext(), ghost)
		AssertErrorCode(t, document.ErrNotFound, err)
	})

	test.Run("KindIsImmutable", func(t *testing.T) {
		store := suite.newStore(t)
		c := mustCreateCollection(t, store, "A", document.RootID)

		c.Kind = document.KindDocument
		c.Touch(testTime)
		_, err := store.Update(testContext(), c)
		AssertErrorCode(t, document.ErrValidation, err)
	})
}

// ============================================================================
// Delete Tests
// ============================================================================

// RunDeleteTests covers Delete.
func (suite *StoreTestSuite) RunDeleteTests(test *testing.T) {
	test.Run("DeleteDocument", func(t *testing.T) {
		store := suite.newStore(t)
		parent := mustCreateCollection(t, store, "A", document.RootID)
		doc := mustCreateDocument(t, store, "doc", parent.ID, 1)

		require.NoError(t, store.Delete(testContext(), doc.ID))

		_, err := store.Get(testContext(), doc.ID)
		AssertErrorCode(t, document.ErrNotFound, err)

		children, err := store.List(testContext(), parent.ID)
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	test.Run("DeleteNotFound", func(t *testing.T) {
		store := suite.newStore(t)
		AssertErrorCode(t, document.ErrNotFound, store.Delete(testContext(), "nope"))
	})

	test.Run("DeleteNonEmptyCollection", func(t *testing.T) {
		store := suite.newStore(t)
		parent := mustCreateCollection(t, store, "A", document.RootID)
		mustCreateDocument(t, store, "doc", parent.ID, 1)

		err := store.Delete(testContext(), parent.ID)
		AssertErrorCode(t, document.ErrNotEmpty, err)
		assert.True(t, document.IsValidation(err))

		_, err = store.Get(testContext(), parent.ID)
		require.NoError(t, err)
	})

	test.Run("DeleteEmptiedCollection", func(t *testing.T) {
		store := suite.newStore(t)
		parent := mustCreateCollection(t, store, "A", document.RootID)
		doc := mustCreateDocument(t, store, "doc", parent.ID, 1)

		require.NoError(t, store.Delete(testContext(), doc.ID))
		require.NoError(t, store.Delete(testContext(), parent.ID))

		all, err := store.ListAll(testContext())
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

// RunLifecycleTests covers Healthcheck and Close.
func (suite *StoreTestSuite) RunLifecycleTests(test *testing.T) {
	test.Run("Healthcheck", func(t *testing.T) {
		store := suite.newStore(t)
		assert.NoError(t, store.Healthcheck(testContext()))
	})

	test.Run("CloseTwice", func(t *testing.T) {
		store := suite.NewStore(t)
		require.NoError(t, store.Close())
		assert.NoError(t, store.Close())
		assert.Error(t, store.Healthcheck(testContext()))
	})

	test.Run("CancelledContext", func(t *testing.T) {
		store := suite.newStore(t)
		ctx, cancel := contextWithCancel()
		cancel()

		_, err := store.ListAll(ctx)
		assert.Error(t, err)
	})
}
