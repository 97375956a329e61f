// Package metadata defines the storage contract for document records.
//
// A DocumentBackend is the authority the Document Store loads from and writes
// through to. The in-memory implementation stands in for the cloud service
// (seeded library, simulated latency, injectable failures); the BadgerDB
// implementation persists the library across restarts. Both are
// interchangeable and are exercised by the same contract suite in
// metadata/testing.
package metadata

import (
	"context"

	"github.com/marmos91/rmshelf/pkg/document"
)

// DocumentBackend stores document records.
//
// Error Contract:
// Every method returns *document.StoreError for domain failures:
//   - ErrNotFound: the id (or the parent named by a record) does not exist
//   - ErrValidation: the record is malformed, the parent is not a collection,
//     the id already exists, the version did not increase, or a move would
//     create a cycle
//   - ErrNotEmpty: Delete of a collection that still has children
//
// Any other error is an infrastructure failure (I/O, closed database,
// cancelled context) and is passed through wrapped.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type DocumentBackend interface {
	// ListAll returns every stored document. Order is unspecified.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//
	// Returns:
	//   - []document.Document: All records (deep copies)
	//   - error: Infrastructure failure
	ListAll(ctx context.Context) ([]document.Document, error)

	// List returns the direct children of parentID. document.RootID lists the
	// top level. An unknown parent yields an empty slice, not an error.
	List(ctx context.Context, parentID string) ([]document.Document, error)

	// Get returns one document by id.
	//
	// Returns:
	//   - document.Document: The stored record
	//   - error: ErrNotFound if id does not exist
	Get(ctx context.Context, id string) (document.Document, error)

	// Create stores a new record. Creating a KindDocument record is an upload
	// and implementations may treat it accordingly (latency, quotas).
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - doc: The record to store; ID must be unused and Version must be 1
	//
	// Returns:
	//   - document.Document: The stored record
	//   - error: ErrValidation or ErrNotFound on a bad record or parent
	Create(ctx context.Context, doc document.Document) (document.Document, error)

	// Update replaces an existing record (rename, move). The new Version must
	// be greater than the stored one.
	Update(ctx context.Context, doc document.Document) (document.Document, error)

	// Delete removes one record. Collections must be empty.
	//
	// Returns:
	//   - error: ErrNotFound if absent, ErrNotEmpty if a collection has children
	Delete(ctx context.Context, id string) error

	// Healthcheck verifies the backend is operational.
	Healthcheck(ctx context.Context) error

	// Close releases resources. The backend must not be used afterwards.
	Close() error
}

// Op names a backend operation for latency simulation, fault injection and
// metrics labels.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpCreate Op = "create"
	OpUpload Op = "upload"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// OpForCreate returns the operation a Create of doc represents: creating a
// document is an upload, creating a collection is a plain create.
func OpForCreate(doc document.Document) Op {
	if doc.IsContainer() {
		return OpCreate
	}
	return OpUpload
}
