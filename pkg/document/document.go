// Package document defines the Document record shared by every rmshelf component,
// together with the pure functions that operate on sets of documents: path
// resolution, sorting, upload filtering and display formatting.
package document

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RootID is the parent identifier of documents that live at the top of the
// library. It never names a real document.
const RootID = ""

// Kind distinguishes plain documents from collections (folders).
//
// The string values match the cloud service's wire names so records can be
// exchanged with a real backend without translation.
type Kind string

const (
	// KindDocument is a file: a notebook, PDF or EPUB.
	KindDocument Kind = "DocumentType"

	// KindCollection is a folder that may contain other documents.
	KindCollection Kind = "CollectionType"
)

// IsContainer reports whether documents of this kind can hold children.
func (k Kind) IsContainer() bool {
	return k == KindCollection
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindDocument || k == KindCollection
}

// Document is a file or folder in the library.
//
// Identity Fields:
//   - ID: UUID assigned at creation, never reused
//   - ParentID: containing collection, or RootID
//
// Versioning:
// Version starts at 1 and increases by exactly one on every successful
// mutation of this document (rename, move). It never decreases.
//
// Kind-specific Fields:
// CurrentPage and ByteSize are only meaningful for KindDocument and are always
// nil on collections.
type Document struct {
	// ID is the stable identifier of this document.
	ID string `json:"id"`

	// Name is the display name. Names are not unique within a parent.
	Name string `json:"name"`

	// Kind is the document type (document or collection).
	Kind Kind `json:"type"`

	// ParentID is the containing collection's ID, or RootID.
	ParentID string `json:"parent"`

	// Version is bumped on every mutation.
	Version int `json:"version"`

	// ModifiedAt is the last client-side modification time.
	ModifiedAt time.Time `json:"modifiedClient"`

	// CurrentPage is the last viewed page (documents only).
	CurrentPage *int `json:"currentPage,omitempty"`

	// ByteSize is the content size in bytes (documents only).
	ByteSize *int64 `json:"size,omitempty"`
}

// IsContainer reports whether the document is a collection.
func (d Document) IsContainer() bool {
	return d.Kind.IsContainer()
}

// Size returns ByteSize, treating an absent size as zero.
func (d Document) Size() int64 {
	if d.ByteSize == nil {
		return 0
	}
	return *d.ByteSize
}

// Clone returns a deep copy so callers never share the optional pointers.
func (d Document) Clone() Document {
	c := d
	if d.CurrentPage != nil {
		page := *d.CurrentPage
		c.CurrentPage = &page
	}
	if d.ByteSize != nil {
		size := *d.ByteSize
		c.ByteSize = &size
	}
	return c
}

// Validate checks the per-record invariants that do not depend on the rest of
// the library. Tree invariants (parent exists, no cycles) are checked by
// ValidateTree.
func (d Document) Validate() error {
	if d.ID == "" {
		return NewValidationError("document id is required", "")
	}
	if strings.TrimSpace(d.Name) == "" {
		return NewValidationError("document name is required", d.ID)
	}
	if !d.Kind.Valid() {
		return NewValidationError("unknown document type "+string(d.Kind), d.ID)
	}
	if d.Version < 1 {
		return NewValidationError("document version must be at least 1", d.ID)
	}
	if d.ID == d.ParentID {
		return NewValidationError("document cannot be its own parent", d.ID)
	}
	if d.IsContainer() && (d.ByteSize != nil || d.CurrentPage != nil) {
		return NewValidationError("collections cannot carry size or page", d.ID)
	}
	return nil
}

// Touch records a successful mutation: the version is bumped and the
// modification time set to now.
func (d *Document) Touch(now time.Time) {
	d.Version++
	d.ModifiedAt = now.UTC()
}

// NewCollection returns a fresh collection with a new ID and version 1.
func NewCollection(name, parentID string, now time.Time) Document {
	return Document{
		ID:         uuid.New().String(),
		Name:       name,
		Kind:       KindCollection,
		ParentID:   parentID,
		Version:    1,
		ModifiedAt: now.UTC(),
	}
}

// NewDocument returns a fresh document with a new ID, version 1, page 1 and
// the given content size.
func NewDocument(name, parentID string, size int64, now time.Time) Document {
	page := 1
	return Document{
		ID:          uuid.New().String(),
		Name:        name,
		Kind:        KindDocument,
		ParentID:    parentID,
		Version:     1,
		ModifiedAt:  now.UTC(),
		CurrentPage: &page,
		ByteSize:    &size,
	}
}

// IDs returns the identifiers of docs in order.
func IDs(docs []Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}

// Index maps documents by ID. Later duplicates win.
func Index(docs []Document) map[string]Document {
	index := make(map[string]Document, len(docs))
	for _, d := range docs {
		index[d.ID] = d
	}
	return index
}

// ValidateTree checks that every parent reference names an existing collection
// and that no document is its own ancestor.
func ValidateTree(docs []Document) error {
	index := Index(docs)
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			return err
		}
		if d.ParentID == RootID {
			continue
		}
		parent, ok := index[d.ParentID]
		if !ok {
			return NewNotFoundError("parent collection not found", d.ParentID)
		}
		if !parent.IsContainer() {
			return NewValidationError("parent is not a collection", d.ParentID)
		}
		if IsAncestor(index, d.ID, d.ParentID) {
			return NewValidationError("cycle in document tree", d.ID)
		}
	}
	return nil
}

// IsAncestor reports whether ancestorID appears on the parent chain of id
// (inclusive of id itself). A broken chain stops the walk.
func IsAncestor(index map[string]Document, ancestorID, id string) bool {
	seen := make(map[string]struct{})
	for cur := id; cur != RootID; {
		if cur == ancestorID {
			return true
		}
		if _, loop := seen[cur]; loop {
			return true
		}
		seen[cur] = struct{}{}
		d, ok := index[cur]
		if !ok {
			return false
		}
		cur = d.ParentID
	}
	return false
}

// Depth returns the number of ancestors of id that are present in index.
func Depth(index map[string]Document, id string) int {
	depth := 0
	seen := make(map[string]struct{})
	d, ok := index[id]
	for ok && d.ParentID != RootID {
		if _, loop := seen[d.ID]; loop {
			break
		}
		seen[d.ID] = struct{}{}
		depth++
		d, ok = index[d.ParentID]
	}
	return depth
}
