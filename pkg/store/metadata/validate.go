package metadata

import (
	"github.com/marmos91/rmshelf/pkg/document"
)

// LookupFunc fetches a stored record by id inside a backend's critical
// section or transaction.
type LookupFunc func(id string) (document.Document, bool, error)

// ValidateCreate checks a record about to be created against the stored set.
//
// Rules:
//   - the record passes document.Validate and has Version 1
//   - the id is not already in use
//   - the parent is the root or an existing collection
func ValidateCreate(doc document.Document, lookup LookupFunc) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if doc.Version != 1 {
		return document.NewValidationError("new documents start at version 1", doc.ID)
	}

	_, exists, err := lookup(doc.ID)
	if err != nil {
		return err
	}
	if exists {
		return document.NewValidationError("document already exists", doc.ID)
	}

	return checkParent(doc, lookup)
}

// ValidateUpdate checks a replacement record against the stored one and
// returns the stored version for callers that need to diff (index updates).
//
// Rules:
//   - the record exists and keeps its kind
//   - the version strictly increases
//   - the parent is the root or an existing collection
//   - the new parent is not the record itself or one of its descendants
func ValidateUpdate(doc document.Document, lookup LookupFunc) (document.Document, error) {
	if err := doc.Validate(); err != nil {
		return document.Document{}, err
	}

	current, exists, err := lookup(doc.ID)
	if err != nil {
		return document.Document{}, err
	}
	if !exists {
		return document.Document{}, document.NewNotFoundError("document not found", doc.ID)
	}
	if current.Kind != doc.Kind {
		return document.Document{}, document.NewValidationError("document type cannot change", doc.ID)
	}
	if doc.Version <= current.Version {
		return document.Document{}, document.NewValidationError("stale document version", doc.ID)
	}

	if err := checkParent(doc, lookup); err != nil {
		return document.Document{}, err
	}

	// Walk up from the new parent; meeting doc.ID means the move would
	// place the record inside its own subtree.
	seen := make(map[string]struct{})
	for cur := doc.ParentID; cur != document.RootID; {
		if cur == doc.ID {
			return document.Document{}, document.NewValidationError("cannot move a collection into itself", doc.ID)
		}
		if _, loop := seen[cur]; loop {
			return document.Document{}, document.NewValidationError("cycle in document tree", doc.ID)
		}
		seen[cur] = struct{}{}

		parent, ok, err := lookup(cur)
		if err != nil {
			return document.Document{}, err
		}
		if !ok {
			break
		}
		cur = parent.ParentID
	}

	return current, nil
}

func checkParent(doc document.Document, lookup LookupFunc) error {
	if doc.ParentID == document.RootID {
		return nil
	}
	parent, ok, err := lookup(doc.ParentID)
	if err != nil {
		return err
	}
	if !ok {
		return document.NewNotFoundError("parent collection not found", doc.ParentID)
	}
	if !parent.IsContainer() {
		return document.NewValidationError("parent is not a collection", doc.ParentID)
	}
	return nil
}
