package docstore

import (
	"errors"

	"github.com/marmos91/rmshelf/pkg/document"
)

// Outcome is the result of one item in a batch action.
type Outcome string

const (
	// OutcomeOK means the item was applied, or was already in the target
	// state (deleting an id that does not exist).
	OutcomeOK Outcome = "ok"

	// OutcomeError means the item was attempted and failed; Err says why.
	OutcomeError Outcome = "error"

	// OutcomeSkipped means the item was not attempted because an earlier
	// item failed and the caller asked to stop on the first failure.
	OutcomeSkipped Outcome = "skipped"
)

// ItemResult reports one input item of a batch.
type ItemResult struct {
	// ID is the document id: the input id for deletes, the new id for
	// successful uploads
	ID string

	// Name is the input file name for uploads
	Name string

	Outcome Outcome
	Err     error

	// Document is the created record for successful uploads
	Document *document.Document
}

// BatchResult holds one ItemResult per input item, in input order.
type BatchResult struct {
	Items []ItemResult
}

// Counts returns the number of items per outcome.
func (r BatchResult) Counts() (ok, failed, skipped int) {
	for _, it := range r.Items {
		switch it.Outcome {
		case OutcomeOK:
			ok++
		case OutcomeError:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}
	return ok, failed, skipped
}

// Succeeded returns the ids of the items that were applied.
func (r BatchResult) Succeeded() []string {
	var ids []string
	for _, it := range r.Items {
		if it.Outcome == OutcomeOK {
			ids = append(ids, it.ID)
		}
	}
	return ids
}

// Failed returns the items that were attempted and failed.
func (r BatchResult) Failed() []ItemResult {
	var out []ItemResult
	for _, it := range r.Items {
		if it.Outcome == OutcomeError {
			out = append(out, it)
		}
	}
	return out
}

// Err joins the item errors, or returns nil when every attempted item
// succeeded.
func (r BatchResult) Err() error {
	var errs []error
	for _, it := range r.Items {
		if it.Err != nil {
			errs = append(errs, it.Err)
		}
	}
	return errors.Join(errs...)
}

// BatchOptions control how a batch reacts to a failing item.
type BatchOptions struct {
	// ContinueOnError attempts every item even after a failure. When false
	// the items after the first failure are reported OutcomeSkipped.
	ContinueOnError bool
}
