package document

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the attribute a listing is ordered by.
type SortKey string

const (
	SortByName       SortKey = "name"
	SortByModifiedAt SortKey = "modified"
	SortBySize       SortKey = "size"
)

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey accepts the listing's query values. The empty string means
// name.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name":
		return SortByName, nil
	case "modified", "modifiedat", "modified_at", "mtime":
		return SortByModifiedAt, nil
	case "size", "bytesize", "byte_size":
		return SortBySize, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown sort key %q", s), "")
	}
}

// ParseDirection accepts "asc" / "desc" (and their long forms). The empty
// string means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown sort direction %q", s), "")
	}
}

// Reverse returns the opposite direction.
func (d Direction) Reverse() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// Sorter orders document listings.
//
// Names are compared with a locale-aware collator (case-sensitive as the
// locale defines it), modification times by their epoch nanoseconds and sizes
// numerically with an absent size counted as zero. Descending is the exact
// negation of ascending. The sort is stable, so documents that compare equal
// keep their relative input order in both directions.
//
// A collate.Collator keeps internal buffers, so calls are serialised.
type Sorter struct {
	mu       sync.Mutex
	collator *collate.Collator
}

// NewSorter returns a Sorter for the given BCP 47 locale. An unparseable
// locale falls back to English.
func NewSorter(locale string) *Sorter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Sorter{collator: collate.New(tag)}
}

// Compare returns the ascending comparison of a and b by key.
func (s *Sorter) Compare(a, b Document, key SortKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compare(a, b, key)
}

func (s *Sorter) compare(a, b Document, key SortKey) int {
	switch key {
	case SortByModifiedAt:
		return cmp.Compare(a.ModifiedAt.UnixNano(), b.ModifiedAt.UnixNano())
	case SortBySize:
		return cmp.Compare(a.Size(), b.Size())
	default:
		return s.collator.CompareString(a.Name, b.Name)
	}
}

// Sort returns a new slice with docs ordered by key and dir. The input slice
// is not modified.
func (s *Sorter) Sort(docs []Document, key SortKey, dir Direction) []Document {
	out := slices.Clone(docs)

	s.mu.Lock()
	defer s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Document) int {
		c := s.compare(a, b, key)
		if dir == Descending {
			return -c
		}
		return c
	})
	return out
}

var (
	defaultSorter     *Sorter
	defaultSorterOnce sync.Once
)

// Sort orders docs with an English collator. See Sorter.Sort.
func Sort(docs []Document, key SortKey, dir Direction) []Document {
	defaultSorterOnce.Do(func() {
		defaultSorter = NewSorter("en")
	})
	return defaultSorter.Sort(docs, key, dir)
}
