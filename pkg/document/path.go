package document

import "strings"

// RootPath is the navigation path of the library root.
const RootPath = "/"

// PathTable binds navigation paths to collection identifiers.
//
// A navigation path is "/" followed by the IDs of the collections from the
// root down to the target, joined by "/": "/<id1>/<id2>". Display names never
// take part in resolution, so two collections with the same name (or a
// renamed collection) always resolve unambiguously.
//
// The table is built once from a document set and is immutable afterwards:
// Resolve is a pure lookup and safe for concurrent use.
type PathTable struct {
	byPath map[string]string
	byID   map[string]string
	names  map[string]string
}

// NewPathTable builds the lookup table for every collection in docs whose
// ancestor chain reaches the root. Orphaned collections and collections on a
// cycle are not navigable and are left out.
func NewPathTable(docs []Document) *PathTable {
	index := Index(docs)
	t := &PathTable{
		byPath: make(map[string]string),
		byID:   make(map[string]string),
		names:  make(map[string]string),
	}

	for _, d := range docs {
		if !d.IsContainer() {
			continue
		}
		if p, ok := t.buildPath(index, d.ID); ok {
			t.byPath[p] = d.ID
			t.byID[d.ID] = p
			t.names[d.ID] = d.Name
		}
	}

	return t
}

func (t *PathTable) buildPath(index map[string]Document, id string) (string, bool) {
	if p, ok := t.byID[id]; ok {
		return p, true
	}

	var segments []string
	seen := make(map[string]struct{})
	for cur := id; cur != RootID; {
		if _, loop := seen[cur]; loop {
			return "", false
		}
		seen[cur] = struct{}{}

		d, ok := index[cur]
		if !ok || !d.IsContainer() {
			return "", false
		}
		segments = append(segments, d.ID)
		cur = d.ParentID
	}

	// segments were collected leaf first
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return RootPath + strings.Join(segments, "/"), true
}

// CleanPath normalises a navigation path: it adds the leading slash, drops
// empty segments and trailing slashes. The empty string is the root.
func CleanPath(path string) string {
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return RootPath
	}
	return RootPath + strings.Join(parts, "/")
}

// Resolve maps a navigation path to the parent ID whose children it shows.
//
// The root path resolves to RootID. Any other path must be present in the
// table; otherwise a NotFound StoreError is returned, which callers treat as
// an empty listing.
func (t *PathTable) Resolve(path string) (string, error) {
	clean := CleanPath(path)
	if clean == RootPath {
		return RootID, nil
	}
	if id, ok := t.byPath[clean]; ok {
		return id, nil
	}
	return "", NewNotFoundError("path not found", clean)
}

// PathOf returns the navigation path of a collection. RootID maps to the
// root path.
func (t *PathTable) PathOf(id string) (string, bool) {
	if id == RootID {
		return RootPath, true
	}
	p, ok := t.byID[id]
	return p, ok
}

// ChildPath returns the path a collection would have under parentPath.
func ChildPath(parentPath, id string) string {
	clean := CleanPath(parentPath)
	if clean == RootPath {
		return RootPath + id
	}
	return clean + "/" + id
}

// Breadcrumbs returns the display names along path, starting with "Home".
// Unknown segments are shown verbatim.
func (t *PathTable) Breadcrumbs(path string) []string {
	crumbs := []string{"Home"}
	clean := CleanPath(path)
	if clean == RootPath {
		return crumbs
	}
	for _, seg := range strings.Split(strings.TrimPrefix(clean, RootPath), "/") {
		if name, ok := t.names[seg]; ok {
			crumbs = append(crumbs, name)
		} else {
			crumbs = append(crumbs, seg)
		}
	}
	return crumbs
}

// Len returns the number of navigable collections.
func (t *PathTable) Len() int {
	return len(t.byPath)
}

// Resolve is a convenience wrapper that builds a table for docs and resolves
// path against it.
func Resolve(path string, docs []Document) (string, error) {
	return NewPathTable(docs).Resolve(path)
}
