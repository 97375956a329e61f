package badger

// Database Key Namespace Design
// ==============================
//
// BadgerDB is a key-value store, so records and indexes live under prefixed
// keys:
//
// Data Type        Prefix   Key Format                     Value
// ==============================================================================
// Document         "d:"     d:<id>                         Document (JSON)
// Children Index   "c:"     c:<parentID>:<childID>         empty
//
// 1. Documents (d:)
//    - One entry per document or collection, point lookup by id
//    - ListAll is a prefix scan over "d:"
//
// 2. Children Index (c:)
//    - One entry per parent/child edge, denormalised from the documents
//    - Top-level records use the empty parent id: c::<childID>
//    - List is a key-only prefix scan over "c:<parentID>:"
//    - The non-empty check for Delete stops at the first key
//
// Document ids are UUIDs (or short numeric ids in the seed library) and never
// contain ':', so a parent prefix cannot match a longer parent id.

const (
	// prefixDocument is the key prefix for document records
	prefixDocument = "d:"

	// prefixChild is the key prefix for the parent → child index
	prefixChild = "c:"
)

// keyDocument returns the key of a document record.
func keyDocument(id string) []byte {
	return []byte(prefixDocument + id)
}

// keyChild returns the index key of one parent → child edge.
func keyChild(parentID, childID string) []byte {
	return []byte(prefixChild + parentID + ":" + childID)
}

// keyChildPrefix returns the scan prefix of all children of parentID.
func keyChildPrefix(parentID string) []byte {
	return []byte(prefixChild + parentID + ":")
}

// childIDFromKey extracts the child id from an index key under prefix.
func childIDFromKey(key, prefix []byte) string {
	return string(key[len(prefix):])
}
