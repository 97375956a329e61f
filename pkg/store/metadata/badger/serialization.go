package badger

import (
	"encoding/json"
	"fmt"

	"github.com/marmos91/rmshelf/pkg/document"
)

// Serialization Strategy
// ======================
//
// Records are stored as JSON using the document's own tags, which are the
// cloud service's field names. The on-disk format is therefore the same as
// the API payload and can be inspected with any badger dump tool.

// encodeDocument serializes a document record.
func encodeDocument(doc document.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}
	return data, nil
}

// decodeDocument deserializes a document record.
func decodeDocument(data []byte) (document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document.Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}
