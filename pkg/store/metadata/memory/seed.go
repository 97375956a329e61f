package memory

import (
	"time"

	"github.com/marmos91/rmshelf/pkg/document"
)

const day = 24 * time.Hour

// SeedDocuments returns the demo library, with modification times relative
// to now:
//
//	/ My Notebooks (1)
//	    Research Notes (2)      2048000 bytes, page 5, 1 day old
//	    Meeting Minutes (3)     1536000 bytes, page 12, version 2, 2 days old
//	/ PDFs (4)                  3 days old
//	    Technical Manual.pdf (5) 5242880 bytes, page 1, 4 days old
func SeedDocuments(now time.Time) []document.Document {
	now = now.UTC()
	return []document.Document{
		seedCollection("1", "My Notebooks", now),
		seedDocument("2", "Research Notes", "1", 1, now.Add(-day), 5, 2048000),
		seedDocument("3", "Meeting Minutes", "1", 2, now.Add(-2*day), 12, 1536000),
		seedCollection("4", "PDFs", now.Add(-3*day)),
		seedDocument("5", "Technical Manual.pdf", "4", 1, now.Add(-4*day), 1, 5242880),
	}
}

func seedCollection(id, name string, modified time.Time) document.Document {
	return document.Document{
		ID:         id,
		Name:       name,
		Kind:       document.KindCollection,
		ParentID:   document.RootID,
		Version:    1,
		ModifiedAt: modified,
	}
}

func seedDocument(id, name, parent string, version int, modified time.Time, page int, size int64) document.Document {
	return document.Document{
		ID:          id,
		Name:        name,
		Kind:        document.KindDocument,
		ParentID:    parent,
		Version:     version,
		ModifiedAt:  modified,
		CurrentPage: &page,
		ByteSize:    &size,
	}
}
