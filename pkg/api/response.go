package api

import (
	"time"

	"github.com/marmos91/rmshelf/pkg/docstore"
	"github.com/marmos91/rmshelf/pkg/document"
	"github.com/marmos91/rmshelf/pkg/session"
)

// documentView is a document as rendered in a listing row.
type documentView struct {
	document.Document

	// Path is the navigable path of a collection
	Path string `json:"path,omitempty"`

	// SizeLabel is the formatted ByteSize ("1.95 MB"); empty for collections
	SizeLabel string `json:"sizeLabel,omitempty"`

	// ModifiedLabel is the relative modification time ("2 days ago")
	ModifiedLabel string `json:"modifiedLabel"`

	Selected bool `json:"selected"`
}

type listingResponse struct {
	Path        string         `json:"path"`
	ParentID    string         `json:"parentId"`
	Found       bool           `json:"found"`
	Breadcrumbs []string       `json:"breadcrumbs"`
	Location    string         `json:"location"`
	Items       []documentView `json:"items"`
	Count       int            `json:"count"`
	Selected    []string       `json:"selected"`
	AllSelected bool           `json:"allSelected"`
	Sort        string         `json:"sort"`
	Order       string         `json:"order"`

	// Error is the pending error slot; Items is empty while it is set
	Error string `json:"error,omitempty"`
}

func (h *Handler) listingView(l docstore.Listing) listingResponse {
	now := h.now()
	selected := make(map[string]struct{}, len(l.Selected))
	for _, id := range l.Selected {
		selected[id] = struct{}{}
	}

	items := make([]documentView, 0, len(l.Items))
	for _, d := range l.Items {
		v := documentView{
			Document:      d,
			ModifiedLabel: document.FormatAge(d.ModifiedAt, now),
		}
		if d.IsContainer() {
			v.Path = document.ChildPath(l.Path, d.ID)
		} else {
			v.SizeLabel = document.FormatSize(d.Size())
		}
		_, v.Selected = selected[d.ID]
		items = append(items, v)
	}

	resp := listingResponse{
		Path:        l.Path,
		ParentID:    l.ParentID,
		Found:       l.Found,
		Breadcrumbs: l.Breadcrumbs,
		Location:    document.FormatPath(l.Breadcrumbs),
		Items:       items,
		Count:       l.Count,
		Selected:    l.Selected,
		AllSelected: l.AllSelected,
		Sort:        string(l.SortKey),
		Order:       string(l.Direction),
	}
	if l.Error != nil {
		resp.Error = messageOf(l.Error)
	}
	return resp
}

type itemView struct {
	ID       string             `json:"id"`
	Name     string             `json:"name,omitempty"`
	Outcome  docstore.Outcome   `json:"outcome"`
	Error    string             `json:"error,omitempty"`
	Code     string             `json:"code,omitempty"`
	Document *document.Document `json:"document,omitempty"`
}

type batchResponse struct {
	Items     []itemView `json:"items"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Skipped   int        `json:"skipped"`
}

func batchView(r docstore.BatchResult) batchResponse {
	resp := batchResponse{Items: make([]itemView, 0, len(r.Items))}
	resp.Succeeded, resp.Failed, resp.Skipped = r.Counts()
	for _, it := range r.Items {
		v := itemView{
			ID:       it.ID,
			Name:     it.Name,
			Outcome:  it.Outcome,
			Document: it.Document,
		}
		if it.Err != nil {
			v.Error = messageOf(it.Err)
			v.Code = codeOf(it.Err)
		}
		resp.Items = append(resp.Items, v)
	}
	return resp
}

type sessionResponse struct {
	Authenticated bool                 `json:"authenticated"`
	Credentials   *session.Credentials `json:"credentials,omitempty"`
	Profile       *session.Profile     `json:"profile,omitempty"`
	IssuedAt      *time.Time           `json:"issuedAt,omitempty"`
}

type selectionResponse struct {
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

type statusResponse struct {
	Loaded      bool     `json:"loaded"`
	CurrentPath string   `json:"currentPath"`
	Documents   int      `json:"documents"`
	Busy        []string `json:"busy"`
	Error       string   `json:"error,omitempty"`
}
