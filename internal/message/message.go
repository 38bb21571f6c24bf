// Package message defines the request and response bodies exchanged with a
// running recall daemon.
//
// Messages are plain structs encoded as JSON by the wire codec, on both the
// gRPC and the HTTP surface. Image bytes travel base64-encoded inside the
// item's data field, the same encoding the history document uses.
package message

import (
	"fmt"
	"time"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/item"
)

// View selects the ordering of a listing.
type View string

const (
	// ViewStored is newest first, exactly as stored.
	ViewStored View = "stored"
	// ViewDisplay puts pinned items first.
	ViewDisplay View = "display"
)

// ParseView converts a query or flag value to a View.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewStored:
		return ViewStored, nil
	case ViewDisplay:
		return ViewDisplay, nil
	default:
		return "", fmt.Errorf("unknown view %q", s)
	}
}

// ListRequest asks for the whole history.
type ListRequest struct {
	View View `json:"view,omitempty"`
}

// SearchRequest asks for the items matching Query, in display order.
type SearchRequest struct {
	Query string `json:"query"`
}

// IDRequest addresses a single item.
type IDRequest struct {
	ID string `json:"id"`
}

// RenameRequest sets or clears an item's custom name.
type RenameRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Empty is the body of requests that carry nothing.
type Empty struct{}

// ItemsResponse carries a listing.
type ItemsResponse struct {
	Items []item.Summary `json:"items"`
}

// NewItemsResponse summarises items for a listing response.
func NewItemsResponse(items []item.Item) *ItemsResponse {
	out := make([]item.Summary, len(items))
	for i, it := range items {
		out[i] = it.Summarize()
	}
	return &ItemsResponse{Items: out}
}

// ItemResponse carries a single item. Found is false when the id was not in
// the history; Item is then the zero value.
type ItemResponse struct {
	Found bool          `json:"found"`
	Item  *item.Summary `json:"item,omitempty"`
}

// NewItemResponse builds an ItemResponse from a lookup result.
func NewItemResponse(it item.Item, found bool) *ItemResponse {
	if !found {
		return &ItemResponse{}
	}
	s := it.Summarize()
	return &ItemResponse{Found: true, Item: &s}
}

// FoundResponse reports whether a mutation addressed an existing item.
type FoundResponse struct {
	Found bool `json:"found"`
}

// ClearResponse reports how many items a Clear removed.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// StatusResponse describes the running daemon.
type StatusResponse struct {
	Version   string        `json:"version"`
	Backend   string        `json:"backend"`
	Store     string        `json:"store"`
	Path      string        `json:"path"`
	Items     int           `json:"items"`
	Pinned    int           `json:"pinned"`
	Interval  time.Duration `json:"interval"`
	Dedupe    string        `json:"dedupe"`
	Watchers  int           `json:"watchers"`
	Changes   uint64        `json:"changes"`
	StartedAt time.Time     `json:"started_at"`
}

// WatchRequest opens a change stream. With Full set every event carries the
// complete history; otherwise only the op and id are sent.
type WatchRequest struct {
	Full bool `json:"full,omitempty"`
}

// WatchResponse is one change event on a Watch stream.
type WatchResponse struct {
	Op    history.Op     `json:"op"`
	ID    string         `json:"id,omitempty"`
	Count int            `json:"count"`
	Items []item.Summary `json:"items,omitempty"`
}

// NewWatchResponse converts a history change to a stream event.
func NewWatchResponse(c history.Change, full bool) *WatchResponse {
	r := &WatchResponse{Op: c.Op, ID: c.ID, Count: len(c.Items)}
	if full {
		r.Items = NewItemsResponse(c.Items).Items
	}
	return r
}
