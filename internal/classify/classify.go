// Package classify assigns a type tag to a freshly captured clipboard payload.
//
// Rules are applied in order and the first match wins:
//
//	image bytes          → Image
//	scheme://host...     → URL
//	contains a newline   → FormattedText
//	anything else        → Text
//
// Code is reserved and never assigned here.
package classify

import (
	"regexp"
	"strings"
	"time"

	"go.klb.dev/recall/internal/item"
)

var urlPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)

// Payload is the raw content read from the clipboard. At most one field is
// expected to be set; Image takes precedence when both are.
type Payload struct {
	Text  string
	Image []byte
}

// Empty reports whether the payload carries nothing worth capturing.
func (p Payload) Empty() bool {
	return len(p.Image) == 0 && strings.TrimSpace(p.Text) == ""
}

// Classify returns the type tag for p. It is total: an empty payload is Text.
func Classify(p Payload) item.Type {
	if len(p.Image) > 0 {
		return item.TypeImage
	}
	text := strings.TrimSpace(p.Text)
	switch {
	case urlPattern.MatchString(text):
		return item.TypeURL
	case strings.Contains(text, "\n"):
		return item.TypeFormattedText
	default:
		return item.TypeText
	}
}

// NewItem classifies p and builds the history item for it.
func NewItem(p Payload, at time.Time) item.Item {
	t := Classify(p)
	if t == item.TypeImage {
		return item.New(t, "", p.Image, at)
	}
	return item.New(t, p.Text, nil, at)
}
