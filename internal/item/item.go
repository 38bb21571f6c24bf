// Package item defines a clipboard history entry and the fields derived from
// it on read.
package item

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalid is returned by Validate when an item's payload does not match
// its type.
var ErrInvalid = errors.New("invalid item")

// Type is the semantic tag assigned to an item at capture time.
type Type string

const (
	TypeText          Type = "Text"
	TypeFormattedText Type = "FormattedText"
	TypeImage         Type = "Image"
	TypeURL           Type = "URL"
	// TypeCode is reserved; no classifier rule produces it.
	TypeCode Type = "Code"
)

// Types lists every known type in declaration order.
var Types = []Type{TypeText, TypeFormattedText, TypeImage, TypeURL, TypeCode}

// ParseType converts s to a Type. Matching is case-insensitive.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

func (t Type) String() string { return string(t) }

// UnmarshalText rejects unknown type names.
func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// displayPrefix is the number of runes of content shown as a display name.
const displayPrefix = 30

// Item is one clipboard history entry. Content holds text payloads and Data
// holds image bytes; exactly one is meaningful for a given Type.
type Item struct {
	ID         string    `json:"id"`
	Content    string    `json:"content,omitempty"`
	Date       time.Time `json:"date"`
	Type       Type      `json:"type"`
	Data       []byte    `json:"data,omitempty"`
	IsPinned   bool      `json:"isPinned"`
	CustomName string    `json:"customName,omitempty"`
}

// New returns an item with a fresh ID, captured at the given time. The date is
// normalised to UTC so it survives a round trip through storage unchanged.
func New(t Type, content string, data []byte, at time.Time) Item {
	return Item{
		ID:      uuid.NewString(),
		Content: content,
		Date:    at.UTC(),
		Type:    t,
		Data:    data,
	}
}

// Recapture returns a copy of it with a new ID and date. Pin state and the
// custom name are not carried over.
func (it Item) Recapture(at time.Time) Item {
	return New(it.Type, it.Content, it.Data, at)
}

// IsImage reports whether the item carries image bytes.
func (it Item) IsImage() bool { return it.Type == TypeImage }

// Validate checks the payload invariant: images carry data, everything else
// carries content.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalid)
	}
	if it.IsImage() {
		if len(it.Data) == 0 {
			return fmt.Errorf("%w: image %s has no data", ErrInvalid, it.ID)
		}
		return nil
	}
	if it.Content == "" {
		return fmt.Errorf("%w: %s item %s has no content", ErrInvalid, it.Type, it.ID)
	}
	return nil
}

// DisplayName is the label a list view shows for the item.
func (it Item) DisplayName() string {
	if name := strings.TrimSpace(it.CustomName); name != "" {
		return name
	}
	if it.IsImage() {
		return "Image"
	}
	return Preview(it.Content, displayPrefix)
}

// CharacterCount is the number of runes in the text content.
func (it Item) CharacterCount() int { return utf8.RuneCountInString(it.Content) }

// WordCount is the number of whitespace-delimited tokens in the content.
func (it Item) WordCount() int { return len(strings.Fields(it.Content)) }

// LineCount is the number of lines in the content, 0 when there is none.
func (it Item) LineCount() int {
	if it.Content == "" {
		return 0
	}
	return strings.Count(it.Content, "\n") + 1
}

// Size is the payload size in bytes.
func (it Item) Size() int {
	if it.IsImage() {
		return len(it.Data)
	}
	return len(it.Content)
}

// Fingerprint identifies the payload independent of ID, date and metadata.
func (it Item) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(it.Type))
	h.Write([]byte{0})
	h.Write([]byte(it.Content))
	h.Write([]byte{0})
	h.Write(it.Data)
	return hex.EncodeToString(h.Sum(nil))
}

// Preview flattens s onto one line and cuts it to at most n runes, marking
// the cut with an ellipsis.
func Preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// Summary is the derived view of an item returned to UI clients alongside
// the stored fields. It encodes flat: the embedded item's fields sit next to
// the derived ones.
type Summary struct {
	Item
	DisplayName    string `json:"displayName"`
	CharacterCount int    `json:"characterCount"`
	WordCount      int    `json:"wordCount"`
	LineCount      int    `json:"lineCount"`
	Size           int    `json:"size"`
}

// Summarize computes the derived fields of it.
func (it Item) Summarize() Summary {
	return Summary{
		Item:           it,
		DisplayName:    it.DisplayName(),
		CharacterCount: it.CharacterCount(),
		WordCount:      it.WordCount(),
		LineCount:      it.LineCount(),
		Size:           it.Size(),
	}
}
