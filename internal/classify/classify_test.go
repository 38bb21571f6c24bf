package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"go.klb.dev/recall/internal/item"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    item.Type
	}{
		{"https url", Payload{Text: "https://example.com"}, item.TypeURL},
		{"custom scheme", Payload{Text: "git+ssh://host/repo.git"}, item.TypeURL},
		{"url with surrounding space", Payload{Text: "  http://a.b/c  "}, item.TypeURL},
		{"url inside sentence", Payload{Text: "see https://example.com"}, item.TypeText},
		{"scheme only", Payload{Text: "https://"}, item.TypeText},
		{"multiline", Payload{Text: "line1\nline2"}, item.TypeFormattedText},
		{"url then newline", Payload{Text: "https://a.example\nmore"}, item.TypeFormattedText},
		{"plain", Payload{Text: "hello"}, item.TypeText},
		{"empty", Payload{}, item.TypeText},
		{"image", Payload{Image: []byte{0x89, 'P', 'N', 'G'}}, item.TypeImage},
		{"image wins over text", Payload{Text: "https://example.com", Image: []byte{1}}, item.TypeImage},
		{"empty image is not an image", Payload{Text: "hello", Image: []byte{}}, item.TypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.payload))
			assert.Equal(t, tt.want, Classify(tt.payload), "classification must be deterministic")
		})
	}
}

func TestClassifyNeverProducesCode(t *testing.T) {
	for _, text := range []string{"func main() {}", "#include <stdio.h>", "SELECT * FROM t;"} {
		assert.NotEqual(t, item.TypeCode, Classify(Payload{Text: text}), text)
	}
}

func TestPayloadEmpty(t *testing.T) {
	assert.True(t, Payload{}.Empty())
	assert.True(t, Payload{Text: " \n\t "}.Empty())
	assert.False(t, Payload{Text: "x"}.Empty())
	assert.False(t, Payload{Image: []byte{1}}.Empty())
}

func TestNewItem(t *testing.T) {
	at := time.Date(2025, 4, 17, 9, 30, 0, 0, time.UTC)

	img := NewItem(Payload{Image: []byte{1, 2, 3}}, at)
	assert.Equal(t, item.TypeImage, img.Type)
	assert.Empty(t, img.Content)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)
	assert.NoError(t, img.Validate())

	txt := NewItem(Payload{Text: "https://example.com"}, at)
	assert.Equal(t, item.TypeURL, txt.Type)
	assert.Equal(t, "https://example.com", txt.Content)
	assert.Nil(t, txt.Data)
	assert.True(t, at.Equal(txt.Date))
	assert.NotEmpty(t, txt.ID)
}
