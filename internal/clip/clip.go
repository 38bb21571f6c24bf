// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go   macOS via golang.design/x/clipboard + cgo changeCount
//	clip_windows.go  Windows via golang.design/x/clipboard + GetClipboardSequenceNumber
//	clip_linux.go    Linux via golang.design/x/clipboard watch streams,
//	                   falling back to github.com/atotto/clipboard (text only)
//	clip_other.go    everything else gets the in-memory backend
//
// Every backend exposes a change count: an integer that moves whenever the
// clipboard contents change. Callers compare it against the last value they
// saw and only read contents when it differs.
package clip

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrUnsupported is returned by backends that cannot handle a payload kind,
// e.g. the text-only fallback asked to write an image.
var ErrUnsupported = errors.New("clipboard: unsupported payload")

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ChangeCount returns the current clipboard generation. It only has to be
	// comparable with earlier values from the same backend.
	ChangeCount() (int64, error)

	// ReadImage returns the image on the clipboard, or nil if there is none.
	ReadImage() ([]byte, error)

	// ReadText returns the text on the clipboard, or "" if there is none.
	ReadText() (string, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error

	// WriteImage replaces the clipboard contents with PNG image bytes.
	WriteImage(png []byte) error

	// Close releases any resources held by the backend.
	Close()
}

// Open returns the backend selected by name: "memory" forces the in-memory
// backend, anything else (including "" and "auto") picks the platform one.
func Open(name string) Backend {
	switch strings.ToLower(name) {
	case "memory", "headless":
		slog.Info("using in-memory clipboard backend")
		return NewMemory()
	default:
		return New()
	}
}
