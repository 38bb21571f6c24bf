//go:build darwin

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
//
// NSInteger recall_changeCount() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
import "C"

import (
	"log/slog"

	"golang.design/x/clipboard"
)

// darwinBackend reads NSPasteboard's changeCount directly; contents go through
// golang.design/x/clipboard.
type darwinBackend struct{}

// New returns the macOS clipboard backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// (list, pin, rename) that never construct a Backend don't log spurious
// warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed, running headless", "err", err)
		return NewMemory()
	}
	return &darwinBackend{}
}

func (b *darwinBackend) Name() string { return "macOS NSPasteboard" }

func (b *darwinBackend) ChangeCount() (int64, error) {
	return int64(C.recall_changeCount()), nil
}

func (b *darwinBackend) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (b *darwinBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *darwinBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *darwinBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func (b *darwinBackend) Close() {}
