//go:build windows

package clip

// #cgo LDFLAGS: -luser32
//
// #include <windows.h>
//
// static unsigned long recall_sequence_number() {
//     return (unsigned long)GetClipboardSequenceNumber();
// }
import "C"

import (
	"log/slog"

	"golang.design/x/clipboard"
)

// windowsBackend uses the clipboard sequence number, which the system bumps
// on every change, as the change count.
type windowsBackend struct{}

// New returns the Windows clipboard backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// that never construct a Backend don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed, running headless", "err", err)
		return NewMemory()
	}
	return &windowsBackend{}
}

func (b *windowsBackend) Name() string { return "Windows Clipboard" }

func (b *windowsBackend) ChangeCount() (int64, error) {
	return int64(C.recall_sequence_number()), nil
}

func (b *windowsBackend) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (b *windowsBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *windowsBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *windowsBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func (b *windowsBackend) Close() {}
