//go:build linux

package clip

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	atotto "github.com/atotto/clipboard"
	"golang.design/x/clipboard"
)

const linuxPollInterval = 250 * time.Millisecond

// linuxBackend has no system change counter, so it derives one: a goroutine
// per format consumes clipboard.Watch and bumps the generation on every
// update it delivers.
type linuxBackend struct {
	gen    atomic.Int64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns the Linux clipboard backend. Without X11 it tries the command
// line tools atotto/clipboard drives (xclip, xsel, wl-clipboard) for text, and
// without those it runs headless on the in-memory backend.
// clipboard.Init is called here rather than in init() so that CLI sub-commands
// don't trigger the warning.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		if !atotto.Unsupported {
			slog.Warn("clipboard unavailable, using text-only command backend", "err", err)
			return newCommandBackend()
		}
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewMemory()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &linuxBackend{cancel: cancel}
	for _, f := range []clipboard.Format{clipboard.FmtText, clipboard.FmtImage} {
		ch := clipboard.Watch(ctx, f)
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for range ch {
				b.gen.Add(1)
			}
		}()
	}
	return b
}

func (b *linuxBackend) Name() string { return "Linux clipboard (watch)" }

func (b *linuxBackend) ChangeCount() (int64, error) { return b.gen.Load(), nil }

func (b *linuxBackend) ReadImage() ([]byte, error) {
	return clipboard.Read(clipboard.FmtImage), nil
}

func (b *linuxBackend) ReadText() (string, error) {
	return string(clipboard.Read(clipboard.FmtText)), nil
}

func (b *linuxBackend) WriteText(text string) error {
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

func (b *linuxBackend) WriteImage(png []byte) error {
	clipboard.Write(clipboard.FmtImage, png)
	return nil
}

func (b *linuxBackend) Close() {
	b.cancel()
	b.wg.Wait()
}

// commandBackend polls the clipboard through external tools and bumps the
// generation when the text differs from the last poll.
type commandBackend struct {
	mu   sync.Mutex
	last string
	gen  int64
	done chan struct{}
}

func newCommandBackend() *commandBackend {
	b := &commandBackend{done: make(chan struct{})}
	b.last, _ = atotto.ReadAll()
	go b.poll()
	return b
}

func (b *commandBackend) Name() string { return "Linux clipboard (command, text only)" }

func (b *commandBackend) poll() {
	t := time.NewTicker(linuxPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			text, err := atotto.ReadAll()
			if err != nil {
				continue
			}
			b.mu.Lock()
			if text != b.last {
				b.last = text
				b.gen++
			}
			b.mu.Unlock()
		}
	}
}

func (b *commandBackend) ChangeCount() (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen, nil
}

func (b *commandBackend) ReadImage() ([]byte, error) { return nil, nil }

func (b *commandBackend) ReadText() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, nil
}

func (b *commandBackend) WriteText(text string) error {
	if err := atotto.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}

func (b *commandBackend) WriteImage(_ []byte) error {
	return fmt.Errorf("%w: image on %s", ErrUnsupported, b.Name())
}

func (b *commandBackend) Close() { close(b.done) }
