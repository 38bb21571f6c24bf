// Package poller samples the system clipboard on a fixed interval and turns
// each change into a Capture.
//
// The clipboard only exposes a change count, not a push notification, so the
// poller remembers the last count it saw and reads contents only when the
// count moves. The count is sampled once at construction: whatever is on the
// clipboard when the poller starts is never captured.
package poller

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.klb.dev/recall/internal/classify"
	"go.klb.dev/recall/internal/clip"
)

// DefaultInterval is how often the clipboard is sampled.
const DefaultInterval = 500 * time.Millisecond

// Capture is a clipboard change ready to become a history item.
type Capture struct {
	Payload classify.Payload
	At      time.Time
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the sampling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithClock replaces time.Now for capture timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// Poller watches a clip.Backend. Tick and the write methods are serialized,
// so a write issued through the poller is never mistaken for a new copy.
type Poller struct {
	backend  clip.Backend
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu      sync.Mutex
	last    int64
	primed  bool
	ownKey  [sha256.Size]byte
	ownSet  bool
	skipped int
}

// New returns a poller primed with the backend's current change count.
func New(b clip.Backend, opts ...Option) *Poller {
	p := &Poller{
		backend:  b,
		interval: DefaultInterval,
		now:      time.Now,
		log:      slog.With("component", "poller", "backend", b.Name()),
	}
	for _, o := range opts {
		o(p)
	}
	if cc, err := b.ChangeCount(); err == nil {
		p.last, p.primed = cc, true
	} else {
		p.log.Warn("initial change count unavailable", "err", err)
	}
	return p
}

// Interval returns the sampling interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Tick samples the clipboard once. It returns a capture only when the change
// count moved and the clipboard holds an image or non-blank text.
func (p *Poller) Tick() (Capture, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cc, err := p.backend.ChangeCount()
	if err != nil {
		p.log.Debug("change count unavailable, skipping tick", "err", err)
		return Capture{}, false
	}
	if !p.primed {
		// Without a baseline we cannot tell whether the current contents are
		// new; adopt the count and wait for the next change.
		p.last, p.primed = cc, true
		return Capture{}, false
	}
	if cc == p.last {
		return Capture{}, false
	}
	p.last = cc

	payload, ok := p.read()
	if !ok {
		return Capture{}, false
	}
	if p.ownSet {
		p.ownSet = false
		if key(payload) == p.ownKey {
			p.skipped++
			p.log.Debug("ignoring own clipboard write")
			return Capture{}, false
		}
	}
	return Capture{Payload: payload, At: p.now()}, true
}

// read extracts the payload: image first, then trimmed text.
func (p *Poller) read() (classify.Payload, bool) {
	img, err := p.backend.ReadImage()
	if err != nil {
		p.log.Debug("image read failed, skipping tick", "err", err)
		return classify.Payload{}, false
	}
	if len(img) > 0 {
		return classify.Payload{Image: img}, true
	}

	text, err := p.backend.ReadText()
	if err != nil {
		p.log.Debug("text read failed, skipping tick", "err", err)
		return classify.Payload{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return classify.Payload{}, false
	}
	return classify.Payload{Text: text}, true
}

// Run ticks every interval and delivers captures to out until ctx is done.
// Delivery blocks: the consumer owns the history and must keep up.
func (p *Poller) Run(ctx context.Context, out chan<- Capture) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.log.Info("clipboard poller started", "interval", p.interval)
	defer p.log.Info("clipboard poller stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c, ok := p.Tick()
			if !ok {
				continue
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}
}

// WriteText puts text on the clipboard and arranges for the resulting change
// not to be captured.
func (p *Poller) WriteText(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.backend.WriteText(text); err != nil {
		return err
	}
	p.ownKey, p.ownSet = key(classify.Payload{Text: strings.TrimSpace(text)}), true
	return nil
}

// WriteImage puts image bytes on the clipboard, like WriteText.
func (p *Poller) WriteImage(png []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.backend.WriteImage(png); err != nil {
		return err
	}
	p.ownKey, p.ownSet = key(classify.Payload{Image: png}), true
	return nil
}

// Suppressed reports how many changes were ignored as the poller's own writes.
func (p *Poller) Suppressed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped
}

func key(pl classify.Payload) [sha256.Size]byte {
	if len(pl.Image) > 0 {
		return sha256.Sum256(append([]byte("img:"), pl.Image...))
	}
	return sha256.Sum256([]byte("txt:" + pl.Text))
}
