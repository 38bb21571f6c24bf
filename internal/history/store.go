// Package history owns the ordered clipboard history and every mutation of it.
//
// A single goroutine, started with Run, is the only writer. Captures from the
// poller arrive on a channel and user operations are submitted to the same
// loop, so no two mutations ever interleave. After each mutation the loop
// flushes the full history to storage, publishes an immutable snapshot for
// readers and notifies observers, in that order. A caller whose mutation has
// returned always reads the post-mutation state.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.klb.dev/recall/internal/classify"
	"go.klb.dev/recall/internal/item"
	"go.klb.dev/recall/internal/poller"
	"go.klb.dev/recall/internal/storage"
)

// ErrClosed is returned by mutations submitted after Run has returned.
var ErrClosed = errors.New("history: store closed")

// Clipboard is where Copy writes payloads back to.
type Clipboard interface {
	WriteText(text string) error
	WriteImage(png []byte) error
}

// Op names the mutation that produced a Change.
type Op string

const (
	OpInsert Op = "insert"
	OpRemove Op = "remove"
	OpCopy   Op = "copy"
	OpPin    Op = "pin"
	OpUnpin  Op = "unpin"
	OpRename Op = "rename"
	OpClear  Op = "clear"
)

// Change describes one applied mutation and the history after it.
type Change struct {
	Op    Op          `json:"op"`
	ID    string      `json:"id,omitempty"`
	Items []item.Item `json:"items"`
}

// Observer is told about every applied mutation. It runs on the writer loop
// and must not call back into the store's mutations.
type Observer interface {
	HistoryChanged(Change)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Change)

func (f ObserverFunc) HistoryChanged(c Change) { f(c) }

// Option configures a Store.
type Option func(*Store)

// WithDedupe sets the duplicate-capture policy.
func WithDedupe(p DedupePolicy) Option {
	return func(s *Store) { s.dedupe = p }
}

// WithClock replaces time.Now for items created by Copy.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithObserver registers o before the store starts.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// mutation computes the next history from the current one. It must not
// modify cur. ok=false means nothing changed.
type mutation func(cur []item.Item) (next []item.Item, c Change, ok bool)

type outcome struct {
	change Change
	ok     bool
	err    error
}

type op struct {
	fn    mutation
	reply chan outcome
}

// Store is the single source of truth for the clipboard history.
type Store struct {
	driver storage.Driver
	clip   Clipboard
	dedupe DedupePolicy
	now    func() time.Time
	log    *slog.Logger

	snap atomic.Pointer[[]item.Item]
	ops  chan op
	done chan struct{}
	once sync.Once

	obsMu     sync.RWMutex
	observers []Observer
}

// New loads the history from driver and returns a store that is ready to
// Run. A load failure is logged and the store starts empty. clip may be nil,
// in which case Copy only records the new entry.
func New(driver storage.Driver, clip Clipboard, opts ...Option) *Store {
	s := &Store{
		driver: driver,
		clip:   clip,
		now:    time.Now,
		log:    slog.With("component", "history"),
		ops:    make(chan op),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}

	items, err := driver.Load()
	if err != nil {
		s.log.Error("loading history failed, starting empty", "path", driver.Path(), "err", err)
		items = nil
	}
	if items == nil {
		items = []item.Item{}
	}
	s.snap.Store(&items)
	s.log.Info("history loaded", "path", driver.Path(), "items", len(items))
	return s
}

// AddObserver registers o for all subsequent changes.
func (s *Store) AddObserver(o Observer) {
	s.obsMu.Lock()
	s.observers = append(s.observers, o)
	s.obsMu.Unlock()
}

// Run is the writer loop. It applies captures and submitted mutations until
// ctx is done. captures may be nil when nothing polls the clipboard.
// Run must be called once.
func (s *Store) Run(ctx context.Context, captures <-chan poller.Capture) {
	defer s.once.Do(func() { close(s.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-captures:
			if !ok {
				captures = nil
				continue
			}
			s.apply(s.captureMutation(c))
		case o := <-s.ops:
			o.reply <- s.apply(o.fn)
		}
	}
}

// apply runs fn against the current snapshot and, when it changed
// something, flushes, publishes and notifies.
func (s *Store) apply(fn mutation) outcome {
	next, c, ok := fn(*s.snap.Load())
	if !ok {
		return outcome{}
	}
	if err := s.driver.Save(next); err != nil {
		s.log.Error("saving history failed", "op", c.Op, "path", s.driver.Path(), "err", err)
	}
	s.snap.Store(&next)
	c.Items = next

	s.obsMu.RLock()
	obs := slices.Clone(s.observers)
	s.obsMu.RUnlock()
	for _, o := range obs {
		o.HistoryChanged(c)
	}
	return outcome{change: c, ok: true}
}

// submit hands fn to the writer loop and waits for it to be applied. Once
// accepted a mutation always runs to completion, even if ctx ends meanwhile.
func (s *Store) submit(ctx context.Context, fn mutation) outcome {
	o := op{fn: fn, reply: make(chan outcome, 1)}
	select {
	case s.ops <- o:
	case <-s.done:
		return outcome{err: ErrClosed}
	case <-ctx.Done():
		return outcome{err: ctx.Err()}
	}
	return <-o.reply
}

func (s *Store) captureMutation(c poller.Capture) mutation {
	it := classify.NewItem(c.Payload, c.At)
	return func(cur []item.Item) ([]item.Item, Change, bool) {
		next, ch, ok := s.insert(it)(cur)
		if ok {
			logCapture(s.log, it)
		}
		return next, ch, ok
	}
}

func (s *Store) insert(it item.Item) mutation {
	return func(cur []item.Item) ([]item.Item, Change, bool) {
		if s.dedupe.skip(cur, it) {
			s.log.Debug("duplicate of front item, not inserted", "type", it.Type)
			return nil, Change{}, false
		}
		next := make([]item.Item, 0, len(cur)+1)
		next = append(next, it)
		next = append(next, cur...)
		return next, Change{Op: OpInsert, ID: it.ID}, true
	}
}

// Insert prepends it to the history. It reports false when the dedupe policy
// rejected the item.
func (s *Store) Insert(ctx context.Context, it item.Item) (bool, error) {
	if err := it.Validate(); err != nil {
		return false, err
	}
	r := s.submit(ctx, s.insert(it))
	return r.ok, r.err
}

// Remove deletes the item with the given id. It reports false, and changes
// nothing, when there is no such item.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	r := s.submit(ctx, func(cur []item.Item) ([]item.Item, Change, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, Change{}, false
		}
		return slices.Delete(slices.Clone(cur), i, i+1), Change{Op: OpRemove, ID: id}, true
	})
	return r.ok, r.err
}

// Copy writes the item's payload to the clipboard and records it again as a
// new entry at the front of the history. The original entry is untouched.
// A failed clipboard write is logged; the entry is recorded regardless.
func (s *Store) Copy(ctx context.Context, id string) (item.Item, bool, error) {
	var created item.Item
	r := s.submit(ctx, func(cur []item.Item) ([]item.Item, Change, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, Change{}, false
		}
		src := cur[i]
		if err := s.write(src); err != nil {
			s.log.Error("clipboard write failed", "id", id, "type", src.Type, "err", err)
		}
		created = src.Recapture(s.now())
		next := make([]item.Item, 0, len(cur)+1)
		next = append(next, created)
		next = append(next, cur...)
		return next, Change{Op: OpCopy, ID: created.ID}, true
	})
	if !r.ok {
		return item.Item{}, false, r.err
	}
	return created, true, nil
}

func (s *Store) write(it item.Item) error {
	if s.clip == nil {
		return errors.New("no clipboard attached")
	}
	if it.IsImage() {
		return s.clip.WriteImage(it.Data)
	}
	return s.clip.WriteText(it.Content)
}

// Pin marks the item as pinned.
func (s *Store) Pin(ctx context.Context, id string) (bool, error) {
	return s.setPinned(ctx, id, func(bool) bool { return true })
}

// Unpin clears the item's pinned mark.
func (s *Store) Unpin(ctx context.Context, id string) (bool, error) {
	return s.setPinned(ctx, id, func(bool) bool { return false })
}

// TogglePin flips the item's pinned mark.
func (s *Store) TogglePin(ctx context.Context, id string) (bool, error) {
	return s.setPinned(ctx, id, func(p bool) bool { return !p })
}

func (s *Store) setPinned(ctx context.Context, id string, next func(bool) bool) (bool, error) {
	found := false
	r := s.submit(ctx, func(cur []item.Item) ([]item.Item, Change, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, Change{}, false
		}
		found = true
		pinned := next(cur[i].IsPinned)
		if pinned == cur[i].IsPinned {
			return nil, Change{}, false
		}
		out := slices.Clone(cur)
		out[i].IsPinned = pinned
		kind := OpUnpin
		if pinned {
			kind = OpPin
		}
		return out, Change{Op: kind, ID: id}, true
	})
	return found, r.err
}

// Rename sets the item's custom name. A name that is empty after trimming
// clears it.
func (s *Store) Rename(ctx context.Context, id, name string) (bool, error) {
	name = strings.TrimSpace(name)
	found := false
	r := s.submit(ctx, func(cur []item.Item) ([]item.Item, Change, bool) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, Change{}, false
		}
		found = true
		if cur[i].CustomName == name {
			return nil, Change{}, false
		}
		out := slices.Clone(cur)
		out[i].CustomName = name
		return out, Change{Op: OpRename, ID: id}, true
	})
	return found, r.err
}

// Clear removes every item and returns how many there were.
func (s *Store) Clear(ctx context.Context) (int, error) {
	n := 0
	r := s.submit(ctx, func(cur []item.Item) ([]item.Item, Change, bool) {
		n = len(cur)
		if n == 0 {
			return nil, Change{}, false
		}
		return []item.Item{}, Change{Op: OpClear}, true
	})
	if r.err != nil {
		return 0, r.err
	}
	return n, nil
}

func indexOf(items []item.Item, id string) int {
	return slices.IndexFunc(items, func(it item.Item) bool { return it.ID == id })
}

// DedupePolicy decides whether a new item duplicates existing history.
type DedupePolicy int

const (
	// DedupeNone records every change, including repeats.
	DedupeNone DedupePolicy = iota
	// DedupeFront skips an item whose payload matches the newest entry.
	DedupeFront
)

// ParseDedupe converts a config value to a DedupePolicy.
func ParseDedupe(s string) (DedupePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return DedupeNone, nil
	case "front", "last":
		return DedupeFront, nil
	default:
		return DedupeNone, fmt.Errorf("unknown dedupe policy %q", s)
	}
}

func (p DedupePolicy) String() string {
	if p == DedupeFront {
		return "front"
	}
	return "none"
}

func (p DedupePolicy) skip(cur []item.Item, it item.Item) bool {
	return p == DedupeFront && len(cur) > 0 && cur[0].Fingerprint() == it.Fingerprint()
}
