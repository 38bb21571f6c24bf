// Package hub fans history change events out to watchers.
// It is transport-agnostic: watchers register, receive events through a
// non-blocking Send, and unregister when their stream ends. The history
// store drives the hub synchronously after every mutation.
package hub

import (
	"log/slog"
	"sync"

	"go.klb.dev/recall/internal/history"
)

// Event is a history change delivered to a watcher.
type Event = history.Change

// Watcher is anything that can receive history events from the hub.
type Watcher interface {
	ID() string
	// Send delivers an event to the watcher. Must be non-blocking.
	Send(Event)
}

// Hub routes history changes to all registered watchers.
type Hub struct {
	mu       sync.RWMutex
	watchers map[string]Watcher
	latest   *Event
	seq      uint64
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{watchers: make(map[string]Watcher)}
}

// Register adds a watcher. Watchers only see changes published after they
// register; the current state is available from the store itself.
func (h *Hub) Register(w Watcher) {
	h.mu.Lock()
	h.watchers[w.ID()] = w
	total := len(h.watchers)
	h.mu.Unlock()

	slog.Info("watcher registered", "watcher", w.ID(), "total", total)
}

// Unregister removes a watcher from the hub.
func (h *Hub) Unregister(w Watcher) {
	h.mu.Lock()
	delete(h.watchers, w.ID())
	total := len(h.watchers)
	h.mu.Unlock()

	slog.Info("watcher unregistered", "watcher", w.ID(), "total", total)
}

// HistoryChanged implements history.Observer.
func (h *Hub) HistoryChanged(c history.Change) {
	h.Publish(c)
}

// Publish records ev as the latest event and fans it out to every watcher.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	h.seq++
	h.latest = &ev
	targets := make([]Watcher, 0, len(h.watchers))
	for _, w := range h.watchers {
		targets = append(targets, w)
	}
	h.mu.Unlock()

	for _, w := range targets {
		w.Send(ev)
	}
}

// Latest returns the most recent event and how many have been published.
func (h *Hub) Latest() (Event, uint64, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return Event{}, h.seq, false
	}
	return *h.latest, h.seq, true
}

// Watchers returns the IDs of the registered watchers.
func (h *Hub) Watchers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.watchers))
	for id := range h.watchers {
		out = append(out, id)
	}
	return out
}

// ChanWatcher is a Watcher backed by a buffered channel. Events that do not
// fit are dropped with a warning; a watcher that falls behind re-reads the
// store, so losing an event never loses state.
type ChanWatcher struct {
	id string
	ch chan Event
}

// NewChanWatcher returns a watcher with room for buf pending events.
func NewChanWatcher(id string, buf int) *ChanWatcher {
	return &ChanWatcher{id: id, ch: make(chan Event, buf)}
}

func (w *ChanWatcher) ID() string { return w.id }

func (w *ChanWatcher) Send(ev Event) {
	select {
	case w.ch <- ev:
	default:
		slog.Warn("watcher channel full, dropping", "watcher", w.id)
	}
}

// Events returns the channel events are delivered on.
func (w *ChanWatcher) Events() <-chan Event { return w.ch }
