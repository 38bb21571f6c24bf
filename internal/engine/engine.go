// Package engine assembles a running clipboard history: the platform
// clipboard backend, the poller watching it, the storage driver and the
// history store that owns the entries, plus the hub that fans changes out to
// watchers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/hub"
	"go.klb.dev/recall/internal/message"
	"go.klb.dev/recall/internal/poller"
	"go.klb.dev/recall/internal/storage"
)

// Config selects the collaborators New builds.
type Config struct {
	// Backend is "auto" for the platform clipboard or "memory".
	Backend  string
	Store    storage.Config
	Interval time.Duration
	Dedupe   history.DedupePolicy
}

// Option customises an Engine.
type Option func(*Engine)

// WithBackend uses b instead of opening one from Config.Backend.
func WithBackend(b clip.Backend) Option {
	return func(e *Engine) { e.backend = b }
}

// WithClock replaces time.Now for captures and copies.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine owns every long-lived component of the daemon.
type Engine struct {
	cfg     Config
	now     func() time.Time
	backend clip.Backend
	poller  *poller.Poller
	driver  storage.Driver
	store   *history.Store
	hub     *hub.Hub
	log     *slog.Logger

	mu         sync.Mutex
	started    time.Time
	stopPoll   context.CancelFunc
	stopLoop   context.CancelFunc
	pollDone   chan struct{}
	loopDone   chan struct{}
	stopOnce   sync.Once
	stopResult error
}

// New opens storage, loads the history and prepares the poller. Nothing runs
// until Start.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg: cfg,
		now: time.Now,
		hub: hub.New(),
		log: slog.With("component", "engine"),
	}
	for _, o := range opts {
		o(e)
	}
	if e.backend == nil {
		e.backend = clip.Open(cfg.Backend)
	}

	driver, err := storage.Open(cfg.Store)
	if err != nil {
		e.backend.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	e.driver = driver

	e.poller = poller.New(e.backend, poller.WithInterval(cfg.Interval), poller.WithClock(e.now))
	e.store = history.New(driver, e.poller,
		history.WithDedupe(cfg.Dedupe),
		history.WithClock(e.now),
		history.WithObserver(e.hub),
	)
	return e, nil
}

// Start launches the poller and the history loop. The engine runs until ctx
// is done or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loopDone != nil {
		return
	}

	loopCtx, stopLoop := context.WithCancel(ctx)
	pollCtx, stopPoll := context.WithCancel(loopCtx)
	e.stopLoop, e.stopPoll = stopLoop, stopPoll
	e.pollDone, e.loopDone = make(chan struct{}), make(chan struct{})
	e.started = e.now()

	// Unbuffered: a capture is either applied or never left the poller.
	captures := make(chan poller.Capture)

	go func() {
		defer close(e.pollDone)
		e.poller.Run(pollCtx, captures)
	}()
	go func() {
		defer close(e.loopDone)
		e.store.Run(loopCtx, captures)
	}()

	e.log.Info("engine started",
		"backend", e.backend.Name(),
		"store", e.driver.Path(),
		"interval", e.poller.Interval(),
		"dedupe", e.cfg.Dedupe,
		"items", e.store.Len(),
	)
}

// Stop ends the poller, then the history loop, and releases the backend and
// storage. An in-flight mutation finishes first. Stop is safe to call more
// than once and without Start.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() {
		e.mu.Lock()
		stopPoll, stopLoop := e.stopPoll, e.stopLoop
		pollDone, loopDone := e.pollDone, e.loopDone
		e.mu.Unlock()

		if stopPoll != nil {
			stopPoll()
			<-pollDone
			stopLoop()
			<-loopDone
		}

		e.backend.Close()
		if err := e.driver.Close(); err != nil {
			e.stopResult = fmt.Errorf("closing storage: %w", err)
		}
		e.log.Info("engine stopped", "items", e.store.Len())
	})
	return e.stopResult
}

// Wait blocks until the history loop has exited.
func (e *Engine) Wait() error {
	e.mu.Lock()
	done := e.loopDone
	e.mu.Unlock()
	if done == nil {
		return errors.New("engine not started")
	}
	<-done
	return nil
}

func (e *Engine) Store() *history.Store  { return e.store }
func (e *Engine) Hub() *hub.Hub          { return e.hub }
func (e *Engine) Poller() *poller.Poller { return e.poller }
func (e *Engine) Backend() clip.Backend  { return e.backend }

// Status reports on the running engine. Version is left for the caller.
func (e *Engine) Status() message.StatusResponse {
	items := e.store.Items()
	pinned := 0
	for _, it := range items {
		if it.IsPinned {
			pinned++
		}
	}
	_, changes, _ := e.hub.Latest()

	e.mu.Lock()
	started := e.started
	e.mu.Unlock()

	store := strings.ToLower(e.cfg.Store.Driver)
	if store == "" {
		store = storage.DriverJSON
	}

	return message.StatusResponse{
		Backend:   e.backend.Name(),
		Store:     store,
		Path:      e.driver.Path(),
		Items:     len(items),
		Pinned:    pinned,
		Interval:  e.poller.Interval(),
		Dedupe:    e.cfg.Dedupe.String(),
		Watchers:  len(e.hub.Watchers()),
		Changes:   changes,
		StartedAt: started,
	}
}
