package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/classify"
	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/item"
	"go.klb.dev/recall/internal/poller"
	"go.klb.dev/recall/internal/storage"
)

// memDriver keeps the saved document in memory and counts saves.
type memDriver struct {
	mu      sync.Mutex
	items   []item.Item
	saves   int
	loadErr error
	saveErr error
}

func (d *memDriver) Load() ([]item.Item, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.items, d.loadErr
}

func (d *memDriver) Save(items []item.Item) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saves++
	if d.saveErr != nil {
		return d.saveErr
	}
	d.items = items
	return nil
}

func (d *memDriver) Path() string { return "memory" }
func (d *memDriver) Close() error { return nil }

func (d *memDriver) saved() ([]item.Item, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.items, d.saves
}

type harness struct {
	store    *Store
	captures chan poller.Capture
	cancel   context.CancelFunc
	done     chan struct{}
}

func start(t *testing.T, d storage.Driver, cb Clipboard, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:    New(d, cb, opts...),
		captures: make(chan poller.Capture),
		done:     make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.store.Run(ctx, h.captures)
		close(h.done)
	}()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

// capture delivers a capture and waits until the loop has applied it.
func (h *harness) capture(t *testing.T, p classify.Payload) {
	t.Helper()
	h.captures <- poller.Capture{Payload: p, At: time.Now()}
	_, err := h.store.Remove(context.Background(), "barrier")
	require.NoError(t, err)
}

func textItem(s string) item.Item {
	return classify.NewItem(classify.Payload{Text: s}, time.Now())
}

func ids(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestInsertOrdering(t *testing.T) {
	d := &memDriver{}
	h := start(t, d, nil)
	ctx := context.Background()

	a, b := textItem("A"), textItem("B")
	ok, err := h.store.Insert(ctx, a)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = h.store.Insert(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, []string{b.ID, a.ID}, ids(h.store.Items()))

	saved, saves := d.saved()
	assert.Equal(t, 2, saves)
	assert.Equal(t, []string{b.ID, a.ID}, ids(saved))
}

func TestInsertRejectsInvalidItem(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	_, err := h.store.Insert(context.Background(), item.Item{ID: "x", Type: item.TypeImage})
	assert.ErrorIs(t, err, item.ErrInvalid)
	assert.Zero(t, h.store.Len())
}

func TestCaptureIsClassifiedAndPrepended(t *testing.T) {
	h := start(t, &memDriver{}, nil)

	h.capture(t, classify.Payload{Text: "hello"})
	h.capture(t, classify.Payload{Text: "https://example.com"})
	h.capture(t, classify.Payload{Image: []byte{1, 2, 3}})

	items := h.store.Items()
	require.Len(t, items, 3)
	assert.Equal(t, item.TypeImage, items[0].Type)
	assert.Equal(t, item.TypeURL, items[1].Type)
	assert.Equal(t, item.TypeText, items[2].Type)
}

func TestNoDedupeByDefault(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	h.capture(t, classify.Payload{Text: "same"})
	h.capture(t, classify.Payload{Text: "same"})
	assert.Equal(t, 2, h.store.Len())
}

func TestDedupeFront(t *testing.T) {
	h := start(t, &memDriver{}, nil, WithDedupe(DedupeFront))
	h.capture(t, classify.Payload{Text: "same"})
	h.capture(t, classify.Payload{Text: "same"})
	h.capture(t, classify.Payload{Text: "other"})
	h.capture(t, classify.Payload{Text: "same"})

	items := h.store.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"same", "other", "same"}, []string{items[0].Content, items[1].Content, items[2].Content})

	ok, err := h.store.Insert(context.Background(), textItem("same"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCopySemantics(t *testing.T) {
	mem := clip.NewMemory()
	h := start(t, &memDriver{}, mem)
	ctx := context.Background()

	x := textItem("line1\nline2")
	x.IsPinned = true
	x.CustomName = "snippet"
	_, err := h.store.Insert(ctx, x)
	require.NoError(t, err)
	_, err = h.store.Insert(ctx, textItem("newer"))
	require.NoError(t, err)

	cp, ok, err := h.store.Copy(ctx, x.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NotEqual(t, x.ID, cp.ID)
	assert.Equal(t, x.Content, cp.Content)
	assert.Equal(t, x.Data, cp.Data)
	assert.Equal(t, x.Type, cp.Type)
	assert.False(t, cp.Date.Before(x.Date))

	items := h.store.Items()
	require.Len(t, items, 3)
	assert.Equal(t, cp, items[0])

	orig, ok := h.store.Get(x.ID)
	require.True(t, ok)
	assert.Equal(t, x, orig)

	text, err := mem.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", text)
}

func TestCopyImageWritesImage(t *testing.T) {
	mem := clip.NewMemory()
	h := start(t, &memDriver{}, mem)
	ctx := context.Background()

	img := classify.NewItem(classify.Payload{Image: []byte{9, 8, 7}}, time.Now())
	_, err := h.store.Insert(ctx, img)
	require.NoError(t, err)

	cp, ok, err := h.store.Copy(ctx, img.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item.TypeImage, cp.Type)
	assert.Equal(t, []byte{9, 8, 7}, cp.Data)

	got, err := mem.ReadImage()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, got)
}

func TestCopyWithoutClipboardStillRecords(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	ctx := context.Background()

	x := textItem("x")
	_, err := h.store.Insert(ctx, x)
	require.NoError(t, err)

	_, ok, err := h.store.Copy(ctx, x.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, h.store.Len())
}

func TestCopyThroughPollerIsNotRecaptured(t *testing.T) {
	mem := clip.NewMemory()
	p := poller.New(mem)
	h := start(t, &memDriver{}, p)
	ctx := context.Background()

	x := textItem("again")
	_, err := h.store.Insert(ctx, x)
	require.NoError(t, err)

	_, ok, err := h.store.Copy(ctx, x.ID)
	require.NoError(t, err)
	require.True(t, ok)

	_, captured := p.Tick()
	assert.False(t, captured)
	assert.Equal(t, 2, h.store.Len())
}

func TestMutationNoOps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipboard_history.json")
	mem := clip.NewMemory()
	h := start(t, storage.NewJSONFile(path), mem)
	ctx := context.Background()

	_, err := h.store.Insert(ctx, textItem("keep me"))
	require.NoError(t, err)

	before := h.store.Items()
	doc, err := os.ReadFile(path)
	require.NoError(t, err)
	count, _ := mem.ChangeCount()

	var changes int
	h.store.AddObserver(ObserverFunc(func(Change) { changes++ }))

	ok, err := h.store.Remove(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.store.Pin(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.store.Unpin(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.store.TogglePin(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.store.Rename(ctx, "missing", "name")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = h.store.Copy(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, before, h.store.Items())
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(doc), string(after))
	countAfter, _ := mem.ChangeCount()
	assert.Equal(t, count, countAfter, "copy of a missing item must not touch the clipboard")
	assert.Zero(t, changes)
}

func TestPinAndDisplayOrder(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	ctx := context.Background()

	a, b, c := textItem("a"), textItem("b"), textItem("c")
	for _, it := range []item.Item{a, b, c} {
		_, err := h.store.Insert(ctx, it)
		require.NoError(t, err)
	}
	// stored: c b a

	ok, err := h.store.Pin(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(h.store.Items()), "pinning must not reorder storage")
	assert.Equal(t, []string{a.ID, c.ID, b.ID}, ids(h.store.Display()))

	ok, err = h.store.Pin(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{b.ID, a.ID, c.ID}, ids(h.store.Display()))

	ok, err = h.store.Unpin(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := h.store.Get(b.ID)
	assert.False(t, got.IsPinned)

	ok, err = h.store.TogglePin(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got, _ = h.store.Get(c.ID)
	assert.True(t, got.IsPinned)
}

func TestPinIdempotent(t *testing.T) {
	d := &memDriver{}
	h := start(t, d, nil)
	ctx := context.Background()

	a := textItem("a")
	_, err := h.store.Insert(ctx, a)
	require.NoError(t, err)

	ok, err := h.store.Pin(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	_, saves := d.saved()

	ok, err = h.store.Pin(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok, "an existing item is found even when already pinned")
	_, again := d.saved()
	assert.Equal(t, saves, again)
}

func TestRename(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	ctx := context.Background()

	a := textItem("some long clipboard content")
	_, err := h.store.Insert(ctx, a)
	require.NoError(t, err)

	ok, err := h.store.Rename(ctx, a.ID, "  Meeting notes  ")
	require.NoError(t, err)
	require.True(t, ok)
	got, _ := h.store.Get(a.ID)
	assert.Equal(t, "Meeting notes", got.CustomName)
	assert.Equal(t, "Meeting notes", got.DisplayName())

	ok, err = h.store.Rename(ctx, a.ID, "   ")
	require.NoError(t, err)
	require.True(t, ok)
	got, _ = h.store.Get(a.ID)
	assert.Empty(t, got.CustomName)
	assert.Equal(t, "some long clipboard content", got.DisplayName())
}

func TestRemove(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	ctx := context.Background()

	a, b := textItem("a"), textItem("b")
	_, _ = h.store.Insert(ctx, a)
	_, _ = h.store.Insert(ctx, b)

	ok, err := h.store.Remove(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{b.ID}, ids(h.store.Items()))

	ok, err = h.store.Remove(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	d := &memDriver{}
	h := start(t, d, nil)
	ctx := context.Background()

	n, err := h.store.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, _ = h.store.Insert(ctx, textItem("a"))
	_, _ = h.store.Insert(ctx, textItem("b"))

	n, err = h.store.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, h.store.Len())
	saved, _ := d.saved()
	assert.Empty(t, saved)
}

func TestObserverSeesPostMutationState(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []Change
	)
	obs := ObserverFunc(func(c Change) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})
	h := start(t, &memDriver{}, nil, WithObserver(obs))
	ctx := context.Background()

	a := textItem("a")
	_, err := h.store.Insert(ctx, a)
	require.NoError(t, err)
	_, err = h.store.Pin(ctx, a.ID)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2, "observers run before the mutation returns")
	assert.Equal(t, OpInsert, seen[0].Op)
	assert.Equal(t, a.ID, seen[0].ID)
	assert.Len(t, seen[0].Items, 1)
	assert.Equal(t, OpPin, seen[1].Op)
	assert.True(t, seen[1].Items[0].IsPinned)
}

func TestConcurrentMutationsLoseNothing(t *testing.T) {
	d := &memDriver{}
	h := start(t, d, nil)
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.store.Insert(ctx, textItem(fmt.Sprintf("item %d", i)))
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.captures <- poller.Capture{Payload: classify.Payload{Text: fmt.Sprintf("capture %d", i)}, At: time.Now()}
		}()
	}
	wg.Wait()
	h.capture(t, classify.Payload{Text: "last"})

	assert.Equal(t, n+21, h.store.Len())
	saved, saves := d.saved()
	assert.Len(t, saved, n+21)
	assert.Equal(t, n+21, saves)
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	d := &memDriver{saveErr: errors.New("disk full")}
	h := start(t, d, nil)

	a := textItem("a")
	ok, err := h.store.Insert(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{a.ID}, ids(h.store.Items()))
}

func TestLoadFailureStartsEmpty(t *testing.T) {
	d := &memDriver{loadErr: errors.New("corrupt"), items: []item.Item{textItem("ghost")}}
	s := New(d, nil)
	assert.Zero(t, s.Len())
}

func TestLoadedHistoryKeepsStoredOrder(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := old.Add(time.Hour)
	stored := []item.Item{
		item.New(item.TypeText, "older first", nil, old),
		item.New(item.TypeText, "newer second", nil, newer),
	}
	s := New(&memDriver{items: stored}, nil)
	assert.Equal(t, ids(stored), ids(s.Items()))
}

func TestClosedStore(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	h.stop()

	_, err := h.store.Insert(context.Background(), textItem("late"))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = h.store.Remove(context.Background(), "x")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubmitHonoursContext(t *testing.T) {
	s := New(&memDriver{}, nil) // never started
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Insert(ctx, textItem("x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearch(t *testing.T) {
	h := start(t, &memDriver{}, nil)
	ctx := context.Background()

	url := textItem("https://example.com/docs")
	notes := textItem("grocery list: milk, eggs")
	img := classify.NewItem(classify.Payload{Image: []byte{1}}, time.Now())
	for _, it := range []item.Item{url, notes, img} {
		_, err := h.store.Insert(ctx, it)
		require.NoError(t, err)
	}
	_, err := h.store.Rename(ctx, img.ID, "Screenshot")
	require.NoError(t, err)

	assert.Equal(t, []string{notes.ID}, ids(h.store.Search("MILK")))
	assert.Equal(t, []string{url.ID}, ids(h.store.Search("exmpl")))
	assert.Equal(t, []string{img.ID}, ids(h.store.Search("screen")))
	assert.Equal(t, []string{url.ID}, ids(h.store.Search("url")))
	assert.Len(t, h.store.Search("  "), 3)
	assert.Empty(t, h.store.Search("zzzz"))
}

func TestParseDedupe(t *testing.T) {
	p, err := ParseDedupe("")
	require.NoError(t, err)
	assert.Equal(t, DedupeNone, p)

	p, err = ParseDedupe("Front")
	require.NoError(t, err)
	assert.Equal(t, DedupeFront, p)
	assert.Equal(t, "front", p.String())

	_, err = ParseDedupe("hash")
	assert.Error(t, err)
}
