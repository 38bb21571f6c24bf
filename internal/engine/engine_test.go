package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/hub"
	"go.klb.dev/recall/internal/item"
	"go.klb.dev/recall/internal/storage"
)

func newEngine(t *testing.T, dir string, mem *clip.Memory, driver string) *Engine {
	t.Helper()
	e, err := New(Config{
		Store:    storage.Config{Driver: driver, Dir: dir},
		Interval: 5 * time.Millisecond,
	}, WithBackend(mem))
	require.NoError(t, err)
	return e
}

func TestCapturePersistsAcrossRestart(t *testing.T) {
	for _, driver := range []string{storage.DriverJSON, storage.DriverBolt} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			mem := clip.NewMemory()
			require.NoError(t, mem.WriteText("already there"))

			e := newEngine(t, dir, mem, driver)
			e.Start(context.Background())

			require.NoError(t, mem.WriteText("https://example.com"))
			require.Eventually(t, func() bool { return e.Store().Len() == 1 }, time.Second, 5*time.Millisecond)
			require.NoError(t, e.Stop())

			restarted := newEngine(t, dir, clip.NewMemory(), driver)
			defer restarted.Stop()
			items := restarted.Store().Items()
			require.Len(t, items, 1)
			assert.Equal(t, item.TypeURL, items[0].Type)
			assert.Equal(t, "https://example.com", items[0].Content)
		})
	}
}

func TestCopyIsNotRecaptured(t *testing.T) {
	mem := clip.NewMemory()
	e := newEngine(t, t.TempDir(), mem, "")
	e.Start(context.Background())
	defer e.Stop()

	require.NoError(t, mem.WriteText("first"))
	require.Eventually(t, func() bool { return e.Store().Len() == 1 }, time.Second, 5*time.Millisecond)

	src := e.Store().Items()[0]
	_, ok, err := e.Store().Copy(context.Background(), src.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool { return e.Poller().Suppressed() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, e.Store().Len())
}

func TestChangesReachHub(t *testing.T) {
	mem := clip.NewMemory()
	e := newEngine(t, t.TempDir(), mem, "")
	w := hub.NewChanWatcher("test", 4)
	e.Hub().Register(w)
	e.Start(context.Background())
	defer e.Stop()

	require.NoError(t, mem.WriteImage([]byte{0x89, 'P', 'N', 'G'}))

	select {
	case ev := <-w.Events():
		assert.Equal(t, history.OpInsert, ev.Op)
		require.Len(t, ev.Items, 1)
		assert.Equal(t, item.TypeImage, ev.Items[0].Type)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
}

func TestStatus(t *testing.T) {
	mem := clip.NewMemory()
	e := newEngine(t, t.TempDir(), mem, "")
	e.Start(context.Background())
	defer e.Stop()

	ctx := context.Background()
	it := item.New(item.TypeText, "x", nil, time.Now())
	_, err := e.Store().Insert(ctx, it)
	require.NoError(t, err)
	_, err = e.Store().Pin(ctx, it.ID)
	require.NoError(t, err)

	st := e.Status()
	assert.Equal(t, "in-memory", st.Backend)
	assert.Equal(t, storage.DriverJSON, st.Store)
	assert.Equal(t, 1, st.Items)
	assert.Equal(t, 1, st.Pinned)
	assert.Equal(t, uint64(2), st.Changes)
	assert.Equal(t, 5*time.Millisecond, st.Interval)
	assert.False(t, st.StartedAt.IsZero())
}

func TestStopWithoutStart(t *testing.T) {
	e := newEngine(t, t.TempDir(), clip.NewMemory(), "")
	assert.NoError(t, e.Stop())
	assert.NoError(t, e.Stop())
	assert.Error(t, e.Wait())
}

func TestStopEndsStore(t *testing.T) {
	e := newEngine(t, t.TempDir(), clip.NewMemory(), "")
	e.Start(context.Background())
	require.NoError(t, e.Stop())
	require.NoError(t, e.Wait())

	_, err := e.Store().Insert(context.Background(), item.New(item.TypeText, "late", nil, time.Now()))
	assert.ErrorIs(t, err, history.ErrClosed)
}

func TestUnknownDriver(t *testing.T) {
	_, err := New(Config{Store: storage.Config{Driver: "sqlite", Dir: t.TempDir()}}, WithBackend(clip.NewMemory()))
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)
}
