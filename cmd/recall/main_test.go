//go:build !windows

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kardianos/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/recall/internal/classify"
	"go.klb.dev/recall/internal/clip"
	"go.klb.dev/recall/internal/engine"
	"go.klb.dev/recall/internal/ipc"
	"go.klb.dev/recall/internal/item"
	"go.klb.dev/recall/internal/rpc"
	"go.klb.dev/recall/internal/storage"
)

type daemon struct {
	socket string
	engine *engine.Engine
	mem    *clip.Memory
}

func startDaemon(t *testing.T) *daemon {
	t.Helper()
	dir, err := os.MkdirTemp("", "rc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "r.sock")

	mem := clip.NewMemory()
	e, err := engine.New(engine.Config{
		Store:    storage.Config{Dir: filepath.Join(dir, "data")},
		Interval: time.Hour,
	}, engine.WithBackend(mem))
	require.NoError(t, err)
	e.Start(context.Background())
	t.Cleanup(func() { _ = e.Stop() })

	ln, err := ipc.Listen(socket)
	require.NoError(t, err)
	srv := rpc.NewServer(ln, rpc.NewService(e, "test"))
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Stop)

	return &daemon{socket: socket, engine: e, mem: mem}
}

func (d *daemon) insert(t *testing.T, text string) item.Item {
	t.Helper()
	it := classify.NewItem(classify.Payload{Text: text}, time.Now())
	_, err := d.engine.Store().Insert(context.Background(), it)
	require.NoError(t, err)
	return it
}

// run executes the CLI against d and returns stdout.
func (d *daemon) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	if d != nil {
		args = append(args, "--socket", d.socket)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	var d *daemon
	out, err := d.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "recall dev\n", out)
}

func TestNoDaemon(t *testing.T) {
	d := &daemon{socket: filepath.Join(t.TempDir(), "none.sock")}
	_, err := d.run(t, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no recall daemon")
}

func TestListPinShow(t *testing.T) {
	d := startDaemon(t)
	a := d.insert(t, "first snippet")
	d.insert(t, "https://example.com")

	out, err := d.run(t, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[2], "URL")
	assert.Contains(t, lines[3], "first snippet")

	out, err = d.run(t, "pin", short(a.ID))
	require.NoError(t, err)
	assert.Equal(t, "Pinned "+short(a.ID)+"\n", out)

	out, err = d.run(t, "list", "--pinned-first")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasPrefix(lines[2], "*"))
	assert.Contains(t, lines[2], "first snippet")

	out, err = d.run(t, "show", a.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Pinned:  true")
	assert.Contains(t, out, "2 words")
	assert.True(t, strings.HasSuffix(out, "\nfirst snippet\n"))

	out, err = d.run(t, "show", "--raw", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "first snippet", out)
}

func TestRenameCopyRemove(t *testing.T) {
	d := startDaemon(t)
	a := d.insert(t, "payload")

	_, err := d.run(t, "rename", a.ID, "My name")
	require.NoError(t, err)
	got, _ := d.engine.Store().Get(a.ID)
	assert.Equal(t, "My name", got.CustomName)

	_, err = d.run(t, "rename", a.ID)
	require.NoError(t, err)
	got, _ = d.engine.Store().Get(a.ID)
	assert.Empty(t, got.CustomName)

	out, err := d.run(t, "copy", a.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `Copied "payload"`)
	text, _ := d.mem.ReadText()
	assert.Equal(t, "payload", text)
	assert.Equal(t, 2, d.engine.Store().Len())

	_, err = d.run(t, "rm", a.ID, "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no item "deadbeef"`)
	_, ok := d.engine.Store().Get(a.ID)
	assert.False(t, ok)
}

func TestAmbiguousPrefix(t *testing.T) {
	d := startDaemon(t)
	d.insert(t, "one")
	d.insert(t, "two")

	_, err := d.run(t, "pin", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestClearNeedsConfirmation(t *testing.T) {
	d := startDaemon(t)
	d.insert(t, "x")

	_, err := d.run(t, "clear")
	require.Error(t, err)
	assert.Equal(t, 1, d.engine.Store().Len())

	out, err := d.run(t, "clear", "--yes")
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 entries\n", out)
	assert.Zero(t, d.engine.Store().Len())
}

func TestSearchAndStatus(t *testing.T) {
	d := startDaemon(t)
	d.insert(t, "release notes")
	d.insert(t, "shopping")

	out, err := d.run(t, "search", "rls", "nts")
	require.NoError(t, err)
	assert.Contains(t, out, "release notes")
	assert.NotContains(t, out, "shopping")

	out, err = d.run(t, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "in-memory")
	assert.Contains(t, out, "2 (0 pinned)")
}

func TestServiceCommands(t *testing.T) {
	root := newRootCmd()
	svc, _, err := root.Find([]string{"service", "install"})
	require.NoError(t, err)
	assert.Equal(t, "install", svc.Name())

	var names []string
	for _, c := range svc.Parent().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"install", "uninstall", "start", "stop", "status"}, names)
	assert.Equal(t, "not installed", describeStatus(0, service.ErrNotInstalled))
}

func TestFmtSize(t *testing.T) {
	assert.Equal(t, "12 B", fmtSize(12))
	assert.Equal(t, "1.5 KiB", fmtSize(1536))
	assert.Equal(t, "2.0 MiB", fmtSize(2*1024*1024))
}
