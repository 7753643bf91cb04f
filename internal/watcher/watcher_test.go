package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const debounce = 50 * time.Millisecond

func yamlOnly(path string) bool {
	base := filepath.Base(path)
	return strings.HasSuffix(base, ".yaml") && !strings.HasPrefix(base, ".")
}

// start runs a watcher on dir and stops it when the test ends.
func start(t *testing.T, dir string) *Watcher {
	t.Helper()
	w, err := New(dir, WithDebounce(debounce), WithFilter(yamlOnly))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		require.NoError(t, w.Close())
	})
	return w
}

func next(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return Event{}
	}
}

func quiet(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %s %s", ev.Op, ev.Path)
	case <-time.After(4 * debounce):
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_CreateModifyRemove(t *testing.T) {
	dir := t.TempDir()
	w := start(t, dir)
	p := filepath.Join(dir, "ping.yaml")

	write(t, p, "name: ping")
	assert.Equal(t, Event{Op: Created, Path: p}, next(t, w))

	write(t, p, "name: pong")
	assert.Equal(t, Event{Op: Modified, Path: p}, next(t, w))

	require.NoError(t, os.Remove(p))
	assert.Equal(t, Event{Op: Removed, Path: p}, next(t, w))
	quiet(t, w)
}

func TestWatcher_BurstIsDebounced(t *testing.T) {
	dir := t.TempDir()
	w := start(t, dir)
	p := filepath.Join(dir, "help.yaml")

	for i := 0; i < 5; i++ {
		write(t, p, strings.Repeat("x", i+1))
	}
	assert.Equal(t, Event{Op: Created, Path: p}, next(t, w))
	quiet(t, w)
}

func TestWatcher_ExistingFilesAreKnown(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "old.yaml")
	write(t, p, "name: old")

	w := start(t, dir)
	write(t, p, "name: older")
	assert.Equal(t, Event{Op: Modified, Path: p}, next(t, w))
}

func TestWatcher_CreateThenRemoveWithinWindowIsSilent(t *testing.T) {
	dir := t.TempDir()
	w := start(t, dir)
	p := filepath.Join(dir, "blip.yaml")

	write(t, p, "name: blip")
	require.NoError(t, os.Remove(p))
	quiet(t, w)
}

func TestWatcher_FiltersFiles(t *testing.T) {
	dir := t.TempDir()
	w := start(t, dir)

	write(t, filepath.Join(dir, "notes.txt"), "nope")
	write(t, filepath.Join(dir, ".hidden.yaml"), "nope")
	quiet(t, w)
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	w := start(t, dir)

	sub := filepath.Join(dir, "fun")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// give the watcher a moment to pick up the directory
	time.Sleep(debounce)

	p := filepath.Join(sub, "roll.yaml")
	write(t, p, "name: roll")
	assert.Equal(t, Event{Op: Created, Path: p}, next(t, w))

	require.NoError(t, os.RemoveAll(sub))
	assert.Equal(t, Event{Op: Removed, Path: p}, next(t, w))
	quiet(t, w)
}

func TestWatcher_HiddenSubdirectoryIgnored(t *testing.T) {
	dir := t.TempDir()
	w := start(t, dir)

	sub := filepath.Join(dir, ".git")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(debounce)
	write(t, filepath.Join(sub, "x.yaml"), "name: x")
	quiet(t, w)
}

func TestWatcher_RunTwice(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.running.Load() }, time.Second, 5*time.Millisecond)
	assert.Error(t, w.Run(ctx))

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, ok := <-w.Events()
	assert.False(t, ok)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "file.yaml")
	write(t, f, "")
	_, err = New(f)
	assert.Error(t, err)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unknown", Op(0).String())
}
