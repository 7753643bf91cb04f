package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walidoudou/TemplatPrefix-discord/pkg/cmd"
)

func testHandlers(t *testing.T) *cmd.Registry {
	t.Helper()
	h := cmd.NewRegistry()
	for _, key := range []string{"reply", "ping", "help"} {
		require.NoError(t, h.Register(cmd.Func(key, "", func(context.Context, *cmd.Invocation) error { return nil })))
	}
	return h
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(t *testing.T) (*Loader, *Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg := NewRegistry()
	return NewLoader(reg, testHandlers(t), dir), reg, dir
}

func TestLoader_LoadDerivesCategory(t *testing.T) {
	l, reg, dir := newTestLoader(t)

	p := writeFile(t, filepath.Join(dir, "utility", "ping.yaml"), "name: ping\naliases: [latence]\ncooldown: 5\nhandler: ping\n")
	d, err := l.Load(p)
	require.NoError(t, err)
	assert.Equal(t, "Utility", d.Category)
	assert.Equal(t, 5*time.Second, d.Cooldown)

	root := writeFile(t, filepath.Join(dir, "hello.yml"), "name: hello\nhandler: reply\nreply: hi\n")
	d, err = l.Load(root)
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, d.Category)

	got, ok := reg.Resolve("latence")
	require.True(t, ok)
	assert.Equal(t, p, got.Origin)
	assert.Equal(t, "ping", l.NameFor(p))
}

func TestLoader_InvalidDescriptor(t *testing.T) {
	l, reg, dir := newTestLoader(t)

	tests := map[string]string{
		"noname.yaml":    "handler: reply\n",
		"nohandler.yaml": "name: x\n",
		"unknown.yaml":   "name: x\nhandler: teleport\n",
		"badperm.yaml":   "name: x\nhandler: reply\nuser_permissions: [Fly]\n",
		"negative.yaml":  "name: x\nhandler: reply\ncooldown: -1\n",
		"empty.yaml":     "",
		"typo.yaml":      "name: x\nhandler: reply\ncooldwn: 3\n",
	}

	for file, content := range tests {
		t.Run(file, func(t *testing.T) {
			p := writeFile(t, filepath.Join(dir, file), content)
			_, err := l.Load(p)
			require.ErrorIs(t, err, ErrInvalidDescriptor)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, p, le.Path)
		})
	}
	assert.Zero(t, reg.Len())
}

func TestLoader_SecondFileWithSameNameConflicts(t *testing.T) {
	l, reg, dir := newTestLoader(t)

	a := writeFile(t, filepath.Join(dir, "a.yaml"), "name: ping\nhandler: ping\n")
	b := writeFile(t, filepath.Join(dir, "b.yaml"), "name: ping\nhandler: reply\n")

	_, err := l.Load(a)
	require.NoError(t, err)
	_, err = l.Load(b)
	require.ErrorIs(t, err, ErrNameConflict)

	d, ok := reg.Resolve("ping")
	require.True(t, ok)
	assert.Equal(t, a, d.Origin)

	// removing the loser leaves the winner alone
	assert.False(t, l.Unload(b))
	_, ok = reg.Resolve("ping")
	assert.True(t, ok)
}

func TestLoader_ReloadInvalidKeepsOld(t *testing.T) {
	l, reg, dir := newTestLoader(t)
	p := writeFile(t, filepath.Join(dir, "ping.yaml"), "name: ping\naliases: [p]\nhandler: ping\n")
	_, err := l.Load(p)
	require.NoError(t, err)

	writeFile(t, p, "aliases: [p]\nhandler: ping\n")
	_, err = l.Reload(p)
	require.ErrorIs(t, err, ErrInvalidDescriptor)

	d, ok := reg.Resolve("p")
	require.True(t, ok)
	assert.Equal(t, "ping", d.Name)
}

func TestLoader_ReloadRenamesAndSwapsAliases(t *testing.T) {
	l, reg, dir := newTestLoader(t)
	p := writeFile(t, filepath.Join(dir, "x.yaml"), "name: first\naliases: [one]\nhandler: reply\n")
	_, err := l.Load(p)
	require.NoError(t, err)

	writeFile(t, p, "name: second\naliases: [two]\nhandler: reply\n")
	_, err = l.Reload(p)
	require.NoError(t, err)

	for _, gone := range []string{"first", "one"} {
		_, ok := reg.Resolve(gone)
		assert.False(t, ok, gone)
	}
	d, ok := reg.Resolve("two")
	require.True(t, ok)
	assert.Equal(t, "second", d.Name)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, "second", l.NameFor(p))
}

func TestLoader_ReloadUnknownPathLoads(t *testing.T) {
	l, reg, dir := newTestLoader(t)
	p := writeFile(t, filepath.Join(dir, "x.json"), `{"name": "hey", "handler": "reply", "reply": "hey!"}`)

	d, err := l.Reload(p)
	require.NoError(t, err)
	assert.Equal(t, "hey!", d.Reply)
	assert.Equal(t, 1, reg.Len())
}

func TestLoader_Unload(t *testing.T) {
	l, reg, dir := newTestLoader(t)
	p := writeFile(t, filepath.Join(dir, "ping.yaml"), "name: ping\naliases: [p]\nhandler: ping\n")
	_, err := l.Load(p)
	require.NoError(t, err)

	assert.True(t, l.Unload(p))
	assert.False(t, l.Unload(p))
	assert.False(t, l.Unload(filepath.Join(dir, "never.yaml")))

	_, ok := reg.Resolve("p")
	assert.False(t, ok)
	assert.Empty(t, l.NameFor(p))
}

func TestLoader_PathLocksAreReleased(t *testing.T) {
	l, _, dir := newTestLoader(t)
	for i := range 20 {
		p := writeFile(t, filepath.Join(dir, fmt.Sprintf("edit%d.yaml", i)), "name: ping\nhandler: ping\n")
		_, _ = l.Load(p)
		_, _ = l.Reload(p)
		l.Unload(p)
	}

	var wg sync.WaitGroup
	p := writeFile(t, filepath.Join(dir, "ping.yaml"), "name: ping\nhandler: ping\n")
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.Reload(p)
		}()
	}
	wg.Wait()
	l.Unload(p)

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.locks)
}

func TestLoader_LoadAll(t *testing.T) {
	l, reg, dir := newTestLoader(t)
	writeFile(t, filepath.Join(dir, "utility", "ping.yaml"), "name: ping\nhandler: ping\n")
	writeFile(t, filepath.Join(dir, "utility", "help.yml"), "name: help\naliases: [h]\nhandler: help\n")
	writeFile(t, filepath.Join(dir, "fun", "hello.json"), `{"name":"hello","handler":"reply","reply":"hi"}`)
	writeFile(t, filepath.Join(dir, "fun", "broken.yaml"), "name: broken\n")
	writeFile(t, filepath.Join(dir, "fun", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, ".hidden", "x.yaml"), "name: hidden\nhandler: reply\n")
	writeFile(t, filepath.Join(dir, "zz", "ping.yaml"), "name: ping\nhandler: reply\n")

	loaded, errs := l.LoadAll(context.Background(), dir)
	assert.Equal(t, 3, loaded)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], ErrInvalidDescriptor)
	assert.ErrorIs(t, errs[1], ErrNameConflict)

	assert.Equal(t, []string{"Fun", "Utility"}, reg.Categories())
	_, ok := reg.Resolve("hidden")
	assert.False(t, ok)

	d, _ := reg.Resolve("ping")
	assert.Equal(t, "Utility", d.Category)
}

func TestIsDescriptorFile(t *testing.T) {
	assert.True(t, IsDescriptorFile("/x/ping.yaml"))
	assert.True(t, IsDescriptorFile("/x/ping.YML"))
	assert.True(t, IsDescriptorFile("ping.json"))
	assert.False(t, IsDescriptorFile("/x/.ping.yaml"))
	assert.False(t, IsDescriptorFile("/x/ping.yaml~"))
	assert.False(t, IsDescriptorFile("/x/ping.go"))
}

func TestCategoryFor(t *testing.T) {
	root := filepath.Join("srv", "commands")
	assert.Equal(t, "Admin", CategoryFor(root, filepath.Join(root, "admin", "owners.yaml")))
	assert.Equal(t, "Deep", CategoryFor(root, filepath.Join(root, "admin", "deep", "owners.yaml")))
	assert.Equal(t, "Moderation", CategoryFor(root, filepath.Join(root, "admin", "moderation", "ban.yaml")))
	assert.Equal(t, DefaultCategory, CategoryFor(root, filepath.Join(root, "owners.yaml")))
	assert.Equal(t, DefaultCategory, CategoryFor(root, filepath.Join("elsewhere", "owners.yaml")))
}
