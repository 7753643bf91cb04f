package datastore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "nested", "store.json"))
	cfg.AutoSaveInterval = 0
	cfg.Logger = zerolog.Nop()
	return cfg
}

type record struct {
	Prefix string   `json:"prefix"`
	Owners []string `json:"owners"`
}

func TestDataStore_CreatesEmptyFile(t *testing.T) {
	cfg := testConfig(t)
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	raw, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))
}

func TestDataStore_RoundTripThroughFile(t *testing.T) {
	cfg := testConfig(t)
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)

	require.NoError(t, ds.Add("guild", &record{Prefix: "!", Owners: []string{"1"}}))
	require.NoError(t, ds.Close())

	reopened, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	var got record
	ok, err := reopened.Decode("guild", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record{Prefix: "!", Owners: []string{"1"}}, got)

	ok, err = reopened.Decode("missing", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDataStore_DeleteAndKeys(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Add("b", 1))
	require.NoError(t, ds.Add("a", 2))
	assert.Equal(t, []string{"a", "b"}, ds.Keys())

	ds.Delete("a")
	_, ok := ds.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, ds.Stats()["keys"])
}

func TestDataStore_MemoryLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxMemorySize = 10
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Add("k", "abc"))
	assert.Error(t, ds.Add("big", "this value is far too long"))
	_, ok := ds.Get("big")
	assert.False(t, ok)
}

func TestDataStore_ClosedStore(t *testing.T) {
	ds, err := NewWithConfig(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	assert.ErrorIs(t, ds.Add("k", 1), ErrClosed)
	assert.ErrorIs(t, ds.SaveToFile(), ErrClosed)
	_, ok := ds.Get("k")
	assert.False(t, ok)
}

func TestDataStore_InvalidFile(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755))
	require.NoError(t, os.WriteFile(cfg.FilePath, []byte("{not json"), 0o644))

	_, err := NewWithConfig(cfg)
	assert.Error(t, err)

	_, err = NewWithConfig(nil)
	assert.Error(t, err)
	_, err = NewWithConfig(&Config{})
	assert.Error(t, err)
}

func TestDataStore_BackupsAreRotated(t *testing.T) {
	cfg := testConfig(t)
	cfg.BackupCount = 2
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ds.Add("n", i))
		require.NoError(t, ds.SaveToFile())
	}

	backups, err := filepath.Glob(cfg.FilePath + ".backup.*")
	require.NoError(t, err)
	assert.Len(t, backups, 2)

	raw, err := os.ReadFile(cfg.FilePath)
	require.NoError(t, err)
	var doc map[string]int
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 4, doc["n"])
}

func TestDataStore_AutoSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoSaveInterval = 10 * time.Millisecond
	ds, err := NewWithConfig(cfg)
	require.NoError(t, err)
	defer ds.Close()

	require.NoError(t, ds.Add("k", "v"))
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(cfg.FilePath)
		return err == nil && json.Valid(raw) && string(raw) != "{}"
	}, time.Second, 10*time.Millisecond)
}
