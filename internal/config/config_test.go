package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "token", cfg.DiscordToken)
	assert.Equal(t, "commands", cfg.CommandsDir)
	assert.Equal(t, "+", cfg.DefaultPrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, time.Minute, cfg.CooldownSweepInterval)
	assert.Equal(t, 30*time.Second, cfg.HandlerTimeout)
	assert.Equal(t, 0x3498db, cfg.EmbedColor)
	assert.Empty(t, cfg.DeveloperIDs)
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("DEFAULT_PREFIX", "!")
	t.Setenv("DEVELOPER_IDS", "1,2")
	t.Setenv("OWNER_IDS", "3")
	t.Setenv("WATCH_DEBOUNCE", "1s")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "!", cfg.DefaultPrefix)
	assert.Equal(t, []string{"1", "2"}, cfg.DeveloperIDs)
	assert.Equal(t, []string{"3"}, cfg.OwnerIDs)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.True(t, IsDeveloper(cfg, "2"))
	assert.False(t, IsDeveloper(cfg, "3"))
	assert.False(t, IsDeveloper(nil, "1"))
}

func TestNew_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"missing token":  {"DISCORD_TOKEN": ""},
		"long prefix":    {"DISCORD_TOKEN": "t", "DEFAULT_PREFIX": "toolong"},
		"bad duration":   {"DISCORD_TOKEN": "t", "HANDLER_TIMEOUT": "soon"},
		"zero timeout":   {"DISCORD_TOKEN": "t", "HANDLER_TIMEOUT": "0s"},
		"color overflow": {"DISCORD_TOKEN": "t", "EMBED_COLOR": "99999999"},
	}

	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEMPLATPREFIX_TEST_VAR=hello\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TEMPLATPREFIX_TEST_VAR") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "hello", os.Getenv("TEMPLATPREFIX_TEST_VAR"))
}
