package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgconfig "github.com/starford/offnote/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Vault.Enabled())
	assert.False(t, cfg.App.LogFile.Enabled())
	assert.Equal(t, ":8081", cfg.App.HTTP.Address())
	assert.Equal(t, ":8080", cfg.Server.HTTP.Address())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"empty remote url", func(c *Config) { c.Remote.URL = "" }, false},
		{"zero timeout", func(c *Config) { c.Remote.Timeout = 0 }, false},
		{"rate limit disabled", func(c *Config) { c.Remote.RateLimit = RateLimitConfig{} }, true},
		{"rate limit without burst", func(c *Config) { c.Remote.RateLimit.Burst = 0 }, false},
		{"negative rps", func(c *Config) { c.Remote.RateLimit.RPS = -1 }, false},
		{"cron expression", func(c *Config) { c.Sync.Schedule = "*/5 * * * *" }, true},
		{"no schedule", func(c *Config) { c.Sync.Schedule = "" }, true},
		{"bad schedule", func(c *Config) { c.Sync.Schedule = "every so often" }, false},
		{"negative online delay", func(c *Config) { c.Sync.OnlineDelay = -time.Second }, false},
		{"zero probe interval", func(c *Config) { c.Sync.ProbeInterval = 0 }, false},
		{"bad port", func(c *Config) { c.App.HTTP.Port = 70000 }, false},
		{"bad server port", func(c *Config) { c.Server.HTTP.Port = 0 }, false},
		{"no sqlite path", func(c *Config) { c.SQLite.Path = "" }, false},
		{"log file without size", func(c *Config) {
			c.App.LogFile = LogFileConfig{Path: "offnote.log"}
		}, false},
		{"log file", func(c *Config) { c.App.LogFile.Path = "offnote.log" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("OFFNOTE_TEST_REMOTE", "http://notes.example.com:9000/api")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
  http:
    port: 9001
remote:
  url: ${OFFNOTE_TEST_REMOTE}
  timeout: 2s
sync:
  schedule: "@every 1m"
  online_delay: 500ms
vault:
  path: ./vault
`), 0o644))

	cfg := NewDefaultConfig()
	require.NoError(t, pkgconfig.Load(path, cfg))

	assert.Equal(t, slog.LevelDebug, cfg.App.LogLevel)
	assert.Equal(t, 9001, cfg.App.HTTP.Port)
	assert.Equal(t, "http://notes.example.com:9000/api", cfg.Remote.URL)
	assert.Equal(t, 2*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "@every 1m", cfg.Sync.Schedule)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.OnlineDelay)
	assert.Equal(t, 5*time.Second, cfg.Sync.ProbeInterval, "defaults survive")
	assert.True(t, cfg.Vault.Enabled())
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  schedule: nonsense\n"), 0o644))

	err := pkgconfig.Load(path, NewDefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
