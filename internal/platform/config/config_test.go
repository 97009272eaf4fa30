package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad_DefaultValues tests that hardcoded defaults are applied correctly.
func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "quotedeck", cfg.App.Name)
	assert.Equal(t, "local", cfg.App.Environment)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DefaultRemoteURL, cfg.Quotes.RemoteURL)
	assert.Equal(t, "./data", cfg.Quotes.DataDir)
	assert.Equal(t, DefaultRepeatDelay, cfg.Quotes.RepeatDelay)
	assert.Zero(t, cfg.Quotes.HistoryLimit)
	assert.Equal(t, DefaultPostHour, cfg.Schedule.PostHour)
	assert.Equal(t, time.Minute, cfg.Schedule.CheckInterval)
	assert.Equal(t, PublisherLog, cfg.Publisher.Kind)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, DefaultLogFileMaxSizeMB, cfg.Log.File.MaxSizeMB)
	assert.Equal(t, DefaultLogFileMaxBackups, cfg.Log.File.MaxBackups)

	require.NoError(t, cfg.Validate(), "defaults must be valid")
}

// TestLoad_EnvVarOverrides tests that environment variables override defaults,
// including keys whose names contain underscores.
func TestLoad_EnvVarOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_LOG_LEVEL", "warn")
	t.Setenv("APP_QUOTES_REPEAT_DELAY", "50")
	t.Setenv("APP_QUOTES_DATA_DIR", "/var/lib/quotedeck")
	t.Setenv("APP_SCHEDULE_POST_HOUR", "9")
	t.Setenv("APP_LOG_FILE_MAX_BACKUPS", "7")
	t.Setenv("APP_TELEMETRY_ENABLED", "true")

	cfg, err := LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 50, cfg.Quotes.RepeatDelay)
	assert.Equal(t, "/var/lib/quotedeck", cfg.Quotes.DataDir)
	assert.Equal(t, 9, cfg.Schedule.PostHour)
	assert.Equal(t, 7, cfg.Log.File.MaxBackups)
	assert.True(t, cfg.Telemetry.Enabled)
}

// TestLoad_ProfileOverridesBase tests file precedence.
func TestLoad_ProfileOverridesBase(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
quotes:
  repeat_delay: 10
  data_dir: /srv/base
publisher:
  kind: webhook
  webhook_url: https://chat.example.com/hooks/abc
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prod.yaml"), []byte(`
quotes:
  data_dir: /srv/prod
`), 0o644))

	cfg, err := LoadFrom(dir, "prod")
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Quotes.RepeatDelay)
	assert.Equal(t, "/srv/prod", cfg.Quotes.DataDir)
	assert.Equal(t, PublisherWebhook, cfg.Publisher.Kind)
	assert.Equal(t, "https://chat.example.com/hooks/abc", cfg.Publisher.WebhookURL)
}

// TestLoad_NonExistentProfile tests that a missing profile file doesn't cause errors.
func TestLoad_NonExistentProfile(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "nonexistent")
	require.NoError(t, err)

	assert.Equal(t, "quotedeck", cfg.App.Name)
}

// TestLoad_MalformedFile tests that a broken YAML file is reported.
func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("quotes: [unclosed"), 0o644))

	_, err := LoadFrom(dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading base config")
}

func TestEnvKeyMapper(t *testing.T) {
	mapper := envKeyMapper(defaults())

	assert.Equal(t, "quotes.history_limit", mapper("APP_QUOTES_HISTORY_LIMIT"))
	assert.Equal(t, "client.transport.max_idle_conns_per_host", mapper("APP_CLIENT_TRANSPORT_MAX_IDLE_CONNS_PER_HOST"))
	assert.Equal(t, "unknown.nested.key", mapper("APP_UNKNOWN_NESTED_KEY"))
}
