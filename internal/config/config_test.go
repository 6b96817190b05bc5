package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "inmemory", cfg.Repository.Type)
	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, time.Minute, cfg.Board.SyncInterval)
	assert.Equal(t, 3, cfg.Board.ListRetries)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: "9090"
  request_timeout: 5s
repository:
  type: postgres
database:
  url: postgres://u:p@localhost:5432/tasks
cache:
  enabled: true
  ttl: 1m
board:
  sync_interval: 15s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.GetServerAddr())
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Repository.Type)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 15*time.Second, cfg.Board.SyncInterval)
	// untouched keys keep their defaults
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("TASKBOARD_SERVER_PORT", "7070")
	t.Setenv("TASKBOARD_BOARD_STORE_URL", "http://store:8080")
	t.Setenv("TASKBOARD_BOARD_SYNC_INTERVAL", "30s")
	t.Setenv("TASKBOARD_LOGGING_DEVELOPMENT", "true")
	t.Setenv("TASKBOARD_SERVER_CORS_ORIGINS", "http://a.io,http://b.io")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "http://store:8080", cfg.Board.StoreURL)
	assert.Equal(t, 30*time.Second, cfg.Board.SyncInterval)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, []string{"http://a.io", "http://b.io"}, cfg.Server.CORSOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown repository", body: "repository:\n  type: mongo\n"},
		{name: "postgres without url", body: "repository:\n  type: postgres\n"},
		{name: "zero sync interval", body: "board:\n  sync_interval: 0s\n"},
		{name: "broken yaml", body: "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
