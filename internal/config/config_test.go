package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://backend:8000/
  timeout_seconds: 5
server:
  port: 8081
session:
  backend: memory
  file_path: /tmp/innoguard-session.yaml
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:8000", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.TimeoutSeconds)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, ":8081", cfg.Server.Addr())
	assert.Equal(t, "innoguard_session", cfg.Session.CookieName)
	assert.Equal(t, "/tmp/innoguard-session.yaml", cfg.Session.FilePath)
	assert.Equal(t, "/metrics", cfg.Monitoring.MetricsPath)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://backend:8000
`)
	t.Setenv("INNOGUARD_API_URL", "https://api.example.com")
	t.Setenv("INNOGUARD_PORT", "9090")
	t.Setenv("INNOGUARD_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RequiresBaseURL(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 3000
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoad_RejectsUnknownSessionBackend(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://backend:8000
session:
  backend: cookie
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RedisBackendNeedsURL(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://backend:8000
session:
  backend: redis
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.url")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownLogLevel(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: http://backend:8000
log:
  level: loud
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}
