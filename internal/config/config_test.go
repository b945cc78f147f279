package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.example.com/api
  timeout_seconds: 10
auth:
  email: user@example.com
  password: secret
  expiry_seconds: 3600
poll:
  schedule: "@every 1m"
exporter:
  enabled: true
  port: 9000
timezone: Europe/Berlin
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "user@example.com", cfg.Auth.Email)
	assert.Equal(t, "secret", cfg.Auth.Password)
	assert.Equal(t, time.Hour, cfg.SessionExpiry())
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "@every 1m", cfg.Poll.Schedule)
	assert.True(t, cfg.Exporter.Enabled)
	assert.Equal(t, 9000, cfg.Exporter.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  email: user@example.com
  password: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Hour, cfg.SessionExpiry())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, "@every 30s", cfg.Poll.Schedule)
	assert.False(t, cfg.Exporter.Enabled)
	assert.Equal(t, 9435, cfg.Exporter.Port)
	assert.Equal(t, "Local", cfg.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_GSE_PASSWORD", "from-env")
	path := writeConfig(t, `
auth:
  email: user@example.com
  password: ${TEST_GSE_PASSWORD}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.Password)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("GSE_EMAIL", "override@example.com")
	t.Setenv("GSE_PASSWORD", "override-secret")
	path := writeConfig(t, `
auth:
  email: user@example.com
  password: secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "override@example.com", cfg.Auth.Email)
	assert.Equal(t, "override-secret", cfg.Auth.Password)
}

func TestLoadMissingCredentials(t *testing.T) {
	path := writeConfig(t, `
api:
  timeout_seconds: 10
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.email and auth.password are required")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "auth: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}
