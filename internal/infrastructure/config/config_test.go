package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedEnv = []string{
	"BACKEND_URL", "BACKEND_WS_URL", "BACKEND_TIMEOUT", "BACKEND_RPS", "BACKEND_USER_ID",
	"WS_HANDSHAKE_TIMEOUT", "WS_IDLE_TIMEOUT", "WS_READ_LIMIT",
	"HISTORY_LIMIT", "PORT", "HOST", "LOG_LEVEL", "LOG_DEV",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_ENABLED",
}

// clearEnv unsets every variable the config reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	// Backend config
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Empty(t, cfg.Backend.WebSocketURL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout.Duration)
	assert.Zero(t, cfg.Backend.RequestsPerSecond)

	// Channel config
	assert.Equal(t, 10*time.Second, cfg.Channel.HandshakeTimeout.Duration)
	assert.Equal(t, 90*time.Second, cfg.Channel.IdleTimeout.Duration)
	assert.Equal(t, int64(1<<20), cfg.Channel.ReadLimit)

	assert.Equal(t, 5, cfg.History.Limit)
	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	clearEnv(t)
	envVars := map[string]string{
		"BACKEND_URL":          "https://apk.example.com",
		"BACKEND_WS_URL":       "wss://live.example.com",
		"BACKEND_TIMEOUT":      "5s",
		"BACKEND_RPS":          "2.5",
		"BACKEND_USER_ID":      "user-1",
		"WS_HANDSHAKE_TIMEOUT": "3s",
		"WS_IDLE_TIMEOUT":      "1m",
		"HISTORY_LIMIT":        "10",
		"PORT":                 "9000",
		"LOG_LEVEL":            "debug",
		"LOG_DEV":              "true",
		"RATE_LIMIT_ENABLED":   "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://apk.example.com", cfg.Backend.URL)
	assert.Equal(t, "wss://live.example.com", cfg.Backend.WebSocketURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout.Duration)
	assert.Equal(t, 2.5, cfg.Backend.RequestsPerSecond)
	assert.Equal(t, "user-1", cfg.Backend.UserID)
	assert.Equal(t, 3*time.Second, cfg.Channel.HandshakeTimeout.Duration)
	assert.Equal(t, time.Minute, cfg.Channel.IdleTimeout.Duration)
	assert.Equal(t, 10, cfg.History.Limit)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad duration", key: "BACKEND_TIMEOUT", value: "soon"},
		{name: "zero history limit", key: "HISTORY_LIMIT", value: "0"},
		{name: "negative rps", key: "BACKEND_RPS", value: "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault never fails
			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestLoadFileYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "genctl.yaml")
	content := `backend:
  url: http://backend.internal:8000
  user_id: ci
history:
  limit: 8
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("PORT", "7000")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend.internal:8000", cfg.Backend.URL)
	assert.Equal(t, "ci", cfg.Backend.UserID)
	assert.Equal(t, 8, cfg.History.Limit)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Unset file keys keep environment and defaults
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout.Duration)
}

func TestLoadFileTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "genctl.toml")
	content := `[backend]
url = "http://toml.internal:8000"
timeout = "12s"

[history]
limit = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://toml.internal:8000", cfg.Backend.URL)
	assert.Equal(t, 12*time.Second, cfg.Backend.Timeout.Duration)
	assert.Equal(t, 3, cfg.History.Limit)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	ini := filepath.Join(dir, "genctl.ini")
	require.NoError(t, os.WriteFile(ini, []byte("url=x"), 0o600))
	_, err = LoadFile(ini)
	assert.ErrorContains(t, err, "unsupported config file format")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("history:\n  limit: 0\n"), 0o600))
	_, err = LoadFile(bad)
	assert.ErrorContains(t, err, "history limit")
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 250ms ")))
	assert.Equal(t, 250*time.Millisecond, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "250ms", string(text))

	assert.Error(t, d.UnmarshalText([]byte("abc")))
}
