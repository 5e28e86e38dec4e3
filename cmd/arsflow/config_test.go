package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))

	assert.Equal(t, ":4080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "http://localhost:4080", cfg.BaseURL)
	require.NotEmpty(t, cfg.Engines)
	assert.Equal(t, "piper", cfg.Engines[0].Name)
}

func TestLoadConfigSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"listen_addr": ":9000",
		"log_level": "debug",
		"token": "secret"
	}`), 0o644))

	cfg := loadConfigFrom(path)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"listen_addr": ":9000"}`), 0o644))

	t.Setenv("ARSFLOW_LISTEN_ADDR", ":7000")
	t.Setenv("ARSFLOW_LOG_LEVEL", "warn")
	t.Setenv("ARSFLOW_DB_PATH", "/tmp/x.db")

	cfg := loadConfigFrom(path)
	assert.Equal(t, ":7000", cfg.ListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
}
