package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Point config search away from the developer's real config.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDigest, cfg.Digest)
	assert.Equal(t, int64(DefaultMaxOpenFiles), cfg.MaxOpenFiles)
	assert.Equal(t, DefaultFileWorkers(), cfg.Workers.File)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "warn", cfg.Logging.Components["walker"])
}

func TestLoad_ConfigFile(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	t.Setenv("HOME", t.TempDir())

	appDir := filepath.Join(configDir, "hashwalk")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	yaml := `
digest: blake3
max_open_files: 32
workers:
  file: 2
cache:
  enabled: false
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "blake3", cfg.Digest)
	assert.Equal(t, int64(32), cfg.MaxOpenFiles)
	assert.Equal(t, 2, cfg.Workers.File)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HASHWALK_DIGEST", "blake3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "blake3", cfg.Digest)
}

func TestDefaultCachePath(t *testing.T) {
	assert.Contains(t, DefaultCachePath(), "hashwalk")
}
