package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		input string
		want  Level
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"ERROR", LevelError, true},
		{"bogus", LevelInfo, false},
	}

	for _, tc := range cases {
		level, err := ParseLevel(tc.input)
		if tc.ok {
			require.NoError(t, err, tc.input)
			assert.Equal(t, tc.want, level, tc.input)
		} else {
			assert.ErrorIs(t, err, ErrInvalidLevel, tc.input)
		}
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "debug", LevelDebug.String())
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(42).String())
}

func TestInitAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	err := Init(Config{
		Level: "debug",
		Path:  path,
		Components: map[string]string{
			"engine": "warn",
		},
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, Close()) }()

	logger := Get("engine")
	require.NotNil(t, logger)
	logger.Warn("something happened", "key", "value")

	// Same component returns the same logger.
	assert.Same(t, logger, Get("engine"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "something happened")
}

func TestInit_InvalidLevel(t *testing.T) {
	err := Init(Config{Level: "nope", Path: filepath.Join(t.TempDir(), "x.log")})
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestGet_BeforeInitIsSilent(t *testing.T) {
	// Must not panic and must not create files.
	logger := Get("uninitialized-component")
	logger.Info("dropped")
}

func TestRotatingWriter_RotatesAtMaxSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotate.log")

	w, err := NewRotatingWriter(path, RotationConfig{MaxSize: 64, MaxBackups: 2})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	line := []byte(strings.Repeat("x", 32) + "\n")
	for i := 0; i < 10; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
	}

	backups, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.NotEmpty(t, backups, "expected at least one rotated backup")
	assert.LessOrEqual(t, len(backups), 2, "MaxBackups must cap retained files")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(64))
}
