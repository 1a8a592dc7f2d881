package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/engine"
)

func TestWatcher_RehashesOnWrite(t *testing.T) {
	eng := engine.New(engine.Config{})
	require.Equal(t, engine.Ok, eng.Init())
	defer eng.Terminate()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one"), 0o644))

	w, err := New(eng, 1000)
	require.NoError(t, err)
	defer w.Close()
	w.Debounce = 50 * time.Millisecond

	require.NoError(t, w.Watch(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("two"), 0o644))

	require.Eventually(t, func() bool {
		_, code := eng.ReadNextLogLine()
		return code == engine.Ok
	}, 10*time.Second, 10*time.Millisecond, "expected a re-hash line after the write")
}

func TestWatcher_WatchNonDirectoryIsNoop(t *testing.T) {
	eng := engine.New(engine.Config{})
	require.Equal(t, engine.Ok, eng.Init())
	defer eng.Terminate()

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	w, err := New(eng, 1)
	require.NoError(t, err)
	defer w.Close()

	assert.NoError(t, w.Watch(file))
}

func TestWatcher_CloseTwice(t *testing.T) {
	eng := engine.New(engine.Config{})
	require.Equal(t, engine.Ok, eng.Init())
	defer eng.Terminate()

	w, err := New(eng, 1)
	require.NoError(t, err)

	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}

func TestWatcher_MissingRoot(t *testing.T) {
	eng := engine.New(engine.Config{})
	require.Equal(t, engine.Ok, eng.Init())
	defer eng.Terminate()

	w, err := New(eng, 1)
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "missing")))
}
