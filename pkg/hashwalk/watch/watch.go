// Package watch re-hashes files that change under previously hashed roots.
// Filesystem events are debounced per directory; each flush starts a fresh
// engine operation on the affected directory, so fresh result lines appear on
// the shared queue. With the digest cache enabled, unchanged siblings are
// served from the cache and only changed content is re-read.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/engine"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logging"
)

// DefaultDebounce is how long a directory must stay quiet before it is
// re-hashed.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches directories for changes and dispatches re-hash operations.
type Watcher struct {
	eng     *engine.Engine
	watcher *fsnotify.Watcher

	// Debounce is the per-directory quiet period. Set before Run.
	Debounce time.Duration

	mu      sync.Mutex
	paths   map[string]bool      // directories with active watches
	pending map[string]time.Time // directory -> earliest flush time
	nextID  engine.OperationID
	closed  bool
}

// New creates a Watcher dispatching into eng. Operation identifiers are
// allocated sequentially starting at firstID; the caller must reserve that
// range for the watcher.
func New(eng *engine.Engine, firstID engine.OperationID) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		eng:      eng,
		watcher:  fsw,
		Debounce: DefaultDebounce,
		paths:    make(map[string]bool),
		pending:  make(map[string]time.Time),
		nextID:   firstID,
	}, nil
}

// Watch starts watching a root recursively. Symlinks are not followed to
// avoid loops.
func (w *Watcher) Watch(root string) error {
	info, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil // Only watch directories
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip entries with errors
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if d.IsDir() {
			return w.addWatch(path)
		}
		return nil
	})
}

// addWatch adds a single directory to the watch list.
func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watch").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// Run processes filesystem events until ctx is cancelled or the watcher is
// closed. Blocking; run it on its own goroutine when combined with other
// work.
func (w *Watcher) Run(ctx context.Context) error {
	log := logging.Get("watch")

	ticker := time.NewTicker(w.Debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event, log)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)

		case now := <-ticker.C:
			w.flushDue(now, log)
		}
	}
}

// handleEvent schedules the affected directory for re-hashing.
func (w *Watcher) handleEvent(event fsnotify.Event, log *logging.Logger) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return // deletions and renames leave nothing to hash
	}

	dir := filepath.Dir(event.Name)

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			// New directory: watch it and hash its contents.
			_ = w.addWatch(event.Name)
			dir = event.Name
		}
	}

	log.Debug("change detected", "path", event.Name, "dir", dir)

	w.mu.Lock()
	w.pending[dir] = time.Now().Add(w.Debounce)
	w.mu.Unlock()
}

// flushDue starts a re-hash operation for every directory whose quiet period
// has elapsed.
func (w *Watcher) flushDue(now time.Time, log *logging.Logger) {
	w.mu.Lock()
	var due []string
	for dir, deadline := range w.pending {
		if !now.Before(deadline) {
			due = append(due, dir)
			delete(w.pending, dir)
		}
	}
	ids := make(map[string]engine.OperationID, len(due))
	for _, dir := range due {
		w.nextID++
		ids[dir] = w.nextID
	}
	w.mu.Unlock()

	for _, dir := range due {
		if code := w.eng.HashDirectory(dir, ids[dir]); code != engine.Ok {
			log.Warn("re-hash dispatch failed", "dir", dir, "code", code.String())
			continue
		}
		log.Info("re-hash started", "dir", dir, "id", uint64(ids[dir]))
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}
