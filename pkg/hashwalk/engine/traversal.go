package engine

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/digest"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logging"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logq"
)

// walk enumerates the operation's tree and dispatches one hash task per
// regular file. The walk holds one pending unit of its own; dropping it after
// enumeration lets the last retiring task finalize the operation.
func (s *libState) walk(op *operation) {
	defer s.walkers.Done()

	log := logging.Get("walker")
	failed := false

	defer func() {
		if r := recover(); r != nil {
			log.Error("walk panic", "id", uint64(op.id), "run", op.token, "panic", r)
			op.failed.Store(true)
		}
		op.retire()
	}()

	conf := fastwalk.Config{
		Follow: false, // Don't follow symlinks.
	}

	err := fastwalk.Walk(&conf, op.root, func(path string, d fs.DirEntry, walkErr error) error {
		// Cooperative cancellation: stop enumerating, let dispatched
		// hashes finish.
		select {
		case <-op.ctx.Done():
			return op.ctx.Err()
		default:
		}

		// Per-entry failures never abort the operation.
		if walkErr != nil {
			log.Warn("skipping entry", "run", op.token, "path", path, "error", walkErr)
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		op.pending.Add(1)
		select {
		case s.tasks <- task{op: op, path: path}:
		case <-op.ctx.Done():
			op.pending.Add(-1)
			return op.ctx.Err()
		}
		return nil
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		// The traversal itself could not run, e.g. a root that
		// disappeared after validation.
		log.Error("walk failed", "id", uint64(op.id), "run", op.token, "error", err)
		failed = true
	}

	op.failed.Store(failed)
	log.Debug("walk finished", "id", uint64(op.id), "run", op.token, "failed", failed)
}

// fileWorker consumes hash tasks until the channel closes at Terminate.
// Every task retires exactly once, even when skipped or panicking.
func (s *libState) fileWorker() {
	defer s.workers.Done()

	for t := range s.tasks {
		s.runTask(t)
		t.op.retire()
	}
}

// runTask hashes one file and pushes its result line. In-flight and queued
// tasks survive a per-operation stop request; only engine termination skips
// the work outright. Unreadable and vanished files are skipped with a
// diagnostic, never surfaced on the result queue.
func (s *libState) runTask(t task) {
	log := logging.Get("engine")

	defer func() {
		if r := recover(); r != nil {
			log.Error("hash task panic", "run", t.op.token, "path", t.path, "panic", r)
		}
	}()

	if s.ctx.Err() != nil {
		return // terminating
	}

	info, err := os.Lstat(t.path)
	if err != nil || !info.Mode().IsRegular() {
		if err != nil {
			log.Warn("skipping file", "run", t.op.token, "path", t.path, "error", err)
		}
		return
	}

	algo := s.cfg.Digest.Name()
	size := info.Size()
	mtime := info.ModTime().UnixNano()

	if c := s.cfg.Cache; c != nil {
		if hexDigest, ok := c.Lookup(t.path, size, mtime, algo); ok {
			s.cacheHits.Add(1)
			s.deliver(t, hexDigest, size)
			return
		}
	}

	// The semaphore bounds open file handles across all operations.
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		return // terminating
	}
	sum, err := digest.File(s.cfg.Digest, t.path)
	s.sem.Release(1)

	if err != nil {
		log.Warn("skipping unreadable file", "run", t.op.token, "path", t.path, "error", err)
		return
	}

	hexDigest := digest.Hex(sum)
	s.deliver(t, hexDigest, size)

	if c := s.cfg.Cache; c != nil {
		if err := c.Store(t.path, size, mtime, algo, hexDigest); err != nil {
			log.Warn("cache store failed", "path", t.path, "error", err)
		}
	}
}

// deliver pushes one result line and bumps the counters.
func (s *libState) deliver(t task, hexDigest string, size int64) {
	s.queue.Push(logq.Entry{
		Tag:    s.cfg.Digest.Name(),
		Path:   t.path,
		Digest: hexDigest,
	})
	s.filesHashed.Add(1)
	s.bytesHashed.Add(size)
}
