// Package engine implements the hashwalk core: library lifecycle management,
// an operation table keyed by caller-supplied identifiers, concurrent
// directory traversal feeding a shared file-hash worker pool, a consumable
// result queue, and cooperative cancellation. Every public operation reports
// its outcome as a Code; errors never propagate past this surface.
package engine

import (
	"context"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/jamesainslie/hashwalk/pkg/hashwalk/digest"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/hashcache"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logging"
	"github.com/jamesainslie/hashwalk/pkg/hashwalk/logq"
)

// DefaultMaxOpenFiles bounds concurrently open file handles across all
// operations when Config.MaxOpenFiles is unset.
const DefaultMaxOpenFiles = 128

// taskQueueDepth is the buffer of the shared hash-task channel. Walkers block
// (cancellably) when the pool falls this far behind.
const taskQueueDepth = 1024

// Config tunes a new Engine. The zero value is usable.
type Config struct {
	// Digest selects the digest provider. Nil means md5.
	Digest digest.Provider

	// FileWorkers is the size of the shared hashing pool. Zero means
	// runtime.NumCPU().
	FileWorkers int

	// MaxOpenFiles bounds concurrently open file handles across all
	// operations. Zero means DefaultMaxOpenFiles.
	MaxOpenFiles int64

	// Cache, when non-nil, is consulted before hashing and updated after.
	Cache *hashcache.Cache
}

func (c *Config) applyDefaults() {
	if c.Digest == nil {
		c.Digest = digest.MD5()
	}
	if c.FileWorkers <= 0 {
		c.FileWorkers = runtime.NumCPU()
	}
	if c.MaxOpenFiles <= 0 {
		c.MaxOpenFiles = DefaultMaxOpenFiles
	}
}

// Stats reports cumulative counters for the current initialization.
type Stats struct {
	FilesHashed int64
	BytesHashed int64
	CacheHits   int64
}

// task is one unit of per-file hashing work dispatched to the pool.
type task struct {
	op   *operation
	path string
}

// libState is the per-initialization state: created by Init, detached and
// wound down by Terminate. Walkers and workers hold it by reference, so a
// re-Init can never race goroutines from a previous generation.
type libState struct {
	cfg   Config
	queue *logq.Queue
	tasks chan task
	sem   *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	opsMu sync.RWMutex
	ops   map[OperationID]*operation

	walkers sync.WaitGroup
	workers sync.WaitGroup

	filesHashed atomic.Int64
	bytesHashed atomic.Int64
	cacheHits   atomic.Int64
}

// Engine owns the library lifecycle. The zero-configured engine from
// New(Config{}) is uninitialized; every operation other than Init reports
// NotInitialized until Init succeeds.
type Engine struct {
	mu  sync.RWMutex // guards st; entry points read-lock for their duration
	cfg Config
	st  *libState // nil while uninitialized
}

// New creates an uninitialized engine.
func New(cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{cfg: cfg}
}

// Init allocates the operation table, result queue, and worker pool.
// Fails with AlreadyInitialized when called between a successful Init and
// its matching Terminate.
func (e *Engine) Init() Code {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st != nil {
		return AlreadyInitialized
	}

	ctx, cancel := context.WithCancel(context.Background())
	st := &libState{
		cfg:    e.cfg,
		queue:  logq.New(),
		tasks:  make(chan task, taskQueueDepth),
		sem:    semaphore.NewWeighted(e.cfg.MaxOpenFiles),
		ctx:    ctx,
		cancel: cancel,
		ops:    make(map[OperationID]*operation),
	}

	for i := 0; i < st.cfg.FileWorkers; i++ {
		st.workers.Add(1)
		go st.fileWorker()
	}

	e.st = st
	logging.Get("engine").Info("initialized",
		"workers", st.cfg.FileWorkers,
		"max_open_files", st.cfg.MaxOpenFiles,
		"digest", st.cfg.Digest.Name())
	return Ok
}

// Terminate requests cancellation of every outstanding operation, blocks
// until all walkers and workers have quiesced, discards unread result lines,
// and returns the engine to the uninitialized state.
func (e *Engine) Terminate() Code {
	e.mu.Lock()
	if e.st == nil {
		e.mu.Unlock()
		return NotInitialized
	}
	st := e.st
	e.st = nil
	e.mu.Unlock()

	// Stop all traversal; walkers are the only task producers, so the
	// channel can be closed once they have drained out.
	st.cancel()
	st.walkers.Wait()
	close(st.tasks)
	st.workers.Wait()

	if dropped := st.queue.Drain(); dropped > 0 {
		logging.Get("engine").Warn("terminated with unread log lines", "dropped", dropped)
	}
	logging.Get("engine").Info("terminated")
	return Ok
}

// HashDirectory starts an asynchronous hash of every regular file under
// path, registered under the caller-supplied identifier. It returns as soon
// as the traversal is scheduled; results arrive on the shared queue.
// Reusing the identifier of a live operation is rejected; reusing a finished
// one replaces its table entry.
func (e *Engine) HashDirectory(path string, id OperationID) Code {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.st == nil {
		return NotInitialized
	}
	if path == "" {
		return ArgumentNull
	}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return ArgumentInvalid
	}

	st := e.st
	st.opsMu.Lock()
	if prev, ok := st.ops[id]; ok && prev.running() {
		st.opsMu.Unlock()
		return ArgumentInvalid
	}

	opCtx, opCancel := context.WithCancel(st.ctx)
	op := &operation{
		id:     id,
		root:   path,
		token:  uuid.NewString(),
		ctx:    opCtx,
		cancel: opCancel,
	}
	op.state.Store(int32(stateRunning))
	op.pending.Store(1) // the walk itself
	st.ops[id] = op
	st.opsMu.Unlock()

	logging.Get("engine").Info("operation started", "id", uint64(id), "run", op.token, "root", path)

	st.walkers.Add(1)
	go st.walk(op)
	return Ok
}

// Status reports whether the operation still has work in flight. Finished
// operations stay known until Terminate, so polling after completion yields
// running=false rather than ArgumentInvalid.
func (e *Engine) Status(id OperationID) (bool, Code) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.st == nil {
		return false, NotInitialized
	}

	e.st.opsMu.RLock()
	op, ok := e.st.ops[id]
	e.st.opsMu.RUnlock()
	if !ok {
		return false, ArgumentInvalid
	}

	return op.running(), Ok
}

// Stop requests cooperative cancellation: no new work starts for the
// operation, in-flight hashes finish and still deliver their lines.
// Idempotent, including on finished operations.
func (e *Engine) Stop(id OperationID) Code {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.st == nil {
		return NotInitialized
	}

	e.st.opsMu.RLock()
	op, ok := e.st.ops[id]
	e.st.opsMu.RUnlock()
	if !ok {
		return ArgumentInvalid
	}

	op.requestStop()
	logging.Get("engine").Info("stop requested", "id", uint64(id), "run", op.token)
	return Ok
}

// ReadNextLogLine pops the oldest result line from the shared queue.
// LogEmpty is a point-in-time answer, not end-of-stream: producers may still
// be pushing.
func (e *Engine) ReadNextLogLine() (string, Code) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.st == nil {
		return "", NotInitialized
	}

	line, ok := e.st.queue.PopLine()
	if !ok {
		return "", LogEmpty
	}
	return line, Ok
}

// Stats snapshots the counters of the current initialization. Zero when
// uninitialized.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.st == nil {
		return Stats{}
	}
	return Stats{
		FilesHashed: e.st.filesHashed.Load(),
		BytesHashed: e.st.bytesHashed.Load(),
		CacheHits:   e.st.cacheHits.Load(),
	}
}
