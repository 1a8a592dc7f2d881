// Package logq implements the shared result queue. Every completed file hash
// from every operation lands here as one formatted line; a single consumer
// drains the queue at its own pace. Pushes never block and a pop on an empty
// queue is an immediate "nothing yet", not end-of-stream.
package logq

import "sync"

// Entry is one completed file hash pending consumption.
type Entry struct {
	// Tag is the digest provider name, alphanumeric.
	Tag string

	// Path is the file path as derived from the operation's root argument.
	Path string

	// Digest is 32 lowercase hexadecimal characters.
	Digest string
}

// Line renders the entry in wire format: "<tag> <path> <digest>".
func (e Entry) Line() string {
	return e.Tag + " " + e.Path + " " + e.Digest
}

// Queue is an unbounded FIFO of result entries. Safe for concurrent use by
// many producers and consumers; each pushed entry is popped exactly once.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	head    int
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push appends an entry. Never blocks.
func (q *Queue) Push(e Entry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
}

// PopLine removes and formats the oldest entry. The second return value is
// false when the queue is empty at the time of the call.
func (q *Queue) PopLine() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.entries) {
		return "", false
	}

	e := q.entries[q.head]
	q.head++

	// Reclaim consumed space once the backlog is fully drained or the dead
	// prefix dominates the backing array.
	if q.head == len(q.entries) {
		q.entries = q.entries[:0]
		q.head = 0
	} else if q.head > 1024 && q.head*2 > len(q.entries) {
		q.entries = append(q.entries[:0], q.entries[q.head:]...)
		q.head = 0
	}

	return e.Line(), true
}

// Len reports the number of unconsumed entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries) - q.head
}

// Drain discards all unconsumed entries and reports how many were dropped.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries) - q.head
	q.entries = nil
	q.head = 0
	return n
}
