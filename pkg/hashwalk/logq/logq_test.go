package logq

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New()
	q.Push(Entry{Tag: "md5", Path: "a.txt", Digest: "00000000000000000000000000000001"})
	q.Push(Entry{Tag: "md5", Path: "b.txt", Digest: "00000000000000000000000000000002"})

	line, ok := q.PopLine()
	require.True(t, ok)
	assert.Equal(t, "md5 a.txt 00000000000000000000000000000001", line)

	line, ok = q.PopLine()
	require.True(t, ok)
	assert.Equal(t, "md5 b.txt 00000000000000000000000000000002", line)

	_, ok = q.PopLine()
	assert.False(t, ok)
}

func TestQueue_EmptyPop(t *testing.T) {
	q := New()
	line, ok := q.PopLine()
	assert.False(t, ok)
	assert.Empty(t, line)
	assert.Zero(t, q.Len())
}

func TestQueue_ExactlyOnceUnderConcurrency(t *testing.T) {
	const producers = 8
	const perProducer = 500

	q := New()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(Entry{
					Tag:    "md5",
					Path:   fmt.Sprintf("p%d/f%d", p, i),
					Digest: "0123456789abcdef0123456789abcdef",
				})
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for {
		line, ok := q.PopLine()
		if !ok {
			break
		}
		assert.False(t, seen[line], "duplicate line: %s", line)
		seen[line] = true
	}

	assert.Len(t, seen, producers*perProducer)
}

func TestQueue_PerProducerOrder(t *testing.T) {
	q := New()
	for i := 0; i < 100; i++ {
		q.Push(Entry{Tag: "md5", Path: fmt.Sprintf("f%03d", i), Digest: "0123456789abcdef0123456789abcdef"})
	}

	prev := ""
	for {
		line, ok := q.PopLine()
		if !ok {
			break
		}
		assert.Greater(t, line, prev)
		prev = line
	}
}

func TestQueue_Drain(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.Push(Entry{Tag: "md5", Path: "x", Digest: "0123456789abcdef0123456789abcdef"})
	}

	_, ok := q.PopLine()
	require.True(t, ok)

	assert.Equal(t, 9, q.Drain())
	assert.Zero(t, q.Len())

	_, ok = q.PopLine()
	assert.False(t, ok)
}
