// Package hashcache provides Badger DB-backed persistence of file digests.
// Entries are keyed by absolute path and validated by size and modification
// time, so re-hashing an unchanged tree is served from disk instead of
// re-reading file contents.
package hashcache

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix namespaces digest entries so future record types can share the DB.
const keyPrefix = "d:"

// record is the stored value for one file.
type record struct {
	Size   int64  `json:"size"`
	MTime  int64  `json:"mtime"` // UnixNano
	Algo   string `json:"algo"`
	Digest string `json:"digest"`
}

// Stats reports cache effectiveness counters since Open.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is a digest cache backed by Badger DB.
type Cache struct {
	db *badger.DB

	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens or creates a cache at the given directory.
func Open(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's own logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying DB.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached digest for path if the stored size, mtime, and
// algorithm all match. A mismatch counts as a miss and the stale entry is
// left in place to be overwritten by the next Store.
func (c *Cache) Lookup(path string, size, mtime int64, algo string) (string, bool) {
	var rec record

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})

	if err != nil || rec.Size != size || rec.MTime != mtime || rec.Algo != algo {
		c.misses.Add(1)
		return "", false
	}

	c.hits.Add(1)
	return rec.Digest, true
}

// Store records the digest for path at the observed size and mtime.
func (c *Cache) Store(path string, size, mtime int64, algo, digest string) error {
	data, err := json.Marshal(record{
		Size:   size,
		MTime:  mtime,
		Algo:   algo,
		Digest: digest,
	})
	if err != nil {
		return err
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(path), data)
	})
}

// Purge deletes all entries under root. An empty root clears the cache.
func (c *Cache) Purge(root string) error {
	prefix := []byte(keyPrefix)
	if root != "" {
		prefix = key(strings.TrimSuffix(root, string(filepath.Separator)))
	}

	return c.db.DropPrefix(prefix)
}

// Stats returns hit/miss counters accumulated since Open.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}

func key(path string) []byte {
	return []byte(keyPrefix + path)
}
