// Package statcache implements the path-keyed LRU stat cache described in
// spec §4.5: bounded by size, optionally bounded by age, with explicit
// invalidation and transparent growth so a single Listdir of a large
// directory never evicts entries out from under itself.
package statcache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/sschwarzer/ftputil/listparse"
)

// entry pairs a cached record with the time it was inserted, so Get can
// apply the age policy.
type entry struct {
	record     *listparse.Record
	insertedAt time.Time
}

// Cache is a bounded, path-keyed LRU of listparse.Record, mirroring
// backend/ftp/ftp.go's per-Fs connection pool in spirit (a small,
// mutex-guarded piece of shared state the Host owns exclusively) but
// built on golang-lru, the pack's chosen LRU implementation.
type Cache struct {
	mu        sync.Mutex
	lru       *lru.Cache
	sizeLimit int
	maxAge    time.Duration // 0 means "never expires"
	enabled   bool
	now       func() time.Time
}

// New creates a Cache. sizeLimit <= 0 is treated as the spec's default of
// 5000. maxAge <= 0 means entries never expire by age.
func New(sizeLimit int, maxAge time.Duration) *Cache {
	if sizeLimit <= 0 {
		sizeLimit = 5000
	}
	c := &Cache{
		sizeLimit: sizeLimit,
		maxAge:    maxAge,
		enabled:   true,
		now:       time.Now,
	}
	l, err := lru.New(sizeLimit)
	if err != nil {
		// lru.New only errors for size <= 0, which we've already
		// normalized away above.
		panic(err)
	}
	c.lru = l
	return c
}

// Get returns the cached record for path, if present and not expired per
// the age policy. A disabled cache always misses.
func (c *Cache) Get(path string) (*listparse.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return nil, false
	}
	v, ok := c.lru.Get(path)
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if c.maxAge > 0 && c.now().Sub(e.insertedAt) > c.maxAge {
		c.lru.Remove(path)
		return nil, false
	}
	return e.record, true
}

// Put inserts or replaces the cached record for path. A disabled cache
// silently drops the insert.
func (c *Cache) Put(path string, rec *listparse.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	c.lru.Add(path, &entry{record: rec, insertedAt: c.now()})
}

// Invalidate removes path from the cache, if present. Never an error:
// cache misses are not observable failures (spec §7).
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(path)
}

// Clear empties the cache, used by SetTimeShift since every cached mtime
// was computed against the previous shift.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Resize changes the size limit, evicting least-recently-used entries if
// it shrinks below the current contents.
func (c *Cache) Resize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= 0 {
		n = 1
	}
	c.sizeLimit = n
	c.lru.Resize(n)
}

// EnsureCapacity grows the size limit to at least n, if it currently is
// smaller. Called before populating a directory's full entry set so a
// coherent Listdir never gets partially evicted by its own inserts (spec
// §4.5 / §8 scenario 6).
func (c *Cache) EnsureCapacity(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > c.sizeLimit {
		c.sizeLimit = n
		c.lru.Resize(n)
	}
}

// Enable turns the cache back on without discarding its contents.
func (c *Cache) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = true
}

// Disable turns the cache off: Get always misses, Put is a no-op, but
// existing contents are retained so a later Enable sees the same state
// (spec §8: "cache contents equal their state before disable()").
func (c *Cache) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = false
}

// Enabled reports the current enabled/disabled state.
func (c *Cache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
