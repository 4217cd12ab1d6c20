// Package view holds a small path-keyed cache for rendered read views
// (dashboard, history). The intake workflow invalidates entries after each
// committed change so those views are rebuilt on next request.
package view

import (
	"sync"
	"time"
)

type entry struct {
	body     []byte
	storedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
}

// NewCache creates a cache. A ttl of zero means entries never expire and
// only invalidation removes them.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: map[string]entry{}}
}

// Get returns the cached body for path, if present and fresh.
func (c *Cache) Get(path string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.storedAt) > c.ttl {
		c.Invalidate(path)
		return nil, false
	}
	return e.body, true
}

// Put stores a rendered body for path.
func (c *Cache) Put(path string, body []byte) {
	c.mu.Lock()
	c.entries[path] = entry{body: body, storedAt: time.Now()}
	c.mu.Unlock()
}

// Invalidate drops the given paths. Missing paths are ignored.
func (c *Cache) Invalidate(paths ...string) {
	c.mu.Lock()
	for _, p := range paths {
		delete(c.entries, p)
	}
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
