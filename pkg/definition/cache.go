package definition

import (
	"sync"
	"time"
)

// Cache keeps loaded definitions for the life of the process. An entry is only served
// while the source modification time still matches the one it was loaded with.
// Cached definitions are immutable and shared between goroutines.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	value   any
}

// NewCache creates an empty cache. Build one at process start and pass it to the loaders.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func cacheKey(kind, key string) string {
	return kind + ":" + key
}

// Get returns the cached value when it was loaded from a source with the same modification time.
func (c *Cache) Get(kind, key string, modTime time.Time) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey(kind, key)]
	if !ok || !entry.modTime.Equal(modTime) {
		return nil, false
	}

	return entry.value, true
}

// Put stores a value under its invalidation key.
func (c *Cache) Put(kind, key string, modTime time.Time, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(kind, key)] = cacheEntry{modTime: modTime, value: value}
}

// Invalidate drops a single entry.
func (c *Cache) Invalidate(kind, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, cacheKey(kind, key))
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
