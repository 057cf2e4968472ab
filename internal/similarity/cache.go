// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package similarity

import "sync"

// Cache stores similarity values keyed by the exact (a, b) input pair. It is
// safe for concurrent use and never evicts; entries leave only through Clear.
// One Cache is meant to be shared by every adapter in a process.
type Cache struct {
	mu      sync.RWMutex
	entries map[pairKey]float32
}

type pairKey struct{ a, b string }

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[pairKey]float32)}
}

// Get returns the cached similarity for (a, b).
func (c *Cache) Get(a, b string) (float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[pairKey{a, b}]
	return v, ok
}

// Put records the similarity for (a, b).
func (c *Cache) Put(a, b string, v float32) {
	c.mu.Lock()
	c.entries[pairKey{a, b}] = v
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[pairKey]float32)
	c.mu.Unlock()
}

// Len returns the number of cached pairs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
