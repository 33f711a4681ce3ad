package target

import (
	"context"
	"sync"
)

// Cache memoizes existence checks for the duration of one executor run, so
// the same target declared by several tasks is queried at most once. A
// single goroutine performs the check for a given location; concurrent
// callers for the same location wait for its answer. Errors are not cached:
// an unavailable store may recover, and the check is safe to retry.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mu     sync.Mutex
	done   bool
	exists bool
}

// NewCache creates an empty per-run existence cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*cacheEntry),
	}
}

// Exists answers t.Exists through the cache.
func (c *Cache) Exists(ctx context.Context, t Target) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[t.Location()]
	if !ok {
		entry = &cacheEntry{}
		c.entries[t.Location()] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.done {
		return entry.exists, nil
	}

	exists, err := t.Exists(ctx)
	if err != nil {
		return false, err
	}

	entry.done = true
	entry.exists = exists
	return exists, nil
}

// Size returns the number of memoized locations
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		e.mu.Lock()
		if e.done {
			n++
		}
		e.mu.Unlock()
	}
	return n
}
