package catalog

import (
	"context"
	"sync"

	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Cached is a read-through cache in front of another catalog. Catalog data is
// immutable for a session, so entries never expire. Misses are cached too.
type Cached struct {
	backend Catalog

	mu      sync.RWMutex
	entries map[entryKey]cachedEntry
	hits    int
	misses  int
}

type cachedEntry struct {
	entry Entry
	found bool
}

// NewCached wraps backend.
func NewCached(backend Catalog) *Cached {
	return &Cached{
		backend: backend,
		entries: make(map[entryKey]cachedEntry),
	}
}

// Lookup implements Catalog. Backend errors are not cached.
func (c *Cached) Lookup(ctx context.Context, id string, face zone.Face) (Entry, bool, error) {
	key := entryKey{id, face}
	c.mu.RLock()
	ce, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return ce.entry, ce.found, nil
	}

	e, found, err := c.backend.Lookup(ctx, id, face)
	if err != nil {
		return Entry{}, false, err
	}

	c.mu.Lock()
	c.misses++
	c.entries[key] = cachedEntry{entry: e, found: found}
	c.mu.Unlock()
	return e, found, nil
}

// Stats returns the hit and miss counts.
func (c *Cached) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Purge drops every cached entry.
func (c *Cached) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[entryKey]cachedEntry)
}
