package dedup

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LinkCache holds link sightings keyed by canonical identity. Lookups never
// promote, and existing keys are never re-added, so the underlying LRU
// evicts in insertion order.
type LinkCache struct {
	entries *lru.Cache[string, Entry[struct{}]]
}

// NewLinkCache creates a cache holding at most size links.
func NewLinkCache(size int) (*LinkCache, error) {
	entries, err := lru.New[string, Entry[struct{}]](size)
	if err != nil {
		return nil, fmt.Errorf("create link cache: %w", err)
	}

	return &LinkCache{entries: entries}, nil
}

// Lookup returns the sighting stored under key.
func (c *LinkCache) Lookup(key string) (Entry[struct{}], bool) {
	return c.entries.Peek(key)
}

// Insert stores a first sighting. It reports false and leaves the cache
// untouched when the key is already present.
func (c *LinkCache) Insert(key string, seen Sighting) bool {
	if c.entries.Contains(key) {
		return false
	}

	c.entries.Add(key, Entry[struct{}]{Key: key, Sighting: seen})

	return true
}

// Len returns the number of cached links.
func (c *LinkCache) Len() int {
	return c.entries.Len()
}

// Keys returns cached keys from oldest to newest.
func (c *LinkCache) Keys() []string {
	return c.entries.Keys()
}

// Clear drops every entry.
func (c *LinkCache) Clear() {
	c.entries.Purge()
}
