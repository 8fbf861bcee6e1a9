package quarry

import "time"

// RelationCache holds the eager-loaded relation values of a single model
// instance. The cache is owned exclusively by its instance and therefore
// needs no synchronization; the shared relation descriptors are read-only.
//
// A cache slot has two states: not loaded, and loaded with a value. A
// loaded-but-empty relation (empty slice, nil single value) is a valid
// loaded state and is never confused with a miss. Entries expire only by
// explicit Clear or by the TTL recorded at store time, never implicitly
// on writes.
type RelationCache struct {
	entries map[string]relEntry
}

type relEntry struct {
	value    any
	loadedAt time.Time
	ttl      time.Duration
}

// Store records a loaded relation value. A ttl of zero means the entry
// never expires.
func (c *RelationCache) Store(name string, value any, ttl time.Duration) {
	if c.entries == nil {
		c.entries = make(map[string]relEntry)
	}
	c.entries[name] = relEntry{value: value, loadedAt: time.Now(), ttl: ttl}
}

// Lookup returns the cached value for the relation and whether it is in the
// loaded state. An expired entry behaves as not loaded.
func (c *RelationCache) Lookup(name string) (any, bool) {
	e, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	if e.ttl > 0 && time.Since(e.loadedAt) > e.ttl {
		delete(c.entries, name)
		return nil, false
	}
	return e.value, true
}

// Loaded reports whether the relation is in the loaded state.
func (c *RelationCache) Loaded(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Get returns the cached value, or a NotLoadedError if the relation is not
// in the loaded state. Callers use the error to re-trigger a load instead
// of treating the miss as an empty result.
func (c *RelationCache) Get(name string) (any, error) {
	v, ok := c.Lookup(name)
	if !ok {
		return nil, NewNotLoadedError(name)
	}
	return v, nil
}

// Clear removes a single relation from the cache.
func (c *RelationCache) Clear(name string) {
	delete(c.entries, name)
}

// ClearAll removes every cached relation.
func (c *RelationCache) ClearAll() {
	c.entries = nil
}
