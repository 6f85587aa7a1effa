// Package cache provides the path-keyed listing cache used by federated
// stores.
//
// Every mutating store operation must explicitly invalidate the cache entry
// for the object's own path and its parent path (both old and new parents for
// move/copy). Invalidation is reset-not-refresh: the next read recomputes
// from the provider.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// PathCache is a TTL + LRU cache keyed by provider paths.
//
// Thread Safety:
// All operations are protected by a mutex for safe concurrent use.
type PathCache struct {
	ttl        time.Duration
	maxEntries int

	mu      sync.Mutex
	byKey   map[string]*list.Element
	lruList *list.List

	hits   uint64
	misses uint64
}

type pathEntry struct {
	key       string
	value     any
	timestamp time.Time
}

// Config holds cache tuning parameters.
type Config struct {
	// TTL is how long cached entries remain valid. Zero disables caching.
	TTL time.Duration

	// MaxEntries limits the cache size; least recently used entries are
	// evicted first.
	MaxEntries int
}

// DefaultConfig returns production-ready cache settings.
func DefaultConfig() Config {
	return Config{
		TTL:        time.Minute,
		MaxEntries: 1000,
	}
}

// New creates a PathCache with the given configuration.
func New(cfg Config) *PathCache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	return &PathCache{
		ttl:        cfg.TTL,
		maxEntries: cfg.MaxEntries,
		byKey:      make(map[string]*list.Element),
		lruList:    list.New(),
	}
}

// Get returns the cached value for key if present and unexpired.
func (c *PathCache) Get(key string) (any, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.byKey[key]
	if !ok {
		c.misses++
		return nil, false
	}

	ent := elem.Value.(*pathEntry)
	if time.Since(ent.timestamp) > c.ttl {
		c.removeLocked(elem)
		c.misses++
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	c.hits++
	return ent.value, true
}

// Put stores a value under key, evicting the least recently used entry when
// the cache is full.
func (c *PathCache) Put(key string, value any) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.byKey[key]; ok {
		ent := elem.Value.(*pathEntry)
		ent.value = value
		ent.timestamp = time.Now()
		c.lruList.MoveToFront(elem)
		return
	}

	for c.lruList.Len() >= c.maxEntries {
		oldest := c.lruList.Back()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}

	elem := c.lruList.PushFront(&pathEntry{
		key:       key,
		value:     value,
		timestamp: time.Now(),
	})
	c.byKey[key] = elem
}

// Invalidate removes the entries for the given keys. Missing keys are
// ignored.
func (c *PathCache) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if elem, ok := c.byKey[key]; ok {
			c.removeLocked(elem)
		}
	}
}

// Len returns the number of live entries.
func (c *PathCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Stats returns cumulative hit and miss counts.
func (c *PathCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *PathCache) removeLocked(elem *list.Element) {
	ent := elem.Value.(*pathEntry)
	delete(c.byKey, ent.key)
	c.lruList.Remove(elem)
}
