// Package memorycache is a lock-guarded LRU cache with per-entry TTL.
// Privilege decisions are small, immutable and short-lived, so a plain
// mutex around a list and a map is simple and predictable; there is
// nothing here worth a lock-free structure.
package memorycache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/palisadehq/palisade/pkg/cache"
)

// entryOverheadBytes approximates the fixed cost of one entry beyond
// its key: the list element, the map slot and the decision value. The
// estimate only has to be stable, not exact, since it is compared
// against a budget expressed in the same units.
const entryOverheadBytes = 100

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
	size      int64
}

// Cache is an in-memory LRU with TTL. A Get promotes the entry, so
// under pressure the working set of recently checked principals stays
// resident while stale ones are evicted.
type Cache struct {
	mu sync.Mutex

	index map[string]*list.Element
	lru   *list.List // front = most recent, back = eviction candidate

	maxSize     int64
	ttl         time.Duration
	currentSize int64

	// nil unless metrics collection is enabled
	metrics *counters
}

type counters struct {
	hits      uint64
	misses    uint64
	added     uint64
	evictions uint64
}

// Config holds the cache limits.
type Config struct {
	// MaxSizeBytes bounds the approximate total size of cached
	// entries; least recently used entries are evicted beyond it.
	MaxSizeBytes int64

	// DefaultTTL is the time-to-live applied when Set receives none.
	DefaultTTL time.Duration

	// EnableMetrics turns on hit/miss/eviction counting.
	EnableMetrics bool
}

// New creates a memory cache with the given limits.
func New(config *Config) (*Cache, error) {
	c := &Cache{
		index:   make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: config.MaxSizeBytes,
		ttl:     config.DefaultTTL,
	}
	if config.EnableMetrics {
		c.metrics = &counters{}
	}
	return c, nil
}

// Get returns the entry stored under key, promoting it to most
// recently used. An expired entry is removed and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		c.miss()
		return nil, false
	}

	ent := elem.Value.(*entry)
	if time.Now().After(ent.expiresAt) {
		c.remove(elem)
		c.miss()
		return nil, false
	}

	c.lru.MoveToFront(elem)
	if c.metrics != nil {
		c.metrics.hits++
	}
	return ent.value, true
}

// Set stores value under key with the given TTL (the configured
// default when ttl is zero), evicting least recently used entries
// while the size budget is exceeded.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}
	size := int64(entryOverheadBytes + len(key))

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		ent := elem.Value.(*entry)
		c.currentSize += size - ent.size
		ent.value = value
		ent.expiresAt = time.Now().Add(ttl)
		ent.size = size
		c.lru.MoveToFront(elem)
		return nil
	}

	c.index[key] = c.lru.PushFront(&entry{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
		size:      size,
	})
	c.currentSize += size
	if c.metrics != nil {
		c.metrics.added++
	}

	for c.currentSize > c.maxSize && c.lru.Len() > 0 {
		c.remove(c.lru.Back())
		if c.metrics != nil {
			c.metrics.evictions++
		}
	}
	return nil
}

// Delete removes the entry stored under key, if any.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.remove(elem)
	}
	return nil
}

// Clear drops every entry. Called on configuration reloads, where no
// decision computed under the previous snapshot may be served again.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.index = make(map[string]*list.Element)
	c.lru.Init()
	c.currentSize = 0
	return nil
}

// Close releases resources. The memory cache holds none.
func (c *Cache) Close() error {
	return nil
}

// Metrics returns a snapshot of the cache counters.
func (c *Cache) Metrics() *cache.Metrics {
	if c.metrics == nil {
		return &cache.Metrics{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return &cache.Metrics{
		Hits:        c.metrics.hits,
		Misses:      c.metrics.misses,
		KeysAdded:   c.metrics.added,
		KeysEvicted: c.metrics.evictions,
	}
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the current approximate total size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// miss counts a miss. Caller holds the lock.
func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.misses++
	}
}

// remove unlinks an element. Caller holds the lock.
func (c *Cache) remove(elem *list.Element) {
	c.lru.Remove(elem)
	ent := elem.Value.(*entry)
	delete(c.index, ent.key)
	c.currentSize -= ent.size
}
