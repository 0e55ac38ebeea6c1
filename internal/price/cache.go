package price

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/lru"
)

const (
	DefaultTTL       = 5 * time.Minute
	DefaultCacheSize = 500
)

type cacheEntry struct {
	price   float64
	expires time.Time
}

// Cache is a size-bounded LRU of unit prices whose entries expire after a fixed TTL.
// Eviction by size and expiry by age are independent.
type Cache struct {
	mu    sync.Mutex
	items lru.BasicLRU[string, cacheEntry]
	ttl   time.Duration
	now   func() time.Time
}

// NewCache builds a cache; non-positive size or ttl fall back to the defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		items: lru.NewBasicLRU[string, cacheEntry](size),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns a live entry. An entry at or past its expiry is dropped and reported as a miss.
func (c *Cache) Get(key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items.Get(key)
	if !ok {
		return 0, false
	}
	if !c.now().Before(entry.expires) {
		c.items.Remove(key)
		return 0, false
	}
	return entry.price, true
}

// Set stores a price with a fresh TTL.
func (c *Cache) Set(key string, price float64) {
	c.mu.Lock()
	c.items.Add(key, cacheEntry{price: price, expires: c.now().Add(c.ttl)})
	c.mu.Unlock()
}

// SetMany stores every price under one lock so readers never see a partial batch.
func (c *Cache) SetMany(prices map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(c.ttl)
	for key, price := range prices {
		c.items.Add(key, cacheEntry{price: price, expires: expires})
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.items.Purge()
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}
