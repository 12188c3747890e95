package yahoo

import (
	"sync"

	"github.com/gregjones/httpcache"
)

var _ httpcache.Cache = (*boundedCache)(nil)

// boundedCache is an httpcache.Cache that holds at most limit responses,
// evicting the oldest insertion first.
type boundedCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string][]byte
	order   []string
}

func newBoundedCache(limit int) *boundedCache {
	return &boundedCache{
		limit:   limit,
		entries: make(map[string][]byte, limit),
	}
}

// Get returns the cached response bytes for key.
func (c *boundedCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	resp, ok := c.entries[key]
	return resp, ok
}

// Set stores resp under key, evicting the oldest entry when full.
func (c *boundedCache) Set(key string, resp []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		for len(c.order) >= c.limit && len(c.order) > 0 {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = resp
}

// Delete removes key.
func (c *boundedCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return
	}
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of cached responses.
func (c *boundedCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
