package portfolio

import "sync"

// cacheKey scopes a memoized response. Keys are typed and carry the
// portfolio id and store version explicitly, so invalidation is a direct
// per-portfolio delete and a stale version can never be served (a new
// ingested snapshot bumps the version and simply misses).
type cacheKey struct {
	portfolioID int64
	spec        string
	filter      AssetFilter
	version     uint64
}

// resultCache memoizes assembled responses per (portfolio, period,
// filter, store version). Multiple readers, single writer per entry.
type resultCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]any
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[cacheKey]any)}
}

func (c *resultCache) get(key cacheKey) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *resultCache) put(key cacheKey, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// invalidate drops every entry of one portfolio, regardless of version.
func (c *resultCache) invalidate(portfolioID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.portfolioID == portfolioID {
			delete(c.entries, key)
		}
	}
}

func (c *resultCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
