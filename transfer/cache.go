package transfer

import (
	"fmt"
	"log"

	"github.com/bluele/gcache"

	"github.com/theoremus-urban-solutions/journey-planner/network"
	"github.com/theoremus-urban-solutions/journey-planner/street"
)

// cacheKey is equality on configuration and identity on bulk data: the profile is
// compared by value, rules and graph by pointer.
type cacheKey struct {
	rules   *network.TransferRules
	graph   *street.Graph
	profile street.Profile
}

// Cache is a bounded LRU cache of transfer indexes. It is safe for concurrent use.
// Concurrent requests for the same missing key share a single build.
type Cache struct {
	cache   gcache.Cache
	threads int
}

// NewCache creates a cache holding up to maxSize indexes. Misses are built on up to
// maxThreads goroutines when parallel is set, otherwise on the calling goroutine.
func NewCache(maxSize, maxThreads int, parallel bool) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache{threads: 1}
	if parallel && maxThreads > 0 {
		c.threads = maxThreads
	}
	c.cache = gcache.New(maxSize).
		LRU().
		LoaderFunc(func(k interface{}) (interface{}, error) {
			key := k.(cacheKey)
			log.Printf("adding transfer index to cache: %+v", key.profile)
			return NewIndex(key.rules, key.graph, key.profile, c.threads), nil
		}).
		Build()
	return c
}

// Get returns the index of rules for profile p, building it on a miss.
func (c *Cache) Get(rules *network.TransferRules, g *street.Graph, p street.Profile) (*Index, error) {
	v, err := c.cache.Get(cacheKey{rules: rules, graph: g, profile: p})
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer index from cache: %w", err)
	}
	return v.(*Index), nil
}

// Len returns the number of cached indexes.
func (c *Cache) Len() int { return c.cache.Len(false) }

// HitCount returns the number of lookups served from the cache.
func (c *Cache) HitCount() uint64 { return c.cache.HitCount() }

// MissCount returns the number of lookups that built an index.
func (c *Cache) MissCount() uint64 { return c.cache.MissCount() }
