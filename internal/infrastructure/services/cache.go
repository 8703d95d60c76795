package services

import (
	"sync"

	"github.com/golang/groupcache/lru"
	"golang.org/x/sync/singleflight"

	"github.com/sophialabs/httpmocker/internal/domain/scenario"
)

// DefaultCacheEntries bounds a ScenarioCache created with a non-positive size.
const DefaultCacheEntries = 256

// ScenarioCache keeps recently decoded scenario files in memory.
// Concurrent misses on one path share a single load.
type ScenarioCache struct {
	mu    sync.Mutex
	lru   *lru.Cache
	group singleflight.Group

	// A load only stores its result if neither counter moved while it ran.
	epoch uint64
	gen   map[string]uint64
}

// NewScenarioCache creates a cache holding up to maxEntries files.
func NewScenarioCache(maxEntries int) *ScenarioCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &ScenarioCache{
		lru: lru.New(maxEntries),
		gen: make(map[string]uint64),
	}
}

// Get returns the matchers cached for path, calling load on a miss.
// Errors reach every waiting caller and are never cached.
func (c *ScenarioCache) Get(path string, load func() ([]scenario.Matcher, error)) ([]scenario.Matcher, error) {
	c.mu.Lock()
	if v, ok := c.lru.Get(path); ok {
		c.mu.Unlock()
		return v.([]scenario.Matcher), nil
	}
	epoch, gen := c.epoch, c.gen[path]
	c.mu.Unlock()

	v, err, _ := c.group.Do(path, func() (any, error) {
		matchers, err := load()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch == epoch && c.gen[path] == gen {
			c.lru.Add(path, matchers)
		}
		c.mu.Unlock()
		return matchers, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]scenario.Matcher), nil
}

// Invalidate drops the given paths.
func (c *ScenarioCache) Invalidate(paths ...string) {
	c.mu.Lock()
	for _, p := range paths {
		c.lru.Remove(p)
		c.gen[p]++
	}
	c.mu.Unlock()
	for _, p := range paths {
		c.group.Forget(p)
	}
}

// Purge drops every entry.
func (c *ScenarioCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
	c.epoch++
	clear(c.gen)
}

// Len returns the number of cached files.
func (c *ScenarioCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
