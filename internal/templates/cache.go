package templates

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes generated content by key for the lifetime of the process.
// Concurrent misses on the same key share one producer call. Producer
// errors are returned to every waiting caller and are not stored.
//
// Returned slices are shared between callers and must not be modified.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]byte)}
}

// Get returns the content stored under key, calling produce to compute it
// on the first request.
func (c *Cache) Get(key string, produce func() ([]byte, error)) ([]byte, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Double-check inside singleflight: a previous flight may have
		// finished between lookup and Do.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		data, err := produce()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = data
		c.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len returns the number of populated entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}
