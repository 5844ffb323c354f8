// Package cache memoizes resolved metadata in memory.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// MetadataCache maps video ids to resolved Metadata. Entries expire after
// the configured TTL; nothing here talks to the network.
type MetadataCache struct {
	cache *gocache.Cache
}

// NewMetadataCache creates a MetadataCache with the given TTL and cleanup interval.
func NewMetadataCache(ttl, cleanupInterval time.Duration) *MetadataCache {
	return &MetadataCache{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// DefaultMetadataCache creates a MetadataCache with a 1 hour TTL and a
// 10 minute cleanup interval.
func DefaultMetadataCache() *MetadataCache {
	return NewMetadataCache(time.Hour, 10*time.Minute)
}

// Get returns the cached metadata for id.
func (c *MetadataCache) Get(id string) (*domain.Metadata, bool) {
	if item, found := c.cache.Get(id); found {
		if meta, ok := item.(*domain.Metadata); ok {
			return meta, true
		}
	}
	return nil, false
}

// Set stores meta under id with the default TTL.
func (c *MetadataCache) Set(id string, meta *domain.Metadata) {
	if id == "" || meta == nil {
		return
	}
	c.cache.Set(id, meta, gocache.DefaultExpiration)
}

// Delete removes id from the cache.
func (c *MetadataCache) Delete(id string) {
	c.cache.Delete(id)
}

// ItemCount returns the number of cached entries, including expired ones
// not yet cleaned up.
func (c *MetadataCache) ItemCount() int {
	return c.cache.ItemCount()
}
