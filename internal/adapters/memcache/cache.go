package memcache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/samirrijal/citysearch/internal/core/ports"
)

// Cache implements ports.CacheService in process memory. It backs the
// lookup cache when no Valkey instance is configured.
type Cache struct {
	store *gocache.Cache
}

// New creates an in-memory cache; entries without a TTL use defaultTTL.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{store: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return b, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.store.Set(key, value, ttl)
	return nil
}

func (c *Cache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

var _ ports.CacheService = (*Cache)(nil)
