package shardcache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/asakaida/commerce-api/pkg/cache"
)

// Cache implements cache.Cache on top of bigcache.
// Entries live in sharded byte arenas, so values must be serialized.
type Cache struct {
	store     *bigcache.BigCache
	evictions atomic.Uint64
}

// Config holds configuration for the sharded cache.
type Config struct {
	// TTL is the lifetime of every entry.
	TTL time.Duration

	// Shards is the number of shards (must be a power of two).
	Shards int

	// MaxMemoryMB is the hard size limit in megabytes (0 = unlimited).
	MaxMemoryMB int
}

var _ cache.Cache = (*Cache)(nil)

// New creates a new sharded cache with the given configuration.
func New(ctx context.Context, config *Config) (*Cache, error) {
	if config.TTL <= 0 {
		return nil, fmt.Errorf("cache TTL must be positive, got %s", config.TTL)
	}

	c := &Cache{}

	bc := bigcache.DefaultConfig(config.TTL)
	bc.CleanWindow = cleanWindow(config.TTL)
	bc.HardMaxCacheSize = config.MaxMemoryMB
	bc.Verbose = false
	if config.Shards > 0 {
		bc.Shards = config.Shards
	}
	bc.OnRemoveWithReason = func(key string, entry []byte, reason bigcache.RemoveReason) {
		if reason != bigcache.Deleted {
			c.evictions.Add(1)
		}
	}

	store, err := bigcache.New(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigcache: %w", err)
	}
	c.store = store

	return c, nil
}

// Get retrieves a value from cache.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.store.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entry: %w", err)
	}
	return value, nil
}

// Set stores a value in cache.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.store.Set(key, value); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

// Delete removes a value from cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	err := c.store.Delete(key)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries from cache.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Reset(); err != nil {
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	return nil
}

// Close releases resources held by the cache.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Metrics returns cache statistics.
func (c *Cache) Metrics() *cache.Metrics {
	stats := c.store.Stats()
	return &cache.Metrics{
		Hits:      uint64(stats.Hits),
		Misses:    uint64(stats.Misses),
		Entries:   uint64(c.store.Len()),
		Evictions: c.evictions.Load(),
	}
}

// cleanWindow returns how often expired entries are swept
func cleanWindow(ttl time.Duration) time.Duration {
	if w := ttl / 2; w < time.Minute {
		if w < time.Second {
			return time.Second
		}
		return w
	}
	return time.Minute
}
