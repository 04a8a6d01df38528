package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent or expired
var ErrNotFound = errors.New("cache: entry not found")

// Cache is the interface for caching serialized values.
// Entries expire after the lifetime the implementation was configured with.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from cache. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from cache.
	Clear(ctx context.Context) error

	// Close releases resources held by the cache.
	Close() error

	// Metrics returns cache statistics.
	Metrics() *Metrics
}

// Metrics holds cache performance statistics.
type Metrics struct {
	// Hits is the number of cache hits
	Hits uint64

	// Misses is the number of cache misses
	Misses uint64

	// Entries is the number of entries currently stored
	Entries uint64

	// Evictions is the number of entries removed by expiry or memory pressure
	Evictions uint64
}

// HitRate returns the cache hit rate (0.0 to 1.0).
func (m *Metrics) HitRate() float64 {
	total := m.Hits + m.Misses
	if total == 0 {
		return 0.0
	}
	return float64(m.Hits) / float64(total)
}
