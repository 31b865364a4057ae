// Package cache provides a TTL cache for venue account reads. Balance and
// position lookups hit external APIs and an RPC node; callers that poll
// frequently go through the cache instead.
package cache

import "time"

// Cache stores venue read results under string keys with per-entry TTLs.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value in the cache with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value from the cache.
	Delete(key string)

	// Clear removes all values from the cache.
	Clear()

	// Close closes the cache and releases resources.
	Close()
}
