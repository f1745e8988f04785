// Package cache holds lookups that are expensive to repeat, such as
// collection ids resolved on chain.
package cache

import "time"

// Cache is a TTL key-value cache.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns (value, true) if found, (nil, false) if not found.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. Writes are applied asynchronously.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Wait blocks until pending writes are visible to Get.
	Wait()

	// Delete removes a value from the cache.
	Delete(key string)

	// Close releases resources.
	Close()
}
