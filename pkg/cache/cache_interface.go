package cache

import (
	"context"
	"time"
)

// Cache is the contract for the fast-path key/value layer. Implementations
// must be safe for concurrent use; the backing store is not the source of
// truth for anything, losing a key only costs a database round trip.
type Cache interface {
	// Get unmarshals the cached value into dest.
	// found = false means cache miss and dest is untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// SetNX stores a value only if the key does not exist yet.
	// Returns true when this call claimed the key.
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)

	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes keys.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifies the connection.
	Ping(ctx context.Context) error
}
