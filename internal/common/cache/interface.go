package cache

import (
	"context"
	"time"
)

// Cache is the key-value surface used by the judge service: problem lookups
// are cached here and submit rate limits are counted here.
type Cache interface {
	// Get returns "" with a nil error on a miss.
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value. A zero ttl keeps the key forever.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error

	// Incr increments the integer value of a key by 1.
	Incr(ctx context.Context, key string) (int64, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error

	// TTL returns -1 for keys without expiration and -2 for missing keys.
	TTL(ctx context.Context, key string) (time.Duration, error)

	Ping(ctx context.Context) error
	Close() error
}
