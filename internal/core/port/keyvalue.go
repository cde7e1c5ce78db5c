package port

import (
	"context"
	"time"
)

// KeyValueStore exposes the primitive operations the caching and rate-limit
// layers need from the backing key-value engine. Implementations apply the
// process-wide namespace prefix and fail every operation while the backing
// connection is down; callers must treat that as "cache unavailable", never
// as a hard failure of the request being served.
type KeyValueStore interface {
	IsConnected() bool
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	// IncrWindow atomically increments key and, unless the key already has an
	// expiry, applies window as its TTL. The TTL is therefore set at most once
	// per window, even if an earlier caller crashed between increment and
	// expire and left the counter without one.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}
