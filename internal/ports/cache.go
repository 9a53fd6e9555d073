package ports

import (
	"context"
	"time"
)

// KeysetStore caches the raw identity-provider keyset document. Get returns
// nil with no error on a cache miss; Delete is the forced-refresh hook. The
// store must tolerate concurrent refreshes; a duplicate fetch on a race is
// wasteful but not unsafe.
type KeysetStore interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, raw []byte, ttl time.Duration) error
	Delete(ctx context.Context) error
}

// RateLimitStore counts events in fixed windows for sign-in throttling.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}
