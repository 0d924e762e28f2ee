// Package cache defines the in-process memo cache port used by fallback
// parent resolution.
package cache

import (
	"context"
	"time"
)

// Cache is a concurrency-safe byte cache.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close()
}
