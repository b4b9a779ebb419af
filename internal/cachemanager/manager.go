// Package cachemanager provides TTL caches used to avoid re-lexing text that
// has already been highlighted.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a keyed cache with per-entry TTLs.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	ItemCount() int
}
