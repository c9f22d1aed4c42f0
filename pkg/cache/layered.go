package cache

import (
	"context"
	"time"

	"github.com/creasty/defaults"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis). Without
// an L2 it is a plain memory cache.
type LayeredCache struct {
	memCache *MemoryCache
	l2       Service
	memTTL   time.Duration
}

// NewLayeredCache creates a layered cache in front of l2, which may be nil.
func NewLayeredCache(l2 Service, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	_ = defaults.Set(cfg)

	return &LayeredCache{
		memCache: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize), WithMemoryTTL(cfg.MemoryTTL)),
		l2:       l2,
		memTTL:   cfg.MemoryTTL,
	}
}

func (lc *LayeredCache) l1TTL(expiration time.Duration) time.Duration {
	if expiration <= 0 || expiration > lc.memTTL {
		return lc.memTTL
	}
	return expiration
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	// Write-through: L2 first, then memory
	if lc.l2 != nil {
		if err := lc.l2.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return lc.memCache.Set(ctx, key, value, lc.l1TTL(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest any) error {
	if err := lc.memCache.Get(ctx, key, dest); err == nil {
		return nil
	}
	if lc.l2 == nil {
		return ErrCacheMiss
	}
	if err := lc.l2.Get(ctx, key, dest); err != nil {
		return err
	}
	// Store in memory for next time
	_ = lc.memCache.Set(ctx, key, dest, lc.memTTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.l2 == nil {
		return nil
	}
	return lc.l2.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.memCache.Exists(ctx, keys...); ok || lc.l2 == nil {
		return ok, nil
	}
	return lc.l2.Exists(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if c, ok := lc.l2.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var _ Service = (*LayeredCache)(nil)
