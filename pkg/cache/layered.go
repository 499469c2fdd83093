package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Service, usually Redis).
type LayeredCache struct {
	memCache *MemoryCache
	backing  Service
	l1TTL    time.Duration
}

// LayeredOption configures the memory tier of a LayeredCache.
type LayeredOption func(*layeredSettings)

type layeredSettings struct {
	size int
	ttl  time.Duration
}

// WithLayeredMemorySize bounds the number of keys held in L1.
func WithLayeredMemorySize(size int) LayeredOption {
	return func(s *layeredSettings) {
		if size > 0 {
			s.size = size
		}
	}
}

// WithLayeredMemoryTTL caps how long a value read from the backing store stays in L1.
func WithLayeredMemoryTTL(ttl time.Duration) LayeredOption {
	return func(s *layeredSettings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewLayeredCache creates a layered cache in front of backing.
func NewLayeredCache(backing Service, opts ...LayeredOption) *LayeredCache {
	s := layeredSettings{size: 1000, ttl: time.Minute}
	for _, opt := range opts {
		opt(&s)
	}

	return &LayeredCache{
		memCache: NewMemoryCache(WithMemoryMaxSize(s.size)),
		backing:  backing,
		l1TTL:    s.ttl,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// Write-through: backing store first, then memory
	if err := lc.backing.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.memCache.Set(ctx, key, value, lc.memoryTTL(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.memCache.Get(ctx, key, dest); err == nil {
		return nil
	}

	if err := lc.backing.Get(ctx, key, dest); err != nil {
		return err
	}

	_ = lc.memCache.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	return lc.backing.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.backing.Exists(ctx, keys...)
}

// TryLock and Unlock bypass L1 so that every replica sees the same lock.
func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.backing.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.backing.Unlock(ctx, key)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	return lc.backing.Close()
}

func (lc *LayeredCache) memoryTTL(expiration time.Duration) time.Duration {
	if expiration > 0 && expiration < lc.l1TTL {
		return expiration
	}
	return lc.l1TTL
}
