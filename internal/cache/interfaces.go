package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// Cache is a byte-oriented key/value cache with TTLs. The memory backend
// serves single-instance deployments and the Redis backend shared ones.
type Cache interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes every given key. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	Close() error
}

// CacheError is a sentinel cache error.
type CacheError string

func (e CacheError) Error() string { return string(e) }

// ErrCacheMiss indicates the key was not found in cache.
const ErrCacheMiss CacheError = "cache miss"

// Entry caches one loaded value under a fixed key. Invalidate bumps a
// generation counter; a load that overlaps an invalidation removes what it
// stored, so a stale read never outlives the write that invalidated it.
type Entry struct {
	c   Cache
	key string
	ttl time.Duration
	gen atomic.Uint64
}

// NewEntry binds key on c.
func NewEntry(c Cache, key string, ttl time.Duration) *Entry {
	return &Entry{c: c, key: key, ttl: ttl}
}

// Get returns the cached value, or calls load and caches its result. The
// bool reports a hit. Cache failures fall through to load.
func (e *Entry) Get(ctx context.Context, load func() ([]byte, error)) ([]byte, bool, error) {
	if value, err := e.c.Get(ctx, e.key); err == nil {
		return value, true, nil
	}

	gen := e.gen.Load()
	value, err := load()
	if err != nil {
		return nil, false, err
	}

	_ = e.c.Set(ctx, e.key, value, e.ttl)
	if e.gen.Load() != gen {
		_ = e.c.Delete(ctx, e.key)
	}
	return value, false, nil
}

// Invalidate drops the cached value. Loads already in flight will not
// leave their result behind.
func (e *Entry) Invalidate(ctx context.Context) error {
	e.gen.Add(1)
	return e.c.Delete(ctx, e.key)
}
