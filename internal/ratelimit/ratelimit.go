// Package ratelimit implements the token bucket guarding the redeem endpoint.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter takes one token from the bucket named by key.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// Config is a refill rate in tokens per second and a bucket size.
type Config struct {
	Rate  float64
	Burst int
}

func (c Config) validate() error {
	if c.Rate <= 0 {
		return errors.New("rate limiter rate must be positive")
	}
	if c.Burst <= 0 {
		return errors.New("rate limiter burst must be positive")
	}
	return nil
}

// bucketTTL is how long an idle bucket is kept: long enough to refill fully.
func (c Config) bucketTTL() time.Duration {
	ttl := time.Duration(float64(c.Burst)/c.Rate*float64(time.Second)) + time.Second
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// retryAfter is the time until one whole token is available.
func (c Config) retryAfter(tokens float64) time.Duration {
	needed := 1 - tokens
	if needed <= 0 {
		return 0
	}
	return time.Duration(math.Ceil(needed / c.Rate * float64(time.Second)))
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Memory is an in-process limiter for single-instance deployments, one
// rate.Limiter per key.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemory creates an in-process limiter.
func NewMemory(cfg Config) (*Memory, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Memory{cfg: cfg, now: time.Now, buckets: make(map[string]*bucket)}, nil
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, errors.New("rate limiter key is empty")
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.evict(now)

	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(m.cfg.Rate), m.cfg.Burst)}
		m.buckets[key] = b
	}
	b.seen = now

	res := &Result{Limit: m.cfg.Burst}
	r := b.lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay == 0 {
		res.Allowed = true
	} else {
		r.CancelAt(now)
		res.RetryAfter = delay
	}
	res.Remaining = int(b.lim.TokensAt(now))
	return res, nil
}

// evict drops idle buckets. Callers hold mu.
func (m *Memory) evict(now time.Time) {
	ttl := m.cfg.bucketTTL()
	for k, b := range m.buckets {
		if now.Sub(b.seen) > ttl {
			delete(m.buckets, k)
		}
	}
}
