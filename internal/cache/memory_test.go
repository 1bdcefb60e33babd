package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c.removeExpired()
	assert.Empty(t, c.entries)
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	require.NoError(t, c.Delete(ctx, "a", "b", "missing"))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestEntryLoadsOnce(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()
	e := NewEntry(c, "k", time.Minute)

	calls := 0
	load := func() ([]byte, error) {
		calls++
		return []byte("fresh"), nil
	}

	v, hit, err := e.Get(ctx, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("fresh"), v)

	v, hit, err = e.Get(ctx, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("fresh"), v)
	assert.Equal(t, 1, calls)

	require.NoError(t, e.Invalidate(ctx))
	_, hit, err = e.Get(ctx, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	other := NewEntry(c, "other", time.Minute)
	_, _, err = other.Get(ctx, func() ([]byte, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestEntryDropsLoadOverlappingInvalidate(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	defer c.Close()
	ctx := context.Background()
	e := NewEntry(c, "k", time.Minute)

	_, _, err := e.Get(ctx, func() ([]byte, error) {
		// a writer commits and invalidates while this load is in flight
		require.NoError(t, e.Invalidate(ctx))
		return []byte("stale"), nil
	})
	require.NoError(t, err)

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	v, hit, err := e.Get(ctx, func() ([]byte, error) { return []byte("fresh"), nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("fresh"), v)
}
