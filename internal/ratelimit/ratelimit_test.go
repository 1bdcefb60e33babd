package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBucketDrainsAndRefills(t *testing.T) {
	m, err := NewMemory(Config{Rate: 2, Burst: 3})
	require.NoError(t, err)

	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := m.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := m.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 500*time.Millisecond, res.RetryAfter)

	// other keys have their own bucket
	res, err = m.Allow(ctx, "ip:2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	now = now.Add(500 * time.Millisecond)
	res, err = m.Allow(ctx, "ip:1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryEvictsIdleBuckets(t *testing.T) {
	m, err := NewMemory(Config{Rate: 1, Burst: 1})
	require.NoError(t, err)
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	_, err = m.Allow(context.Background(), "a")
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = m.Allow(context.Background(), "b")
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.buckets, "a")
}

func TestConfigValidation(t *testing.T) {
	_, err := NewMemory(Config{Rate: 0, Burst: 1})
	assert.Error(t, err)
	_, err = NewMemory(Config{Rate: 1, Burst: 0})
	assert.Error(t, err)
	_, err = NewRedis(nil, "p", Config{Rate: 1, Burst: 1})
	assert.Error(t, err)
}
