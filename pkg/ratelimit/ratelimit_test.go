package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLimiter(t *testing.T, fallback bool) (*TokenBucketLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewTokenBucketLimiter(client, zap.NewNop(), fallback), mr
}

func TestAllow_UnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, false)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "user:1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}
}

func TestAllow_OverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user:2", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "user:2", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllowN_ConsumesMultipleTokens(t *testing.T) {
	limiter, _ := newTestLimiter(t, false)
	ctx := context.Background()

	allowed, err := limiter.AllowN(ctx, "user:3", 4, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.AllowN(ctx, "user:3", 2, 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(t, false)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user:a", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:a", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:b", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGetRemaining(t *testing.T) {
	limiter, _ := newTestLimiter(t, false)
	ctx := context.Background()

	remaining, err := limiter.GetRemaining(ctx, "user:4", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)

	_, err = limiter.AllowN(ctx, "user:4", 7, 10, time.Minute)
	require.NoError(t, err)

	remaining, err = limiter.GetRemaining(ctx, "user:4", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, remaining)
}

func TestReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, false)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user:5", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user:5", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "user:5"))

	allowed, err = limiter.Allow(ctx, "user:5", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_FailOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t, true)
	ctx := context.Background()

	mr.Close()

	allowed, err := limiter.Allow(ctx, "user:6", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_FailClosed(t *testing.T) {
	limiter, mr := newTestLimiter(t, false)
	ctx := context.Background()

	mr.Close()

	allowed, err := limiter.Allow(ctx, "user:7", 1, time.Minute)
	assert.Error(t, err)
	assert.False(t, allowed)
}
