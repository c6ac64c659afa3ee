package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todd-reagan/nile-collector/internal/ratelimit"
)

func newTestLimiter(t *testing.T, limit int, window time.Duration) ratelimit.RateLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return ratelimit.NewWithClient(client, limit, window)
}

func TestNoOpRateLimiter(t *testing.T) {
	limiter := &ratelimit.NoOpRateLimiter{}
	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(context.Background(), "any-key")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Close())
}

func TestNewRedisRateLimiter_InvalidURL(t *testing.T) {
	_, err := ratelimit.NewRedisRateLimiter("not-a-valid-url", 100, time.Minute)
	assert.Error(t, err)
}

func TestRedisRateLimiter_EnforcesLimit(t *testing.T) {
	limiter := newTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, "token-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, allowed, "request over the limit should be denied")
}

func TestRedisRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "token-a")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = limiter.Allow(ctx, "token-b")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "token-a")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "token-b")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRedisRateLimiter_WindowSlides(t *testing.T) {
	limiter := newTestLimiter(t, 2, 50*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "token-1")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "token-1")
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(60 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, allowed, "old entries fall out of the window")
}
