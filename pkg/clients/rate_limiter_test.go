package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowConsumesBurst(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(1, 3)

	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow(), "burst exhausted")

	stats := limiter.GetStats()
	assert.Equal(t, int64(3), stats.AllowedRequests)
	assert.Equal(t, int64(1), stats.BlockedRequests)
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(100, 1)

	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, limiter.Allow(), "tokens refill over time")
}

func TestRateLimiterWaitBlocksUntilToken(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(50, 1)

	require.True(t, limiter.Allow())

	start := time.Now()
	err := limiter.Wait(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestRateLimiterWaitHonorsCancellation(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(0.001, 1)

	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiterSetRate(t *testing.T) {
	limiter := NewTokenBucketRateLimiter(1, 1)
	limiter.SetRate(500)

	require.True(t, limiter.Allow())
	time.Sleep(10 * time.Millisecond)
	assert.True(t, limiter.Allow(), "the new rate applies to refills")
}
