// Package clients provides shared outbound HTTP infrastructure for connectors
package clients

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RateLimiter defines the interface for rate limiting implementations.
type RateLimiter interface {
	// Allow checks if a request is allowed
	Allow() bool

	// Wait blocks until a request is allowed
	Wait(ctx context.Context) error

	// SetRate updates the rate limit
	SetRate(rate float64)

	// GetStats returns rate limiter statistics
	GetStats() RateLimiterStats
}

// RateLimiterStats provides statistics about rate limiter state for
// monitoring and debugging.
type RateLimiterStats struct {
	Rate            float64   `json:"rate"`
	Burst           int       `json:"burst"`
	AllowedRequests int64     `json:"allowed_requests"`
	BlockedRequests int64     `json:"blocked_requests"`
	CurrentTokens   float64   `json:"current_tokens"`
	LastRefill      time.Time `json:"last_refill"`
}

// NewRateLimiter creates a new rate limiter with the specified rate
// (requests per second) and burst size.
func NewRateLimiter(rate int, burst int) RateLimiter {
	return NewTokenBucketRateLimiter(float64(rate), burst)
}

// TokenBucketRateLimiter implements the token bucket algorithm for rate
// limiting. Tokens are added at a constant rate and consumed by requests.
type TokenBucketRateLimiter struct {
	rate     float64
	burst    int
	tokens   float64
	lastTime time.Time

	allowedRequests int64
	blockedRequests int64

	mu sync.Mutex
}

// NewTokenBucketRateLimiter creates a new token bucket rate limiter with the
// specified rate (tokens per second) and burst capacity.
func NewTokenBucketRateLimiter(rate float64, burst int) *TokenBucketRateLimiter {
	return &TokenBucketRateLimiter{
		rate:     rate,
		burst:    burst,
		tokens:   float64(burst),
		lastTime: time.Now(),
	}
}

// Allow checks if a request is allowed immediately.
// Returns true if a token is available and consumes it, false otherwise.
func (tb *TokenBucketRateLimiter) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= 1.0 {
		tb.tokens--
		atomic.AddInt64(&tb.allowedRequests, 1)
		return true
	}

	atomic.AddInt64(&tb.blockedRequests, 1)
	return false
}

// Wait blocks until a request is allowed or the context is cancelled
func (tb *TokenBucketRateLimiter) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		tb.refill()

		if tb.tokens >= 1.0 {
			tb.tokens--
			atomic.AddInt64(&tb.allowedRequests, 1)
			tb.mu.Unlock()
			return nil
		}

		// Time until the next token becomes available
		needed := 1.0 - tb.tokens
		wait := time.Duration(needed / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			atomic.AddInt64(&tb.blockedRequests, 1)
			return fmt.Errorf("rate limiter wait cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// SetRate updates the rate limit
func (tb *TokenBucketRateLimiter) SetRate(rate float64) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	tb.rate = rate
}

// GetStats returns rate limiter statistics
func (tb *TokenBucketRateLimiter) GetStats() RateLimiterStats {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	return RateLimiterStats{
		Rate:            tb.rate,
		Burst:           tb.burst,
		AllowedRequests: atomic.LoadInt64(&tb.allowedRequests),
		BlockedRequests: atomic.LoadInt64(&tb.blockedRequests),
		CurrentTokens:   tb.tokens,
		LastRefill:      tb.lastTime,
	}
}

// refill adds tokens based on elapsed time. Caller must hold the lock.
func (tb *TokenBucketRateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastTime).Seconds()
	tb.lastTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
}
