package base

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy defines retry behavior for outbound platform calls
type RetryPolicy struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RandomizeFactor float64

	// OnRetry, when set, observes each recorded intermediate failure before
	// the backoff sleep
	OnRetry func(attempt int, err error)
}

// NewRetryPolicy creates a new retry policy with exponential backoff
func NewRetryPolicy(maxAttempts int, initialDelay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     maxAttempts,
		InitialDelay:    initialDelay,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
		RandomizeFactor: 0,
	}
}

// DefaultRetryPolicy returns the layer-wide default: three attempts with a
// one second initial delay doubling between attempts.
func DefaultRetryPolicy() *RetryPolicy {
	return NewRetryPolicy(3, 1*time.Second)
}

// NoRetryPolicy returns a policy that doesn't retry
func NoRetryPolicy() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// Execute runs a function with the retry policy
func (rp *RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	_, err := rp.ExecuteWithRecord(ctx, fn)
	return err
}

// ExecuteWithRecord runs a function with the retry policy and returns the
// intermediate failures recorded before the final outcome. A call that fails
// twice then succeeds returns (two recorded errors, nil). No sleep occurs
// after the final failed attempt.
func (rp *RetryPolicy) ExecuteWithRecord(ctx context.Context, fn func() error) ([]error, error) {
	var recorded []error
	var lastErr error

	for attempt := 0; attempt < rp.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return recorded, nil
		}

		lastErr = err

		// Don't retry on the last attempt
		if attempt == rp.MaxAttempts-1 {
			break
		}

		recorded = append(recorded, err)
		if rp.OnRetry != nil {
			rp.OnRetry(attempt, err)
		}

		delay := rp.calculateDelay(attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return recorded, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return recorded, fmt.Errorf("all %d attempts failed: %w", rp.MaxAttempts, lastErr)
}

// ExecuteWithCondition runs a function with retry only while the condition
// holds; a non-retryable error is returned immediately.
func (rp *RetryPolicy) ExecuteWithCondition(ctx context.Context, fn func() error, shouldRetry func(error) bool) error {
	var lastErr error

	for attempt := 0; attempt < rp.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		if attempt == rp.MaxAttempts-1 {
			break
		}

		if rp.OnRetry != nil {
			rp.OnRetry(attempt, err)
		}

		delay := rp.calculateDelay(attempt)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", rp.MaxAttempts, lastErr)
}

// calculateDelay calculates the delay for a given attempt
func (rp *RetryPolicy) calculateDelay(attempt int) time.Duration {
	delay := float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt))

	if rp.MaxDelay > 0 && delay > float64(rp.MaxDelay) {
		delay = float64(rp.MaxDelay)
	}

	// Apply randomization factor (jitter)
	if rp.RandomizeFactor > 0 {
		delta := delay * rp.RandomizeFactor
		minDelay := delay - delta
		maxDelay := delay + delta

		delay = minDelay + (rand.Float64() * (maxDelay - minDelay))
	}

	return time.Duration(delay)
}

// GetDelay returns the delay for a specific attempt (for testing/preview)
func (rp *RetryPolicy) GetDelay(attempt int) time.Duration {
	return rp.calculateDelay(attempt)
}

// Clone creates a copy of the retry policy
func (rp *RetryPolicy) Clone() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:     rp.MaxAttempts,
		InitialDelay:    rp.InitialDelay,
		MaxDelay:        rp.MaxDelay,
		Multiplier:      rp.Multiplier,
		RandomizeFactor: rp.RandomizeFactor,
		OnRetry:         rp.OnRetry,
	}
}

// WithMaxAttempts returns a new policy with updated max attempts
func (rp *RetryPolicy) WithMaxAttempts(attempts int) *RetryPolicy {
	policy := rp.Clone()
	policy.MaxAttempts = attempts
	return policy
}

// WithDelay returns a new policy with updated delays
func (rp *RetryPolicy) WithDelay(initial, max time.Duration) *RetryPolicy {
	policy := rp.Clone()
	policy.InitialDelay = initial
	policy.MaxDelay = max
	return policy
}

// WithRandomization returns a new policy with updated randomization
func (rp *RetryPolicy) WithRandomization(factor float64) *RetryPolicy {
	policy := rp.Clone()
	policy.RandomizeFactor = factor
	return policy
}
