package clients

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(timeout time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          timeout,
	}, nil)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := testBreaker(time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := testBreaker(time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow(), "after the timeout the breaker probes the upstream")
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordSuccess()
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := testBreaker(10 * time.Millisecond)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	time.Sleep(20 * time.Millisecond)
	require.True(t, cb.Allow())
	require.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
}

func TestBreakerExecute(t *testing.T) {
	cb := testBreaker(time.Minute)

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		err = cb.Execute(func() error { return boom })
		assert.ErrorIs(t, err, boom)
	}

	err = cb.Execute(func() error { return nil })
	require.Error(t, err, "open breaker rejects without executing")
	assert.Contains(t, err.Error(), "circuit breaker is open")
}

func TestBreakerReset(t *testing.T) {
	cb := testBreaker(time.Minute)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}
