package base

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyBackoffDoubles(t *testing.T) {
	policy := DefaultRetryPolicy()

	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, 1*time.Second, policy.GetDelay(0))
	assert.Equal(t, 2*time.Second, policy.GetDelay(1))
	assert.Equal(t, 4*time.Second, policy.GetDelay(2))
}

func TestRetryPolicyDelayCappedAtMax(t *testing.T) {
	policy := NewRetryPolicy(10, 1*time.Second)

	assert.Equal(t, 30*time.Second, policy.GetDelay(8))
}

func TestExecuteWithRecordSucceedsAfterFailures(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	calls := 0
	recorded, err := policy.ExecuteWithRecord(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, recorded, 2, "both intermediate failures should be recorded")
}

func TestExecuteWithRecordExhaustsAttempts(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	calls := 0
	recorded, err := policy.ExecuteWithRecord(context.Background(), func() error {
		calls++
		return errors.New("permanent")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "no extra attempt after the final failure")
	assert.Len(t, recorded, 2, "the final failure is the outcome, not a recorded retry")
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestExecuteStopsOnContextCancel(t *testing.T) {
	policy := NewRetryPolicy(3, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, calls, "cancellation interrupts the backoff sleep")
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestExecuteWithConditionStopsOnNonRetryable(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	calls := 0
	err := policy.ExecuteWithCondition(context.Background(), func() error {
		calls++
		return errors.New("bad request")
	}, func(error) bool { return false })

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOnRetryObservesEachIntermediateFailure(t *testing.T) {
	policy := NewRetryPolicy(3, time.Millisecond)

	var attempts []int
	policy.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_, err := policy.ExecuteWithRecord(context.Background(), func() error {
		return errors.New("transient")
	})

	require.Error(t, err)
	assert.Equal(t, []int{0, 1}, attempts)
}

func TestNoRetryPolicy(t *testing.T) {
	policy := NoRetryPolicy()

	calls := 0
	err := policy.Execute(context.Background(), func() error {
		calls++
		return errors.New("fail")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
