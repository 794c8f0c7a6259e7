package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeValidation, "bad input")
	assert.Equal(t, "validation: bad input", err.Error())

	wrapped := Wrap(stderrors.New("boom"), ErrorTypeConnection, "call failed")
	assert.Equal(t, "connection: call failed: boom", wrapped.Error())
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeInternal, "ignored"))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeTimeout, true},
		{ErrorTypeConnection, true},
		{ErrorTypeAuthentication, false},
		{ErrorTypeValidation, false},
		{ErrorTypeConfig, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(New(tt.errType, "x")))
		})
	}

	assert.False(t, IsRetryable(stderrors.New("plain error")))
}

func TestIsRetryableSeesThroughWrapping(t *testing.T) {
	inner := New(ErrorTypeRateLimit, "slow down")
	outer := fmt.Errorf("operation failed: %w", inner)

	assert.True(t, IsRetryable(outer))
	assert.True(t, IsType(outer, ErrorTypeRateLimit))
}

func TestPartialPublishError(t *testing.T) {
	cause := New(ErrorTypeConnection, "publish phase failed")
	err := &PartialPublishError{
		Platform:   "instagram",
		ResourceID: "container-9",
		Cause:      cause,
	}

	assert.Contains(t, err.Error(), "container-9")
	assert.Contains(t, err.Error(), "instagram")
	assert.ErrorIs(t, err, cause)

	partial, ok := IsPartialPublish(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "container-9", partial.ResourceID)

	_, ok = IsPartialPublish(stderrors.New("other"))
	assert.False(t, ok)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeData, "decode failed").
		WithDetail("platform", "twitter").
		WithDetail("status", 502)

	assert.Equal(t, "twitter", err.Details["platform"])
	assert.Equal(t, 502, err.Details["status"])
}
