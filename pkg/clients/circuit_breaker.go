// Package clients provides circuit breaker protection for outbound calls
package clients

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int32

const (
	// StateClosed allows all requests to pass through
	StateClosed CircuitState = iota
	// StateOpen blocks all requests
	StateOpen
	// StateHalfOpen allows a limited number of requests to test if the
	// upstream has recovered
	StateHalfOpen
)

// String returns the state name
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig is the configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           // Consecutive failures before opening
	SuccessThreshold int           // Consecutive successes before closing
	Timeout          time.Duration // Open duration before half-open probing
}

// CircuitBreaker implements the circuit breaker pattern for outbound platform
// calls to prevent hammering an upstream that is already failing.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger *zap.Logger

	state           int32
	nextRetryTime   time.Time
	lastStateChange time.Time

	consecutiveFailures  int32
	consecutiveSuccesses int32
	halfOpenLimit        int32
	halfOpenCounter      int32

	mu sync.RWMutex
}

// NewCircuitBreaker creates a new circuit breaker with the given configuration.
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		config:          config,
		logger:          logger.With(zap.String("component", "circuit_breaker")),
		state:           int32(StateClosed),
		lastStateChange: time.Now(),
		halfOpenLimit:   5,
	}
}

// Execute runs a function with circuit breaker protection.
// If the circuit is open, it returns an error immediately without executing
// the function.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.Allow() {
		return fmt.Errorf("circuit breaker is open")
	}

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}

	cb.RecordSuccess()
	return nil
}

// Allow determines if a request should be allowed based on the current state.
func (cb *CircuitBreaker) Allow() bool {
	state := CircuitState(atomic.LoadInt32(&cb.state))

	switch state {
	case StateClosed:
		return true

	case StateOpen:
		cb.mu.RLock()
		shouldRetry := time.Now().After(cb.nextRetryTime)
		cb.mu.RUnlock()

		if shouldRetry {
			cb.transitionToHalfOpen()
			return cb.allowHalfOpen()
		}
		return false

	case StateHalfOpen:
		return cb.allowHalfOpen()

	default:
		return false
	}
}

// RecordSuccess records a successful call
func (cb *CircuitBreaker) RecordSuccess() {
	atomic.StoreInt32(&cb.consecutiveFailures, 0)
	successes := atomic.AddInt32(&cb.consecutiveSuccesses, 1)

	if CircuitState(atomic.LoadInt32(&cb.state)) == StateHalfOpen &&
		successes >= int32(cb.config.SuccessThreshold) {
		cb.transitionToClosed()
	}
}

// RecordFailure records a failed call
func (cb *CircuitBreaker) RecordFailure() {
	atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
	failures := atomic.AddInt32(&cb.consecutiveFailures, 1)

	state := CircuitState(atomic.LoadInt32(&cb.state))
	if state == StateHalfOpen || (state == StateClosed && failures >= int32(cb.config.FailureThreshold)) {
		cb.transitionToOpen()
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(atomic.LoadInt32(&cb.state))
}

// Reset forces the breaker back to closed
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.consecutiveFailures, 0)
	atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
	atomic.StoreInt32(&cb.halfOpenCounter, 0)
	cb.lastStateChange = time.Now()
}

func (cb *CircuitBreaker) allowHalfOpen() bool {
	count := atomic.AddInt32(&cb.halfOpenCounter, 1)
	return count <= cb.halfOpenLimit
}

func (cb *CircuitBreaker) transitionToOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if CircuitState(atomic.LoadInt32(&cb.state)) == StateOpen {
		return
	}

	atomic.StoreInt32(&cb.state, int32(StateOpen))
	cb.lastStateChange = time.Now()
	cb.nextRetryTime = time.Now().Add(cb.config.Timeout)

	cb.logger.Warn("circuit breaker opened",
		zap.Int32("consecutive_failures", atomic.LoadInt32(&cb.consecutiveFailures)),
		zap.Time("next_retry", cb.nextRetryTime))
}

func (cb *CircuitBreaker) transitionToHalfOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if CircuitState(atomic.LoadInt32(&cb.state)) != StateOpen {
		return
	}

	atomic.StoreInt32(&cb.state, int32(StateHalfOpen))
	atomic.StoreInt32(&cb.halfOpenCounter, 0)
	atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
	cb.lastStateChange = time.Now()

	cb.logger.Info("circuit breaker half-open")
}

func (cb *CircuitBreaker) transitionToClosed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.consecutiveFailures, 0)
	cb.lastStateChange = time.Now()

	cb.logger.Info("circuit breaker closed")
}
