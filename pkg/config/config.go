// Package config provides the unified configuration system for Conduit.
// It defines a single Config structure shared by the connector layer,
// organized into logical sections:
//   - Timeouts: per-call and connection timeouts for outbound HTTP
//   - Reliability: retry logic, rate limiting, circuit breakers
//   - Security: credential material and auth scheme hints
//   - Observability: metrics, tracing, logging
//
// Example usage:
//
//	cfg := config.NewConfig("facebook", "social")
//	cfg.Reliability.RetryAttempts = 5
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Config is the unified configuration structure used by all connectors.
type Config struct {
	// Name identifies the connector instance
	Name string `yaml:"name" json:"name"`
	// Type specifies the connector family ("social", "email", "image", "chat")
	Type string `yaml:"type" json:"type"`

	// Timeouts define various timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Reliability settings for error handling and resilience
	Reliability ReliabilityConfig `yaml:"reliability" json:"reliability"`

	// Security configuration for authentication material
	Security SecurityConfig `yaml:"security" json:"security"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// TimeoutConfig contains all timeout-related settings.
// These prevent outbound platform calls from hanging indefinitely.
// The upstream APIs publish no timeout guidance, so the 30s request
// default is ours.
type TimeoutConfig struct {
	// Request timeout for a single outbound call
	Request time.Duration `yaml:"request" json:"request"`
	// Connection timeout for establishing connections
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Idle timeout before closing inactive connections
	Idle time.Duration `yaml:"idle" json:"idle"`
}

// ReliabilityConfig contains retry and resilience settings.
type ReliabilityConfig struct {
	// RetryAttempts sets maximum attempts for failed outbound calls
	RetryAttempts int `yaml:"retry_attempts" json:"retry_attempts"`
	// RetryDelay is the initial delay between retries
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`
	// RetryMultiplier increases delay exponentially
	RetryMultiplier float64 `yaml:"retry_multiplier" json:"retry_multiplier"`
	// MaxRetryDelay caps the maximum retry delay
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
	// CircuitBreaker enables circuit breaker protection
	CircuitBreaker bool `yaml:"circuit_breaker" json:"circuit_breaker"`
	// RateLimitPerSec limits outbound calls per second (0 = unlimited)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
}

// SecurityConfig carries authentication material for one connector instance.
// Credentials normally arrive from the credential store rather than a file;
// the map form exists for CLI and test use.
type SecurityConfig struct {
	// AuthType specifies the authentication scheme (basic, bearer, api_key, oauth2)
	AuthType string `yaml:"auth_type" json:"auth_type"`
	// Credentials stores authentication credentials (use env vars in files)
	Credentials map[string]string `yaml:"credentials" json:"credentials"`
	// TLSSkipVerify disables certificate verification (insecure)
	TLSSkipVerify bool `yaml:"tls_skip_verify" json:"tls_skip_verify"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates prometheus metrics collection
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates opentelemetry span emission
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets the log verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConfig creates a Config with production defaults for the given
// connector name and family.
func NewConfig(name, connectorType string) *Config {
	return &Config{
		Name: name,
		Type: connectorType,
		Timeouts: TimeoutConfig{
			Request:    30 * time.Second,
			Connection: 10 * time.Second,
			Idle:       90 * time.Second,
		},
		Reliability: ReliabilityConfig{
			RetryAttempts:   3,
			RetryDelay:      1 * time.Second,
			RetryMultiplier: 2.0,
			MaxRetryDelay:   30 * time.Second,
			CircuitBreaker:  true,
			RateLimitPerSec: 0,
		},
		Security: SecurityConfig{
			AuthType:    "bearer",
			Credentials: make(map[string]string),
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			EnableTracing: false,
			LogLevel:      "info",
		},
	}
}

// Validate checks the configuration and applies defaults to zero values
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("connector name is required")
	}

	if c.Timeouts.Request <= 0 {
		c.Timeouts.Request = 30 * time.Second
	}
	if c.Timeouts.Connection <= 0 {
		c.Timeouts.Connection = 10 * time.Second
	}
	if c.Reliability.RetryAttempts <= 0 {
		c.Reliability.RetryAttempts = 3
	}
	if c.Reliability.RetryDelay <= 0 {
		c.Reliability.RetryDelay = 1 * time.Second
	}
	if c.Reliability.RetryMultiplier <= 0 {
		c.Reliability.RetryMultiplier = 2.0
	}
	if c.Reliability.MaxRetryDelay <= 0 {
		c.Reliability.MaxRetryDelay = 30 * time.Second
	}

	return nil
}
