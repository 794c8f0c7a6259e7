// Package base provides the foundational Adapter that all Conduit platform
// adapters embed. It carries the shared outbound HTTP client, retry policy,
// structured logging, metrics and tracing so concrete adapters only
// implement their platform's wire protocol.
package base

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/genialabs/conduit/pkg/clients"
	"github.com/genialabs/conduit/pkg/config"
	"github.com/genialabs/conduit/pkg/connector/core"
	"github.com/genialabs/conduit/pkg/errors"
	jsonx "github.com/genialabs/conduit/pkg/json"
	"github.com/genialabs/conduit/pkg/logger"
	"github.com/genialabs/conduit/pkg/metrics"
	"github.com/genialabs/conduit/pkg/observability"
)

// Adapter provides common functionality for all platform adapters.
type Adapter struct {
	name     string
	platform string
	family   core.Family

	config *config.Config
	log    *zap.Logger

	httpClient  *clients.HTTPClient
	retryPolicy *RetryPolicy
	collector   *metrics.Collector

	closed     bool
	closeMutex sync.Mutex
}

// NewAdapter creates the embedded base for a platform adapter. A nil config
// gets production defaults.
func NewAdapter(platform string, family core.Family, cfg *config.Config) *Adapter {
	if cfg == nil {
		cfg = config.NewConfig(platform, string(family))
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Timeouts.Request
	httpCfg.DialTimeout = cfg.Timeouts.Connection
	httpCfg.IdleConnTimeout = cfg.Timeouts.Idle
	httpCfg.InsecureSkipVerify = cfg.Security.TLSSkipVerify
	httpCfg.CircuitBreakerEnabled = cfg.Reliability.CircuitBreaker
	if cfg.Reliability.RateLimitPerSec > 0 {
		httpCfg.RateLimit = float64(cfg.Reliability.RateLimitPerSec)
		httpCfg.RateBurst = cfg.Reliability.RateLimitPerSec * 2
	}

	log := logger.Get().With(zap.String("connector", platform))

	retry := &RetryPolicy{
		MaxAttempts:  cfg.Reliability.RetryAttempts,
		InitialDelay: cfg.Reliability.RetryDelay,
		MaxDelay:     cfg.Reliability.MaxRetryDelay,
		Multiplier:   cfg.Reliability.RetryMultiplier,
	}

	collector := metrics.NewCollector(platform)
	retry.OnRetry = func(attempt int, err error) {
		collector.RecordRetry("call")
		log.Warn("retrying upstream call",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return &Adapter{
		name:        platform,
		platform:    platform,
		family:      family,
		config:      cfg,
		log:         log,
		httpClient:  clients.NewHTTPClient(httpCfg, log),
		retryPolicy: retry,
		collector:   collector,
	}
}

// Name returns the adapter instance name
func (a *Adapter) Name() string {
	return a.name
}

// Platform returns the platform identifier
func (a *Adapter) Platform() string {
	return a.platform
}

// Family returns the connector family
func (a *Adapter) Family() core.Family {
	return a.family
}

// Logger returns the adapter logger
func (a *Adapter) Logger() *zap.Logger {
	return a.log
}

// Config returns the adapter configuration
func (a *Adapter) Config() *config.Config {
	return a.config
}

// HTTP returns the shared outbound HTTP client
func (a *Adapter) HTTP() *clients.HTTPClient {
	return a.httpClient
}

// Retry returns the adapter retry policy
func (a *Adapter) Retry() *RetryPolicy {
	return a.retryPolicy
}

// Collector returns the adapter metrics collector
func (a *Adapter) Collector() *metrics.Collector {
	return a.collector
}

// Metrics returns adapter-level operational counters
func (a *Adapter) Metrics() map[string]interface{} {
	m := a.collector.Snapshot()
	total, failed := a.httpClient.Stats()
	m["http_requests"] = total
	m["http_failures"] = failed
	return m
}

// Close releases adapter resources
func (a *Adapter) Close(ctx context.Context) error {
	a.closeMutex.Lock()
	defer a.closeMutex.Unlock()

	if a.closed {
		return nil
	}

	a.httpClient.CloseIdleConnections()
	a.closed = true
	a.log.Debug("adapter closed")

	return nil
}

// Instrument wraps one connector operation with a span, latency metrics and
// outcome logging. The wrapped function reports its outcome as
// (success, errMessage).
func (a *Adapter) Instrument(ctx context.Context, operation string, fn func(ctx context.Context) (bool, string)) {
	spanCtx, span := observability.StartOperation(ctx, a.platform, operation)
	started := time.Now()

	success, errMessage := fn(spanCtx)

	a.collector.RecordOperation(operation, success, time.Since(started))
	observability.EndOperation(span, success, errMessage)

	if success {
		a.log.Debug("operation completed", zap.String("operation", operation))
	} else {
		a.log.Warn("operation failed",
			zap.String("operation", operation),
			zap.String("error", errMessage))
	}
}

// DecodeResponse validates the HTTP status and decodes the JSON body into v.
// Non-2xx responses become typed errors carrying the platform's error text;
// the raw response never escapes past this boundary.
func (a *Adapter) DecodeResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a.statusError(resp)
	}

	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := jsonx.Decode(resp.Body, v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode platform response")
	}

	return nil
}

// statusError maps a non-2xx response into a typed error
func (a *Adapter) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := fmt.Sprintf("%s returned status %d: %s", a.platform, resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrorTypeAuthentication, message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.New(errors.ErrorTypeRateLimit, message)
	case resp.StatusCode >= 500:
		return errors.New(errors.ErrorTypeConnection, message)
	default:
		return errors.New(errors.ErrorTypeValidation, message)
	}
}

// VerifyCall issues fn and reports whether it succeeded, translating every
// failure to false. Adapters use it to implement VerifyCredentials with the
// platform's cheapest authenticated call.
func (a *Adapter) VerifyCall(ctx context.Context, fn func(ctx context.Context) error) bool {
	if err := fn(ctx); err != nil {
		a.collector.RecordCredentialFailure()
		a.log.Debug("credential verification failed", zap.Error(err))
		return false
	}
	return true
}
