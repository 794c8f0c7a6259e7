// Package metrics provides prometheus instrumentation for connector
// operations. Every adapter records its outbound calls through one shared
// set of collectors so dashboards can aggregate across platforms without
// branching on connector type.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts connector operations by platform, operation and status
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Name:      "operations_total",
			Help:      "Total connector operations",
		},
		[]string{"platform", "operation", "status"},
	)

	// OperationDuration tracks connector operation latency
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "conduit",
			Name:      "operation_duration_seconds",
			Help:      "Connector operation latency distribution",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"platform", "operation"},
	)

	// RetriesTotal counts retry attempts by platform and operation
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Name:      "retries_total",
			Help:      "Total retry attempts against upstream platforms",
		},
		[]string{"platform", "operation"},
	)

	// CredentialFailuresTotal counts rejected credential verifications
	CredentialFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "conduit",
			Name:      "credential_failures_total",
			Help:      "Credential verifications that returned false",
		},
		[]string{"platform"},
	)
)

// Collector provides a per-connector metrics recording interface. Each
// adapter creates its own collector labeled with its platform name.
type Collector struct {
	platform  string
	startTime time.Time

	mu         sync.RWMutex
	operations int64
	failures   int64
	retries    int64
}

// NewCollector creates a metrics collector for one platform adapter
func NewCollector(platform string) *Collector {
	return &Collector{
		platform:  platform,
		startTime: time.Now(),
	}
}

// RecordOperation records one completed connector operation
func (c *Collector) RecordOperation(operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}

	OperationsTotal.WithLabelValues(c.platform, operation, status).Inc()
	OperationDuration.WithLabelValues(c.platform, operation).Observe(duration.Seconds())

	c.mu.Lock()
	c.operations++
	if !success {
		c.failures++
	}
	c.mu.Unlock()
}

// RecordRetry records one retry attempt
func (c *Collector) RecordRetry(operation string) {
	RetriesTotal.WithLabelValues(c.platform, operation).Inc()

	c.mu.Lock()
	c.retries++
	c.mu.Unlock()
}

// RecordCredentialFailure records a rejected credential verification
func (c *Collector) RecordCredentialFailure() {
	CredentialFailuresTotal.WithLabelValues(c.platform).Inc()
}

// StartTime returns when the collector was created
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// Snapshot returns current counter values for connector Metrics() maps
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"platform":   c.platform,
		"operations": c.operations,
		"failures":   c.failures,
		"retries":    c.retries,
		"uptime_sec": time.Since(c.startTime).Seconds(),
	}
}
