package usage

import (
	"sort"
	"sync"
	"time"
)

// IntegrationStatus is the dashboard's view of one user's platform binding
type IntegrationStatus struct {
	Platform  string    `json:"platform"`
	Connected bool      `json:"connected"`
	LastUsed  time.Time `json:"last_used,omitempty"`
}

// UsageStats aggregates per-platform operation counters for the dashboard
type UsageStats struct {
	Platform   string `json:"platform"`
	Operations int64  `json:"operations"`
	Failures   int64  `json:"failures"`
}

// IntegrationRegistry tracks which platforms a user has exercised and how
// often. It backs the dashboard's integrations panel; the Kafka stream
// carries the same events off-process.
type IntegrationRegistry struct {
	mu   sync.RWMutex
	seen map[string]map[string]*usageRecord
}

type usageRecord struct {
	operations int64
	failures   int64
	lastUsed   time.Time
}

// NewIntegrationRegistry creates an empty registry
func NewIntegrationRegistry() *IntegrationRegistry {
	return &IntegrationRegistry{
		seen: make(map[string]map[string]*usageRecord),
	}
}

// Observe records one operation outcome for a user and platform
func (r *IntegrationRegistry) Observe(userID, platform string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	platforms, ok := r.seen[userID]
	if !ok {
		platforms = make(map[string]*usageRecord)
		r.seen[userID] = platforms
	}

	record, ok := platforms[platform]
	if !ok {
		record = &usageRecord{}
		platforms[platform] = record
	}

	record.operations++
	if !success {
		record.failures++
	}
	record.lastUsed = time.Now()
}

// Status returns the user's integrations, sorted by platform
func (r *IntegrationRegistry) Status(userID string) []IntegrationStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := r.seen[userID]
	out := make([]IntegrationStatus, 0, len(platforms))
	for platform, record := range platforms {
		out = append(out, IntegrationStatus{
			Platform:  platform,
			Connected: true,
			LastUsed:  record.lastUsed,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}

// Stats returns the user's per-platform counters, sorted by platform
func (r *IntegrationRegistry) Stats(userID string) []UsageStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := r.seen[userID]
	out := make([]UsageStats, 0, len(platforms))
	for platform, record := range platforms {
		out = append(out, UsageStats{
			Platform:   platform,
			Operations: record.operations,
			Failures:   record.failures,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out
}
