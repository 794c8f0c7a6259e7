package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationRegistryObserve(t *testing.T) {
	registry := NewIntegrationRegistry()

	registry.Observe("user-1", "facebook", true)
	registry.Observe("user-1", "facebook", false)
	registry.Observe("user-1", "mailchimp", true)

	stats := registry.Stats("user-1")
	require.Len(t, stats, 2)

	assert.Equal(t, "facebook", stats[0].Platform)
	assert.Equal(t, int64(2), stats[0].Operations)
	assert.Equal(t, int64(1), stats[0].Failures)

	assert.Equal(t, "mailchimp", stats[1].Platform)
	assert.Equal(t, int64(1), stats[1].Operations)
	assert.Equal(t, int64(0), stats[1].Failures)
}

func TestIntegrationRegistryStatus(t *testing.T) {
	registry := NewIntegrationRegistry()

	registry.Observe("user-1", "twitter", true)

	status := registry.Status("user-1")
	require.Len(t, status, 1)
	assert.Equal(t, "twitter", status[0].Platform)
	assert.True(t, status[0].Connected)
	assert.False(t, status[0].LastUsed.IsZero())
}

func TestIntegrationRegistryIsolatesUsers(t *testing.T) {
	registry := NewIntegrationRegistry()

	registry.Observe("user-1", "twitter", true)

	assert.Empty(t, registry.Stats("user-2"))
	assert.Empty(t, registry.Status("user-2"))
}
