package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genialabs/conduit/pkg/connector/core"
)

func testConnector(t *testing.T, serverURL string) *Connector {
	t.Helper()

	connector, err := New(&core.Credential{
		UserID:   "user-1",
		Platform: "openai",
		APIKey:   "sk-test",
	}, nil)
	require.NoError(t, err)

	connector.BaseURL = serverURL
	connector.Retry().InitialDelay = time.Millisecond
	return connector
}

func TestGenerateReturnsImageURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "dall-e-3", payload["model"])
		assert.Equal(t, "a lighthouse at dawn", payload["prompt"])
		assert.Equal(t, float64(1), payload["n"])

		_, _ = w.Write([]byte(`{"data":[{"url":"https://images.example.com/1.png"}]}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	result := connector.Generate(context.Background(), core.ImageRequest{
		Prompt: "a lighthouse at dawn",
		Size:   "1024x1024",
	})

	assert.True(t, result.Success)
	assert.Equal(t, []string{"https://images.example.com/1.png"}, result.URLs)
	assert.Empty(t, result.Error)
}

func TestGenerateRequiresPrompt(t *testing.T) {
	connector := testConnector(t, "http://127.0.0.1:0")

	result := connector.Generate(context.Background(), core.ImageRequest{})

	assert.False(t, result.Success)
	assert.Equal(t, 400, result.Status)
}

func TestGenerateRetriesRateLimit(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"url":"https://images.example.com/2.png"}]}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	result := connector.Generate(context.Background(), core.ImageRequest{Prompt: "retry me"})

	assert.True(t, result.Success)
	assert.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestGenerateDoesNotRetryBadRequest(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"prompt violates policy"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	result := connector.Generate(context.Background(), core.ImageRequest{Prompt: "blocked"})

	assert.False(t, result.Success)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
	assert.Equal(t, 400, result.Status)
	assert.Contains(t, result.Error, "prompt violates policy")
}

func TestGenerateAuthFailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	result := connector.Generate(context.Background(), core.ImageRequest{Prompt: "x"})

	assert.False(t, result.Success)
	assert.Equal(t, 401, result.Status)
}

func TestVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"dall-e-3"}]}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)
	assert.True(t, connector.VerifyCredentials(context.Background()))
}
