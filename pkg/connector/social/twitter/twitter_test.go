package twitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genialabs/conduit/pkg/connector/core"
)

func testConnector(t *testing.T, serverURL string) *Connector {
	t.Helper()

	connector, err := New(&core.Credential{
		UserID:      "user-1",
		Platform:    "twitter",
		AccessToken: "tw-token",
	}, nil)
	require.NoError(t, err)

	connector.BaseURL = serverURL
	return connector
}

func TestVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		assert.Equal(t, "Bearer tw-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":{"id":"2244994945","username":"dev"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)
	assert.True(t, connector.VerifyCredentials(context.Background()))
}

func TestPublishPostsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "hello twitter", payload["text"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1455953449422516226","text":"hello twitter"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Publish(context.Background(), core.Content{
		Kind: core.ContentText,
		Text: "hello twitter",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "1455953449422516226", response.PostID)
	assert.Contains(t, response.URL, response.PostID)
}

func TestPublishAppendsLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "https://example.com/post")
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Publish(context.Background(), core.Content{
		Kind:    core.ContentLink,
		Text:    "read this",
		LinkURL: "https://example.com/post",
	})

	assert.True(t, response.Success)
}

func TestPublishRateLimitLandsInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"title":"Too Many Requests"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Publish(context.Background(), core.Content{
		Kind: core.ContentText,
		Text: "spam",
	})

	assert.False(t, response.Success)
	assert.Contains(t, response.Error, "rate_limit")
}

func TestGetMetricsMapsPublicMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tweets/1455953449422516226", r.URL.Path)
		assert.Equal(t, "public_metrics", r.URL.Query().Get("tweet.fields"))
		_, _ = w.Write([]byte(`{"data":{"public_metrics":{
			"retweet_count": 5, "reply_count": 2, "like_count": 30,
			"quote_count": 1, "impression_count": 900
		}}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	metrics, err := connector.GetMetrics(context.Background(), "1455953449422516226")
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Equal(t, int64(30), metrics.Likes)
	assert.Equal(t, int64(6), metrics.Shares)
	assert.Equal(t, int64(2), metrics.Comments)
	assert.Equal(t, int64(900), metrics.Reach)
}
