package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genialabs/conduit/pkg/connector/core"
)

func testConnector(t *testing.T, serverURL, pageID string) *Connector {
	t.Helper()

	connector, err := New(&core.Credential{
		UserID:      "user-1",
		Platform:    "facebook",
		AccessToken: "fb-token",
		PageID:      pageID,
	}, nil)
	require.NoError(t, err)

	connector.BaseURL = serverURL
	return connector
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(&core.Credential{}, nil)
	require.Error(t, err)

	_, err = New(nil, nil)
	require.Error(t, err)
}

func TestVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me", r.URL.Path)
		assert.Equal(t, "fb-token", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"id":"10150000000000000"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "")
	assert.True(t, connector.VerifyCredentials(context.Background()))
}

func TestVerifyCredentialsExpiredToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Error validating access token"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "")
	assert.False(t, connector.VerifyCredentials(context.Background()))
}

func TestPublishTargetsOwnFeedWithoutPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello world", r.Form.Get("message"))
		_, _ = w.Write([]byte(`{"id":"123_456"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "")

	response := connector.Publish(context.Background(), core.Content{
		Kind: core.ContentText,
		Text: "hello world",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "123_456", response.PostID)
	assert.Equal(t, "https://www.facebook.com/123_456", response.URL)
}

func TestPublishTargetsManagedPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-77/feed", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"77_1"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "page-77")

	response := connector.Publish(context.Background(), core.Content{
		Kind: core.ContentText,
		Text: "page post",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "77_1", response.PostID)
}

func TestPublishImageUsesPhotosEdge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/photos", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://cdn.example.com/pic.jpg", r.Form.Get("url"))
		assert.Equal(t, "look", r.Form.Get("caption"))
		_, _ = w.Write([]byte(`{"id":"photo-1","post_id":"123_789"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "")

	response := connector.Publish(context.Background(), core.Content{
		Kind:     core.ContentImage,
		Text:     "look",
		MediaURL: "https://cdn.example.com/pic.jpg",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "123_789", response.PostID, "the feed post id wins over the photo id")
}

func TestPublishFailureLandsInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"Permissions error"}}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "")

	response := connector.Publish(context.Background(), core.Content{
		Kind: core.ContentText,
		Text: "nope",
	})

	assert.False(t, response.Success)
	assert.Empty(t, response.PostID)
	assert.Contains(t, response.Error, "Permissions error")
}

func TestGetMetricsMapsEngagement(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123_456", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"likes": {"summary": {"total_count": 15}},
			"comments": {"summary": {"total_count": 4}},
			"shares": {"count": 2}
		}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL, "")

	metrics, err := connector.GetMetrics(context.Background(), "123_456")
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Equal(t, int64(15), metrics.Likes)
	assert.Equal(t, int64(4), metrics.Comments)
	assert.Equal(t, int64(2), metrics.Shares)
	assert.InDelta(t, 21.0, metrics.Engagement, 1e-9)
}
