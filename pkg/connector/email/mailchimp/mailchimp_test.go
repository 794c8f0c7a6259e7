package mailchimp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
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
		Platform: "mailchimp",
		APIKey:   "0123456789abcdef-us6",
	}, nil)
	require.NoError(t, err)

	connector.BaseURL = serverURL
	return connector
}

func TestDatacenterResolution(t *testing.T) {
	tests := []struct {
		name       string
		credential core.Credential
		expected   string
	}{
		{
			name:       "from key suffix",
			credential: core.Credential{APIKey: "abc123-us6"},
			expected:   "us6",
		},
		{
			name:       "server prefix wins over suffix",
			credential: core.Credential{APIKey: "abc123-us6", ServerPrefix: "us21"},
			expected:   "us21",
		},
		{
			name:       "no suffix",
			credential: core.Credential{APIKey: "abc123"},
			expected:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, datacenter(&tt.credential))
		})
	}
}

func TestNewRejectsUnknownDatacenter(t *testing.T) {
	_, err := New(&core.Credential{APIKey: "no-dc-suffix-here"}, nil)
	require.NoError(t, err, "suffix after the last dash is taken as the dc")

	_, err = New(&core.Credential{APIKey: "nodcsuffix"}, nil)
	require.Error(t, err)
}

func TestSubscriberHashIsLowercaseMD5(t *testing.T) {
	// Reference value from the Mailchimp API docs
	assert.Equal(t, "62eeb292278cc15f5817cb78f7790b08", subscriberHash("Urist.McVankab@freddiesjokes.com"))
	assert.Equal(t, subscriberHash("USER@EXAMPLE.COM"), subscriberHash("user@example.com"))
}

func TestVerifyCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		assert.Contains(t, r.Header.Get("Authorization"), "Basic ")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"health_status":"Everything's Chimpy!"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)
	assert.True(t, connector.VerifyCredentials(context.Background()))
}

func TestVerifyCredentialsRejectedKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"title":"API Key Invalid"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)
	assert.False(t, connector.VerifyCredentials(context.Background()))
}

func TestAddSubscriberUpsertsAndTags(t *testing.T) {
	hash := subscriberHash("jane@example.com")
	var upsertSeen, tagsSeen bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/lists/list-9/members/"+hash:
			upsertSeen = true

			body, _ := io.ReadAll(r.Body)
			var payload map[string]interface{}
			require.NoError(t, json.Unmarshal(body, &payload))
			assert.Equal(t, "jane@example.com", payload["email_address"])
			assert.Equal(t, "subscribed", payload["status_if_new"])

			_, _ = w.Write([]byte(`{"id":"` + hash + `"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/lists/list-9/members/"+hash+"/tags":
			tagsSeen = true

			body, _ := io.ReadAll(r.Body)
			var payload struct {
				Tags []struct {
					Name   string `json:"name"`
					Status string `json:"status"`
				} `json:"tags"`
			}
			require.NoError(t, json.Unmarshal(body, &payload))
			require.Len(t, payload.Tags, 2)
			assert.Equal(t, "active", payload.Tags[0].Status)

			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	ok, err := connector.AddSubscriber(context.Background(), "list-9", core.Subscriber{
		Email:     "jane@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		Tags:      []string{"customer", "newsletter"},
	})

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, upsertSeen, "member upsert must hit the MD5-keyed endpoint")
	assert.True(t, tagsSeen, "tags must be assigned after the upsert")
}

func TestAddSubscriberFailsWhenTaggingFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			_, _ = w.Write([]byte(`{"id":"x"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"title":"boom"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	ok, err := connector.AddSubscriber(context.Background(), "list-9", core.Subscriber{
		Email: "jane@example.com",
		Tags:  []string{"customer"},
	})

	require.Error(t, err)
	assert.False(t, ok)
}

func TestCreateCampaignSendsImmediately(t *testing.T) {
	var actions []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actions = append(actions, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/campaigns":
			_, _ = w.Write([]byte(`{"id":"camp-1"}`))
		case "/campaigns/camp-1/content":
			_, _ = w.Write([]byte(`{}`))
		case "/campaigns/camp-1/actions/send":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.CreateCampaign(context.Background(), core.Campaign{
		Subject:   "Hello",
		FromName:  "Acme",
		FromEmail: "news@acme.test",
		HTMLBody:  "<p>hi</p>",
		ListID:    "list-9",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "camp-1", response.CampaignID)
	assert.Empty(t, response.Error)
	assert.Equal(t, []string{
		"POST /campaigns",
		"PUT /campaigns/camp-1/content",
		"POST /campaigns/camp-1/actions/send",
	}, actions)
}

func TestCreateCampaignSchedulesWhenTimed(t *testing.T) {
	var scheduleBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/campaigns":
			_, _ = w.Write([]byte(`{"id":"camp-2"}`))
		case "/campaigns/camp-2/content":
			_, _ = w.Write([]byte(`{}`))
		case "/campaigns/camp-2/actions/schedule":
			scheduleBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		case "/campaigns/camp-2/actions/send":
			t.Error("a scheduled campaign must not be sent immediately")
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	at := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	response := connector.CreateCampaign(context.Background(), core.Campaign{
		Subject:     "Later",
		FromEmail:   "news@acme.test",
		HTMLBody:    "<p>hi</p>",
		ListID:      "list-9",
		ScheduledAt: &at,
	})

	require.True(t, response.Success)
	assert.Contains(t, string(scheduleBody), "2026-10-01T09:00:00Z")
}

func TestCreateCampaignSurfacesPlatformError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"title":"Invalid Resource","detail":"list_id is missing"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.CreateCampaign(context.Background(), core.Campaign{Subject: "Broken"})

	assert.False(t, response.Success)
	assert.Empty(t, response.CampaignID)
	assert.Contains(t, response.Error, "list_id is missing")
}

func TestGetMetricsMapsReport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/camp-1", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"emails_sent": 100,
			"opens": {"unique_opens": 40, "open_rate": 0.4},
			"clicks": {"unique_clicks": 10, "click_rate": 0.1},
			"bounces": {"hard_bounces": 2, "soft_bounces": 1},
			"unsubscribed": 3
		}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	metrics, err := connector.GetMetrics(context.Background(), "camp-1")
	require.NoError(t, err)
	require.NotNil(t, metrics)

	assert.Equal(t, int64(100), metrics.Sent)
	assert.Equal(t, int64(40), metrics.Opens)
	assert.Equal(t, int64(10), metrics.Clicks)
	assert.Equal(t, int64(3), metrics.Bounces)
	assert.Equal(t, int64(3), metrics.Unsubscribes)
	assert.InDelta(t, 0.4, metrics.OpenRate, 1e-9)
}
