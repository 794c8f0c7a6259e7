package whatsapp

import (
	"context"
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
		UserID:      "user-1",
		Platform:    "whatsapp",
		AccountID:   "AC00000000000000000000000000000000",
		APISecret:   "secret",
		APIKey:      "auth-token",
		PhoneNumber: "+14155238886",
	}, nil)
	require.NoError(t, err)

	connector.BaseURL = serverURL
	connector.Retry().InitialDelay = time.Millisecond
	return connector
}

func TestNewRequiresSenderNumber(t *testing.T) {
	_, err := New(&core.Credential{AccountID: "AC1", APIKey: "token"}, nil)
	require.Error(t, err)
}

func TestSendWrapsNumbersInWhatsappForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Accounts/AC00000000000000000000000000000000/Messages.json", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+14155238886", r.Form.Get("From"))
		assert.Equal(t, "whatsapp:+5215512345678", r.Form.Get("To"))
		assert.Equal(t, "hola", r.Form.Get("Body"))
		assert.Contains(t, r.Header.Get("Authorization"), "Basic ")

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Send(context.Background(), core.Message{
		To:   "+5215512345678",
		Body: "hola",
	})

	assert.True(t, response.Success)
	assert.Equal(t, "SM123", response.PostID)
}

func TestSendDoesNotDoublePrefix(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "whatsapp:+5215512345678", r.Form.Get("To"))
		_, _ = w.Write([]byte(`{"sid":"SM124","status":"queued"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Send(context.Background(), core.Message{
		To:   "whatsapp:+5215512345678",
		Body: "hola",
	})

	assert.True(t, response.Success)
}

func TestSendRetriesTransientFailures(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"service unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"sid":"SM125","status":"queued"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Send(context.Background(), core.Message{
		To:   "+5215512345678",
		Body: "hola",
	})

	assert.True(t, response.Success, "transient failures within the attempt budget recover")
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestSendDoesNotRetryAuthFailures(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"authentication failed"}`))
	}))
	defer server.Close()

	connector := testConnector(t, server.URL)

	response := connector.Send(context.Background(), core.Message{
		To:   "+5215512345678",
		Body: "hola",
	})

	assert.False(t, response.Success)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestSendRejectsEmptyMessage(t *testing.T) {
	connector := testConnector(t, "http://127.0.0.1:0")

	response := connector.Send(context.Background(), core.Message{To: "+5215512345678"})
	assert.False(t, response.Success)

	response = connector.Send(context.Background(), core.Message{Body: "hola"})
	assert.False(t, response.Success)
}
