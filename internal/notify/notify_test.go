package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimail/unimail/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebhookNotifier_DeliversEvent(t *testing.T) {
	var payload webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, testLogger())
	n.SyncStatus(context.Background(), 42, Event{
		AccountID:    7,
		Status:       models.SyncStateIdle,
		EmailsSynced: 3,
	})

	assert.Equal(t, int64(42), payload.UserID)
	assert.Equal(t, int64(7), payload.Event.AccountID)
	assert.Equal(t, models.SyncStateIdle, payload.Event.Status)
	assert.Equal(t, 3, payload.Event.EmailsSynced)
}

func TestWebhookNotifier_SwallowsDeliveryFailure(t *testing.T) {
	// Nothing listens here; the notifier must log and carry on.
	n := NewWebhookNotifier("http://127.0.0.1:1", testLogger())
	n.SyncStatus(context.Background(), 1, Event{AccountID: 1, Status: models.SyncStateError, Error: "boom"})
}

func TestWebhookNotifier_SwallowsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, testLogger())
	n.SyncStatus(context.Background(), 1, Event{AccountID: 1, Status: models.SyncStateIdle})
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(testLogger())
	n.SyncStatus(context.Background(), 1, Event{AccountID: 1, Status: models.SyncStateIdle})
}
