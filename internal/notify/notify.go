// Package notify pushes sync events toward the user-facing realtime layer.
// Delivery is fire-and-forget: a notification failure never fails a sync job.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/unimail/unimail/pkg/models"
)

// Event describes the outcome of one account's sync cycle.
type Event struct {
	AccountID    int64            `json:"account_id"`
	Status       models.SyncState `json:"status"`
	EmailsSynced int              `json:"emails_synced,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// Notifier delivers sync status events for a user.
type Notifier interface {
	SyncStatus(ctx context.Context, userID int64, event Event)
}

// LogNotifier writes events to the log. Used when no realtime backend is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// SyncStatus implements Notifier.
func (n *LogNotifier) SyncStatus(_ context.Context, userID int64, event Event) {
	n.logger.Info("sync status",
		"user_id", userID,
		"account_id", event.AccountID,
		"status", event.Status,
		"emails_synced", event.EmailsSynced,
		"error", event.Error,
	)
}

// WebhookNotifier POSTs events to the realtime gateway that owns the user's
// websocket connections.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier creates a webhook-backed notifier.
func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With("component", "notifier"),
	}
}

type webhookPayload struct {
	UserID int64 `json:"user_id"`
	Event  Event `json:"event"`
}

// SyncStatus implements Notifier. Errors are logged and swallowed.
func (n *WebhookNotifier) SyncStatus(ctx context.Context, userID int64, event Event) {
	body, err := json.Marshal(webhookPayload{UserID: userID, Event: event})
	if err != nil {
		n.logger.Warn("failed to marshal notification", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Warn("failed to create notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("failed to deliver notification", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification rejected", "status", resp.StatusCode)
	}
}
