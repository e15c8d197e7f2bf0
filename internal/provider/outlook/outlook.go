// Package outlook adapts the Microsoft Graph v1.0 mail API to the common
// provider contract.
package outlook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/unimail/unimail/internal/normalize"
	"github.com/unimail/unimail/internal/provider"
	"github.com/unimail/unimail/pkg/models"
)

const defaultBaseURL = "https://graph.microsoft.com/v1.0"

// Adapter implements provider.Adapter for Outlook via Microsoft Graph.
type Adapter struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// New creates an Outlook adapter.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		baseURL: defaultBaseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("provider", models.ProviderOutlook),
	}
}

// NewWithBaseURL creates an adapter against a non-default Graph endpoint
// (tests, sovereign clouds).
func NewWithBaseURL(logger *slog.Logger, baseURL string) *Adapter {
	a := New(logger)
	a.baseURL = baseURL
	return a
}

// Type implements provider.Adapter.
func (a *Adapter) Type() models.Provider {
	return models.ProviderOutlook
}

// graphMessage mirrors the Graph v1.0 message resource fields we consume.
type graphMessage struct {
	ID               string           `json:"id"`
	ConversationID   string           `json:"conversationId"`
	Subject          string           `json:"subject"`
	BodyPreview      string           `json:"bodyPreview"`
	Body             graphBody        `json:"body"`
	From             graphRecipient   `json:"from"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	CcRecipients     []graphRecipient `json:"ccRecipients"`
	BccRecipients    []graphRecipient `json:"bccRecipients"`
	IsRead           bool             `json:"isRead"`
	HasAttachments   bool             `json:"hasAttachments"`
	Importance       string           `json:"importance"`
	SentDateTime     time.Time        `json:"sentDateTime"`
	ReceivedDateTime time.Time        `json:"receivedDateTime"`
}

type graphBody struct {
	ContentType string `json:"contentType"` // "text" or "html"
	Content     string `json:"content"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type graphMessageList struct {
	Value []graphMessage `json:"value"`
}

// FetchEmails retrieves the most-recent inbox messages via
// GET /me/mailFolders/inbox/messages.
func (a *Adapter) FetchEmails(ctx context.Context, creds provider.Credentials, account *models.Account, maxResults int) ([]models.Email, error) {
	if creds.AccessToken == "" {
		return nil, &provider.AuthError{Provider: models.ProviderOutlook, Message: "missing access token"}
	}

	endpoint := fmt.Sprintf("%s/me/mailFolders/inbox/messages?%s", a.baseURL, url.Values{
		"$top":     {fmt.Sprintf("%d", maxResults)},
		"$orderby": {"receivedDateTime desc"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &provider.AuthError{Provider: models.ProviderOutlook, Message: resp.Status}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var list graphMessageList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	emails := make([]models.Email, 0, len(list.Value))
	for _, msg := range list.Value {
		emails = append(emails, mapMessage(account, msg))
	}
	return emails, nil
}

// SendEmail sends via POST /me/sendMail. Graph returns 202 with no body, so
// the returned id is a locally generated placeholder (provider limitation).
func (a *Adapter) SendEmail(ctx context.Context, creds provider.Credentials, account *models.Account, msg *provider.OutgoingMessage) (string, error) {
	if creds.AccessToken == "" {
		return "", &provider.AuthError{Provider: models.ProviderOutlook, Message: "missing access token"}
	}

	contentType := "text"
	content := msg.BodyText
	if msg.BodyHTML != "" {
		contentType = "html"
		content = msg.BodyHTML
	}

	payload := map[string]any{
		"message": map[string]any{
			"subject":       msg.Subject,
			"body":          map[string]string{"contentType": contentType, "content": content},
			"toRecipients":  toRecipients(msg.To),
			"ccRecipients":  toRecipients(msg.Cc),
			"bccRecipients": toRecipients(msg.Bcc),
		},
		"saveToSentItems": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sendMail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/me/sendMail", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &provider.AuthError{Provider: models.ProviderOutlook, Message: resp.Status}
	}
	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return "outlook-" + uuid.NewString(), nil
}

func toRecipients(addrs []string) []graphRecipient {
	recipients := make([]graphRecipient, 0, len(addrs))
	for _, addr := range addrs {
		recipients = append(recipients, graphRecipient{EmailAddress: graphEmailAddress{Address: addr}})
	}
	return recipients
}

// mapMessage maps a Graph message onto the normalized shape. Outlook has no
// starred concept, so is_starred defaults to false; importance=high maps to
// the high priority bucket.
func mapMessage(account *models.Account, msg graphMessage) models.Email {
	bodyText := ""
	bodyHTML := ""
	if msg.Body.ContentType == "html" {
		bodyHTML = msg.Body.Content
	} else {
		bodyText = msg.Body.Content
	}

	priority := models.PriorityNormal
	switch msg.Importance {
	case "high":
		priority = models.PriorityHigh
	case "low":
		priority = models.PriorityLow
	}

	var sentAt *time.Time
	if !msg.SentDateTime.IsZero() {
		t := msg.SentDateTime
		sentAt = &t
	}

	return models.Email{
		UserID:         account.UserID,
		AccountID:      account.ID,
		MessageID:      msg.ID,
		ThreadID:       msg.ConversationID,
		Subject:        msg.Subject,
		FromAddr:       msg.From.EmailAddress.Address,
		FromName:       msg.From.EmailAddress.Name,
		ToAddrs:        normalize.JoinAddresses(addresses(msg.ToRecipients)),
		CcAddrs:        normalize.JoinAddresses(addresses(msg.CcRecipients)),
		BccAddrs:       normalize.JoinAddresses(addresses(msg.BccRecipients)),
		BodyText:       bodyText,
		BodyHTML:       bodyHTML,
		Snippet:        normalize.Snippet(msg.BodyPreview, bodyText, bodyHTML),
		HasAttachments: msg.HasAttachments,
		Folder:         models.FolderInbox,
		IsRead:         msg.IsRead,
		IsStarred:      false,
		Priority:       priority,
		SentAt:         sentAt,
		ReceivedAt:     msg.ReceivedDateTime,
	}
}

func addresses(recipients []graphRecipient) []string {
	addrs := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addrs = append(addrs, r.EmailAddress.Address)
	}
	return addrs
}
