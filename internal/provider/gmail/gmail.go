// Package gmail adapts the Gmail REST API to the common provider contract.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/unimail/unimail/internal/normalize"
	"github.com/unimail/unimail/internal/provider"
	"github.com/unimail/unimail/pkg/models"
)

// Adapter implements provider.Adapter for Gmail.
type Adapter struct {
	logger *slog.Logger
	// newService is swappable for tests.
	newService func(ctx context.Context, creds provider.Credentials) (*gmailapi.Service, error)
}

// New creates a Gmail adapter.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{
		logger:     logger.With("provider", models.ProviderGmail),
		newService: newService,
	}
}

// Type implements provider.Adapter.
func (a *Adapter) Type() models.Provider {
	return models.ProviderGmail
}

func newService(ctx context.Context, creds provider.Credentials) (*gmailapi.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	})
	return gmailapi.NewService(ctx, option.WithTokenSource(ts))
}

// FetchEmails lists the most-recent inbox message ids, fetches each in full
// and maps it onto the normalized shape. Messages that fail to fetch are
// skipped; the rest of the batch continues.
func (a *Adapter) FetchEmails(ctx context.Context, creds provider.Credentials, account *models.Account, maxResults int) ([]models.Email, error) {
	if creds.AccessToken == "" {
		return nil, &provider.AuthError{Provider: models.ProviderGmail, Message: "missing access token"}
	}

	svc, err := a.newService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	list, err := svc.Users.Messages.List("me").LabelIds("INBOX").MaxResults(int64(maxResults)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	emails := make([]models.Email, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			a.logger.Warn("failed to fetch message, skipping", "message_id", ref.Id, "error", err)
			continue
		}
		emails = append(emails, mapMessage(account, msg))
	}

	return emails, nil
}

// SendEmail composes an RFC 2822 message, base64url-encodes it and sends it
// through Users.Messages.Send. Gmail echoes the created message id back.
func (a *Adapter) SendEmail(ctx context.Context, creds provider.Credentials, account *models.Account, msg *provider.OutgoingMessage) (string, error) {
	if creds.AccessToken == "" {
		return "", &provider.AuthError{Provider: models.ProviderGmail, Message: "missing access token"}
	}

	svc, err := a.newService(ctx, creds)
	if err != nil {
		return "", fmt.Errorf("failed to create gmail service: %w", err)
	}

	raw := base64.RawURLEncoding.EncodeToString([]byte(buildMIME(account.Address, msg)))
	sent, err := svc.Users.Messages.Send("me", &gmailapi.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return sent.Id, nil
}

// buildMIME composes the RFC 2822 payload for the raw send API.
func buildMIME(from string, msg *provider.OutgoingMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", from))
	b.WriteString(fmt.Sprintf("To: %s\r\n", normalize.JoinAddresses(msg.To)))
	if len(msg.Cc) > 0 {
		b.WriteString(fmt.Sprintf("Cc: %s\r\n", normalize.JoinAddresses(msg.Cc)))
	}
	if len(msg.Bcc) > 0 {
		b.WriteString(fmt.Sprintf("Bcc: %s\r\n", normalize.JoinAddresses(msg.Bcc)))
	}
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	if msg.InReplyTo != "" {
		b.WriteString(fmt.Sprintf("In-Reply-To: <%s>\r\n", msg.InReplyTo))
		b.WriteString(fmt.Sprintf("References: <%s>\r\n", msg.InReplyTo))
	}
	if msg.BodyHTML != "" {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.BodyHTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		b.WriteString("\r\n")
		b.WriteString(msg.BodyText)
	}
	return b.String()
}

// mapMessage maps a full-format Gmail message onto the normalized shape.
// Read/starred come from label flags; the snippet is Gmail's own preview.
func mapMessage(account *models.Account, msg *gmailapi.Message) models.Email {
	headers := map[string]string{}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	fromName, fromAddr := parseAddress(headers["from"])

	bodyText, bodyHTML, attachments := extractParts(msg.Payload)
	attachmentMeta := ""
	if len(attachments) > 0 {
		if data, err := json.Marshal(attachments); err == nil {
			attachmentMeta = string(data)
		}
	}

	isRead := true
	isStarred := false
	for _, label := range msg.LabelIds {
		switch label {
		case "UNREAD":
			isRead = false
		case "STARRED":
			isStarred = true
		}
	}

	receivedAt := time.UnixMilli(msg.InternalDate)
	var sentAt *time.Time
	if d, err := mail.ParseDate(headers["date"]); err == nil {
		sentAt = &d
	}

	return models.Email{
		UserID:         account.UserID,
		AccountID:      account.ID,
		MessageID:      msg.Id,
		ThreadID:       msg.ThreadId,
		Subject:        headers["subject"],
		FromAddr:       fromAddr,
		FromName:       fromName,
		ToAddrs:        headers["to"],
		CcAddrs:        headers["cc"],
		BccAddrs:       headers["bcc"],
		BodyText:       bodyText,
		BodyHTML:       bodyHTML,
		Snippet:        normalize.Snippet(msg.Snippet, bodyText, bodyHTML),
		HasAttachments: len(attachments) > 0,
		AttachmentMeta: attachmentMeta,
		Folder:         models.FolderInbox,
		IsRead:         isRead,
		IsStarred:      isStarred,
		Priority:       models.PriorityNormal,
		SentAt:         sentAt,
		ReceivedAt:     receivedAt,
	}
}

// extractParts walks the MIME tree for text bodies and attachment metadata.
func extractParts(payload *gmailapi.MessagePart) (bodyText, bodyHTML string, attachments []models.Attachment) {
	if payload == nil {
		return "", "", nil
	}

	var walk func(part *gmailapi.MessagePart)
	walk = func(part *gmailapi.MessagePart) {
		if part == nil {
			return
		}
		if part.Filename != "" {
			att := models.Attachment{Filename: part.Filename, MIMEType: part.MimeType}
			if part.Body != nil {
				att.Size = part.Body.Size
			}
			attachments = append(attachments, att)
		} else if part.Body != nil && part.Body.Data != "" {
			if data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(part.Body.Data, "=")); err == nil {
				switch {
				case part.MimeType == "text/plain" && bodyText == "":
					bodyText = string(data)
				case part.MimeType == "text/html" && bodyHTML == "":
					bodyHTML = string(data)
				}
			}
		}
		for _, child := range part.Parts {
			walk(child)
		}
	}
	walk(payload)

	return bodyText, bodyHTML, attachments
}

func parseAddress(raw string) (name, addr string) {
	if raw == "" {
		return "", ""
	}
	parsed, err := mail.ParseAddress(raw)
	if err != nil {
		return "", raw
	}
	return parsed.Name, parsed.Address
}
