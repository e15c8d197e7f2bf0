package imapmail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unimail/unimail/internal/normalize"
	"github.com/unimail/unimail/internal/provider"
	"github.com/unimail/unimail/pkg/models"
)

// Adapter implements provider.Adapter for generic IMAP/SMTP accounts.
type Adapter struct {
	logger      *slog.Logger
	dialTimeout time.Duration
}

// New creates an IMAP/SMTP adapter.
func New(logger *slog.Logger, dialTimeout time.Duration) *Adapter {
	return &Adapter{
		logger:      logger.With("provider", models.ProviderIMAP),
		dialTimeout: dialTimeout,
	}
}

// Type implements provider.Adapter.
func (a *Adapter) Type() models.Provider {
	return models.ProviderIMAP
}

// FetchEmails connects to the account's IMAP server and fetches the
// most-recent inbox messages. The host falls back to resolution from the
// account address when not configured.
func (a *Adapter) FetchEmails(ctx context.Context, creds provider.Credentials, account *models.Account, maxResults int) ([]models.Email, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, &provider.AuthError{Provider: models.ProviderIMAP, Message: "missing username or password"}
	}

	host, port := account.IMAPHost, account.IMAPPort
	if host == "" {
		resolved, resolvedPort, err := ResolveIMAPServer(account.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IMAP server: %w", err)
		}
		host, port = resolved, resolvedPort
	}
	if port == 0 {
		port = 993
	}

	session, mbox, err := connect(ctx, host, port, creds.Username, creds.Password, a.dialTimeout, a.logger)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "login") {
			return nil, &provider.AuthError{Provider: models.ProviderIMAP, Message: err.Error()}
		}
		return nil, err
	}
	defer session.close()

	raw, err := session.fetchRecent(mbox, maxResults)
	if err != nil {
		return nil, err
	}

	emails := make([]models.Email, 0, len(raw))
	for _, r := range raw {
		emails = append(emails, mapMessage(account, r))
	}
	return emails, nil
}

// SendEmail sends through the account's SMTP server. Plain SMTP never echoes
// an id back, so the generated Message-ID header doubles as the result.
func (a *Adapter) SendEmail(ctx context.Context, creds provider.Credentials, account *models.Account, msg *provider.OutgoingMessage) (string, error) {
	if creds.Username == "" || creds.Password == "" {
		return "", &provider.AuthError{Provider: models.ProviderIMAP, Message: "missing username or password"}
	}

	host, port := account.SMTPHost, account.SMTPPort
	if host == "" {
		return "", fmt.Errorf("no SMTP host configured for %s", account.Address)
	}
	if port == 0 {
		port = 587
	}

	messageID := fmt.Sprintf("%s@%s", uuid.NewString(), domainOf(account.Address))
	body := buildMessage(account.Address, messageID, msg)

	cfg := smtpConfig{
		Host:     host,
		Port:     port,
		Username: creds.Username,
		Password: creds.Password,
	}
	if err := send(ctx, cfg, account.Address, recipients(msg), body); err != nil {
		return "", fmt.Errorf("failed to send via SMTP: %w", err)
	}

	return messageID, nil
}

func recipients(msg *provider.OutgoingMessage) []string {
	all := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	all = append(all, msg.To...)
	all = append(all, msg.Cc...)
	all = append(all, msg.Bcc...)
	return all
}

func domainOf(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "localhost"
	}
	return strings.ToLower(parts[1])
}

// mapMessage maps a fetched IMAP message onto the normalized shape. The
// Message-ID header is the dedupe key; messages without one get a generated
// fallback so re-syncs still converge on a stable identity per UID.
func mapMessage(account *models.Account, raw *rawEmail) models.Email {
	messageID := strings.Trim(raw.MessageID, "<>")
	if messageID == "" {
		messageID = fmt.Sprintf("imap-uid-%d", raw.UID)
	}

	isRead := false
	isStarred := false
	for _, flag := range raw.Flags {
		switch flag {
		case `\Seen`:
			isRead = true
		case `\Flagged`:
			isStarred = true
		}
	}

	attachmentMeta := ""
	if len(raw.Attachments) > 0 {
		if data, err := json.Marshal(raw.Attachments); err == nil {
			attachmentMeta = string(data)
		}
	}

	receivedAt := raw.Date
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	var sentAt *time.Time
	if !raw.Date.IsZero() {
		d := raw.Date
		sentAt = &d
	}

	return models.Email{
		UserID:         account.UserID,
		AccountID:      account.ID,
		MessageID:      messageID,
		Subject:        raw.Subject,
		FromAddr:       raw.FromAddr,
		FromName:       raw.FromName,
		ToAddrs:        normalize.JoinAddresses(raw.To),
		CcAddrs:        normalize.JoinAddresses(raw.Cc),
		BodyText:       raw.BodyText,
		BodyHTML:       raw.BodyHTML,
		Snippet:        normalize.Snippet("", raw.BodyText, raw.BodyHTML),
		HasAttachments: len(raw.Attachments) > 0,
		AttachmentMeta: attachmentMeta,
		Folder:         models.FolderInbox,
		IsRead:         isRead,
		IsStarred:      isStarred,
		Priority:       models.PriorityNormal,
		SentAt:         sentAt,
		ReceivedAt:     receivedAt,
	}
}
