package gmail

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/unimail/unimail/internal/provider"
	"github.com/unimail/unimail/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAccount() *models.Account {
	return &models.Account{
		ID:       7,
		UserID:   42,
		Provider: models.ProviderGmail,
		Address:  "me@gmail.com",
	}
}

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestMapMessage(t *testing.T) {
	msg := &gmailapi.Message{
		Id:           "msg-1",
		ThreadId:     "thread-1",
		Snippet:      "hello from gmail",
		InternalDate: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		LabelIds:     []string{"INBOX", "UNREAD", "STARRED"},
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "Alice Smith <alice@example.com>"},
				{Name: "To", Value: "me@gmail.com"},
				{Name: "Subject", Value: "Quarterly report"},
				{Name: "Date", Value: "Sun, 01 Mar 2026 11:59:00 +0000"},
			},
			MimeType: "multipart/alternative",
			Parts: []*gmailapi.MessagePart{
				{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64url("plain body")}},
				{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64url("<p>html body</p>")}},
			},
		},
	}

	email := mapMessage(testAccount(), msg)

	assert.Equal(t, int64(42), email.UserID)
	assert.Equal(t, int64(7), email.AccountID)
	assert.Equal(t, "msg-1", email.MessageID)
	assert.Equal(t, "thread-1", email.ThreadID)
	assert.Equal(t, "Quarterly report", email.Subject)
	assert.Equal(t, "alice@example.com", email.FromAddr)
	assert.Equal(t, "Alice Smith", email.FromName)
	assert.Equal(t, "plain body", email.BodyText)
	assert.Equal(t, "<p>html body</p>", email.BodyHTML)
	assert.Equal(t, "hello from gmail", email.Snippet)
	assert.False(t, email.IsRead)
	assert.True(t, email.IsStarred)
	assert.Equal(t, models.FolderInbox, email.Folder)
	assert.Equal(t, models.PriorityNormal, email.Priority)
	require.NotNil(t, email.SentAt)
	assert.Equal(t, time.Date(2026, 3, 1, 11, 59, 0, 0, time.UTC).Unix(), email.SentAt.Unix())
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix(), email.ReceivedAt.Unix())
	assert.False(t, email.HasAttachments)
}

func TestMapMessage_Minimal(t *testing.T) {
	msg := &gmailapi.Message{Id: "bare", InternalDate: 1700000000000}

	email := mapMessage(testAccount(), msg)

	assert.Equal(t, "bare", email.MessageID)
	assert.True(t, email.IsRead) // no UNREAD label
	assert.False(t, email.IsStarred)
	assert.Nil(t, email.SentAt)
	assert.Empty(t, email.Subject)
	assert.Empty(t, email.BodyText)
}

func TestMapMessage_MalformedFrom(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "m",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "not an address"},
			},
		},
	}

	email := mapMessage(testAccount(), msg)

	assert.Equal(t, "not an address", email.FromAddr)
	assert.Empty(t, email.FromName)
}

func TestExtractParts_Attachments(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64url("body")}},
			{
				Filename: "report.pdf",
				MimeType: "application/pdf",
				Body:     &gmailapi.MessagePartBody{Size: 2048, AttachmentId: "att-1"},
			},
		},
	}

	text, html, attachments := extractParts(payload)

	assert.Equal(t, "body", text)
	assert.Empty(t, html)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.pdf", attachments[0].Filename)
	assert.Equal(t, "application/pdf", attachments[0].MIMEType)
	assert.Equal(t, int64(2048), attachments[0].Size)
}

func TestExtractParts_PaddedBase64(t *testing.T) {
	// Gmail usually sends unpadded base64url but padded input must decode too.
	padded := base64.URLEncoding.EncodeToString([]byte("padded body"))
	require.Contains(t, padded, "=")
	payload := &gmailapi.MessagePart{
		MimeType: "text/plain",
		Body:     &gmailapi.MessagePartBody{Data: padded},
	}

	text, _, _ := extractParts(payload)
	assert.Equal(t, "padded body", text)
}

func TestExtractParts_FirstTextPartWins(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64url("first")}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64url("second")}},
		},
	}

	text, _, _ := extractParts(payload)
	assert.Equal(t, "first", text)
}

func TestBuildMIME(t *testing.T) {
	msg := &provider.OutgoingMessage{
		To:       []string{"bob@example.com", "carol@example.com"},
		Cc:       []string{"dave@example.com"},
		Subject:  "Hi",
		BodyText: "plain text body",
	}

	raw := buildMIME("me@gmail.com", msg)

	assert.Contains(t, raw, "From: me@gmail.com\r\n")
	assert.Contains(t, raw, "To: bob@example.com, carol@example.com\r\n")
	assert.Contains(t, raw, "Cc: dave@example.com\r\n")
	assert.Contains(t, raw, "Subject: Hi\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.Contains(t, raw, "\r\n\r\nplain text body")
	assert.NotContains(t, raw, "In-Reply-To")
}

func TestBuildMIME_HTMLReply(t *testing.T) {
	msg := &provider.OutgoingMessage{
		To:        []string{"bob@example.com"},
		Subject:   "Re: Hi",
		BodyHTML:  "<p>html wins</p>",
		BodyText:  "ignored",
		InReplyTo: "orig-id@example.com",
	}

	raw := buildMIME("me@gmail.com", msg)

	assert.Contains(t, raw, "In-Reply-To: <orig-id@example.com>\r\n")
	assert.Contains(t, raw, "References: <orig-id@example.com>\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.Contains(t, raw, "<p>html wins</p>")
	assert.NotContains(t, raw, "ignored")
}

func TestFetchEmails_MissingToken(t *testing.T) {
	a := New(testLogger())
	_, err := a.FetchEmails(context.Background(), provider.Credentials{}, testAccount(), 10)
	assert.True(t, provider.IsAuthError(err))
}

func TestSendEmail_MissingToken(t *testing.T) {
	a := New(testLogger())
	_, err := a.SendEmail(context.Background(), provider.Credentials{}, testAccount(), &provider.OutgoingMessage{})
	assert.True(t, provider.IsAuthError(err))
}
