// Package imapmail adapts generic IMAP/SMTP accounts to the common provider
// contract.
package imapmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/unimail/unimail/pkg/models"
)

// rawEmail is one message as fetched from IMAP, before normalization.
type rawEmail struct {
	UID         uint32
	MessageID   string
	Subject     string
	Date        time.Time
	FromName    string
	FromAddr    string
	To          []string
	Cc          []string
	Flags       []string
	BodyText    string
	BodyHTML    string
	Attachments []models.Attachment
}

// imapSession is one authenticated connection to an IMAP server.
type imapSession struct {
	client *client.Client
	logger *slog.Logger
}

// connect dials the server with TLS, logs in and selects INBOX.
func connect(ctx context.Context, host string, port int, username, password string, dialTimeout time.Duration, logger *slog.Logger) (*imapSession, *imap.MailboxStatus, error) {
	if dialTimeout == 0 {
		dialTimeout = 30 * time.Second
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	imapClient, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to create IMAP client: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		imapClient.Timeout = time.Until(deadline)
	}

	if err := imapClient.Login(username, password); err != nil {
		imapClient.Logout()
		return nil, nil, fmt.Errorf("failed to login: %w", err)
	}

	mbox, err := imapClient.Select("INBOX", true)
	if err != nil {
		imapClient.Logout()
		return nil, nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	return &imapSession{client: imapClient, logger: logger}, mbox, nil
}

func (s *imapSession) close() {
	_ = s.client.Logout()
}

// fetchRecent fetches the most-recent max messages of the selected mailbox.
// Messages that fail to parse are skipped, not fatal.
func (s *imapSession) fetchRecent(mbox *imap.MailboxStatus, max int) ([]*rawEmail, error) {
	if mbox.Messages == 0 {
		return nil, nil
	}

	from := uint32(1)
	if mbox.Messages > uint32(max) {
		from = mbox.Messages - uint32(max) + 1
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchFlags, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 100)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqSet, items, messages)
	}()

	var emails []*rawEmail
	for msg := range messages {
		email, err := s.parseMessage(msg, section)
		if err != nil {
			s.logger.Warn("failed to parse message, skipping", "uid", msg.Uid, "error", err)
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return emails, fmt.Errorf("failed to fetch: %w", err)
	}

	return emails, nil
}

// parseMessage parses an IMAP message into rawEmail
func (s *imapSession) parseMessage(msg *imap.Message, section *imap.BodySectionName) (*rawEmail, error) {
	email := &rawEmail{
		UID:   msg.Uid,
		Flags: msg.Flags,
	}

	// Parse envelope
	if msg.Envelope != nil {
		email.Subject = msg.Envelope.Subject
		email.Date = msg.Envelope.Date
		email.MessageID = msg.Envelope.MessageId

		if len(msg.Envelope.From) > 0 {
			from := msg.Envelope.From[0]
			email.FromName = from.PersonalName
			email.FromAddr = from.Address()
		}
		for _, to := range msg.Envelope.To {
			email.To = append(email.To, to.Address())
		}
		for _, cc := range msg.Envelope.Cc {
			email.Cc = append(email.Cc, cc.Address())
		}
	}

	// Parse body
	bodyReader := msg.GetBody(section)
	if bodyReader == nil {
		return email, nil
	}

	mr, err := mail.CreateReader(bodyReader)
	if err != nil {
		// Envelope data is still usable; record what we have.
		s.logger.Warn("failed to create mail reader", "uid", msg.Uid, "error", err)
		return email, nil
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.logger.Warn("failed to read part", "uid", msg.Uid, "error", err)
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}

			if strings.HasPrefix(ct, "text/html") {
				email.BodyHTML = string(body)
			} else if strings.HasPrefix(ct, "text/plain") {
				email.BodyText = string(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			size, _ := io.Copy(io.Discard, part.Body)
			email.Attachments = append(email.Attachments, models.Attachment{
				Filename: filename,
				MIMEType: ct,
				Size:     size,
			})
		}
	}

	return email, nil
}
