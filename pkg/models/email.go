package models

import "time"

// Folder is the logical mailbox folder of a message.
type Folder string

const (
	FolderInbox   Folder = "inbox"
	FolderSent    Folder = "sent"
	FolderDrafts  Folder = "drafts"
	FolderArchive Folder = "archive"
	FolderSpam    Folder = "spam"
	FolderTrash   Folder = "trash"
)

// Priority is the triage priority of a message.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Email represents one message normalized from any provider.
// (account_id, message_id) is unique; message_id is the provider's
// native id (Gmail message id, Graph message id, IMAP Message-ID header).
type Email struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	AccountID int64  `db:"account_id"`
	MessageID string `db:"message_id"`
	ThreadID  string `db:"thread_id"`

	Subject  string `db:"subject"`
	FromAddr string `db:"from_addr"`
	FromName string `db:"from_name"`
	ToAddrs  string `db:"to_addrs"` // comma-separated address list
	CcAddrs  string `db:"cc_addrs"`
	BccAddrs string `db:"bcc_addrs"`

	BodyText string `db:"body_text"`
	BodyHTML string `db:"body_html"`
	Snippet  string `db:"snippet"`

	HasAttachments bool   `db:"has_attachments"`
	AttachmentMeta string `db:"attachment_meta"` // JSON array of {filename,mime_type,size}

	Folder    Folder   `db:"folder"`
	IsRead    bool     `db:"is_read"`
	IsStarred bool     `db:"is_starred"`
	IsPinned  bool     `db:"is_pinned"`
	Priority  Priority `db:"priority"`

	// AI enrichment, written after sync by the triage pipeline
	AISummary  string `db:"ai_summary"`
	AICategory string `db:"ai_category"`

	SentAt     *time.Time `db:"sent_at"`
	ReceivedAt time.Time  `db:"received_at"`
	CreatedAt  time.Time  `db:"created_at"`
}

// Attachment describes one attachment of a normalized email.
type Attachment struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}
