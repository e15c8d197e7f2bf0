package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unimail/unimail/pkg/models"
)

// UpsertEmail writes a fetched message keyed by (account_id, message_id) and
// reports whether a new row was inserted.
//
// The insert uses INSERT OR IGNORE so a concurrent writer racing on the same
// key is harmless. When the row already exists only provider-owned columns
// are updated; is_read follows the account's flag policy and
// is_starred/is_pinned stay local after the initial insert, so a user toggle
// between fetch and write is never clobbered.
func (db *DB) UpsertEmail(ctx context.Context, email *models.Email, policy models.FlagPolicy) (bool, error) {
	insert := `
		INSERT OR IGNORE INTO emails (user_id, account_id, message_id, thread_id, subject, from_addr, from_name,
			to_addrs, cc_addrs, bcc_addrs, body_text, body_html, snippet, has_attachments, attachment_meta,
			folder, is_read, is_starred, is_pinned, priority, ai_summary, ai_category, sent_at, received_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := db.ExecContext(ctx, insert,
		email.UserID,
		email.AccountID,
		email.MessageID,
		email.ThreadID,
		email.Subject,
		email.FromAddr,
		email.FromName,
		email.ToAddrs,
		email.CcAddrs,
		email.BccAddrs,
		email.BodyText,
		email.BodyHTML,
		email.Snippet,
		email.HasAttachments,
		email.AttachmentMeta,
		email.Folder,
		email.IsRead,
		email.IsStarred,
		email.IsPinned,
		email.Priority,
		email.AISummary,
		email.AICategory,
		email.SentAt,
		email.ReceivedAt,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert email: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("failed to get last insert id: %w", err)
		}
		email.ID = id
		email.CreatedAt = now
		return true, nil
	}

	// Already synced: refresh provider-owned fields only.
	update := `
		UPDATE emails SET thread_id = ?, subject = ?, snippet = ?, has_attachments = ?, attachment_meta = ?
		WHERE account_id = ? AND message_id = ?
	`
	args := []any{
		email.ThreadID,
		email.Subject,
		email.Snippet,
		email.HasAttachments,
		email.AttachmentMeta,
		email.AccountID,
		email.MessageID,
	}
	if policy == models.FlagPolicyProviderWins {
		update = `
			UPDATE emails SET thread_id = ?, subject = ?, snippet = ?, has_attachments = ?, attachment_meta = ?, is_read = ?
			WHERE account_id = ? AND message_id = ?
		`
		args = []any{
			email.ThreadID,
			email.Subject,
			email.Snippet,
			email.HasAttachments,
			email.AttachmentMeta,
			email.IsRead,
			email.AccountID,
			email.MessageID,
		}
	}
	if _, err := db.ExecContext(ctx, update, args...); err != nil {
		return false, fmt.Errorf("failed to update email: %w", err)
	}
	return false, nil
}

// GetEmailByMessageID returns a message by its provider message id
func (db *DB) GetEmailByMessageID(ctx context.Context, accountID int64, messageID string) (*models.Email, error) {
	var email models.Email
	query := `SELECT * FROM emails WHERE account_id = ? AND message_id = ?`
	err := db.GetContext(ctx, &email, query, accountID, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &email, nil
}

// CountEmailsByAccount returns the number of stored messages for an account
func (db *DB) CountEmailsByAccount(ctx context.Context, accountID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM emails WHERE account_id = ?`
	err := db.GetContext(ctx, &count, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return count, nil
}

// ListEmails returns a page of a user's messages in one folder,
// newest first
func (db *DB) ListEmails(ctx context.Context, userID int64, folder models.Folder, limit, offset int) ([]*models.Email, error) {
	var emails []*models.Email
	query := `
		SELECT * FROM emails WHERE user_id = ? AND folder = ?
		ORDER BY received_at DESC LIMIT ? OFFSET ?
	`
	err := db.SelectContext(ctx, &emails, query, userID, folder, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list emails: %w", err)
	}
	return emails, nil
}

// SetEmailRead marks a message read or unread (user action)
func (db *DB) SetEmailRead(ctx context.Context, id int64, read bool) error {
	query := `UPDATE emails SET is_read = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, read, id); err != nil {
		return fmt.Errorf("failed to set email read: %w", err)
	}
	return nil
}

// SetEmailStarred stars or unstars a message (user action, local-only)
func (db *DB) SetEmailStarred(ctx context.Context, id int64, starred bool) error {
	query := `UPDATE emails SET is_starred = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, starred, id); err != nil {
		return fmt.Errorf("failed to set email starred: %w", err)
	}
	return nil
}

// SetEmailPinned pins or unpins a message (user action, local-only)
func (db *DB) SetEmailPinned(ctx context.Context, id int64, pinned bool) error {
	query := `UPDATE emails SET is_pinned = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, pinned, id); err != nil {
		return fmt.Errorf("failed to set email pinned: %w", err)
	}
	return nil
}

// MoveEmail moves a message to another folder (archive, trash, ...)
func (db *DB) MoveEmail(ctx context.Context, id int64, folder models.Folder) error {
	query := `UPDATE emails SET folder = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, folder, id); err != nil {
		return fmt.Errorf("failed to move email: %w", err)
	}
	return nil
}

// SetEmailAIFields stores triage enrichment produced after sync
func (db *DB) SetEmailAIFields(ctx context.Context, id int64, summary, category string, priority models.Priority) error {
	query := `UPDATE emails SET ai_summary = ?, ai_category = ?, priority = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, summary, category, priority, id); err != nil {
		return fmt.Errorf("failed to set ai fields: %w", err)
	}
	return nil
}

// DeleteEmail hard-deletes a message (user delete action)
func (db *DB) DeleteEmail(ctx context.Context, id int64) error {
	query := `DELETE FROM emails WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete email: %w", err)
	}
	return nil
}
