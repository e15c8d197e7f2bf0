package database

import (
	"context"
	"fmt"
	"time"

	"github.com/unimail/unimail/pkg/models"
)

// UpsertContact records a correspondent seen during sync, keyed by
// (user_id, email). An existing contact keeps its name unless the new
// sighting supplies one.
func (db *DB) UpsertContact(ctx context.Context, contact *models.Contact) error {
	query := `
		INSERT INTO contacts (user_id, email, name, last_seen_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, email) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE contacts.name END,
			last_seen_at = excluded.last_seen_at
	`
	now := time.Now()
	if contact.LastSeenAt.IsZero() {
		contact.LastSeenAt = now
	}
	_, err := db.ExecContext(ctx, query,
		contact.UserID,
		contact.Email,
		contact.Name,
		contact.LastSeenAt,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	return nil
}

// GetContactsByUserID returns a user's contacts, most recently seen first
func (db *DB) GetContactsByUserID(ctx context.Context, userID int64) ([]*models.Contact, error) {
	var contacts []*models.Contact
	query := `SELECT * FROM contacts WHERE user_id = ? ORDER BY last_seen_at DESC`
	err := db.SelectContext(ctx, &contacts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contacts: %w", err)
	}
	return contacts, nil
}
