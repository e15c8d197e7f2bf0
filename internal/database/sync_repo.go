package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unimail/unimail/pkg/models"
)

// UpsertSyncStatus overwrites an account's sync status. The row is created
// lazily on the first sync attempt.
func (db *DB) UpsertSyncStatus(ctx context.Context, status *models.SyncStatus) error {
	query := `
		INSERT INTO sync_status (account_id, state, error_kind, error_message, last_message_id, emails_synced, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id) DO UPDATE SET
			state = excluded.state,
			error_kind = excluded.error_kind,
			error_message = excluded.error_message,
			last_message_id = excluded.last_message_id,
			emails_synced = excluded.emails_synced,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		status.AccountID,
		status.State,
		status.ErrorKind,
		status.ErrorMessage,
		status.LastMessageID,
		status.EmailsSynced,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	status.UpdatedAt = now
	return nil
}

// GetSyncStatus returns the sync status for an account
func (db *DB) GetSyncStatus(ctx context.Context, accountID int64) (*models.SyncStatus, error) {
	var status models.SyncStatus
	query := `SELECT * FROM sync_status WHERE account_id = ?`
	err := db.GetContext(ctx, &status, query, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}
	return &status, nil
}
