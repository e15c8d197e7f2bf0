package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unimail/unimail/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when trying to insert a duplicate record
var ErrAlreadyExists = errors.New("record already exists")

// CreateAccount creates a new connected mailbox account
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (user_id, provider, address, access_token, refresh_token, username, password,
			imap_host, imap_port, smtp_host, smtp_port, flag_policy, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if account.FlagPolicy == "" {
		account.FlagPolicy = models.FlagPolicyLocalWins
	}
	result, err := db.ExecContext(ctx, query,
		account.UserID,
		account.Provider,
		account.Address,
		account.AccessToken,
		account.RefreshToken,
		account.Username,
		account.Password,
		account.IMAPHost,
		account.IMAPPort,
		account.SMTPHost,
		account.SMTPPort,
		account.FlagPolicy,
		account.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetAccountByID returns an account by ID
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := `SELECT * FROM accounts WHERE id = ?`
	err := db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAccountsByUserID returns all accounts for a user
func (db *DB) GetAccountsByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts WHERE user_id = ? ORDER BY created_at DESC`
	err := db.SelectContext(ctx, &accounts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

// GetActiveAccountsByUserID returns active accounts for a user, the working
// set of one sync job.
func (db *DB) GetActiveAccountsByUserID(ctx context.Context, userID int64) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts WHERE user_id = ? AND is_active = true ORDER BY created_at`
	err := db.SelectContext(ctx, &accounts, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active accounts: %w", err)
	}
	return accounts, nil
}

// GetAllActiveAccounts returns all active accounts
func (db *DB) GetAllActiveAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts WHERE is_active = true`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active accounts: %w", err)
	}
	return accounts, nil
}

// ListActiveUserIDs returns the distinct user ids that own at least one
// active account. Used to register the periodic sync schedule.
func (db *DB) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	query := `SELECT DISTINCT user_id FROM accounts WHERE is_active = true`
	err := db.SelectContext(ctx, &ids, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active user ids: %w", err)
	}
	return ids, nil
}

// UpdateAccountLastSyncedAt stamps a successful sync cycle
func (db *DB) UpdateAccountLastSyncedAt(ctx context.Context, id int64, syncedAt time.Time) error {
	query := `UPDATE accounts SET last_synced_at = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, syncedAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update last synced at: %w", err)
	}
	return nil
}

// UpdateAccountCredentials replaces the stored (encrypted) credentials,
// e.g. after an OAuth token refresh
func (db *DB) UpdateAccountCredentials(ctx context.Context, id int64, accessToken, refreshToken string) error {
	query := `UPDATE accounts SET access_token = ?, refresh_token = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, accessToken, refreshToken, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}
	return nil
}

// SetAccountActive sets the active status of an account
func (db *DB) SetAccountActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set account active: %w", err)
	}
	return nil
}

// DeleteAccount deletes an account; its emails and sync status cascade
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	query := `DELETE FROM accounts WHERE id = ?`
	_, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
