package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/unimail/unimail/pkg/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	// one connection, or each pooled conn would get its own memory db
	db.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { db.Close() })
	return db
}

func mockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return &DB{sqlx.NewDb(raw, "sqlmock")}, mock
}

func newAccount(t *testing.T, db *DB, userID int64, p models.Provider, address string) *models.Account {
	t.Helper()
	account := &models.Account{
		UserID:   userID,
		Provider: p,
		Address:  address,
		IsActive: true,
	}
	require.NoError(t, db.CreateAccount(context.Background(), account))
	return account
}

func newEmail(account *models.Account, messageID string) *models.Email {
	return &models.Email{
		UserID:     account.UserID,
		AccountID:  account.ID,
		MessageID:  messageID,
		Subject:    "hello",
		FromAddr:   "alice@example.com",
		FromName:   "Alice",
		Folder:     models.FolderInbox,
		Priority:   models.PriorityNormal,
		ReceivedAt: time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}
