package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimail/unimail/pkg/models"
)

func TestUpsertSyncStatus_OverwritesPreviousCycle(t *testing.T) {
	db := testDB(t)
	account := newAccount(t, db, 1, models.ProviderGmail, "me@gmail.com")

	require.NoError(t, db.UpsertSyncStatus(context.Background(), &models.SyncStatus{
		AccountID:    account.ID,
		State:        models.SyncStateError,
		ErrorKind:    models.ErrorKindAuth,
		ErrorMessage: "token expired",
	}))

	require.NoError(t, db.UpsertSyncStatus(context.Background(), &models.SyncStatus{
		AccountID:     account.ID,
		State:         models.SyncStateIdle,
		LastMessageID: "msg-5",
		EmailsSynced:  5,
	}))

	status, err := db.GetSyncStatus(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStateIdle, status.State)
	assert.Equal(t, models.ErrorKindNone, status.ErrorKind)
	assert.Empty(t, status.ErrorMessage)
	assert.Equal(t, "msg-5", status.LastMessageID)
	assert.Equal(t, 5, status.EmailsSynced)
}

func TestGetSyncStatus_NotFoundBeforeFirstSync(t *testing.T) {
	db := testDB(t)
	account := newAccount(t, db, 1, models.ProviderGmail, "me@gmail.com")

	_, err := db.GetSyncStatus(context.Background(), account.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
