package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimail/unimail/pkg/models"
)

func TestCreateAccount(t *testing.T) {
	db := testDB(t)

	account := &models.Account{
		UserID:   1,
		Provider: models.ProviderIMAP,
		Address:  "me@fastmail.com",
		Username: "encrypted-user",
		Password: "encrypted-pass",
		IMAPHost: "imap.fastmail.com",
		IMAPPort: 993,
		IsActive: true,
	}
	require.NoError(t, db.CreateAccount(context.Background(), account))
	assert.NotZero(t, account.ID)
	assert.Equal(t, models.FlagPolicyLocalWins, account.FlagPolicy) // default

	stored, err := db.GetAccountByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@fastmail.com", stored.Address)
	assert.Equal(t, "imap.fastmail.com", stored.IMAPHost)
	assert.Nil(t, stored.LastSyncedAt)
}

func TestCreateAccount_DuplicateRejected(t *testing.T) {
	db := testDB(t)
	newAccount(t, db, 1, models.ProviderGmail, "me@gmail.com")

	dup := &models.Account{UserID: 1, Provider: models.ProviderGmail, Address: "me@gmail.com", IsActive: true}
	err := db.CreateAccount(context.Background(), dup)
	assert.Error(t, err)
}

func TestCreateAccount_UnknownProviderRejected(t *testing.T) {
	db := testDB(t)

	account := &models.Account{UserID: 1, Provider: "pigeon", Address: "me@coop.org"}
	err := db.CreateAccount(context.Background(), account)
	assert.Error(t, err)
}

func TestGetAccountByID_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetAccountByID(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetActiveAccountsByUserID(t *testing.T) {
	db := testDB(t)
	active := newAccount(t, db, 1, models.ProviderGmail, "a@gmail.com")
	inactive := newAccount(t, db, 1, models.ProviderOutlook, "b@outlook.com")
	require.NoError(t, db.SetAccountActive(context.Background(), inactive.ID, false))
	newAccount(t, db, 2, models.ProviderGmail, "other@gmail.com")

	accounts, err := db.GetActiveAccountsByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, active.ID, accounts[0].ID)
}

func TestListActiveUserIDs(t *testing.T) {
	db := testDB(t)
	newAccount(t, db, 1, models.ProviderGmail, "a@gmail.com")
	newAccount(t, db, 1, models.ProviderIMAP, "a@fastmail.com")
	newAccount(t, db, 2, models.ProviderGmail, "b@gmail.com")
	disabled := newAccount(t, db, 3, models.ProviderGmail, "c@gmail.com")
	require.NoError(t, db.SetAccountActive(context.Background(), disabled.ID, false))

	ids, err := db.ListActiveUserIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}

func TestUpdateAccountLastSyncedAt(t *testing.T) {
	db := testDB(t)
	account := newAccount(t, db, 1, models.ProviderGmail, "me@gmail.com")

	syncedAt := time.Date(2026, 7, 2, 15, 30, 0, 0, time.UTC)
	require.NoError(t, db.UpdateAccountLastSyncedAt(context.Background(), account.ID, syncedAt))

	stored, err := db.GetAccountByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSyncedAt)
	assert.Equal(t, syncedAt.Unix(), stored.LastSyncedAt.Unix())
}

func TestUpdateAccountCredentials(t *testing.T) {
	db := testDB(t)
	account := newAccount(t, db, 1, models.ProviderGmail, "me@gmail.com")

	require.NoError(t, db.UpdateAccountCredentials(context.Background(), account.ID, "new-access", "new-refresh"))

	stored, err := db.GetAccountByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, "new-refresh", stored.RefreshToken)
}

func TestDeleteAccount_CascadesToEmailsAndStatus(t *testing.T) {
	db := testDB(t)
	account := newAccount(t, db, 1, models.ProviderGmail, "me@gmail.com")

	_, err := db.UpsertEmail(context.Background(), newEmail(account, "msg-1"), models.FlagPolicyLocalWins)
	require.NoError(t, err)
	require.NoError(t, db.UpsertSyncStatus(context.Background(), &models.SyncStatus{
		AccountID: account.ID,
		State:     models.SyncStateIdle,
	}))

	require.NoError(t, db.DeleteAccount(context.Background(), account.ID))

	_, err = db.GetAccountByID(context.Background(), account.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := db.CountEmailsByAccount(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = db.GetSyncStatus(context.Background(), account.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
