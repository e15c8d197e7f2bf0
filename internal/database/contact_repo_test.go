package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unimail/unimail/pkg/models"
)

func TestUpsertContact(t *testing.T) {
	db := testDB(t)

	seen := time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{
		UserID:     1,
		Email:      "alice@example.com",
		Name:       "Alice",
		LastSeenAt: seen,
	}))

	// A later sighting without a display name keeps the stored one.
	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{
		UserID:     1,
		Email:      "alice@example.com",
		LastSeenAt: seen.Add(time.Hour),
	}))

	contacts, err := db.GetContactsByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alice", contacts[0].Name)
	assert.Equal(t, seen.Add(time.Hour).Unix(), contacts[0].LastSeenAt.Unix())
}

func TestUpsertContact_NewNameReplaces(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{UserID: 1, Email: "bob@example.com"}))
	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{UserID: 1, Email: "bob@example.com", Name: "Bob"}))

	contacts, err := db.GetContactsByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Bob", contacts[0].Name)
}

func TestGetContactsByUserID_MostRecentFirst(t *testing.T) {
	db := testDB(t)

	base := time.Date(2026, 7, 3, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{UserID: 1, Email: "old@example.com", LastSeenAt: base}))
	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{UserID: 1, Email: "new@example.com", LastSeenAt: base.Add(time.Hour)}))
	require.NoError(t, db.UpsertContact(context.Background(), &models.Contact{UserID: 2, Email: "other@example.com", LastSeenAt: base}))

	contacts, err := db.GetContactsByUserID(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "new@example.com", contacts[0].Email)
	assert.Equal(t, "old@example.com", contacts[1].Email)
}
