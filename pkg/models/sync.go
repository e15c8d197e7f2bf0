package models

import "time"

// SyncState is the state of an account's most recent sync cycle.
type SyncState string

const (
	SyncStateSyncing SyncState = "syncing"
	SyncStateIdle    SyncState = "idle"
	SyncStateError   SyncState = "error"
)

// ErrorKind classifies why an account's sync step failed, so monitoring can
// tell broken credentials from slow or unavailable providers.
type ErrorKind string

const (
	ErrorKindNone        ErrorKind = ""
	ErrorKindAuth        ErrorKind = "auth"
	ErrorKindProvider    ErrorKind = "provider"
	ErrorKindTimeout     ErrorKind = "timeout"
	ErrorKindPersistence ErrorKind = "persistence"
)

// SyncStatus tracks the last sync cycle of one account. Created lazily on the
// first sync attempt and overwritten on every cycle.
type SyncStatus struct {
	AccountID     int64     `db:"account_id"`
	State         SyncState `db:"state"`
	ErrorKind     ErrorKind `db:"error_kind"`
	ErrorMessage  string    `db:"error_message"`
	LastMessageID string    `db:"last_message_id"`
	EmailsSynced  int       `db:"emails_synced"`
	UpdatedAt     time.Time `db:"updated_at"`
}
