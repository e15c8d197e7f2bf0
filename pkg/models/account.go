package models

import "time"

// Provider identifies which backend an account is connected through.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
	ProviderIMAP    Provider = "imap"
)

// FlagPolicy controls how provider-observed read/star flags are reconciled
// with local user toggles on re-sync.
type FlagPolicy string

const (
	// FlagPolicyLocalWins never overwrites flags after the initial insert.
	FlagPolicyLocalWins FlagPolicy = "local_wins"
	// FlagPolicyProviderWins treats the provider's is_read as authoritative.
	// Starred/pinned remain local-only under both policies.
	FlagPolicyProviderWins FlagPolicy = "provider_wins"
)

// Account represents a connected mailbox
type Account struct {
	ID       int64    `db:"id"`
	UserID   int64    `db:"user_id"`
	Provider Provider `db:"provider"`
	Address  string   `db:"address"`

	// OAuth credentials, encrypted at rest (gmail/outlook)
	AccessToken  string `db:"access_token"`
	RefreshToken string `db:"refresh_token"`

	// IMAP/SMTP credentials, encrypted at rest
	Username string `db:"username"`
	Password string `db:"password"`
	IMAPHost string `db:"imap_host"` // e.g., imap.fastmail.com
	IMAPPort int    `db:"imap_port"`
	SMTPHost string `db:"smtp_host"`
	SMTPPort int    `db:"smtp_port"`

	FlagPolicy   FlagPolicy `db:"flag_policy"`
	IsActive     bool       `db:"is_active"`
	LastSyncedAt *time.Time `db:"last_synced_at"` // nil until the first successful sync
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}
