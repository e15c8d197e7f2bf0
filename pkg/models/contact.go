package models

import "time"

// Contact is a correspondent harvested from synced messages,
// unique per (user_id, email).
type Contact struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	Email      string    `db:"email"`
	Name       string    `db:"name"`
	LastSeenAt time.Time `db:"last_seen_at"`
	CreatedAt  time.Time `db:"created_at"`
}
