// Package health derives a read-only health signal per account from sync
// recency. It mutates nothing.
package health

import (
	"time"

	"github.com/unimail/unimail/pkg/models"
)

// Status is the three-state health signal shown per account.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Reason explains a non-healthy status.
type Reason string

const (
	ReasonOK          Reason = "ok"
	ReasonNeverSynced Reason = "never_synced"
	ReasonStale       Reason = "stale"
)

// Recency bands, in hours since the last successful sync.
const (
	warningAfterHours = 2
	errorAfterHours   = 24
)

// Report is the derived health view of one account.
type Report struct {
	AccountID      int64   `json:"account_id"`
	Status         Status  `json:"status"`
	Reason         Reason  `json:"reason"`
	HoursSinceSync float64 `json:"hours_since_sync"`
	// SyncFailed marks accounts whose sync should be surfaced as failed.
	SyncFailed bool `json:"sync_failed"`
}

// Classify derives the health of one account at the given instant.
// Never-synced accounts warn; accounts stale beyond 24 hours error and are
// reported as failed; 2-24 hours warns; anything fresher is healthy.
func Classify(account *models.Account, now time.Time) Report {
	if account.LastSyncedAt == nil {
		return Report{
			AccountID: account.ID,
			Status:    StatusWarning,
			Reason:    ReasonNeverSynced,
		}
	}

	hours := now.Sub(*account.LastSyncedAt).Hours()
	report := Report{
		AccountID:      account.ID,
		HoursSinceSync: hours,
	}

	switch {
	case hours > errorAfterHours:
		report.Status = StatusError
		report.Reason = ReasonStale
		report.SyncFailed = true
	case hours > warningAfterHours:
		report.Status = StatusWarning
		report.Reason = ReasonStale
	default:
		report.Status = StatusHealthy
		report.Reason = ReasonOK
	}

	return report
}

// ClassifyAll derives health for a list of accounts.
func ClassifyAll(accounts []*models.Account, now time.Time) []Report {
	reports := make([]Report, 0, len(accounts))
	for _, account := range accounts {
		reports = append(reports, Classify(account, now))
	}
	return reports
}
