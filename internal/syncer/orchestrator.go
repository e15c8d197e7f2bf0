// Package syncer runs sync jobs: it selects a user's accounts, pulls their
// mailboxes through the provider adapters, upserts the normalized messages
// and tracks per-account sync status.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/unimail/unimail/internal/crypto"
	"github.com/unimail/unimail/internal/database"
	"github.com/unimail/unimail/internal/notify"
	"github.com/unimail/unimail/internal/provider"
	"github.com/unimail/unimail/pkg/models"
)

// Job is one unit of sync work: all of a user's active accounts, or a single
// account when AccountID is set.
type Job struct {
	UserID    int64
	AccountID int64
}

// Failure records why one account's sync step failed.
type Failure struct {
	AccountID int64
	Kind      models.ErrorKind
	Error     string
}

// Result summarizes one job. AccountsSynced counts attempted accounts; a
// failed account still counts as attempted, so a job with one bad account
// reports partial success rather than failing outright.
type Result struct {
	UserID         int64
	AccountsSynced int
	EmailsSynced   int
	Failed         []Failure
}

// Options tunes the orchestrator.
type Options struct {
	// ProviderTimeout bounds each adapter call.
	ProviderTimeout time.Duration
	// FetchLimit is the per-account message window per cycle.
	FetchLimit int
}

// Orchestrator executes sync jobs.
type Orchestrator struct {
	db       *database.DB
	registry *provider.Registry
	codec    *crypto.Codec
	notifier notify.Notifier
	logger   *slog.Logger
	opts     Options

	// now is swappable for tests.
	now func() time.Time

	// inflight guards against two concurrent syncs of the same account.
	mu       sync.Mutex
	inflight map[int64]struct{}
}

// New creates an orchestrator.
func New(db *database.DB, registry *provider.Registry, codec *crypto.Codec, notifier notify.Notifier, logger *slog.Logger, opts Options) *Orchestrator {
	if opts.ProviderTimeout <= 0 {
		opts.ProviderTimeout = 60 * time.Second
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 50
	}
	return &Orchestrator{
		db:       db,
		registry: registry,
		codec:    codec,
		notifier: notifier,
		logger:   logger.With("component", "syncer"),
		opts:     opts,
		now:      time.Now,
		inflight: make(map[int64]struct{}),
	}
}

// Run executes one job. Per-account failures are isolated: they are recorded
// in the result and in that account's sync status, and the loop moves on.
// Only failing to enumerate the accounts at all fails the job.
func (o *Orchestrator) Run(ctx context.Context, job Job) (*Result, error) {
	accounts, err := o.selectAccounts(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts for user %d: %w", job.UserID, err)
	}

	result := &Result{UserID: job.UserID}
	for _, account := range accounts {
		if !o.acquire(account.ID) {
			o.logger.Warn("sync already in flight, skipping account", "account_id", account.ID)
			continue
		}

		result.AccountsSynced++
		synced, kind, err := o.syncAccount(ctx, account)
		result.EmailsSynced += synced
		o.release(account.ID)

		if err != nil {
			result.Failed = append(result.Failed, Failure{
				AccountID: account.ID,
				Kind:      kind,
				Error:     err.Error(),
			})
			o.logger.Error("account sync failed",
				"account_id", account.ID,
				"provider", account.Provider,
				"kind", kind,
				"error", err,
			)
			o.notifier.SyncStatus(ctx, job.UserID, notify.Event{
				AccountID: account.ID,
				Status:    models.SyncStateError,
				Error:     err.Error(),
			})
			continue
		}

		o.logger.Info("account synced",
			"account_id", account.ID,
			"provider", account.Provider,
			"emails_synced", synced,
		)
		o.notifier.SyncStatus(ctx, job.UserID, notify.Event{
			AccountID:    account.ID,
			Status:       models.SyncStateIdle,
			EmailsSynced: synced,
		})
	}

	return result, nil
}

func (o *Orchestrator) selectAccounts(ctx context.Context, job Job) ([]*models.Account, error) {
	if job.AccountID != 0 {
		account, err := o.db.GetAccountByID(ctx, job.AccountID)
		if err != nil {
			return nil, err
		}
		if account.UserID != job.UserID {
			return nil, fmt.Errorf("account %d does not belong to user %d", job.AccountID, job.UserID)
		}
		return []*models.Account{account}, nil
	}
	return o.db.GetActiveAccountsByUserID(ctx, job.UserID)
}

// syncAccount runs one account's cycle: decrypt credentials, fetch through
// the adapter under a timeout, upsert, stamp last_synced_at. It returns the
// number of newly stored messages.
func (o *Orchestrator) syncAccount(ctx context.Context, account *models.Account) (int, models.ErrorKind, error) {
	o.setStatus(ctx, &models.SyncStatus{AccountID: account.ID, State: models.SyncStateSyncing})

	adapter, err := o.registry.Get(account.Provider)
	if err != nil {
		step := o.failStatus(ctx, account.ID, models.ErrorKindProvider, err)
		return 0, step.kind, step.err
	}

	creds, err := o.decryptCredentials(account)
	if err != nil {
		step := o.failStatus(ctx, account.ID, models.ErrorKindAuth, err)
		return 0, step.kind, step.err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.ProviderTimeout)
	defer cancel()

	emails, err := adapter.FetchEmails(fetchCtx, creds, account, o.opts.FetchLimit)
	if err != nil {
		step := o.failStatus(ctx, account.ID, classifyFetchError(fetchCtx, err), err)
		return 0, step.kind, step.err
	}

	inserted := 0
	lastMessageID := ""
	for i := range emails {
		isNew, err := o.db.UpsertEmail(ctx, &emails[i], account.FlagPolicy)
		if err != nil {
			// Any real persistence error is fatal to this account's step.
			step := o.failStatus(ctx, account.ID, models.ErrorKindPersistence, err)
			return inserted, step.kind, step.err
		}
		if isNew {
			inserted++
		}
		lastMessageID = emails[i].MessageID

		if emails[i].FromAddr != "" {
			contact := &models.Contact{
				UserID:     account.UserID,
				Email:      emails[i].FromAddr,
				Name:       emails[i].FromName,
				LastSeenAt: emails[i].ReceivedAt,
			}
			if err := o.db.UpsertContact(ctx, contact); err != nil {
				o.logger.Warn("failed to upsert contact", "email", contact.Email, "error", err)
			}
		}
	}

	syncedAt := o.now()
	if err := o.db.UpdateAccountLastSyncedAt(ctx, account.ID, syncedAt); err != nil {
		step := o.failStatus(ctx, account.ID, models.ErrorKindPersistence, err)
		return inserted, step.kind, step.err
	}
	account.LastSyncedAt = &syncedAt

	o.setStatus(ctx, &models.SyncStatus{
		AccountID:     account.ID,
		State:         models.SyncStateIdle,
		LastMessageID: lastMessageID,
		EmailsSynced:  inserted,
	})

	return inserted, models.ErrorKindNone, nil
}

// decryptCredentials decrypts whichever secret fields the account carries.
func (o *Orchestrator) decryptCredentials(account *models.Account) (provider.Credentials, error) {
	creds := provider.Credentials{}
	fields := []struct {
		src string
		dst *string
	}{
		{account.AccessToken, &creds.AccessToken},
		{account.RefreshToken, &creds.RefreshToken},
		{account.Username, &creds.Username},
		{account.Password, &creds.Password},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		plain, err := o.codec.Decrypt(f.src)
		if err != nil {
			return provider.Credentials{}, fmt.Errorf("failed to decrypt credentials: %w", err)
		}
		*f.dst = plain
	}
	return creds, nil
}

func (o *Orchestrator) setStatus(ctx context.Context, status *models.SyncStatus) {
	if err := o.db.UpsertSyncStatus(ctx, status); err != nil {
		o.logger.Warn("failed to write sync status", "account_id", status.AccountID, "error", err)
	}
}

type failedStep struct {
	kind models.ErrorKind
	err  error
}

// failStatus records the failure in the account's sync status and packages
// the kind with the error for the caller.
func (o *Orchestrator) failStatus(ctx context.Context, accountID int64, kind models.ErrorKind, err error) failedStep {
	o.setStatus(ctx, &models.SyncStatus{
		AccountID:    accountID,
		State:        models.SyncStateError,
		ErrorKind:    kind,
		ErrorMessage: err.Error(),
	})
	return failedStep{kind: kind, err: err}
}

// classifyFetchError distinguishes slow providers from broken credentials.
func classifyFetchError(fetchCtx context.Context, err error) models.ErrorKind {
	switch {
	case provider.IsAuthError(err) || errors.Is(err, crypto.ErrInvalidCiphertext):
		return models.ErrorKindAuth
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		return models.ErrorKindTimeout
	default:
		return models.ErrorKindProvider
	}
}

func (o *Orchestrator) acquire(accountID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, held := o.inflight[accountID]; held {
		return false
	}
	o.inflight[accountID] = struct{}{}
	return true
}

func (o *Orchestrator) release(accountID int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, accountID)
}
