package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/unimail/unimail/internal/config"
	"github.com/unimail/unimail/internal/crypto"
	"github.com/unimail/unimail/internal/database"
	"github.com/unimail/unimail/internal/notify"
	"github.com/unimail/unimail/internal/provider"
	"github.com/unimail/unimail/internal/provider/gmail"
	"github.com/unimail/unimail/internal/provider/imapmail"
	"github.com/unimail/unimail/internal/provider/outlook"
	"github.com/unimail/unimail/internal/syncer"
)

func main() {
	// Load configuration. A missing or short encryption key fails here,
	// before anything touches stored credentials.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting mailbox sync daemon")

	// Connect to database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Create components
	codec, err := crypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to create credential codec", "error", err)
		os.Exit(1)
	}

	registry := provider.NewRegistry(
		gmail.New(logger),
		outlook.New(logger),
		imapmail.New(logger, cfg.IMAPDialTimeout),
	)

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, logger)
		logger.Info("webhook notifications enabled")
	}

	orchestrator := syncer.New(db, registry, codec, notifier, logger, syncer.Options{
		ProviderTimeout: cfg.ProviderTimeout,
		FetchLimit:      cfg.FetchLimit,
	})

	queue := syncer.NewMemoryQueue(cfg.SyncConcurrency, func(jobCtx context.Context, job syncer.Job) {
		result, err := orchestrator.Run(jobCtx, job)
		if err != nil {
			logger.Error("sync job failed", "user_id", job.UserID, "error", err)
			return
		}
		logger.Info("sync job completed",
			"user_id", result.UserID,
			"accounts_synced", result.AccountsSynced,
			"emails_synced", result.EmailsSynced,
			"failed", len(result.Failed),
		)
	}, logger)

	ctx, cancel := context.WithCancel(ctx)
	queue.Start(ctx)

	// Schedule periodic sync for every user with active accounts, plus an
	// immediate run to catch up after downtime.
	userIDs, err := db.ListActiveUserIDs(ctx)
	if err != nil {
		logger.Error("failed to list users with active accounts", "error", err)
		os.Exit(1)
	}
	for _, userID := range userIDs {
		job := syncer.Job{UserID: userID}
		if err := queue.Enqueue(job); err != nil {
			logger.Warn("failed to enqueue initial sync", "user_id", userID, "error", err)
		}
		if err := queue.Repeat(job, cfg.SyncInterval); err != nil {
			logger.Warn("failed to schedule periodic sync", "user_id", userID, "error", err)
		}
	}
	logger.Info("periodic sync scheduled", "users", len(userIDs), "interval", cfg.SyncInterval)

	// Setup graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("received shutdown signal", "signal", sig)
		logger.Info("shutting down...")

		queue.Close()
		cancel()
	}()

	<-ctx.Done()
	logger.Info("sync daemon stopped")
}

func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    false,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
