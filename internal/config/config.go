package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/unimail/unimail/pkg/models"
)

// Config application configuration
type Config struct {
	// Database
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/unimail.db"`

	// Sync
	SyncInterval    time.Duration `env:"SYNC_INTERVAL" envDefault:"15m"`
	SyncConcurrency int           `env:"SYNC_CONCURRENCY" envDefault:"5"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"60s"`
	FetchLimit      int           `env:"FETCH_LIMIT" envDefault:"50"`
	IMAPDialTimeout time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	// Flag reconciliation: "local_wins" or "provider_wins"
	FlagPolicy string `env:"FLAG_POLICY" envDefault:"local_wins"`

	// Notifications (optional)
	NotifyWebhookURL string `env:"NOTIFY_WEBHOOK_URL"`

	// Security. No default: the process must not start without a key.
	EncryptionKey string `env:"ENCRYPTION_KEY,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// DefaultFlagPolicy returns the configured flag policy as a model value.
func (c *Config) DefaultFlagPolicy() models.FlagPolicy {
	if c.FlagPolicy == string(models.FlagPolicyProviderWins) {
		return models.FlagPolicyProviderWins
	}
	return models.FlagPolicyLocalWins
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate encryption key length (32 bytes for AES-256)
	if len(cfg.EncryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes, got %d", len(cfg.EncryptionKey))
	}

	if cfg.FlagPolicy != string(models.FlagPolicyLocalWins) && cfg.FlagPolicy != string(models.FlagPolicyProviderWins) {
		return nil, fmt.Errorf("FLAG_POLICY must be %q or %q, got %q",
			models.FlagPolicyLocalWins, models.FlagPolicyProviderWins, cfg.FlagPolicy)
	}

	if cfg.SyncConcurrency < 1 {
		return nil, fmt.Errorf("SYNC_CONCURRENCY must be at least 1, got %d", cfg.SyncConcurrency)
	}

	return cfg, nil
}
