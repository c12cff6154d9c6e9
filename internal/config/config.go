package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/studyforge/studysync/internal/models"
)

// Config holds all environment-based configuration for studysync.
type Config struct {
	// Base URL of the studysync backend.
	APIBaseURL string `env:"STUDYSYNC_API_URL" envDefault:"https://api.studyforge.io"`

	// Bearer token for an authenticated account. When empty, the
	// stable anonymous DeviceID identifies this client instead.
	AuthToken string `env:"STUDYSYNC_TOKEN"`

	// Anonymous device identifier. Defaults to the system hostname.
	DeviceID string `env:"STUDYSYNC_DEVICE_ID"`

	// Directory holding the local database. Defaults to ~/.studysync.
	DataDir string `env:"STUDYSYNC_DATA_DIR"`

	// Sync engine settings. These seed the persisted SyncConfig; a
	// YAML overrides file (see Overrides) can change them at runtime.
	SyncEnabled    bool  `env:"SYNC_ENABLED" envDefault:"true"`
	AutoSync       bool  `env:"AUTO_SYNC" envDefault:"true"`
	SyncIntervalMs int64 `env:"SYNC_INTERVAL_MS" envDefault:"300000"`

	// Optional YAML file with sync settings and per-domain overrides,
	// reloaded live while the daemon runs.
	OverridesFile string `env:"STUDYSYNC_CONFIG_FILE"`

	// Environment controls log format; LogLevel overrides the level.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the auth token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables. It first
// attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DeviceID == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "studysync"
		}

		cfg.DeviceID = hostname
	}

	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}

		cfg.DataDir = dir
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("STUDYSYNC_API_URL must not be empty")
	}

	if c.SyncIntervalMs < models.MinSyncIntervalMs {
		return fmt.Errorf("SYNC_INTERVAL_MS must be at least %d", models.MinSyncIntervalMs)
	}

	return nil
}

// SyncConfig returns the sync engine settings carried by this config.
func (c *Config) SyncConfig() models.SyncConfig {
	return models.SyncConfig{
		Enabled:        c.SyncEnabled,
		AutoSync:       c.AutoSync,
		SyncIntervalMs: c.SyncIntervalMs,
	}
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".studysync"), nil
}
