package models

import "fmt"

const (
	// MinSyncIntervalMs is the smallest accepted periodic sync interval.
	MinSyncIntervalMs = 1000

	// DefaultSyncIntervalMs is used when no interval is configured
	// (5 minutes).
	DefaultSyncIntervalMs = 300_000
)

// SyncConfig controls the sync orchestrator. LastSyncTime is an epoch
// millisecond timestamp, 0 meaning never synced.
type SyncConfig struct {
	Enabled        bool  `json:"enabled" yaml:"enabled"`
	AutoSync       bool  `json:"autoSync" yaml:"auto_sync"`
	SyncIntervalMs int64 `json:"syncIntervalMs" yaml:"sync_interval_ms"`
	LastSyncTime   int64 `json:"lastSyncTime" yaml:"-"`
}

// DefaultSyncConfig returns the configuration used before anything is
// persisted: sync on, auto sync on, default interval.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Enabled:        true,
		AutoSync:       true,
		SyncIntervalMs: DefaultSyncIntervalMs,
	}
}

func (c SyncConfig) Validate() error {
	if c.SyncIntervalMs < MinSyncIntervalMs {
		return fmt.Errorf("sync interval %dms below minimum %dms", c.SyncIntervalMs, MinSyncIntervalMs)
	}

	return nil
}
