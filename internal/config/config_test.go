package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyforge/studysync/internal/logging"
	"github.com/studyforge/studysync/internal/models"
)

// clearConfigEnv unsets all config env vars so tests start clean.
func clearConfigEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"STUDYSYNC_API_URL",
		"STUDYSYNC_TOKEN",
		"STUDYSYNC_DEVICE_ID",
		"STUDYSYNC_DATA_DIR",
		"SYNC_ENABLED",
		"AUTO_SYNC",
		"SYNC_INTERVAL_MS",
		"STUDYSYNC_CONFIG_FILE",
		"ENVIRONMENT",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// --- Load: defaults ---

func TestLoad_Defaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.studyforge.io", cfg.APIBaseURL)
	assert.True(t, cfg.SyncEnabled)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, int64(300_000), cfg.SyncIntervalMs)
	assert.Equal(t, "development", cfg.Environment)
	assert.Empty(t, cfg.AuthToken)
}

func TestLoad_DefaultDeviceID(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "studysync"
	}

	assert.Equal(t, hostname, cfg.DeviceID)
}

func TestLoad_DefaultDataDir(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Contains(t, cfg.DataDir, ".studysync")
}

// --- Load: explicit values ---

func TestLoad_ExplicitValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("STUDYSYNC_API_URL", "https://staging.studyforge.io")
	t.Setenv("STUDYSYNC_TOKEN", "tok-123")
	t.Setenv("STUDYSYNC_DEVICE_ID", "tablet-7")
	t.Setenv("STUDYSYNC_DATA_DIR", "/tmp/studysync-test")
	t.Setenv("SYNC_ENABLED", "false")
	t.Setenv("AUTO_SYNC", "false")
	t.Setenv("SYNC_INTERVAL_MS", "5000")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.studyforge.io", cfg.APIBaseURL)
	assert.Equal(t, "tok-123", cfg.AuthToken)
	assert.Equal(t, "tablet-7", cfg.DeviceID)
	assert.Equal(t, "/tmp/studysync-test", cfg.DataDir)
	assert.False(t, cfg.SyncEnabled)
	assert.False(t, cfg.AutoSync)
	assert.Equal(t, int64(5000), cfg.SyncIntervalMs)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_IntervalBelowFloorRejected(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SYNC_INTERVAL_MS", "500")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SYNC_INTERVAL_MS")
}

// --- SyncConfig ---

func TestSyncConfig_CarriesEngineSettings(t *testing.T) {
	cfg := &Config{SyncEnabled: true, AutoSync: false, SyncIntervalMs: 60_000}

	sc := cfg.SyncConfig()
	assert.True(t, sc.Enabled)
	assert.False(t, sc.AutoSync)
	assert.Equal(t, int64(60_000), sc.SyncIntervalMs)
	assert.Zero(t, sc.LastSyncTime, "lastSyncTime comes from the store, not the environment")
}

// --- IsProduction ---

func TestIsProduction(t *testing.T) {
	assert.True(t, (&Config{Environment: "production"}).IsProduction())
	assert.False(t, (&Config{Environment: "development"}).IsProduction())
}

// --- Overrides ---

func writeOverrides(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "studysync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadOverrides_MissingFileIsEmpty(t *testing.T) {
	o, err := LoadOverrides(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Nil(t, o.Sync)
	assert.Empty(t, o.Domains)
}

func TestLoadOverrides_FullFile(t *testing.T) {
	path := writeOverrides(t, `
sync:
  enabled: true
  auto_sync: false
  sync_interval_ms: 60000
domains:
  exams:
    max_records: 25
`)

	o, err := LoadOverrides(path)
	require.NoError(t, err)
	require.NotNil(t, o.Sync)
	assert.True(t, o.Sync.Enabled)
	assert.False(t, o.Sync.AutoSync)
	assert.Equal(t, int64(60_000), o.Sync.SyncIntervalMs)
	assert.Equal(t, 25, o.MaxRecords("exams", 100))
}

func TestLoadOverrides_InvalidYAMLRejected(t *testing.T) {
	path := writeOverrides(t, "sync: [not a mapping")

	_, err := LoadOverrides(path)
	assert.Error(t, err)
}

func TestLoadOverrides_IntervalBelowFloorRejected(t *testing.T) {
	path := writeOverrides(t, `
sync:
  enabled: true
  sync_interval_ms: 10
`)

	_, err := LoadOverrides(path)
	assert.Error(t, err)
}

func TestLoadOverrides_NegativeCapRejected(t *testing.T) {
	path := writeOverrides(t, `
domains:
  decks:
    max_records: -1
`)

	_, err := LoadOverrides(path)
	assert.Error(t, err)
}

func TestOverrides_MaxRecordsFallback(t *testing.T) {
	o := &Overrides{Domains: map[string]DomainOverride{"exams": {MaxRecords: 10}}}

	assert.Equal(t, 10, o.MaxRecords("exams", 100))
	assert.Equal(t, 50, o.MaxRecords("decks", 50), "unset domain keeps the fallback")
	assert.Equal(t, 50, (&Overrides{}).MaxRecords("decks", 50))
}

// --- Watcher ---

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studysync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domains:\n  exams:\n    max_records: 5\n"), 0o600))

	var (
		mu   sync.Mutex
		got  []Overrides
		seen = make(chan struct{}, 4)
	)

	w := NewWatcher(path, func(o Overrides) {
		mu.Lock()
		got = append(got, o)
		mu.Unlock()

		seen <- struct{}{}
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = w.Watch(ctx)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("domains:\n  exams:\n    max_records: 9\n"), 0o600))

	select {
	case <-seen:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never delivered the update")
	}

	mu.Lock()
	last := got[len(got)-1]
	mu.Unlock()

	assert.Equal(t, 9, last.MaxRecords("exams", 100))

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancel")
	}
}

func TestWatcher_KeepsPreviousOnInvalidUpdate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "studysync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("domains: {}\n"), 0o600))

	var calls sync.Map

	w := NewWatcher(path, func(o Overrides) {
		calls.Store(time.Now().UnixNano(), o)
	}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Watch(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("sync: [broken"), 0o600))

	// The debounce window plus margin; the broken file must not reach
	// onChange.
	time.Sleep(1200 * time.Millisecond)

	count := 0

	calls.Range(func(any, any) bool {
		count++
		return true
	})

	assert.Zero(t, count, "invalid updates are dropped")
}

// --- validate ---

func TestValidate_EmptyAPIURLRejected(t *testing.T) {
	cfg := &Config{SyncIntervalMs: models.MinSyncIntervalMs}
	assert.Error(t, cfg.validate())

	cfg.APIBaseURL = "https://api.studyforge.io"
	assert.NoError(t, cfg.validate())
}
