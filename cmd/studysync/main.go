package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/studyforge/studysync/internal/config"
	"github.com/studyforge/studysync/internal/domains"
	syncerr "github.com/studyforge/studysync/internal/errors"
	"github.com/studyforge/studysync/internal/logging"
	"github.com/studyforge/studysync/internal/models"
	"github.com/studyforge/studysync/internal/remote"
	"github.com/studyforge/studysync/internal/store"
	"github.com/studyforge/studysync/internal/syncer"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)
	logger.Info("studysync starting",
		slog.String("version", Version),
		slog.String("api", cfg.APIBaseURL),
		slog.Bool("sync_enabled", cfg.SyncEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	syncCfg := cfg.SyncConfig()

	if ls, err := st.LastSyncTime(); err == nil {
		syncCfg.LastSyncTime = ls
	}

	overrides := &config.Overrides{}

	if cfg.OverridesFile != "" {
		overrides, err = config.LoadOverrides(cfg.OverridesFile)
		if err != nil {
			return fmt.Errorf("loading overrides: %w", err)
		}

		if overrides.Sync != nil {
			applySyncOverride(&syncCfg, *overrides.Sync)
		}
	}

	client := remote.NewClient(cfg.APIBaseURL, remote.Credentials{
		Token:    cfg.AuthToken,
		DeviceID: cfg.DeviceID,
	}, nil, logger)

	ds := []syncer.DomainSyncer{
		domains.NewExams(st, client, overrides.MaxRecords(domains.DomainExams, domains.DefaultExamCap), logger, nil),
		domains.NewDecks(st, client, overrides.MaxRecords(domains.DomainDecks, domains.DefaultDeckCap), logger, nil),
		domains.NewChats(st, client, overrides.MaxRecords(domains.DomainChats, domains.DefaultChatCap), logger, nil),
	}

	orch, err := syncer.New(st, ds, syncCfg, logger)
	if err != nil {
		return fmt.Errorf("constructing orchestrator: %w", err)
	}

	orch.OnSyncCompleted(func(lastSyncTime int64) {
		logger.Info("sync completed", slog.Int64("last_sync_time", lastSyncTime))
	})
	orch.OnSyncError(func(err error) {
		logger.Error("sync failed", slog.String("error", err.Error()))
	})

	orch.Start()
	defer orch.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.OverridesFile != "" {
		watcher := config.NewWatcher(cfg.OverridesFile, func(o config.Overrides) {
			if o.Sync == nil {
				return
			}

			next := orch.Config()
			applySyncOverride(&next, *o.Sync)

			if err := orch.ApplyConfig(next); err != nil {
				logger.Warn("applying config update", slog.String("error", err.Error()))
			}
		}, logger)

		g.Go(func() error {
			return watcher.Watch(gctx)
		})
	}

	// Kick off a first pass so a freshly started daemon converges
	// without waiting for the timer.
	g.Go(func() error {
		if _, err := orch.SyncNow(gctx); err != nil && !errors.Is(err, syncerr.ErrSyncDisabled) {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("studysync stopped")

	return nil
}

// applySyncOverride copies the engine settings from an overrides block
// onto the working config, preserving LastSyncTime.
func applySyncOverride(dst *models.SyncConfig, src models.SyncConfig) {
	dst.Enabled = src.Enabled
	dst.AutoSync = src.AutoSync
	dst.SyncIntervalMs = src.SyncIntervalMs
}
