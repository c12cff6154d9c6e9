// Package syncer coordinates "sync all domains": it owns the periodic
// timer, collapses concurrent triggers into a single in-flight run,
// reacts to connectivity transitions, and reports outcomes through
// registered observers instead of any platform event bus.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	syncerr "github.com/studyforge/studysync/internal/errors"
	"github.com/studyforge/studysync/internal/models"
	"github.com/studyforge/studysync/internal/store"
)

// DomainSyncer is one domain's reconciliation entry point.
type DomainSyncer interface {
	Name() string
	Sync(ctx context.Context) error
}

// Orchestrator sequences full sync passes over all domains. It does no
// work on construction; Start begins the periodic timer and Stop ends
// it. A sync already in flight always runs to completion — there is no
// cancellation of a running pass.
type Orchestrator struct {
	store   store.Store
	domains []DomainSyncer
	logger  *slog.Logger
	now     func() time.Time

	// flight collapses concurrent sync triggers into the in-flight
	// run; every caller shares its outcome.
	flight singleflight.Group

	mu           sync.Mutex
	cfg          models.SyncConfig
	online       bool
	completedFns []func(lastSyncTime int64)
	errorFns     []func(err error)
	started      bool

	resetCh chan time.Duration
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock injects the time source. Tests use a fixed clock to get
// reproducible timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New constructs an orchestrator with injected collaborators. The
// initial config is validated; an invalid one is rejected with a
// ConfigError and nothing is constructed.
func New(s store.Store, domains []DomainSyncer, cfg models.SyncConfig, logger *slog.Logger, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &syncerr.ConfigError{Field: "syncIntervalMs", Reason: err.Error()}
	}

	o := &Orchestrator{
		store:   s,
		domains: domains,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		online:  true,
		resetCh: make(chan time.Duration, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// OnSyncCompleted registers an observer called with the new
// lastSyncTime after every successful pass.
func (o *Orchestrator) OnSyncCompleted(fn func(lastSyncTime int64)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.completedFns = append(o.completedFns, fn)
}

// OnSyncError registers an observer called when a pass fails outright
// (every domain failed). Per-domain partial failures are logged, not
// reported here.
func (o *Orchestrator) OnSyncError(fn func(err error)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.errorFns = append(o.errorFns, fn)
}

// Start launches the periodic timer loop. Calling Start twice is a
// no-op.
func (o *Orchestrator) Start() {
	o.mu.Lock()

	if o.started {
		o.mu.Unlock()
		return
	}

	o.started = true
	interval := o.intervalLocked()
	o.mu.Unlock()

	go o.run(interval)
}

// Stop ends the timer loop. An in-flight sync pass is not interrupted;
// it completes in the background. The orchestrator is single-use:
// once stopped it cannot be restarted.
func (o *Orchestrator) Stop() {
	o.mu.Lock()

	if !o.started {
		o.mu.Unlock()
		return
	}

	o.started = false
	o.mu.Unlock()

	close(o.stopCh)
	<-o.doneCh
}

func (o *Orchestrator) run(interval time.Duration) {
	defer close(o.doneCh)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-o.stopCh:
			return

		case d := <-o.resetCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}

			timer.Reset(d)

		case <-timer.C:
			o.onTick()
			timer.Reset(o.interval())
		}
	}
}

// onTick fires a sync when the config and connectivity allow it. The
// pass runs in its own goroutine so a slow pass never blocks the timer.
func (o *Orchestrator) onTick() {
	o.mu.Lock()
	eligible := o.cfg.Enabled && o.cfg.AutoSync && o.online
	o.mu.Unlock()

	if !eligible {
		return
	}

	go func() {
		if _, err := o.SyncNow(context.Background()); err != nil {
			o.logger.Debug("scheduled sync failed", slog.String("error", err.Error()))
		}
	}()
}

// SetOnline feeds connectivity transitions from the host platform. An
// offline-to-online transition triggers a sync; while offline, timer
// ticks are skipped.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	wasOnline := o.online
	o.online = online
	enabled := o.cfg.Enabled
	o.mu.Unlock()

	if online && !wasOnline && enabled {
		o.logger.Info("connectivity restored, triggering sync")

		go func() {
			if _, err := o.SyncNow(context.Background()); err != nil {
				o.logger.Debug("reconnect sync failed", slog.String("error", err.Error()))
			}
		}()
	}
}

// Config returns the current sync configuration.
func (o *Orchestrator) Config() models.SyncConfig {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.cfg
}

// ApplyConfig validates and applies a configuration change. An invalid
// config is rejected and the previous valid one stays in effect. A
// change to the interval restarts the timer with the new period
// immediately, even while a sync is in flight.
func (o *Orchestrator) ApplyConfig(cfg models.SyncConfig) error {
	if err := cfg.Validate(); err != nil {
		return &syncerr.ConfigError{Field: "syncIntervalMs", Reason: err.Error()}
	}

	o.mu.Lock()
	cfg.LastSyncTime = o.cfg.LastSyncTime
	o.cfg = cfg
	started := o.started
	interval := o.intervalLocked()
	o.mu.Unlock()

	if err := o.store.SetSyncConfig(cfg); err != nil {
		o.logger.Warn("persisting sync config", slog.String("error", err.Error()))
	}

	if started {
		// Drop a pending reset if the loop has not absorbed it yet.
		select {
		case <-o.resetCh:
		default:
		}

		select {
		case o.resetCh <- interval:
		case <-o.stopCh:
		}
	}

	o.logger.Info("sync config applied",
		slog.Bool("enabled", cfg.Enabled),
		slog.Bool("auto_sync", cfg.AutoSync),
		slog.Int64("interval_ms", cfg.SyncIntervalMs),
	)

	return nil
}

// SyncNow runs a full pass over all domains, or joins the pass already
// in flight. It returns the new lastSyncTime on success. With sync
// disabled, no trigger runs — not even a manual one.
func (o *Orchestrator) SyncNow(ctx context.Context) (int64, error) {
	o.mu.Lock()
	enabled := o.cfg.Enabled
	o.mu.Unlock()

	if !enabled {
		return 0, syncerr.ErrSyncDisabled
	}

	v, err, _ := o.flight.Do("sync-all", func() (interface{}, error) {
		return o.syncAll(ctx)
	})
	if err != nil {
		return 0, err
	}

	ts, _ := v.(int64)

	return ts, nil
}

// syncAll reconciles every domain concurrently and independently: one
// domain's failure never blocks or rolls back another. Only when every
// domain fails does the pass itself fail.
func (o *Orchestrator) syncAll(ctx context.Context) (int64, error) {
	o.logger.Info("sync pass starting", slog.Int("domains", len(o.domains)))

	type outcome struct {
		name string
		err  error
	}

	results := make([]outcome, len(o.domains))

	var wg sync.WaitGroup

	for i, d := range o.domains {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = outcome{name: d.Name(), err: d.Sync(ctx)}
		}()
	}

	wg.Wait()

	var (
		failures int
		lastErr  error
	)

	for _, res := range results {
		if res.err != nil {
			failures++
			lastErr = res.err

			o.logger.Warn("domain sync failed",
				slog.String("domain", res.name),
				slog.String("error", res.err.Error()),
			)
		}
	}

	if len(o.domains) > 0 && failures == len(o.domains) {
		err := fmt.Errorf("%w: %v", syncerr.ErrAllDomains, lastErr)
		o.notifyError(err)

		return 0, err
	}

	ts := o.now().UnixMilli()

	if err := o.store.SetLastSyncTime(ts); err != nil {
		o.logger.Warn("persisting last sync time", slog.String("error", err.Error()))
	}

	o.mu.Lock()
	o.cfg.LastSyncTime = ts
	o.mu.Unlock()

	o.logger.Info("sync pass complete",
		slog.Int64("last_sync_time", ts),
		slog.Int("failed_domains", failures),
	)

	o.notifyCompleted(ts)

	return ts, nil
}

func (o *Orchestrator) notifyCompleted(ts int64) {
	o.mu.Lock()
	fns := append([]func(int64){}, o.completedFns...)
	o.mu.Unlock()

	for _, fn := range fns {
		fn(ts)
	}
}

func (o *Orchestrator) notifyError(err error) {
	o.mu.Lock()
	fns := append([]func(error){}, o.errorFns...)
	o.mu.Unlock()

	for _, fn := range fns {
		fn(err)
	}
}

func (o *Orchestrator) interval() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.intervalLocked()
}

func (o *Orchestrator) intervalLocked() time.Duration {
	return time.Duration(o.cfg.SyncIntervalMs) * time.Millisecond
}
