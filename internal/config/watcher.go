package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcherDebounceInterval batches rapid editor writes into a single
// reload per change.
const watcherDebounceInterval = 500 * time.Millisecond

// Watcher reloads the overrides file when it changes on disk and hands
// each valid result to onChange. Invalid updates are logged and
// dropped; the previous valid configuration stays in effect.
type Watcher struct {
	path     string
	onChange func(Overrides)
	logger   *slog.Logger
}

// NewWatcher creates a watcher for the given overrides file.
func NewWatcher(path string, onChange func(Overrides), logger *slog.Logger) *Watcher {
	return &Watcher{path: path, onChange: onChange, logger: logger}
}

// Watch blocks until the context is cancelled. The parent directory is
// watched rather than the file itself, because editors typically
// replace the file on save (write to temp, rename over).
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	w.logger.Info("config watcher started", slog.String("file", w.path))

	var pending bool

	ticker := time.NewTicker(watcherDebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}

			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}

			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				pending = true
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}

			w.logger.Warn("config watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if !pending {
				continue
			}

			pending = false
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	o, err := LoadOverrides(w.path)
	if err != nil {
		w.logger.Warn("rejecting config update, keeping previous",
			slog.String("file", w.path),
			slog.String("error", err.Error()),
		)

		return
	}

	w.logger.Info("config file reloaded", slog.String("file", w.path))
	w.onChange(*o)
}
