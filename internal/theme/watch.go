package theme

import (
	"context"
	"log/slog"
	"maps"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ApplyFunc receives a freshly loaded palette.
type ApplyFunc func(ctx context.Context, colors map[string]string) error

const reloadDelay = 200 * time.Millisecond

// Watch loads the theme at path, hands it to apply, and reloads it whenever
// the file changes until ctx is cancelled. An empty path applies Default
// once and returns.
//
// The parent directory is watched, not the file, so editors that replace
// the file by renaming a temp file over it are picked up.
func Watch(ctx context.Context, path string, logger *slog.Logger, apply ApplyFunc) error {
	if path == "" {
		return apply(ctx, maps.Clone(Default))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	reload(ctx, abs, logger, apply)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info("theme watcher: started", slog.String("path", abs))

	// Bursts of events from a single save collapse into one reload.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time
	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDelay)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("theme watcher: stopped")
			return nil

		case <-reloadCh:
			reload(ctx, abs, logger, apply)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("theme watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(ctx context.Context, path string, logger *slog.Logger, apply ApplyFunc) {
	colors, err := Load(path)
	if err != nil {
		logger.Warn("theme watcher: load failed", slog.String("error", err.Error()))
		return
	}
	if err := apply(ctx, colors); err != nil {
		logger.Warn("theme watcher: apply failed", slog.String("error", err.Error()))
		return
	}
	logger.Debug("theme watcher: applied", slog.String("path", path))
}
