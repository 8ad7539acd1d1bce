package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is how long Watch waits after the last change before
// re-running.
const DebounceInterval = 500 * time.Millisecond

// Watch calls fn whenever the file at path is written, created or renamed
// into place, coalescing bursts of events within DebounceInterval. The parent
// directory is watched so editors that replace the file are followed. Errors
// from fn are logged and watching continues. Watch returns when ctx is done.
func Watch(ctx context.Context, path string, log *slog.Logger, fn func(context.Context) error) error {
	if log == nil {
		log = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(DebounceInterval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			log.Debug("change detected", "file", ev.Name, "op", ev.Op.String())
			timer.Reset(DebounceInterval)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)
		case <-timer.C:
			if err := fn(ctx); err != nil {
				log.Error("re-ingestion failed", "file", abs, "error", err)
			}
		}
	}
}
