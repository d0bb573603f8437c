package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 250 * time.Millisecond

// WatchFile reloads s whenever the feed file at path is written, created or
// renamed into place. It watches the parent directory so that editors that
// replace the file atomically are seen. WatchFile blocks until ctx is done.
func WatchFile(ctx context.Context, path string, s *Store) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("catalog watcher error", zap.Error(err))

		case <-timer.C:
			s.log.Info("catalog file changed, reloading", zap.String("path", abs))
			_ = s.Reload(ctx)
		}
	}
}
