package assets

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch calls fn every time the file at osPath is written or replaced, until ctx ends.
// The parent directory is watched so editors that save via rename are picked up.
func Watch(ctx context.Context, osPath string, log *zap.Logger, fn func()) error {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(osPath)
	if err != nil {
		return fmt.Errorf("watch %s: %w", osPath, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", osPath, err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", osPath, err)
	}

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
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				log.Debug("asset changed", zap.String("path", abs), zap.Stringer("op", ev.Op))
				fn()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("asset watcher error", zap.Error(err))
		}
	}
}
