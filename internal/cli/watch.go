package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/reap/pkg/log"
)

// watchFiles calls fn after any of paths is written, created or renamed,
// until ctx is done. Parent directories are watched so that files replaced
// by editors or atomic renames keep being tracked. Bursts of events within
// debounce trigger a single call.
func watchFiles(ctx context.Context, paths []string, debounce time.Duration, fn func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}

	defer func() {
		err := watcher.Close()
		if err != nil {
			slog.Error("close watcher", slog.Any("err", err))
		}
	}()

	logger := log.WithContext(ctx)

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool, len(paths))

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}

		watched[absPath] = true
		dirs[filepath.Dir(absPath)] = true
	}

	for dir := range dirs {
		err = watcher.Add(dir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}

		logger.DebugContext(ctx, "watching directory", slog.String("path", dir))
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !watched[filepath.Clean(evt.Name)] {
				continue
			}

			// Ignore events that are not related to file content changes.
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}

			logger.DebugContext(ctx, "file changed", slog.String("event", evt.String()))
			timer.Reset(debounce)

		case <-timer.C:
			fn(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnContext(ctx, "watch error", slog.Any("error", err))
		}
	}
}
