package manifest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls fn with the current manifest and again every time the file at
// path is written, created, renamed or removed. The parent directory is
// watched so editors that replace the file are picked up. Watch blocks until
// ctx is done.
func Watch(ctx context.Context, path string, fn func(Result, error)) error {
	if path == "" {
		return fmt.Errorf("watching manifest: empty path")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating manifest watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching manifest dir: %w", err)
	}

	fn(LoadOrDefault(path))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			fn(LoadOrDefault(path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("manifest watcher error: %w", err)
		}
	}
}
