package knowledge

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpetrov/marvin/pkg/logger"
)

// WatchExternal reloads a FileStore when another process rewrites the store
// document, typically the configuration panel editing learned solutions.
// Reloads are debounced because an atomic rename shows up as a burst of
// create/rename events. Blocks until ctx is done.
func WatchExternal(ctx context.Context, fs *FileStore) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: rename-based replacement swaps
	// the inode out from under a file watch.
	if err := watcher.Add(filepath.Dir(fs.Path())); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != fs.Path() {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(200 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnCF("knowledge", "Store watcher error", map[string]interface{}{
				"error": err.Error(),
			})

		case <-pending:
			pending = nil
			if err := fs.Reload(); err != nil {
				logger.WarnCF("knowledge", "Store reload after external change failed", map[string]interface{}{
					"error": err.Error(),
				})
				continue
			}
			logger.InfoCF("knowledge", "Store reloaded after external change", map[string]interface{}{
				"path": fs.Path(),
			})
		}
	}
}
