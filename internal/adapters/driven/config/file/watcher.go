package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/memoir/internal/core/ports/driven"
	"github.com/custodia-labs/memoir/internal/logger"
)

// PromptWatcher clears a PromptStore cache whenever a template in its
// directory is created, written, renamed or removed.
type PromptWatcher struct {
	dir     string
	store   driven.PromptStore
	watcher *fsnotify.Watcher
}

// NewPromptWatcher starts watching dir. The directory must exist.
func NewPromptWatcher(dir string, store driven.PromptStore) (*PromptWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &PromptWatcher{dir: dir, store: store, watcher: w}, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *PromptWatcher) Run(ctx context.Context) {
	log := logger.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isPromptChange(event) {
				continue
			}
			w.store.Reload()
			log.Info("prompt templates reloaded", "file", filepath.Base(event.Name), "op", event.Op.String())
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("prompt watcher error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops the underlying watcher.
func (w *PromptWatcher) Close() error {
	return w.watcher.Close()
}

func isPromptChange(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, PromptExt) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
