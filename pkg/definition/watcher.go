package definition

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Directory names of the configuration root.
const (
	WorkflowsDir = "workflows"
	FormsDir     = "forms"
)

// Watcher drops cached definitions as soon as their documents change on disk, so edits
// take effect without waiting for the modification-time check of the next load.
type Watcher struct {
	root    string
	cache   *Cache
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWatcher watches the workflows and forms directories under root.
func NewWatcher(root string, cache *Cache, logger *slog.Logger) (*Watcher, error) {
	root = strings.Replace(root, "file://", "", 1)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		cache:   cache,
		watcher: fsw,
		logger:  logger.With("module", "config_watcher"),
		stopCh:  make(chan struct{}),
	}

	watched := 0

	for _, dir := range []string{WorkflowsDir, FormsDir} {
		full := filepath.Join(root, dir)
		if _, err := os.Stat(full); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := fsw.Add(full); err != nil {
			_ = fsw.Close()

			return nil, fmt.Errorf("failed to watch %s: %w", full, err)
		}

		watched++
	}

	if watched == 0 {
		_ = fsw.Close()

		return nil, fmt.Errorf("no configuration directories found under %s", root)
	}

	return w, nil
}

// Start runs the event loop until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.eventLoop(ctx)
}

// Stop ends the event loop and releases the underlying watcher.
func (w *Watcher) Stop() error {
	var err error

	w.stopOnce.Do(func() {
		close(w.stopCh)
		err = w.watcher.Close()
	})

	return err
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.logger.Error("Configuration watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	kind, key, ok := classify(event.Name)
	if !ok {
		return
	}

	w.cache.Invalidate(kind, key)
	w.logger.Info("Configuration changed", "kind", kind, "key", key, "op", event.Op.String())
}

// classify maps a changed file path to its cache kind and key.
func classify(name string) (string, string, bool) {
	ext := filepath.Ext(name)
	if !isDefinitionExt(ext) {
		return "", "", false
	}

	key := NormalizeKey(strings.TrimSuffix(filepath.Base(name), ext))

	switch filepath.Base(filepath.Dir(name)) {
	case WorkflowsDir:
		return KindWorkflow, key, true
	case FormsDir:
		return KindForm, key, true
	default:
		return "", "", false
	}
}

// DirSources returns the workflow and form sources of a configuration root directory.
// A "file://" prefix on root is ignored.
func DirSources(root string) (*FSSource, *FSSource) {
	root = strings.Replace(root, "file://", "", 1)
	fsys := os.DirFS(root)

	return NewFSSource(fsys, WorkflowsDir, KindWorkflow), NewFSSource(fsys, FormsDir, KindForm)
}
