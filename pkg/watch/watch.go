// Package watch re-runs classpath generation when build files change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"gradlecp/pkg/report"
)

// DefaultDebounce is the quiet period before a batch of changes is handled
const DefaultDebounce = 300 * time.Millisecond

// Watcher observes the project root and module directories for edits to
// the files that shape the dependency graph.
type Watcher struct {
	Root     string
	Dirs     []string // module directories relative to Root
	Files    []string // base names that trigger a run
	Debounce time.Duration
	Reporter report.Reporter
}

// New creates a watcher for the given build files under root
func New(root string, dirs, files []string, r report.Reporter) *Watcher {
	if r == nil {
		r = report.Nop()
	}
	return &Watcher{Root: root, Dirs: dirs, Files: files, Debounce: DefaultDebounce, Reporter: r}
}

// Relevant reports whether event touches one of files
func Relevant(event fsnotify.Event, files []string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(event.Name)
	for _, f := range files {
		if base == f {
			return true
		}
	}
	return false
}

// Run blocks until ctx is done, calling onChange once per debounced batch
// of relevant events. Errors from onChange are logged and watching goes on.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context) error) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fsWatcher.Close() }()

	seen := make(map[string]bool)
	for _, dir := range append([]string{"."}, w.Dirs...) {
		path := filepath.Join(w.Root, dir)
		if seen[path] {
			continue
		}
		seen[path] = true
		if err := fsWatcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}
	w.Reporter.Info("Watching for changes", "dirs", len(seen))

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fire := make(chan struct{}, 1)
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !Relevant(event, w.Files) {
				continue
			}
			w.Reporter.Debug("Build file changed", "file", event.Name, "op", event.Op.String())
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
			mu.Unlock()

		case <-fire:
			if err := onChange(ctx); err != nil {
				w.Reporter.Error("Regeneration failed", "err", err)
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.Reporter.Warn("Watcher error", "err", err)
		}
	}
}
