// Package reload re-runs model discovery when files under a data directory
// change.
package reload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Func reloads the model set. It must be safe to call repeatedly.
type Func func(ctx context.Context) error

// Watcher coalesces bursts of filesystem events into single reloads.
type Watcher struct {
	root     string
	reload   Func
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	reloads int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period that must pass before a reload runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New returns a watcher for root that calls reload after changes settle.
func New(root string, reload Func, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		reload:   reload,
		debounce: 500 * time.Millisecond,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reloads returns how many reloads have run.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an
// error when the watch cannot be established or fsnotify shuts down.
func (w *Watcher) Run(ctx context.Context) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := addRecursive(watcher, w.root); err != nil {
		return err
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.logger.Enabled(ctx, slog.LevelDebug) {
				w.logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.logger.Error("watcher panic", "error", err)
			}
		}
	}()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	w.logger.Info("watching data directory", "root", w.root, "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if ignored(event) {
				continue
			}
			w.logger.Debug("data change", "name", event.Name, "op", event.Op.String())
			if event.Has(fsnotify.Create) {
				w.watchIfDir(watcher, event.Name)
			}
			timer.Reset(w.debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("fsnotify error", "error", err)
		case <-timer.C:
			w.runReload(ctx)
		}
	}
}

func (w *Watcher) runReload(ctx context.Context) {
	start := time.Now()
	err := w.reload(ctx)
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	if err != nil {
		w.logger.Error("reload failed", "error", err)
		return
	}
	w.logger.Info("models reloaded", "duration", time.Since(start))
}

func (w *Watcher) watchIfDir(watcher *fsnotify.Watcher, name string) {
	if err := addRecursive(watcher, name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("watch new path", "path", name, "error", err)
	}
}

// addRecursive watches dir and every directory below it. Non-directories
// are ignored.
func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// ignored filters blob sidecars, in-flight temp files and pure chmods.
func ignored(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, ".meta") || strings.HasPrefix(base, ".tmp-") {
		return true
	}
	return event.Op == fsnotify.Chmod
}
