package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives the freshly loaded configuration after the
// watched config file changes.
type ReloadFunc func(*Config)

// Watcher reloads configuration when the project config file changes.
// Only one file is watched; editors often replace instead of modify, so
// the watch is on the containing directory and events are filtered by
// name and debounced.
type Watcher struct {
	dir      string
	path     string
	onReload ReloadFunc
	logger   *slog.Logger

	debounce time.Duration

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
	fsw     *fsnotify.Watcher
}

// NewWatcher creates a watcher for the project config in dir. Returns
// nil without error when dir has no config file to watch.
func NewWatcher(dir string, onReload ReloadFunc) (*Watcher, error) {
	path := ActiveProjectConfig(dir)
	if path == "" {
		return nil, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		path:     path,
		onReload: onReload,
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		fsw:      fsw,
	}, nil
}

// Start watches until the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.dir)
	if err != nil {
		// Keep the running config when the edited file is invalid.
		w.logger.Warn("config reload skipped",
			slog.String("path", w.path),
			slog.String("error", err.Error()))
		return
	}

	w.logger.Info("configuration reloaded", slog.String("path", w.path))
	w.onReload(cfg)
}

// Stop stops watching. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	return w.fsw.Close()
}
