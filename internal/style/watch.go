package style

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a theme file whenever it changes on disk. The parent
// directory is watched rather than the file itself so editors that replace
// files by rename still trigger a reload.
type Watcher struct {
	path   string
	theme  *Theme
	log    *zap.Logger
	notify func()

	fw        *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatchLogger sets the logger for reload diagnostics.
func WithWatchLogger(log *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithReloadNotify registers a hook invoked after each successful reload.
func WithReloadNotify(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.notify = fn
	}
}

// WatchTheme starts watching path and applying its rules to theme on every
// change. Close the returned Watcher to stop.
func WatchTheme(path string, theme *Theme, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch theme: %w", err)
	}

	w := &Watcher{
		path:  filepath.Clean(path),
		theme: theme,
		log:   zap.NewNop(),
		fw:    fw,
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch theme dir: %w", err)
	}

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if err := w.theme.Reload(w.path); err != nil {
				w.log.Warn("theme reload failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.log.Debug("theme reloaded", zap.String("path", w.path))
			if w.notify != nil {
				w.notify()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("theme watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fw.Close()
		<-w.done
	})
	return err
}
