// Package watch rebuilds the site when its sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the sources must stay quiet before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc regenerates the site.
type RebuildFunc func(ctx context.Context) error

// Watcher watches source trees and calls a RebuildFunc once changes settle.
type Watcher struct {
	dirs     []string
	ignore   []string
	debounce time.Duration
	rebuild  RebuildFunc
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnore drops events for the given files and anything below the given
// directories. The build output and files the build writes belong here.
func WithIgnore(paths ...string) Option {
	return func(w *Watcher) {
		for _, p := range paths {
			if abs, err := filepath.Abs(p); err == nil {
				w.ignore = append(w.ignore, abs)
			}
		}
	}
}

// New returns a watcher over dirs.
func New(dirs []string, rebuild RebuildFunc, logger *zap.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{dirs: dirs, debounce: DefaultDebounce, rebuild: rebuild, logger: logger}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done. Rebuild failures are logged and watching
// continues.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	watched := 0
	for _, dir := range w.dirs {
		n, err := addTree(fw, dir)
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("watch directory missing, skipped", zap.String("dir", dir))
			continue
		}
		if err != nil {
			return err
		}
		watched += n
	}
	if watched == 0 {
		return errors.New("nothing to watch")
	}
	w.logger.Info("watching for changes", zap.Strings("dirs", w.dirs), zap.Int("directories", watched))

	ticker := time.NewTicker(w.debounce / 3)
	defer ticker.Stop()

	var pending time.Time
	var last string
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if _, err := addTree(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}
			w.logger.Debug("change detected", zap.String("path", event.Name), zap.Stringer("op", event.Op))
			pending = time.Now()
			last = event.Name

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))

		case <-ticker.C:
			if pending.IsZero() || time.Since(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			fmt.Printf("Change in %s, rebuilding...\n", last)
			if err := w.rebuild(ctx); err != nil {
				w.logger.Error("rebuild failed", zap.Error(err))
				continue
			}
			w.logger.Info("rebuild complete", zap.String("trigger", last))
		}
	}
}

func (w *Watcher) ignored(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, p := range w.ignore {
		if abs == p || strings.HasPrefix(abs, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addTree watches root and every directory below it.
func addTree(fw *fsnotify.Watcher, root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		n++
		return nil
	})
	return n, err
}
