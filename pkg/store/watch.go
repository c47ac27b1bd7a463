package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dirt-rain/code-editor-agent/pkg/log"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher calls a function whenever a watched file changes on disk.
// Bursts of events within the debounce interval result in a single call.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(ctx context.Context) error
	match    func(name string) bool
	root     string
	skip     []string
	debounce time.Duration
}

// WatcherOpt configures a [Watcher].
type WatcherOpt func(*Watcher)

// WithDebounce sets the quiet period after the last event before onChange
// runs.
func WithDebounce(d time.Duration) WatcherOpt {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithSkipDirs skips directories whose root-relative path matches any of
// the patterns. A leading "./" is ignored, and "/**" suffixes match the
// directory itself.
func WithSkipDirs(patterns ...string) WatcherOpt {
	return func(w *Watcher) {
		for _, p := range patterns {
			w.skip = append(w.skip, strings.TrimPrefix(p, "./"))
		}
	}
}

// NewWatcher creates a [Watcher] for every directory below root. match is
// called with root-relative, slash-separated paths to decide which events
// trigger onChange.
func NewWatcher(
	root string,
	match func(name string) bool,
	onChange func(ctx context.Context) error,
	opts ...WatcherOpt,
) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		match:    match,
		root:     root,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}

	err = w.addTree(root)
	if err != nil {
		_ = fw.Close()

		return nil, err
	}

	return w, nil
}

// Run handles events until ctx is done. Errors from onChange are logged and
// do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() {
		err := w.watcher.Close()
		if err != nil {
			slog.Error("close watcher", slog.Any("err", err))
		}
	}()

	logger := log.WithContext(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			// Ignore events that are not related to file content changes.
			if evt.Has(fsnotify.Chmod) {
				continue
			}

			if evt.Has(fsnotify.Create) {
				info, err := os.Stat(evt.Name)
				if err == nil && info.IsDir() {
					err = w.addTree(evt.Name)
					if err != nil {
						logger.WarnContext(ctx, "watch new directory", slog.Any("err", err))
					}
				}
			}

			name, err := filepath.Rel(w.root, evt.Name)
			if err != nil || !w.match(filepath.ToSlash(name)) {
				continue
			}

			logger.DebugContext(ctx, "file changed", slog.String("event", evt.String()))
			timer.Reset(w.debounce)

		case <-timer.C:
			err := w.onChange(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "regenerate", slog.Any("err", err))
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			logger.ErrorContext(ctx, "watch", slog.Any("err", err))
		}
	}
}

func (w *Watcher) addTree(dir string) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}

			return err
		}
		if !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(w.root, p)
		if err == nil && rel != "." && w.skipped(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}

		err = w.watcher.Add(p)
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %q: %w", dir, err)
	}

	return nil
}

func (w *Watcher) skipped(dir string) bool {
	for _, p := range w.skip {
		if rule.MatchAny(dir, p, strings.TrimSuffix(p, "/**")) {
			return true
		}
	}

	return false
}
