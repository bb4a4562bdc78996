// Package watcher reports external edits to host config files.
//
// It watches the parent directory of each known config file (editors
// often replace files by rename, which a file-level watch would miss),
// drops events for unrelated siblings and for writes the [guard.Guard]
// attributes to conductor itself, and throttles bursts into one
// notification.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thoreinstein/conductor/internal/errors"
	"github.com/thoreinstein/conductor/internal/guard"
	"github.com/thoreinstein/conductor/internal/logging"
)

// DefaultDebounce is the minimum gap between two notifications.
const DefaultDebounce = 500 * time.Millisecond

// Change is one consolidated notification.
type Change struct {
	Paths []string
	At    time.Time
}

// Watcher observes a fixed set of config files.
type Watcher struct {
	files    map[string]struct{}
	dirs     []string
	guard    *guard.Guard
	debounce time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu   sync.Mutex
	last time.Time
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// New returns a Watcher for files. A nil guard means guard.Default().
func New(files []string, g *guard.Guard, opts ...Option) *Watcher {
	if g == nil {
		g = guard.Default()
	}
	w := &Watcher{
		files:    make(map[string]struct{}, len(files)),
		guard:    g,
		debounce: DefaultDebounce,
		now:      time.Now,
		logger:   slog.Default().With("component", "watcher"),
	}
	for _, opt := range opts {
		opt(w)
	}

	seen := make(map[string]bool)
	for _, f := range files {
		if f == "" {
			continue
		}
		abs := clean(f)
		w.files[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if !seen[dir] {
			seen[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}
	slices.Sort(w.dirs)
	return w
}

// Files returns the watched config files, sorted.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Run starts watching and returns a channel of changes. Directories that
// do not exist are skipped. The channel is closed when ctx is done.
func (w *Watcher) Run(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}

	watched := 0
	for _, dir := range w.dirs {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			w.logger.Debug("skipping missing directory", "dir", dir)
			continue
		}
		if err := fw.Add(dir); err != nil {
			w.logger.Warn("failed to watch directory", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	w.logger.Debug("watching", "dirs", watched, "files", len(w.files))

	out := make(chan Change, 8)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- Change) {
	defer close(out)
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			change, emit := w.consider([]fsnotify.Event{ev})
			if !emit {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}
}

// consider filters events and applies the throttle. It reports whether a
// notification should be sent.
func (w *Watcher) consider(events []fsnotify.Event) (Change, bool) {
	var paths []string
	for _, ev := range events {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
			!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
			continue
		}
		name := clean(ev.Name)
		if _, known := w.files[name]; !known {
			continue
		}
		if w.guard.IsInternalWrite(name) {
			w.logger.Log(context.Background(), logging.LevelTrace, "ignoring internal write", "path", name)
			continue
		}
		if !slices.Contains(paths, name) {
			paths = append(paths, name)
		}
	}
	if len(paths) == 0 {
		return Change{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	if !w.last.IsZero() && now.Sub(w.last) <= w.debounce {
		return Change{}, false
	}
	w.last = now
	return Change{Paths: paths, At: now}, true
}

func clean(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
