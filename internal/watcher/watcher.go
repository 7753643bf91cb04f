// Package watcher turns raw filesystem notifications for a directory tree
// into debounced Created, Modified and Removed events, one per settled change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Op is the kind of change an Event reports.
type Op uint8

const (
	Created Op = iota + 1
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a settled change to one file.
type Event struct {
	Op   Op
	Path string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long a path must stay quiet before its event is emitted.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts events to paths for which keep returns true.
// Directories are never passed to the filter.
func WithFilter(keep func(path string) bool) Option {
	return func(w *Watcher) {
		if keep != nil {
			w.filter = keep
		}
	}
}

// eventBuffer is the capacity of the events channel.
const eventBuffer = 64

// Watcher watches a directory tree, including directories created after it
// starts. All bookkeeping is owned by the Run goroutine.
type Watcher struct {
	root     string
	fs       *fsnotify.Watcher
	debounce time.Duration
	filter   func(string) bool
	events   chan Event

	pending map[string]time.Time
	known   map[string]struct{}
	dirs    map[string]struct{}

	running   atomic.Bool
	closed    chan struct{}
	closeOnce sync.Once
}

// New starts watching root. Files already present are treated as known, so
// the first change to one of them is reported as Modified.
func New(root string, opts ...Option) (*Watcher, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat watch root")
	}
	if !info.IsDir() {
		return nil, errors.Newf("%s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	w := &Watcher{
		root:     root,
		fs:       fsw,
		debounce: 250 * time.Millisecond,
		filter:   func(string) bool { return true },
		pending:  make(map[string]time.Time),
		known:    make(map[string]struct{}),
		dirs:     make(map[string]struct{}),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.events = make(chan Event, eventBuffer)

	if err := w.addTree(root, false); err != nil {
		fsw.Close()
		return nil, errors.Wrap(err, "failed to watch directory tree")
	}
	return w, nil
}

// Events returns the channel events are delivered on. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run processes notifications until ctx is done or the watcher is closed.
// It may be called once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("watcher is already running")
	}
	defer close(w.events)

	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Str("root", w.root).Msg("watcher error")
		case now := <-ticker.C:
			if !w.flush(ctx, now) {
				return nil
			}
		}
	}
}

// Close stops the watcher and releases the underlying notifier.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !hidden(filepath.Base(path)) {
				if err := w.addTree(path, true); err != nil {
					log.Warn().Err(err).Str("dir", path).Msg("failed to watch new directory")
				}
			}
			return
		}
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if _, ok := w.dirs[path]; ok {
			w.dropTree(path)
			return
		}
	}

	if ev.Op == fsnotify.Chmod {
		return
	}
	if !w.filter(path) {
		return
	}
	w.pending[path] = time.Now()
}

// addTree watches dir and every non-hidden directory below it. With
// markFiles the files found are queued as changes, otherwise they are
// recorded as already known.
func (w *Watcher) addTree(dir string, markFiles bool) error {
	now := time.Now()
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if entry.IsDir() {
			if path != dir && hidden(entry.Name()) {
				return filepath.SkipDir
			}
			if _, ok := w.dirs[path]; ok {
				return nil
			}
			if err := w.fs.Add(path); err != nil {
				if path == dir {
					return err
				}
				log.Warn().Err(err).Str("dir", path).Msg("failed to watch directory")
				return nil
			}
			w.dirs[path] = struct{}{}
			return nil
		}
		if !entry.Type().IsRegular() || !w.filter(path) {
			return nil
		}
		if markFiles {
			w.pending[path] = now
		} else {
			w.known[path] = struct{}{}
		}
		return nil
	})
}

// dropTree forgets dir and queues every known file below it for a re-check.
func (w *Watcher) dropTree(dir string) {
	prefix := dir + string(filepath.Separator)
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			_ = w.fs.Remove(d)
			delete(w.dirs, d)
		}
	}

	now := time.Now()
	for f := range w.known {
		if strings.HasPrefix(f, prefix) {
			w.pending[f] = now
		}
	}
}

// flush emits events for paths that have been quiet for the debounce period.
// It returns false if the watcher stopped while sending.
func (w *Watcher) flush(ctx context.Context, now time.Time) bool {
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
		}
	}
	if len(ready) == 0 {
		return true
	}
	sort.Strings(ready)

	for _, path := range ready {
		delete(w.pending, path)

		ev, ok := w.settle(path)
		if !ok {
			continue
		}
		select {
		case w.events <- ev:
		case <-ctx.Done():
			return false
		case <-w.closed:
			return false
		}
	}
	return true
}

// settle compares the current state of path with what was last reported.
func (w *Watcher) settle(path string) (Event, bool) {
	_, wasKnown := w.known[path]

	info, err := os.Stat(path)
	if err == nil && info.Mode().IsRegular() {
		w.known[path] = struct{}{}
		if wasKnown {
			return Event{Op: Modified, Path: path}, true
		}
		return Event{Op: Created, Path: path}, true
	}

	if wasKnown {
		delete(w.known, path)
		return Event{Op: Removed, Path: path}, true
	}
	return Event{}, false
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
