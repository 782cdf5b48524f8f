// Package watcher reports changes to a small set of files, such as the
// config file, using fsnotify with a polling fallback.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrClosed is returned when operations are called on a closed Watcher.
var ErrClosed = errors.New("watcher: watcher is closed")

const (
	// DefaultDebounce coalesces the burst of events an editor save produces.
	DefaultDebounce = 250 * time.Millisecond
	// DefaultPollInterval is used when falling back to polling.
	DefaultPollInterval = time.Second
)

// Op describes what happened to a file.
type Op uint8

const (
	Changed Op = 1 << iota // created, written or replaced
	Removed
)

func (o Op) String() string {
	switch {
	case o&Removed != 0:
		return "removed"
	case o&Changed != 0:
		return "changed"
	default:
		return "none"
	}
}

// Event is a change to one watched file.
type Event struct {
	Path string
	Op   Op
}

// Handler receives the events coalesced within one debounce window.
type Handler func(events []Event)

// ErrorHandler receives watch errors.
type ErrorHandler func(err error)

type stat struct {
	modTime time.Time
	size    int64
	exists  bool
}

// Watcher watches individual files. Their parent directories are what is
// actually watched, so files that are replaced on save, or that do not
// exist yet, are still reported.
type Watcher struct {
	fs       *fsnotify.Watcher
	handler  Handler
	onError  ErrorHandler
	debounce time.Duration
	interval time.Duration
	poll     bool

	mu      sync.Mutex
	files   map[string]stat
	dirs    map[string]int
	pending map[string]Op
	timer   *time.Timer
	closeCh chan struct{}
	closed  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler sets the error callback.
func WithErrorHandler(h ErrorHandler) Option {
	return func(w *Watcher) { w.onError = h }
}

// WithPolling forces the polling fallback at interval.
func WithPolling(interval time.Duration) Option {
	return func(w *Watcher) {
		w.poll = true
		if interval > 0 {
			w.interval = interval
		}
	}
}

// New starts a watcher that calls handler on changes. Add files with Add.
func New(handler Handler, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		handler:  handler,
		debounce: DefaultDebounce,
		interval: DefaultPollInterval,
		files:    make(map[string]stat),
		dirs:     make(map[string]int),
		pending:  make(map[string]Op),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if !w.poll {
		fs, err := fsnotify.NewWatcher()
		if err != nil {
			w.report(fmt.Errorf("fsnotify unavailable, polling instead: %w", err))
			w.poll = true
		} else {
			w.fs = fs
		}
	}

	if w.poll {
		go w.runPoll()
	} else {
		go w.run()
	}
	return w, nil
}

// Add watches path. The file does not need to exist, but its directory does.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, ok := w.files[abs]; ok {
		return nil
	}

	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 && w.fs != nil {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[abs] = statFile(abs)
	return nil
}

// Files returns the watched files.
func (w *Watcher) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	return out
}

// Close stops the watcher. Pending events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.closeCh)
	if w.fs != nil {
		return w.fs.Close()
	}
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			op := Changed
			if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				if _, err := os.Stat(ev.Name); err != nil {
					op = Removed
				}
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			w.queue(filepath.Clean(ev.Name), op)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.report(err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) runPoll() {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			w.pollOnce()
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) pollOnce() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	for _, p := range paths {
		now := statFile(p)
		w.mu.Lock()
		prev, ok := w.files[p]
		if ok {
			w.files[p] = now
		}
		w.mu.Unlock()
		if !ok || now == prev {
			continue
		}
		if !now.exists {
			w.queue(p, Removed)
		} else {
			w.queue(p, Changed)
		}
	}
}

// queue records an event for a watched file and restarts the debounce timer.
func (w *Watcher) queue(path string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, ok := w.files[path]; !ok {
		return
	}
	w.pending[path] = op
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	events := make([]Event, 0, len(w.pending))
	for p, op := range w.pending {
		events = append(events, Event{Path: p, Op: op})
	}
	w.pending = make(map[string]Op)
	w.mu.Unlock()

	if w.handler != nil {
		w.handler(events)
	}
}

func (w *Watcher) report(err error) {
	if w.onError != nil && err != nil {
		w.onError(err)
	}
}

func statFile(path string) stat {
	info, err := os.Stat(path)
	if err != nil {
		return stat{}
	}
	return stat{modTime: info.ModTime(), size: info.Size(), exists: true}
}
