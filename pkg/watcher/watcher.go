// Package watcher reports changes to a graph payload file so a running view
// can reload it. It uses fsnotify on the file's directory, which survives the
// write-to-temp-and-rename saves most editors and exporters do, and falls
// back to polling when notifications are unavailable.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultDebounceDuration coalesces the burst of events one save causes.
	DefaultDebounceDuration = 200 * time.Millisecond
	// DefaultPollInterval is the default polling interval for fallback mode.
	DefaultPollInterval = 2 * time.Second
)

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDuration = d
	}
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.pollInterval = d
	}
}

// WithOnChange sets the callback invoked when the file changes.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) WatcherOption {
	return func(w *Watcher) {
		w.forcePoll = force
	}
}

// Watcher monitors a file for changes using fsnotify with polling fallback.
type Watcher struct {
	path             string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func()
	onError          func(error)
	forcePoll        bool

	fsWatcher   *fsnotify.Watcher
	useFallback bool
	lastMtime   time.Time
	lastSize    int64
	pending     *time.Timer

	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan struct{}
}

// NewWatcher creates a new file watcher for the given path.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:             absPath,
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func() {},
		onError:          func(error) {},
		changeCh:         make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching the file for changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsPermission(err) {
			return ErrPermission
		}
		// File might not exist yet, that's okay
		w.lastMtime = time.Time{}
		w.lastSize = 0
	} else {
		w.lastMtime = info.ModTime()
		w.lastSize = info.Size()
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.useFallback = w.forcePoll || envBool("GRAPHLENS_FORCE_POLL")

	if !w.useFallback {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// Watch the directory containing the file (more reliable for atomic writes)
			if err := fsw.Add(filepath.Dir(w.path)); err != nil {
				fsw.Close()
				w.useFallback = true
			} else {
				w.fsWatcher = fsw
				go w.watchFsnotify(fsw)
			}
		} else {
			w.useFallback = true
		}
	}

	if w.useFallback {
		go w.watchPolling(w.ctx)
	}

	w.started = true
	return nil
}

// Stop stops watching the file. The Changed channel stays open.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.useFallback
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed returns a channel that receives when the file changes.
// This is an alternative to using the OnChange callback.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changeCh
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}

// watchFsnotify monitors using fsnotify events.
func (w *Watcher) watchFsnotify(fsw *fsnotify.Watcher) {
	target := filepath.Base(w.path)
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove):
				w.onError(ErrFileRemoved)
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename):
				w.trigger()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// watchPolling monitors using periodic stat checks.
func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			info, err := os.Stat(w.path)
			if err != nil {
				switch {
				case os.IsNotExist(err):
					// Only report if file existed before
					w.mu.RLock()
					hadFile := !w.lastMtime.IsZero()
					w.mu.RUnlock()
					if hadFile {
						w.onError(ErrFileRemoved)
					}
				case os.IsPermission(err):
					w.onError(ErrPermission)
				default:
					w.onError(err)
				}
				continue
			}

			w.mu.Lock()
			changed := info.ModTime().After(w.lastMtime) || info.Size() != w.lastSize
			if changed {
				w.lastMtime = info.ModTime()
				w.lastSize = info.Size()
			}
			w.mu.Unlock()

			if changed {
				w.trigger()
			}
		}
	}
}

// trigger restarts the debounce window; notifyChange runs once it elapses
// without further events.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceDuration, w.notifyChange)
}

// notifyChange invokes the onChange callback and signals the change channel.
func (w *Watcher) notifyChange() {
	w.mu.Lock()
	started := w.started
	w.pending = nil
	w.mu.Unlock()

	// A notification racing Stop is dropped.
	if !started {
		return
	}

	w.onChange()

	// Non-blocking send to change channel
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}
