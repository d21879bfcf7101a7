// Package loop provides the single-threaded execution model the engine runs
// on. Every engine mutation happens inside a callback delivered by a
// Scheduler, so simulation ticks, timers, pointer events and network results
// interleave but never run in parallel.
//
// Two implementations exist:
//   - Loop: a goroutine draining a queue, with wall-clock timers.
//   - Manual: a virtual clock advanced by the host (frame ticks) or by tests.
package loop

import (
	"context"
	"sync"
	"time"
)

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop cancels the callback. It returns false if the callback already
	// ran or was stopped before.
	Stop() bool
}

// Scheduler runs callbacks on the engine's single logical thread.
type Scheduler interface {
	// AfterFunc runs fn on the loop after d.
	AfterFunc(d time.Duration, fn func()) Timer
	// Post enqueues fn to run on the loop as soon as possible. It is safe
	// to call from any goroutine.
	Post(fn func())
	// Now returns the scheduler's notion of the current time.
	Now() time.Time
}

// Loop executes posted callbacks on a dedicated goroutine.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
}

// New creates a loop with the given queue capacity.
func New(capacity int) *Loop {
	if capacity <= 0 {
		capacity = 256
	}
	return &Loop{
		queue: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
}

// Run drains the queue until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Close stops Run. Callbacks posted afterwards are dropped.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Post implements Scheduler.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.done:
	case l.queue <- fn:
	}
}

// Now implements Scheduler.
func (l *Loop) Now() time.Time {
	return time.Now()
}

// AfterFunc implements Scheduler. The callback is posted onto the loop when
// the wall-clock timer fires; stopping after it was posted but before it ran
// still suppresses it.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	t := &loopTimer{}
	t.timer = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.fire() {
				fn()
			}
		})
	})
	return t
}

type loopTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   bool
}

func (t *loopTimer) fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.fired = true
	return true
}

func (t *loopTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	t.timer.Stop()
	return true
}
