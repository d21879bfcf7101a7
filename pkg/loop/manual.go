package loop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by an explicit clock. Nothing runs until the
// owner calls Advance, AdvanceTo or RunPending, and everything then runs on
// the caller's goroutine.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	timers  []*manualTimer
	pending []func()
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

type manualTimer struct {
	m       *Manual
	at      time.Time
	seq     uint64
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Now implements Scheduler.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Post implements Scheduler. Posted callbacks run on the next RunPending or
// Advance call.
func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// RunPending runs posted callbacks (including ones posted while running)
// without moving the clock. It returns the number of callbacks run.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.pending[0]
		m.pending = m.pending[1:]
		m.mu.Unlock()
		fn()
		n++
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order.
func (m *Manual) Advance(d time.Duration) {
	m.AdvanceTo(m.Now().Add(d))
}

// AdvanceTo moves the clock to t (never backwards), firing due timers in
// deadline order. Each timer sees Now() equal to its own deadline.
func (m *Manual) AdvanceTo(t time.Time) {
	m.RunPending()
	for {
		next := m.nextDue(t)
		if next == nil {
			break
		}
		next.fn()
		m.RunPending()
	}
	m.mu.Lock()
	if t.After(m.now) {
		m.now = t
	}
	m.mu.Unlock()
}

// nextDue pops the earliest live timer due at or before t and moves the
// clock to its deadline.
func (m *Manual) nextDue(t time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.timers[:0]
	for _, tm := range m.timers {
		if !tm.stopped && !tm.fired {
			live = append(live, tm)
		}
	}
	m.timers = live
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	first := live[0]
	if first.at.After(t) {
		return nil
	}
	first.fired = true
	if first.at.After(m.now) {
		m.now = first.at
	}
	return first
}

// PendingTimers returns the number of live timers.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tm := range m.timers {
		if !tm.stopped && !tm.fired {
			n++
		}
	}
	return n
}

// NextDeadline returns the deadline of the earliest live timer.
func (m *Manual) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best time.Time
	found := false
	for _, tm := range m.timers {
		if tm.stopped || tm.fired {
			continue
		}
		if !found || tm.at.Before(best) {
			best = tm.at
			found = true
		}
	}
	return best, found
}
