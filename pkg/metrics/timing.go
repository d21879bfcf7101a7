// Package metrics provides performance instrumentation for graphlens.
//
// Timings cover the engine's hot paths (simulation ticks, static layouts,
// frame projection, export) and counters track discrete events such as
// persistence rollbacks. Everything is in-memory and updated atomically.
// Collection is on by default and can be disabled with GRAPHLENS_METRICS=0.
//
// Usage:
//
//	func (e *Engine) onTick() {
//	    defer metrics.Timer(metrics.SimulationTick)()
//	    // ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("GRAPHLENS_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled allows programmatic control of metrics collection.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric tracks timing statistics for a named operation.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record records a single measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)
	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of recorded measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns all timing statistics at once.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:    m.name,
		Count:   count,
		TotalMs: float64(total) / 1e6,
		AvgMs:   float64(avg) / 1e6,
		MaxMs:   float64(m.maxNs.Load()) / 1e6,
		MinMs:   float64(m.minNs.Load()) / 1e6,
	}
}

// Reset clears all recorded measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats holds a snapshot of timing statistics.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer returns a function that records elapsed time when called:
//
//	defer metrics.Timer(metrics.StaticLayout)()
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// Counter counts discrete events.
type Counter struct {
	name string
	n    atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() {
	if Enabled() {
		c.n.Add(1)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Timing metrics.
var (
	SimulationTick = newTimingMetric("simulation_tick")
	StaticLayout   = newTimingMetric("static_layout")
	FrameBuild     = newTimingMetric("frame_build")
	AreaSelect     = newTimingMetric("area_select")
	PayloadLoad    = newTimingMetric("payload_load")
	Export         = newTimingMetric("export")
)

// Event counters.
var (
	PersistFailures  = &Counter{name: "persist_failures"}
	Rollbacks        = &Counter{name: "rollbacks"}
	RejectedMutation = &Counter{name: "rejected_mutations"}
)

// AllTimingMetrics returns all registered timing metrics.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{SimulationTick, StaticLayout, FrameBuild, AreaSelect, PayloadLoad, Export}
}

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{PersistFailures, Rollbacks, RejectedMutation}
}

// ResetAll resets every metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, c := range AllCounters() {
		c.n.Store(0)
	}
}

// Snapshot is a point-in-time view of every metric with data.
type Snapshot struct {
	Timings  []TimingStats    `json:"timings"`
	Counters map[string]int64 `json:"counters"`
}

// Take returns the current snapshot.
func Take() Snapshot {
	s := Snapshot{Counters: make(map[string]int64)}
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			s.Timings = append(s.Timings, m.Stats())
		}
	}
	for _, c := range AllCounters() {
		if v := c.Value(); v > 0 {
			s.Counters[c.name] = v
		}
	}
	return s
}
