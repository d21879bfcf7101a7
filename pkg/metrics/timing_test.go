package metrics

import (
	"testing"
	"time"
)

func TestTimingMetricRecord(t *testing.T) {
	SetEnabled(true)
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)

	s := m.Stats()
	if s.Count != 2 {
		t.Fatalf("Count = %d", s.Count)
	}
	if s.AvgMs != 3 || s.MaxMs != 4 || s.MinMs != 2 {
		t.Errorf("stats = %+v", s)
	}
	m.Reset()
	if m.Count() != 0 {
		t.Error("Reset did not clear count")
	}
}

func TestDisabledRecordsNothing(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)
	m := newTimingMetric("off")
	Timer(m)()
	c := &Counter{name: "off"}
	c.Inc()
	if m.Count() != 0 || c.Value() != 0 {
		t.Error("disabled metrics should not record")
	}
}

func TestTakeSkipsEmpty(t *testing.T) {
	SetEnabled(true)
	ResetAll()
	defer ResetAll()
	Timer(Export)()
	Rollbacks.Inc()
	s := Take()
	if len(s.Timings) != 1 || s.Timings[0].Name != "export" {
		t.Errorf("timings = %+v", s.Timings)
	}
	if s.Counters["rollbacks"] != 1 || len(s.Counters) != 1 {
		t.Errorf("counters = %v", s.Counters)
	}
}
