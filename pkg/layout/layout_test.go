package layout

import (
	"math"
	"slices"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"pgregory.net/rapid"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/loop"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/testutil"
)

func newStore(t *testing.T, p *model.Payload) *graphstore.Store {
	t.Helper()
	s, err := graphstore.New(p)
	if err != nil {
		t.Fatalf("graphstore.New: %v", err)
	}
	return s
}

func TestCircularFourNodes(t *testing.T) {
	pos := Circular([]string{"a", "b", "c", "d"})
	want := map[string]r2.Vec{
		"a": {X: 0, Y: -1},
		"b": {X: 1, Y: 0},
		"c": {X: 0, Y: 1},
		"d": {X: -1, Y: 0},
	}
	for id, w := range want {
		got := pos[id]
		if math.Abs(got.X-w.X) > 1e-9 || math.Abs(got.Y-w.Y) > 1e-9 {
			t.Errorf("%s at %v, want %v", id, got, w)
		}
	}
}

func TestCircularAngles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 60).Draw(t, "n")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune('A'+i%26)) + string(rune('a'+i/26))
		}
		pos := Circular(ids)
		for i, id := range ids {
			want := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
			p := pos[id]
			if math.Abs(math.Hypot(p.X, p.Y)-1) > 1e-9 {
				t.Fatalf("%s off the unit circle: %v", id, p)
			}
			if math.Abs(p.X-math.Cos(want)) > 1e-9 || math.Abs(p.Y-math.Sin(want)) > 1e-9 {
				t.Fatalf("node %d at %v, want angle %v", i, p, want)
			}
		}
	})
}

func TestGridPlacement(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 150).Draw(t, "n")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = string(rune(0x4e00 + i))
		}
		pos := Grid(ids, 100)
		side := int(math.Ceil(math.Sqrt(float64(n))))
		cells := make(map[[2]int]bool)
		for i, id := range ids {
			p := pos[id]
			col, row := int(p.X/100), int(p.Y/100)
			if col != i%side || row != i/side {
				t.Fatalf("node %d at cell (%d,%d), want (%d,%d)", i, col, row, i%side, i/side)
			}
			if col >= side {
				t.Fatalf("column %d outside %d-wide grid", col, side)
			}
			if cells[[2]int{col, row}] {
				t.Fatalf("cell (%d,%d) used twice", col, row)
			}
			cells[[2]int{col, row}] = true
		}
	})
}

func TestSortKeys(t *testing.T) {
	// hub -> spoke1..3, plus spoke1 -> spoke2.
	p := testutil.QuickStar(3)
	p.Edges = append(p.Edges, model.EdgeData{ID: "x", TypeID: "100", Source: "spoke1", Target: "spoke2"})
	s := newStore(t, p)
	ids := s.NodeIDs()

	tests := []struct {
		by, order string
		want      []string
	}{
		{"total-degree", "desc", []string{"hub", "spoke1", "spoke2", "spoke3"}},
		{"total-degree", "asc", []string{"spoke3", "spoke1", "spoke2", "hub"}},
		{"in-degree", "desc", []string{"spoke2", "spoke1", "spoke3", "hub"}},
		{"out-degree", "desc", []string{"hub", "spoke1", "spoke2", "spoke3"}},
		{"", "", []string{"hub", "spoke1", "spoke2", "spoke3"}},
	}
	for _, tt := range tests {
		t.Run(tt.by+"_"+tt.order, func(t *testing.T) {
			key, err := ParseSortKey(tt.by, tt.order)
			if err != nil {
				t.Fatal(err)
			}
			if got := Sort(s, ids, key); !slices.Equal(got, tt.want) {
				t.Errorf("Sort = %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := ParseSortKey("pagerank", "asc"); err == nil {
		t.Error("unknown attribute should fail")
	}
	if _, err := ParseSortKey("type", "sideways"); err == nil {
		t.Error("unknown order should fail")
	}
}

func TestSortByType(t *testing.T) {
	gen := testutil.New(testutil.GeneratorConfig{NodeTypes: 3})
	s := newStore(t, gen.ToPayload(gen.Chain(6)))
	got := Sort(s, s.NodeIDs(), SortKey{By: SortType, Desc: true})
	want := []string{"n2", "n5", "n1", "n4", "n0", "n3"}
	if !slices.Equal(got, want) {
		t.Errorf("Sort = %v, want %v", got, want)
	}
}

func newEngine(t *testing.T, p *model.Payload) (*Engine, *graphstore.Store, *loop.Manual) {
	t.Helper()
	s := newStore(t, p)
	m := loop.NewManual(time.Unix(0, 0))
	return NewEngine(s, m, DefaultConfig(), nil), s, m
}

func TestEngineStartStop(t *testing.T) {
	e, s, m := newEngine(t, testutil.QuickChain(10))
	frames := 0
	e.OnFrame = func() { frames++ }

	if !e.Start() || e.Mode() != ForceRunning {
		t.Fatalf("Start: mode %v", e.Mode())
	}
	if !e.Start() {
		t.Fatal("Start while running should be a no-op success")
	}
	before, _ := s.Node("n3")
	x0, y0 := before.X, before.Y
	m.Advance(160 * time.Millisecond)
	if frames != 10 {
		t.Errorf("frames = %d, want 10 ticks", frames)
	}
	after, _ := s.Node("n3")
	if after.X == x0 && after.Y == y0 {
		t.Error("simulation did not move nodes")
	}

	e.Stop()
	if e.Mode() != ForcePaused {
		t.Errorf("mode after Stop = %v", e.Mode())
	}
	if m.PendingTimers() != 0 {
		t.Errorf("pending timers after Stop = %d", m.PendingTimers())
	}
	frames = 0
	m.Advance(time.Second)
	if frames != 0 {
		t.Error("ticks continued after Stop")
	}
}

func TestEngineEmptyGraphIsIdle(t *testing.T) {
	e, _, m := newEngine(t, testutil.Empty())
	if e.Start() {
		t.Error("Start on empty graph should report false")
	}
	if e.Mode() != Idle || m.PendingTimers() != 0 {
		t.Errorf("mode=%v timers=%d", e.Mode(), m.PendingTimers())
	}
}

func TestEngineApplyGridAnimates(t *testing.T) {
	e, s, m := newEngine(t, testutil.QuickChain(4))
	e.Start()
	m.Advance(50 * time.Millisecond)

	e.Apply(GridLayout, SortKey{})
	if e.Mode() != StaticGrid {
		t.Fatalf("mode = %v", e.Mode())
	}
	if !e.Animating() {
		t.Fatal("expected a transition")
	}
	m.Advance(250 * time.Millisecond)
	mid, _ := s.Node("n3")
	if mid.X == 100 && mid.Y == 100 {
		t.Error("node reached its target before the transition ended")
	}
	m.Advance(time.Second)
	if e.Animating() {
		t.Error("transition still running")
	}
	want := map[string]r2.Vec{"n0": {X: 0, Y: 0}, "n1": {X: 100, Y: 0}, "n2": {X: 0, Y: 100}, "n3": {X: 100, Y: 100}}
	for id, w := range want {
		n, _ := s.Node(id)
		if math.Abs(n.X-w.X) > 1e-9 || math.Abs(n.Y-w.Y) > 1e-9 {
			t.Errorf("%s at (%v,%v), want %v", id, n.X, n.Y, w)
		}
	}
	if m.PendingTimers() != 0 {
		t.Errorf("simulation still scheduled: %d timers", m.PendingTimers())
	}
}

func TestEngineSkipsHiddenUnlessDrawHidden(t *testing.T) {
	gen := testutil.New(testutil.GeneratorConfig{NodeTypes: 2})
	s := newStore(t, gen.ToPayload(gen.Chain(4)))
	if err := s.SetNodeTypeHidden("2", true); err != nil {
		t.Fatal(err)
	}
	e := NewEngine(s, loop.NewManual(time.Unix(0, 0)), DefaultConfig(), nil)
	if got := e.Targets(GridLayout, SortKey{}); len(got) != 2 {
		t.Errorf("targets = %d, want the 2 visible nodes", len(got))
	}
	e.SetDrawHidden(true)
	if got := e.Targets(GridLayout, SortKey{}); len(got) != 4 {
		t.Errorf("targets with draw hidden = %d, want 4", len(got))
	}
}

func TestForceHandlesCoincidentNodes(t *testing.T) {
	gen := testutil.New(testutil.GeneratorConfig{})
	p := gen.ToPayload(gen.Complete(5))
	zero := 0.0
	for i := range p.Nodes {
		p.Nodes[i].X, p.Nodes[i].Y = &zero, &zero
	}
	s := newStore(t, p)
	f := NewForce(s, DefaultForceParams())
	f.Reset(s.NodeIDs())
	f.Step(20)
	for _, n := range s.Nodes() {
		if math.IsNaN(n.X) || math.IsNaN(n.Y) || math.IsInf(n.X, 0) {
			t.Fatalf("node %s at (%v,%v)", n.ID, n.X, n.Y)
		}
	}
}
