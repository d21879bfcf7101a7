package graphstore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/testutil"
)

type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func mustStore(t fataler, p *model.Payload) *Store {
	t.Helper()
	s, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNewFromPayload(t *testing.T) {
	gen := testutil.New(testutil.GeneratorConfig{NodeTypes: 2})
	s := mustStore(t, gen.ToPayload(gen.Chain(5)))
	testutil.AssertConsistent(t, s)

	if s.Len() != 5 || s.EdgeLen() != 4 {
		t.Fatalf("Len=%d EdgeLen=%d", s.Len(), s.EdgeLen())
	}
	n, ok := s.Node("n2")
	if !ok {
		t.Fatal("n2 missing")
	}
	nt, _ := s.NodeType(n.TypeID)
	if n.Color != nt.Color {
		t.Errorf("node color %q, type color %q", n.Color, nt.Color)
	}
	if n.Size != DefaultNodeSize {
		t.Errorf("size = %v", n.Size)
	}
	if got := s.NodeIDs(); !slices.Equal(got, []string{"n0", "n1", "n2", "n3", "n4"}) {
		t.Errorf("NodeIDs = %v", got)
	}
}

func TestNewKeepsRegistryOrder(t *testing.T) {
	p := testutil.QuickChain(3)
	p.NodeTypes[0].Nodes = []string{"n2", "n0", "n1"}
	s := mustStore(t, p)
	nt, _ := s.NodeType(p.NodeTypes[0].ID)
	if !slices.Equal(nt.Nodes, []string{"n2", "n0", "n1"}) {
		t.Errorf("member order = %v", nt.Nodes)
	}
	if got := s.NodeIDs(); !slices.Equal(got, []string{"n0", "n1", "n2"}) {
		t.Errorf("NodeIDs = %v, want payload order", got)
	}
}

func TestUnpositionedNodesAreSpread(t *testing.T) {
	s := mustStore(t, testutil.QuickChain(20))
	seen := map[[2]float64]string{}
	for _, n := range s.Nodes() {
		key := [2]float64{n.X, n.Y}
		if other, ok := seen[key]; ok {
			t.Fatalf("%s and %s share position %v", n.ID, other, key)
		}
		seen[key] = n.ID
	}
}

func TestMutationsRejectBadIDs(t *testing.T) {
	s := mustStore(t, testutil.Scenario())
	tests := []struct {
		name string
		do   func() error
		want error
	}{
		{"duplicate node", func() error { return s.AddNode(model.Node{ID: "A", TypeID: "1"}) }, ErrDuplicateID},
		{"empty node id", func() error { return s.AddNode(model.Node{TypeID: "1"}) }, ErrInvalidID},
		{"unknown node type", func() error { return s.AddNode(model.Node{ID: "Z", TypeID: "nope"}) }, ErrUnknownType},
		{"remove missing node", func() error { _, err := s.RemoveNode("Z"); return err }, ErrNotFound},
		{"duplicate edge", func() error {
			return s.AddEdge(model.Edge{ID: "e0", TypeID: "100", Source: "A", Target: "D"})
		}, ErrDuplicateID},
		{"dangling edge", func() error {
			return s.AddEdge(model.Edge{ID: "eX", TypeID: "100", Source: "A", Target: "Z"})
		}, ErrDanglingEdge},
		{"unknown edge type", func() error {
			return s.AddEdge(model.Edge{ID: "eX", TypeID: "7", Source: "A", Target: "D"})
		}, ErrUnknownType},
		{"remove missing edge", func() error { return s.RemoveEdge("eX") }, ErrNotFound},
		{"bad recolor", func() error { _, err := s.RecolorNodeType("1", "red"); return err }, ErrInvalidColor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if s.Len() != 4 || s.EdgeLen() != 2 {
				t.Errorf("rejected mutation changed the store: %d nodes, %d edges", s.Len(), s.EdgeLen())
			}
			testutil.AssertConsistent(t, s)
		})
	}
}

func TestRemoveNodeDetachesEdges(t *testing.T) {
	s := mustStore(t, testutil.Scenario())
	removed, err := s.RemoveNode("B")
	if err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %d edges, want 2", len(removed))
	}
	testutil.AssertNoEdgeReferences(t, s.Edges(), "B")
	for _, nt := range s.NodeTypes() {
		if slices.Contains(nt.Nodes, "B") {
			t.Errorf("type %s still lists B", nt.ID)
		}
	}
	if slices.Contains(s.VisibleNodeIDs(), "B") {
		t.Error("B still visible")
	}
	if d := s.DegreeOf("A", model.DirTotal); d != 0 {
		t.Errorf("degree of A = %d after B removed", d)
	}
	testutil.AssertConsistent(t, s)
}

func TestVisibility(t *testing.T) {
	gen := testutil.New(testutil.GeneratorConfig{NodeTypes: 2, EdgeTypes: 2})
	s := mustStore(t, gen.ToPayload(gen.Chain(6)))

	// Type "2" holds n1, n3, n5; every chain edge touches one of them.
	if err := s.SetNodeTypeHidden("2", true); err != nil {
		t.Fatal(err)
	}
	testutil.AssertConsistent(t, s)
	testutil.AssertSameIDs(t, s.VisibleNodeIDs(), []string{"n0", "n2", "n4"})
	if len(s.VisibleEdgeIDs()) != 0 {
		t.Errorf("visible edges = %v, want none", s.VisibleEdgeIDs())
	}

	// New members of a hidden type start hidden.
	if err := s.AddNode(model.Node{ID: "x", TypeID: "2"}); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Node("x"); !n.Hidden {
		t.Error("node added to hidden type should be hidden")
	}

	if err := s.SetNodeTypeHidden("2", false); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEdgeTypeHidden("101", true); err != nil {
		t.Fatal(err)
	}
	testutil.AssertConsistent(t, s)
	testutil.AssertSameIDs(t, s.VisibleEdgeIDs(), []string{"e0", "e2", "e4"})

	if err := s.SetEdgeTypeHidden("999", true); !errors.Is(err, ErrUnknownType) {
		t.Errorf("err = %v", err)
	}
}

func TestEdgeColorPolicies(t *testing.T) {
	p := &model.Payload{
		NodeTypes: []model.NodeType{{ID: "1", Name: "Red", Color: "#FF0000"}, {ID: "2", Name: "Blue", Color: "#0000FF"}},
		EdgeTypes: []model.EdgeType{
			{ID: "c", Name: "custom", Color: "#00FF00", ColorMode: model.ColorModeCustom},
			{ID: "s", Name: "source", Color: "#00FF00", ColorMode: model.ColorModeSource},
			{ID: "t", Name: "target", Color: "#00FF00", ColorMode: model.ColorModeTarget},
			{ID: "a", Name: "avg", Color: "#00FF00", ColorMode: model.ColorModeAvg},
		},
		Nodes: []model.NodeData{{ID: "r", TypeID: "1"}, {ID: "b", TypeID: "2"}},
		Edges: []model.EdgeData{
			{ID: "ec", TypeID: "c", Source: "r", Target: "b"},
			{ID: "es", TypeID: "s", Source: "r", Target: "b"},
			{ID: "et", TypeID: "t", Source: "r", Target: "b"},
			{ID: "ea", TypeID: "a", Source: "r", Target: "b"},
		},
	}
	s := mustStore(t, p)
	want := map[string]string{"ec": "#00ff00", "es": "#ff0000", "et": "#0000ff", "ea": "#800080"}
	for id, color := range want {
		e, _ := s.Edge(id)
		if got := strings.ToLower(e.Color); got != color {
			t.Errorf("edge %s color = %s, want %s", id, e.Color, color)
		}
	}

	// Recoloring a node type re-derives dependent edges.
	prev, err := s.RecolorNodeType("1", "#FFFFFF")
	if err != nil || prev != "#FF0000" {
		t.Fatalf("RecolorNodeType = %q, %v", prev, err)
	}
	if e, _ := s.Edge("es"); e.Color != "#FFFFFF" {
		t.Errorf("source-colored edge = %s", e.Color)
	}
	if e, _ := s.Edge("ec"); e.Color != "#00FF00" {
		t.Errorf("custom edge changed to %s", e.Color)
	}

	prevColor, prevMode, err := s.RecolorEdgeType("c", "#123456", model.ColorModeTarget)
	if err != nil || prevColor != "#00FF00" || prevMode != model.ColorModeCustom {
		t.Fatalf("RecolorEdgeType = %q %q %v", prevColor, prevMode, err)
	}
	if e, _ := s.Edge("ec"); e.Color != "#0000FF" {
		t.Errorf("edge after mode switch = %s", e.Color)
	}
}

func TestRecolorKeepsGray(t *testing.T) {
	s := mustStore(t, testutil.Scenario())
	s.SetGray("A", true)
	if _, err := s.RecolorNodeType("1", "#ABCDEF"); err != nil {
		t.Fatal(err)
	}
	n, _ := s.Node("A")
	if n.Color != "#ABCDEF" || n.DisplayColor() != model.GrayColor {
		t.Errorf("color=%s display=%s", n.Color, n.DisplayColor())
	}
}

func TestNeighborhood(t *testing.T) {
	s := mustStore(t, testutil.Scenario())
	nodes, edges, err := s.Neighborhood("B")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertSameIDs(t, nodes, []string{"A", "B", "C"})
	testutil.AssertSameIDs(t, edges, []string{"e0", "e1"})

	nodes, edges, _ = s.Neighborhood("D")
	if len(nodes) != 1 || len(edges) != 0 {
		t.Errorf("isolated neighborhood = %v / %v", nodes, edges)
	}
	if _, _, err := s.Neighborhood("Z"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestDegreeCache(t *testing.T) {
	s := mustStore(t, testutil.QuickStar(4))
	d, err := s.Degree("hub")
	if err != nil {
		t.Fatal(err)
	}
	if d.Out != 4 || d.In != 0 || d.Total != 4 {
		t.Errorf("hub degree = %+v", d)
	}
	if !s.DegreesCalculated() {
		t.Error("cache should be current after a query")
	}
	if err := s.AddEdge(model.Edge{ID: "back", TypeID: "100", Source: "spoke1", Target: "hub"}); err != nil {
		t.Fatal(err)
	}
	if s.DegreesCalculated() {
		t.Error("mutation should invalidate the cache")
	}
	if d, _ := s.Degree("hub"); d.In != 1 || d.Total != 5 {
		t.Errorf("hub degree after mutation = %+v", d)
	}
}

// Every sequence of node additions and removals leaves the store consistent,
// and cached degrees match a from-scratch count.
func TestMutationSequencesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := mustStore(t, testutil.QuickRandom(8, 0.3))
		next := 0
		steps := rapid.IntRange(1, 30).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			ids := s.NodeIDs()
			if len(ids) == 0 || rapid.Bool().Draw(t, "add") {
				id := fmt.Sprintf("new%d", next)
				next++
				if err := s.AddNode(model.Node{ID: id, TypeID: "1"}); err != nil {
					t.Fatalf("AddNode: %v", err)
				}
				if len(ids) > 0 {
					other := rapid.SampledFrom(ids).Draw(t, "other")
					e := model.Edge{ID: "e" + id, TypeID: "100", Source: id, Target: other}
					if rapid.Bool().Draw(t, "reverse") {
						e.Source, e.Target = other, id
					}
					if err := s.AddEdge(e); err != nil {
						t.Fatalf("AddEdge: %v", err)
					}
				}
				continue
			}
			victim := rapid.SampledFrom(ids).Draw(t, "victim")
			if _, err := s.RemoveNode(victim); err != nil {
				t.Fatalf("RemoveNode: %v", err)
			}
			for _, e := range s.Edges() {
				if e.Source == victim || e.Target == victim {
					t.Fatalf("edge %s references removed %s", e.ID, victim)
				}
			}
			for _, nt := range s.NodeTypes() {
				if slices.Contains(nt.Nodes, victim) {
					t.Fatalf("type %s lists removed %s", nt.ID, victim)
				}
			}
			if slices.Contains(s.VisibleNodeIDs(), victim) {
				t.Fatalf("visible list holds removed %s", victim)
			}
		}
		if err := s.CheckConsistency(); err != nil {
			t.Fatalf("inconsistent: %v", err)
		}
		fresh := ComputeDegrees(s.NodeIDs(), s.Edges())
		for _, id := range s.NodeIDs() {
			got, _ := s.Degree(id)
			if got != fresh[id] {
				t.Fatalf("degree of %s = %+v, from scratch %+v", id, got, fresh[id])
			}
		}
	})
}

func TestPayloadExport(t *testing.T) {
	s := mustStore(t, testutil.Scenario())
	if err := s.SetPosition("A", 3, 4); err != nil {
		t.Fatal(err)
	}
	p := s.Payload()
	if err := p.Validate(); err != nil {
		t.Fatalf("exported payload invalid: %v", err)
	}
	if *p.Nodes[0].X != 3 || *p.Nodes[0].Y != 4 {
		t.Errorf("position not exported: %v,%v", *p.Nodes[0].X, *p.Nodes[0].Y)
	}
	again := mustStore(t, p)
	if again.Len() != s.Len() || again.EdgeLen() != s.EdgeLen() {
		t.Error("re-import changed the graph")
	}
}
