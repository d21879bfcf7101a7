package selection

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/testutil"
)

func scenarioStore(t *testing.T) *graphstore.Store {
	t.Helper()
	s, err := graphstore.New(testutil.Scenario())
	if err != nil {
		t.Fatalf("graphstore.New: %v", err)
	}
	return s
}

func TestClickSelectScenario(t *testing.T) {
	store := scenarioStore(t)
	sel := New(store)

	sel.Toggle("B")
	sel.Toggle("C")
	n := sel.Project()

	testutil.AssertSameIDs(t, sel.IDs(), []string{"B", "C"})
	if n.Kind != Subgraph {
		t.Errorf("notification = %v, want subgraphSelected", n.Kind)
	}
	ab, _ := store.Edge("e0")
	bc, _ := store.Edge("e1")
	if !ab.Gray {
		t.Error("A->B should be grayed")
	}
	if bc.Gray {
		t.Error("B->C should be active")
	}
	a, _ := store.Node("A")
	if !a.Gray || a.DisplayColor() != model.GrayColor {
		t.Errorf("A gray=%v display=%s", a.Gray, a.DisplayColor())
	}
	b, _ := store.Node("B")
	if b.Gray || b.DisplayColor() != b.Color {
		t.Errorf("B gray=%v", b.Gray)
	}
}

func TestToggleBackToEmptyIsAll(t *testing.T) {
	sel := New(scenarioStore(t))
	sel.Toggle("A")
	sel.Toggle("A")
	if !sel.All() {
		t.Errorf("selection = %v, want all", sel.IDs())
	}
	if n := sel.Project(); n.Kind != EntireGraph {
		t.Errorf("notification = %v", n.Kind)
	}
}

func TestFullSelectionCollapsesToAll(t *testing.T) {
	sel := New(scenarioStore(t))
	sel.Replace([]string{"A", "B", "C", "D", "A", "nope"})
	if !sel.All() {
		t.Errorf("selection of every node should collapse to all, got %v", sel.IDs())
	}
	if !sel.Contains("D") || sel.Contains("nope") {
		t.Error("Contains in all-state should follow the store")
	}
}

func TestNeighborhoodEdgesStayActive(t *testing.T) {
	store := scenarioStore(t)
	sel := New(store)
	nodes, edges, err := store.Neighborhood("A")
	if err != nil {
		t.Fatal(err)
	}
	sel.ReplaceWithEdges(nodes, edges)
	sel.Project()

	testutil.AssertSameIDs(t, sel.IDs(), []string{"A", "B"})
	testutil.AssertSameIDs(t, sel.ActiveEdges(), []string{"e0"})
	if e, _ := store.Edge("e0"); e.Gray {
		t.Error("incident edge should be active")
	}
	if e, _ := store.Edge("e1"); !e.Gray {
		t.Error("B->C should be grayed (C outside the neighborhood)")
	}
}

func TestForget(t *testing.T) {
	sel := New(scenarioStore(t))
	sel.Replace([]string{"A", "B"})
	sel.Forget("A")
	testutil.AssertSameIDs(t, sel.IDs(), []string{"B"})
	sel.Forget("B")
	if !sel.All() {
		t.Error("forgetting the last member should return to all")
	}
}

func TestForgetNonMemberCollapsesToAll(t *testing.T) {
	store := scenarioStore(t)
	sel := New(store)
	sel.Replace([]string{"A", "B", "C"})

	if _, err := store.RemoveNode("D"); err != nil {
		t.Fatal(err)
	}
	sel.Forget("D")
	if !sel.All() {
		t.Fatalf("selection %v covers every node but is not all", sel.IDs())
	}
	if n := sel.Project(); n.Kind != EntireGraph {
		t.Errorf("Project = %v, want EntireGraph", n.Kind)
	}
}

func TestProjectNormalizesAfterStoreShrinks(t *testing.T) {
	store := scenarioStore(t)
	sel := New(store)
	sel.Replace([]string{"A", "B", "C"})

	if _, err := store.RemoveNode("D"); err != nil {
		t.Fatal(err)
	}
	if n := sel.Project(); n.Kind != EntireGraph {
		t.Errorf("Project = %v, want EntireGraph", n.Kind)
	}
	for _, n := range store.Nodes() {
		if n.Gray {
			t.Errorf("node %s grayed under the entire graph selection", n.ID)
		}
	}
}

// Neighborhood selection followed by a clear always returns to the entire
// graph with nothing grayed.
func TestNeighborhoodThenClearProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		size := rapid.IntRange(2, 25).Draw(t, "size")
		density := rapid.Float64Range(0, 0.4).Draw(t, "density")
		gen := testutil.New(testutil.GeneratorConfig{Seed: rapid.Int64Range(1, 1000).Draw(t, "seed")})
		store, err := graphstore.New(gen.ToPayload(gen.Random(size, density)))
		if err != nil {
			t.Fatalf("graphstore.New: %v", err)
		}
		sel := New(store)
		center := rapid.SampledFrom(store.NodeIDs()).Draw(t, "center")
		nodes, edges, err := store.Neighborhood(center)
		if err != nil {
			t.Fatal(err)
		}
		sel.ReplaceWithEdges(nodes, edges)
		first := sel.Project()
		if len(nodes) < size && first.Kind != Subgraph {
			t.Fatalf("proper neighborhood raised %v", first.Kind)
		}

		sel.Clear()
		n := sel.Project()
		if n.Kind != EntireGraph || !sel.All() {
			t.Fatalf("after clear: kind=%v all=%v", n.Kind, sel.All())
		}
		for _, node := range store.Nodes() {
			if node.Gray {
				t.Fatalf("node %s still gray", node.ID)
			}
		}
		for _, e := range store.Edges() {
			if e.Gray {
				t.Fatalf("edge %s still gray", e.ID)
			}
		}
	})
}
