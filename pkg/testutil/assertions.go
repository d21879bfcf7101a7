package testutil

import (
	"slices"
	"testing"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// Checker is anything that can verify its own derived state, such as a
// graph store.
type Checker interface {
	CheckConsistency() error
}

// AssertConsistent fails the test if c reports an inconsistency.
func AssertConsistent(t testing.TB, c Checker) {
	t.Helper()
	if err := c.CheckConsistency(); err != nil {
		t.Fatalf("inconsistent state: %v", err)
	}
}

// AssertNoDuplicateIDs verifies all node and edge ids of a payload are unique.
func AssertNoDuplicateIDs(t testing.TB, p *model.Payload) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range p.Nodes {
		if seen["n:"+n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen["n:"+n.ID] = true
	}
	for _, e := range p.Edges {
		if seen["e:"+e.ID] {
			t.Errorf("duplicate edge ID: %s", e.ID)
		}
		seen["e:"+e.ID] = true
	}
}

// AssertNoEdgeReferences verifies that no edge touches id.
func AssertNoEdgeReferences(t testing.TB, edges []*model.Edge, id string) {
	t.Helper()
	for _, e := range edges {
		if e.Source == id || e.Target == id {
			t.Errorf("edge %s still references %s", e.ID, id)
		}
	}
}

// AssertSameIDs verifies two id lists hold the same ids, ignoring order.
func AssertSameIDs(t testing.TB, got, want []string) {
	t.Helper()
	g := slices.Clone(got)
	w := slices.Clone(want)
	slices.Sort(g)
	slices.Sort(w)
	if !slices.Equal(g, w) {
		t.Errorf("ids = %v, want %v", got, want)
	}
}

// AssertDistinctCells verifies that no two positions share a grid cell of
// the given size.
func AssertDistinctCells(t testing.TB, pos map[string][2]float64, cell float64) {
	t.Helper()
	seen := make(map[[2]int64]string, len(pos))
	for id, p := range pos {
		key := [2]int64{int64(p[0] / cell), int64(p[1] / cell)}
		if other, ok := seen[key]; ok {
			t.Errorf("nodes %s and %s share cell %v", id, other, key)
		}
		seen[key] = id
	}
}
