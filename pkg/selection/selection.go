// Package selection implements the Selection Set and its gray-out
// projection onto the graph store.
//
// A Set is either "all" (no explicit members, every node active) or a
// proper subset of the store's nodes. Any mutation whose result would hold
// every node, or none, collapses back to "all".
package selection

import (
	"slices"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
)

// Kind tells whether a projection covers the entire graph or a subgraph.
type Kind int

const (
	EntireGraph Kind = iota
	Subgraph
)

func (k Kind) String() string {
	if k == Subgraph {
		return "subgraphSelected"
	}
	return "entireGraphSelected"
}

// Notification is raised after every projection.
type Notification struct {
	Kind    Kind
	NodeIDs []string // explicit members; empty for EntireGraph
}

// Set is the selection of one engine instance.
type Set struct {
	store   *graphstore.Store
	members map[string]struct{}
	order   []string
	// activeEdges is non-nil only while a neighborhood selection is current.
	activeEdges map[string]struct{}
}

// New returns an "all" selection over store.
func New(store *graphstore.Store) *Set {
	return &Set{store: store, members: make(map[string]struct{})}
}

// All reports whether every node is selected.
func (s *Set) All() bool { return len(s.members) == 0 }

// Len returns the number of explicit members, 0 for "all".
func (s *Set) Len() int { return len(s.members) }

// Contains reports whether id is active. In the "all" state every existing
// node is.
func (s *Set) Contains(id string) bool {
	if s.All() {
		_, ok := s.store.Node(id)
		return ok
	}
	_, ok := s.members[id]
	return ok
}

// IDs returns the explicit members in selection order.
func (s *Set) IDs() []string { return slices.Clone(s.order) }

// ActiveEdges returns the explicit active-edge set, or nil.
func (s *Set) ActiveEdges() []string {
	if s.activeEdges == nil {
		return nil
	}
	out := make([]string, 0, len(s.activeEdges))
	for _, id := range s.store.VisibleEdgeIDs() {
		if _, ok := s.activeEdges[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// Toggle flips membership of id. Toggling from "all" starts a selection of
// just id. Unknown ids are ignored.
func (s *Set) Toggle(id string) {
	if _, ok := s.store.Node(id); !ok {
		return
	}
	s.activeEdges = nil
	if _, ok := s.members[id]; ok {
		delete(s.members, id)
		s.order = remove(s.order, id)
	} else {
		s.members[id] = struct{}{}
		s.order = append(s.order, id)
	}
	s.normalize()
}

// Replace makes ids the selection. Unknown and repeated ids are dropped.
func (s *Set) Replace(ids []string) {
	s.replace(ids)
	s.activeEdges = nil
	s.normalize()
}

// ReplaceWithEdges makes ids the selection and edges the explicit
// active-edge set.
func (s *Set) ReplaceWithEdges(ids, edges []string) {
	s.replace(ids)
	s.activeEdges = make(map[string]struct{}, len(edges))
	for _, id := range edges {
		s.activeEdges[id] = struct{}{}
	}
	s.normalize()
}

// Clear returns to the "all" state.
func (s *Set) Clear() {
	s.members = make(map[string]struct{})
	s.order = nil
	s.activeEdges = nil
}

// Forget drops id after its node left the store. Removing a non-member can
// leave the members covering every remaining node, so the set is
// normalized either way.
func (s *Set) Forget(id string) {
	if _, ok := s.members[id]; ok {
		delete(s.members, id)
		s.order = remove(s.order, id)
	}
	s.normalize()
}

// Add makes id an explicit member. It is a no-op in the "all" state, which
// already covers it.
func (s *Set) Add(id string) {
	if s.All() {
		return
	}
	if _, ok := s.store.Node(id); !ok {
		return
	}
	if _, ok := s.members[id]; !ok {
		s.members[id] = struct{}{}
		s.order = append(s.order, id)
	}
	s.normalize()
}

func (s *Set) replace(ids []string) {
	s.members = make(map[string]struct{}, len(ids))
	s.order = s.order[:0]
	for _, id := range ids {
		if _, ok := s.store.Node(id); !ok {
			continue
		}
		if _, dup := s.members[id]; dup {
			continue
		}
		s.members[id] = struct{}{}
		s.order = append(s.order, id)
	}
}

// normalize collapses a selection covering the whole universe to "all".
func (s *Set) normalize() {
	if len(s.members) > 0 && len(s.members) < s.store.Len() {
		return
	}
	s.Clear()
}

// Project recolors the store to reflect the selection: non-members are
// grayed, members show their palette color. An edge stays active when both
// endpoints are members or when it is in the explicit active-edge set.
func (s *Set) Project() Notification {
	s.normalize()
	if s.All() {
		for _, n := range s.store.Nodes() {
			n.Gray = false
		}
		for _, e := range s.store.Edges() {
			e.Gray = false
		}
		return Notification{Kind: EntireGraph}
	}
	for _, n := range s.store.Nodes() {
		_, in := s.members[n.ID]
		n.Gray = !in
	}
	for _, e := range s.store.Edges() {
		_, src := s.members[e.Source]
		_, dst := s.members[e.Target]
		_, explicit := s.activeEdges[e.ID]
		e.Gray = !(src && dst) && !explicit
	}
	return Notification{Kind: Subgraph, NodeIDs: s.IDs()}
}

func remove(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
