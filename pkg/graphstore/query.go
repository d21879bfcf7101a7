package graphstore

import (
	"fmt"
	"slices"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// Len returns the number of nodes.
func (s *Store) Len() int { return len(s.nodes) }

// EdgeLen returns the number of edges.
func (s *Store) EdgeLen() int { return len(s.edges) }

// Node returns the node with the given id. The pointer stays owned by the
// store; callers must mutate through store methods.
func (s *Store) Node(id string) (*model.Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Edge returns the edge with the given id.
func (s *Store) Edge(id string) (*model.Edge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

// Nodes returns all nodes in insertion order.
func (s *Store) Nodes() []*model.Node {
	out := make([]*model.Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
func (s *Store) Edges() []*model.Edge {
	out := make([]*model.Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out
}

// NodeIDs returns all node ids in insertion order.
func (s *Store) NodeIDs() []string { return slices.Clone(s.nodeOrder) }

// VisibleNodeIDs returns the ids of non-hidden nodes in insertion order.
func (s *Store) VisibleNodeIDs() []string { return slices.Clone(s.visibleNodes) }

// VisibleEdgeIDs returns the ids of non-hidden edges in insertion order.
func (s *Store) VisibleEdgeIDs() []string { return slices.Clone(s.visibleEdges) }

// NodeType returns a node type.
func (s *Store) NodeType(id string) (*model.NodeType, bool) {
	t, ok := s.nodeTypes[id]
	return t, ok
}

// EdgeType returns an edge type.
func (s *Store) EdgeType(id string) (*model.EdgeType, bool) {
	t, ok := s.edgeTypes[id]
	return t, ok
}

// NodeTypes returns the node types in registration order.
func (s *Store) NodeTypes() []*model.NodeType {
	out := make([]*model.NodeType, 0, len(s.nodeTypeOrder))
	for _, id := range s.nodeTypeOrder {
		out = append(out, s.nodeTypes[id])
	}
	return out
}

// EdgeTypes returns the edge types in registration order.
func (s *Store) EdgeTypes() []*model.EdgeType {
	out := make([]*model.EdgeType, 0, len(s.edgeTypeOrder))
	for _, id := range s.edgeTypeOrder {
		out = append(out, s.edgeTypes[id])
	}
	return out
}

// IncidentEdges returns the ids of edges touching a node, in insertion order.
func (s *Store) IncidentEdges(id string) []string {
	inc := s.incident[id]
	if len(inc) == 0 {
		return nil
	}
	out := make([]string, 0, len(inc))
	for _, eid := range s.edgeOrder {
		if _, ok := inc[eid]; ok {
			out = append(out, eid)
		}
	}
	return out
}

// Neighborhood returns the node itself plus every node one edge away in
// either direction, and the edges joining them to the center.
func (s *Store) Neighborhood(id string) (nodes, edges []string, err error) {
	if _, ok := s.nodes[id]; !ok {
		return nil, nil, fmt.Errorf("neighborhood of %q: %w", id, ErrNotFound)
	}
	seen := map[string]bool{id: true}
	nodes = []string{id}
	edges = s.IncidentEdges(id)
	for _, eid := range edges {
		e := s.edges[eid]
		for _, other := range [2]string{e.Source, e.Target} {
			if !seen[other] {
				seen[other] = true
				nodes = append(nodes, other)
			}
		}
	}
	return nodes, edges, nil
}

// Degree returns the degree metrics of a node, recomputing the cache if a
// structural mutation happened since the last query.
func (s *Store) Degree(id string) (model.Degree, error) {
	if _, ok := s.nodes[id]; !ok {
		return model.Degree{}, fmt.Errorf("degree of %q: %w", id, ErrNotFound)
	}
	s.ensureDegrees()
	return s.degrees[id], nil
}

// DegreeOf returns one degree metric of a node, or 0 for unknown ids.
func (s *Store) DegreeOf(id string, dir model.Direction) int {
	d, err := s.Degree(id)
	if err != nil {
		return 0
	}
	return d.Of(dir)
}

// DegreesCalculated reports whether the degree cache is current.
func (s *Store) DegreesCalculated() bool { return s.degreesCalculated }

func (s *Store) ensureDegrees() {
	if s.degreesCalculated {
		return
	}
	s.degrees = ComputeDegrees(s.nodeOrder, s.Edges())
	s.degreesCalculated = true
}

// ComputeDegrees counts in, out and total degree of every listed node over
// the given edges. Edges touching unlisted nodes are ignored for those
// endpoints.
func ComputeDegrees(nodeIDs []string, edges []*model.Edge) map[string]model.Degree {
	deg := make(map[string]model.Degree, len(nodeIDs))
	for _, id := range nodeIDs {
		deg[id] = model.Degree{}
	}
	for _, e := range edges {
		if d, ok := deg[e.Source]; ok {
			d.Out++
			d.Total++
			deg[e.Source] = d
		}
		if d, ok := deg[e.Target]; ok {
			d.In++
			d.Total++
			deg[e.Target] = d
		}
	}
	return deg
}

// Payload exports the current graph, including positions, as a host
// payload.
func (s *Store) Payload() *model.Payload {
	p := &model.Payload{}
	for _, t := range s.NodeTypes() {
		p.NodeTypes = append(p.NodeTypes, model.NodeType{ID: t.ID, Name: t.Name, Color: t.Color, Nodes: slices.Clone(t.Nodes)})
	}
	for _, t := range s.EdgeTypes() {
		p.EdgeTypes = append(p.EdgeTypes, model.EdgeType{ID: t.ID, Name: t.Name, Color: t.Color, ColorMode: t.ColorMode, Edges: slices.Clone(t.Edges)})
	}
	for _, n := range s.Nodes() {
		x, y := n.X, n.Y
		p.Nodes = append(p.Nodes, model.NodeData{ID: n.ID, TypeID: n.TypeID, Label: n.Label, Properties: n.Properties, X: &x, Y: &y})
	}
	for _, e := range s.Edges() {
		p.Edges = append(p.Edges, model.EdgeData{ID: e.ID, TypeID: e.TypeID, Source: e.Source, Target: e.Target})
	}
	return p
}

// CheckConsistency verifies the derived structures against the element
// maps. It is meant for tests and debug builds.
func (s *Store) CheckConsistency() error {
	if len(s.nodeOrder) != len(s.nodes) || len(s.edgeOrder) != len(s.edges) {
		return fmt.Errorf("order lists out of sync: %d/%d nodes, %d/%d edges",
			len(s.nodeOrder), len(s.nodes), len(s.edgeOrder), len(s.edges))
	}
	members := 0
	for _, t := range s.nodeTypes {
		for _, id := range t.Nodes {
			n, ok := s.nodes[id]
			if !ok {
				return fmt.Errorf("node type %q lists missing node %q", t.ID, id)
			}
			if n.TypeID != t.ID {
				return fmt.Errorf("node %q listed under type %q but has type %q", id, t.ID, n.TypeID)
			}
			if n.Hidden != s.hiddenNodeTyp[t.ID] {
				return fmt.Errorf("node %q hidden=%v but type %q hidden=%v", id, n.Hidden, t.ID, s.hiddenNodeTyp[t.ID])
			}
			members++
		}
	}
	if members != len(s.nodes) {
		return fmt.Errorf("node type lists hold %d ids for %d nodes", members, len(s.nodes))
	}
	members = 0
	for _, t := range s.edgeTypes {
		for _, id := range t.Edges {
			e, ok := s.edges[id]
			if !ok {
				return fmt.Errorf("edge type %q lists missing edge %q", t.ID, id)
			}
			if e.TypeID != t.ID {
				return fmt.Errorf("edge %q listed under type %q but has type %q", id, t.ID, e.TypeID)
			}
			members++
		}
	}
	if members != len(s.edges) {
		return fmt.Errorf("edge type lists hold %d ids for %d edges", members, len(s.edges))
	}

	visible := 0
	for _, id := range s.visibleNodes {
		n, ok := s.nodes[id]
		if !ok || n.Hidden {
			return fmt.Errorf("visible node list holds %q", id)
		}
		visible++
	}
	for _, n := range s.nodes {
		if !n.Hidden {
			visible--
		}
	}
	if visible != 0 {
		return fmt.Errorf("visible node list size mismatch")
	}
	visible = 0
	for _, id := range s.visibleEdges {
		e, ok := s.edges[id]
		if !ok || e.Hidden {
			return fmt.Errorf("visible edge list holds %q", id)
		}
		visible++
	}
	for _, e := range s.edges {
		if e.Hidden != s.edgeHidden(e) {
			return fmt.Errorf("edge %q hidden flag stale", e.ID)
		}
		if !e.Hidden {
			visible--
		}
		for _, end := range [2]string{e.Source, e.Target} {
			if _, ok := s.nodes[end]; !ok {
				return fmt.Errorf("edge %q references missing node %q", e.ID, end)
			}
			if _, ok := s.incident[end][e.ID]; !ok {
				return fmt.Errorf("edge %q missing from incidence of %q", e.ID, end)
			}
		}
	}
	if visible != 0 {
		return fmt.Errorf("visible edge list size mismatch")
	}
	for id, inc := range s.incident {
		if _, ok := s.nodes[id]; !ok {
			return fmt.Errorf("incidence kept for missing node %q", id)
		}
		for eid := range inc {
			if _, ok := s.edges[eid]; !ok {
				return fmt.Errorf("node %q incident to missing edge %q", id, eid)
			}
		}
	}
	return nil
}
