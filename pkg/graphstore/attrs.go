package graphstore

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// edgeHidden reports whether an edge must be hidden: its type is hidden or
// one of its endpoints is.
func (s *Store) edgeHidden(e *model.Edge) bool {
	if s.hiddenEdgeTyp[e.TypeID] {
		return true
	}
	if n, ok := s.nodes[e.Source]; ok && n.Hidden {
		return true
	}
	if n, ok := s.nodes[e.Target]; ok && n.Hidden {
		return true
	}
	return false
}

// edgeColor evaluates the color policy of t for e. Endpoint colors are the
// palette colors, never the gray override.
func (s *Store) edgeColor(e *model.Edge, t *model.EdgeType) string {
	switch t.ColorMode {
	case model.ColorModeSource:
		if n, ok := s.nodes[e.Source]; ok {
			return n.Color
		}
	case model.ColorModeTarget:
		if n, ok := s.nodes[e.Target]; ok {
			return n.Color
		}
	case model.ColorModeAvg:
		src, sok := s.nodes[e.Source]
		dst, dok := s.nodes[e.Target]
		if sok && dok {
			return AverageColor(src.Color, dst.Color)
		}
	}
	return t.Color
}

// AverageColor returns the RGB mean of two hex colors. Unparseable input
// yields the first color unchanged.
func AverageColor(a, b string) string {
	ca, err := colorful.Hex(a)
	if err != nil {
		return a
	}
	cb, err := colorful.Hex(b)
	if err != nil {
		return a
	}
	return ca.BlendRgb(cb, 0.5).Hex()
}

// rebuildVisible recomputes hidden flags of edges and both visible lists
// from scratch.
func (s *Store) rebuildVisible() {
	s.visibleNodes = s.visibleNodes[:0]
	for _, id := range s.nodeOrder {
		if !s.nodes[id].Hidden {
			s.visibleNodes = append(s.visibleNodes, id)
		}
	}
	s.visibleEdges = s.visibleEdges[:0]
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		e.Hidden = s.edgeHidden(e)
		if !e.Hidden {
			s.visibleEdges = append(s.visibleEdges, id)
		}
	}
}

// SetNodeTypeHidden hides or shows every node of a type together with the
// edges touching them.
func (s *Store) SetNodeTypeHidden(typeID string, hidden bool) error {
	t, ok := s.nodeTypes[typeID]
	if !ok {
		return s.reject("set visibility", fmt.Errorf("node type %q: %w", typeID, ErrUnknownType))
	}
	s.hiddenNodeTyp[typeID] = hidden
	for _, id := range t.Nodes {
		s.nodes[id].Hidden = hidden
	}
	s.rebuildVisible()
	return nil
}

// SetEdgeTypeHidden hides or shows every edge of a type. Edges whose
// endpoints are hidden stay hidden.
func (s *Store) SetEdgeTypeHidden(typeID string, hidden bool) error {
	if _, ok := s.edgeTypes[typeID]; !ok {
		return s.reject("set visibility", fmt.Errorf("edge type %q: %w", typeID, ErrUnknownType))
	}
	s.hiddenEdgeTyp[typeID] = hidden
	s.rebuildVisible()
	return nil
}

// NodeTypeHidden reports the visibility flag of a node type.
func (s *Store) NodeTypeHidden(typeID string) bool {
	return s.hiddenNodeTyp[typeID]
}

// EdgeTypeHidden reports the visibility flag of an edge type.
func (s *Store) EdgeTypeHidden(typeID string) bool {
	return s.hiddenEdgeTyp[typeID]
}

// RecolorNodeType sets the palette color of a node type and its members and
// re-derives the colors of edges whose policy depends on endpoints. Grayed
// members keep displaying gray. It returns the previous color.
func (s *Store) RecolorNodeType(typeID, color string) (string, error) {
	t, ok := s.nodeTypes[typeID]
	if !ok {
		return "", s.reject("recolor", fmt.Errorf("node type %q: %w", typeID, ErrUnknownType))
	}
	if _, err := colorful.Hex(color); err != nil {
		return "", s.reject("recolor", fmt.Errorf("node type %q color %q: %w", typeID, color, ErrInvalidColor))
	}
	prev := t.Color
	t.Color = color
	for _, id := range t.Nodes {
		s.nodes[id].Color = color
	}
	s.ApplyEdgeColors()
	return prev, nil
}

// RecolorEdgeType sets the color and policy of an edge type and re-derives
// its edges' colors. An empty mode keeps the current policy. It returns the
// previous color and mode.
func (s *Store) RecolorEdgeType(typeID, color string, mode model.ColorMode) (string, model.ColorMode, error) {
	t, ok := s.edgeTypes[typeID]
	if !ok {
		return "", "", s.reject("recolor", fmt.Errorf("edge type %q: %w", typeID, ErrUnknownType))
	}
	if _, err := colorful.Hex(color); err != nil {
		return "", "", s.reject("recolor", fmt.Errorf("edge type %q color %q: %w", typeID, color, ErrInvalidColor))
	}
	if mode != "" && !mode.IsValid() {
		return "", "", s.reject("recolor", fmt.Errorf("edge type %q mode %q: %w", typeID, mode, ErrInvalidColor))
	}
	prevColor, prevMode := t.Color, t.ColorMode
	t.Color = color
	if mode != "" {
		t.ColorMode = mode
	}
	for _, id := range t.Edges {
		e := s.edges[id]
		e.Color = s.edgeColor(e, t)
	}
	return prevColor, prevMode, nil
}

// ApplyEdgeColors re-evaluates the color policy of every edge.
func (s *Store) ApplyEdgeColors() {
	for _, id := range s.edgeOrder {
		e := s.edges[id]
		e.Color = s.edgeColor(e, s.edgeTypes[e.TypeID])
	}
}

// SetPosition moves a node in simulation space.
func (s *Store) SetPosition(id string, x, y float64) error {
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("set position %q: %w", id, ErrNotFound)
	}
	n.X, n.Y = x, y
	return nil
}

// SetSize changes a node's display size.
func (s *Store) SetSize(id string, size float64) error {
	n, ok := s.nodes[id]
	if !ok {
		return fmt.Errorf("set size %q: %w", id, ErrNotFound)
	}
	n.Size = size
	return nil
}

// SetGray sets the gray-out flag of a node.
func (s *Store) SetGray(id string, gray bool) {
	if n, ok := s.nodes[id]; ok {
		n.Gray = gray
	}
}

// SetEdgeGray sets the gray-out flag of an edge.
func (s *Store) SetEdgeGray(id string, gray bool) {
	if e, ok := s.edges[id]; ok {
		e.Gray = gray
	}
}
