// Package graphstore holds the mutable in-memory graph the engine draws:
// nodes, edges, their type registries, visibility lists and lazily computed
// degrees.
//
// The store keeps three derived structures in step with every mutation:
//   - type member lists (legend order and visibility granularity)
//   - visible id lists (non-hidden nodes and edges, insertion order)
//   - incidence sets (edge ids per node)
//
// Degrees are recomputed in full on the first query after a structural
// mutation and memoized until the next one.
//
// A Store is not safe for concurrent use; the engine only touches it from
// its scheduler.
package graphstore

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/vanderheijden86/graphlens/pkg/metrics"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

var (
	ErrInvalidID    = errors.New("invalid id")
	ErrDuplicateID  = errors.New("duplicate id")
	ErrNotFound     = errors.New("not found")
	ErrUnknownType  = errors.New("unknown type")
	ErrDanglingEdge = errors.New("edge endpoint missing")
	ErrInvalidColor = errors.New("invalid color")
)

// DefaultNodeSize is the size given to nodes added without one.
const DefaultNodeSize = 1

// Store is the graph store.
type Store struct {
	nodes     map[string]*model.Node
	edges     map[string]*model.Edge
	nodeOrder []string
	edgeOrder []string

	nodeTypes     map[string]*model.NodeType
	edgeTypes     map[string]*model.EdgeType
	nodeTypeOrder []string
	edgeTypeOrder []string
	hiddenNodeTyp map[string]bool
	hiddenEdgeTyp map[string]bool

	visibleNodes []string
	visibleEdges []string

	incident map[string]map[string]struct{}

	degrees           map[string]model.Degree
	degreesCalculated bool

	logger *log.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for rejected mutations.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewEmpty returns a store without types or elements.
func NewEmpty(opts ...Option) *Store {
	s := &Store{
		nodes:         make(map[string]*model.Node),
		edges:         make(map[string]*model.Edge),
		nodeTypes:     make(map[string]*model.NodeType),
		edgeTypes:     make(map[string]*model.EdgeType),
		hiddenNodeTyp: make(map[string]bool),
		hiddenEdgeTyp: make(map[string]bool),
		incident:      make(map[string]map[string]struct{}),
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New builds a store from a host payload. The payload is validated first;
// nodes without a position are laid out on a spiral around the origin.
func New(p *model.Payload, opts ...Option) (*Store, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := NewEmpty(opts...)
	for _, t := range p.NodeTypes {
		if err := s.AddNodeType(model.NodeType{ID: t.ID, Name: t.Name, Color: t.Color}); err != nil {
			return nil, err
		}
	}
	for _, t := range p.EdgeTypes {
		if err := s.AddEdgeType(model.EdgeType{ID: t.ID, Name: t.Name, Color: t.Color, ColorMode: t.ColorMode}); err != nil {
			return nil, err
		}
	}

	// Legend order comes from the registries; elements the registry forgot
	// are appended in payload order by AddNode/AddEdge.
	typeRank := make(map[string]int)
	for _, t := range p.NodeTypes {
		for i, id := range t.Nodes {
			typeRank[id] = i
		}
	}
	nodes := slices.Clone(p.Nodes)
	slices.SortStableFunc(nodes, func(a, b model.NodeData) int {
		ra, oka := typeRank[a.ID]
		rb, okb := typeRank[b.ID]
		switch {
		case oka && okb:
			return ra - rb
		case oka:
			return -1
		case okb:
			return 1
		}
		return 0
	})
	order := make(map[string]int, len(p.Nodes))
	for i, n := range p.Nodes {
		order[n.ID] = i
	}

	placed := 0
	for _, n := range nodes {
		node := model.Node{
			ID:         n.ID,
			TypeID:     n.TypeID,
			Label:      n.Label,
			Properties: n.Properties,
		}
		if n.X != nil && n.Y != nil {
			node.X, node.Y = *n.X, *n.Y
		} else {
			node.X, node.Y = spiral(placed)
			placed++
		}
		if err := s.AddNode(node); err != nil {
			return nil, err
		}
	}
	// Restore payload order for iteration while keeping legend order in
	// the type member lists.
	slices.SortFunc(s.nodeOrder, func(a, b string) int { return order[a] - order[b] })
	s.rebuildVisible()

	for _, e := range p.Edges {
		if err := s.AddEdge(model.Edge{ID: e.ID, TypeID: e.TypeID, Source: e.Source, Target: e.Target}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// spiral returns the i-th point of a golden-angle spiral.
func spiral(i int) (float64, float64) {
	const golden = 2.399963229728653
	r := 10 * math.Sqrt(float64(i))
	a := float64(i) * golden
	return r * math.Cos(a), r * math.Sin(a)
}

// AddNodeType registers a node type.
func (s *Store) AddNodeType(t model.NodeType) error {
	if t.ID == "" {
		return fmt.Errorf("add node type: empty id: %w", ErrInvalidID)
	}
	if _, ok := s.nodeTypes[t.ID]; ok {
		return fmt.Errorf("add node type %q: %w", t.ID, ErrDuplicateID)
	}
	if _, err := colorful.Hex(t.Color); err != nil {
		return fmt.Errorf("add node type %q color %q: %w", t.ID, t.Color, ErrInvalidColor)
	}
	t.Nodes = nil
	s.nodeTypes[t.ID] = &t
	s.nodeTypeOrder = append(s.nodeTypeOrder, t.ID)
	return nil
}

// AddEdgeType registers an edge type. An empty color mode means custom.
func (s *Store) AddEdgeType(t model.EdgeType) error {
	if t.ID == "" {
		return fmt.Errorf("add edge type: empty id: %w", ErrInvalidID)
	}
	if _, ok := s.edgeTypes[t.ID]; ok {
		return fmt.Errorf("add edge type %q: %w", t.ID, ErrDuplicateID)
	}
	if _, err := colorful.Hex(t.Color); err != nil {
		return fmt.Errorf("add edge type %q color %q: %w", t.ID, t.Color, ErrInvalidColor)
	}
	if t.ColorMode == "" {
		t.ColorMode = model.ColorModeCustom
	}
	if !t.ColorMode.IsValid() {
		return fmt.Errorf("add edge type %q mode %q: %w", t.ID, t.ColorMode, ErrInvalidColor)
	}
	t.Edges = nil
	s.edgeTypes[t.ID] = &t
	s.edgeTypeOrder = append(s.edgeTypeOrder, t.ID)
	return nil
}

// AddNode inserts a node. Its palette color and hidden flag come from its
// type; a zero size becomes DefaultNodeSize.
func (s *Store) AddNode(n model.Node) error {
	if n.ID == "" {
		return s.reject("add node", fmt.Errorf("add node: empty id: %w", ErrInvalidID))
	}
	if _, ok := s.nodes[n.ID]; ok {
		return s.reject("add node", fmt.Errorf("add node %q: %w", n.ID, ErrDuplicateID))
	}
	t, ok := s.nodeTypes[n.TypeID]
	if !ok {
		return s.reject("add node", fmt.Errorf("add node %q type %q: %w", n.ID, n.TypeID, ErrUnknownType))
	}
	node := n.Clone()
	node.Color = t.Color
	node.Hidden = s.hiddenNodeTyp[t.ID]
	node.Gray = false
	if node.Size == 0 {
		node.Size = DefaultNodeSize
	}
	s.nodes[node.ID] = node
	s.nodeOrder = append(s.nodeOrder, node.ID)
	s.incident[node.ID] = make(map[string]struct{})
	t.Nodes = append(t.Nodes, node.ID)
	if !node.Hidden {
		s.visibleNodes = append(s.visibleNodes, node.ID)
	}
	s.degreesCalculated = false
	return nil
}

// RemoveNode deletes a node and every edge incident to it. It returns the
// removed edges.
func (s *Store) RemoveNode(id string) ([]*model.Edge, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, s.reject("remove node", fmt.Errorf("remove node %q: %w", id, ErrNotFound))
	}
	var removed []*model.Edge
	for _, eid := range s.IncidentEdges(id) {
		e := s.edges[eid]
		s.detachEdge(e)
		removed = append(removed, e)
	}
	delete(s.nodes, id)
	delete(s.incident, id)
	delete(s.degrees, id)
	s.nodeOrder = remove(s.nodeOrder, id)
	s.visibleNodes = remove(s.visibleNodes, id)
	if t, ok := s.nodeTypes[n.TypeID]; ok {
		t.Nodes = remove(t.Nodes, id)
	}
	s.degreesCalculated = false
	return removed, nil
}

// AddEdge inserts an edge between two existing nodes. Its color is derived
// from its type's color policy.
func (s *Store) AddEdge(e model.Edge) error {
	if e.ID == "" {
		return s.reject("add edge", fmt.Errorf("add edge: empty id: %w", ErrInvalidID))
	}
	if _, ok := s.edges[e.ID]; ok {
		return s.reject("add edge", fmt.Errorf("add edge %q: %w", e.ID, ErrDuplicateID))
	}
	t, ok := s.edgeTypes[e.TypeID]
	if !ok {
		return s.reject("add edge", fmt.Errorf("add edge %q type %q: %w", e.ID, e.TypeID, ErrUnknownType))
	}
	if _, ok := s.nodes[e.Source]; !ok {
		return s.reject("add edge", fmt.Errorf("add edge %q source %q: %w", e.ID, e.Source, ErrDanglingEdge))
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return s.reject("add edge", fmt.Errorf("add edge %q target %q: %w", e.ID, e.Target, ErrDanglingEdge))
	}
	edge := e.Clone()
	edge.Gray = false
	edge.Color = s.edgeColor(edge, t)
	edge.Hidden = s.edgeHidden(edge)
	s.edges[edge.ID] = edge
	s.edgeOrder = append(s.edgeOrder, edge.ID)
	s.incident[edge.Source][edge.ID] = struct{}{}
	s.incident[edge.Target][edge.ID] = struct{}{}
	t.Edges = append(t.Edges, edge.ID)
	if !edge.Hidden {
		s.visibleEdges = append(s.visibleEdges, edge.ID)
	}
	s.degreesCalculated = false
	return nil
}

// RemoveEdge deletes an edge.
func (s *Store) RemoveEdge(id string) error {
	e, ok := s.edges[id]
	if !ok {
		return s.reject("remove edge", fmt.Errorf("remove edge %q: %w", id, ErrNotFound))
	}
	s.detachEdge(e)
	s.degreesCalculated = false
	return nil
}

func (s *Store) detachEdge(e *model.Edge) {
	delete(s.edges, e.ID)
	s.edgeOrder = remove(s.edgeOrder, e.ID)
	s.visibleEdges = remove(s.visibleEdges, e.ID)
	if inc, ok := s.incident[e.Source]; ok {
		delete(inc, e.ID)
	}
	if inc, ok := s.incident[e.Target]; ok {
		delete(inc, e.ID)
	}
	if t, ok := s.edgeTypes[e.TypeID]; ok {
		t.Edges = remove(t.Edges, e.ID)
	}
}

func (s *Store) reject(op string, err error) error {
	metrics.RejectedMutation.Inc()
	s.logger.Debug("rejected store mutation", "op", op, "err", err)
	return err
}

// remove deletes the first occurrence of id, keeping order.
func remove(ids []string, id string) []string {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1)
	}
	return ids
}
