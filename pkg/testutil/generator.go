// Package testutil provides test fixture generators for various graph topologies.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// GraphFixture represents an abstract graph for testing layout and selection.
// Edges are [source_idx, target_idx] pairs into Nodes.
type GraphFixture struct {
	Description string   `json:"description"`
	Nodes       []string `json:"nodes"`
	Edges       [][2]int `json:"edges"`
}

// GeneratorConfig controls payload generation.
type GeneratorConfig struct {
	Seed          int64    // Random seed for determinism (0 = 42)
	NodeTypes     int      // Number of node types nodes are spread over (default: 1)
	EdgeTypes     int      // Number of edge types edges are spread over (default: 1)
	Palette       []string // Type colors, cycled (default: a fixed palette)
	EdgeColorMode model.ColorMode
	WithPositions bool // Give every node an initial position on a line
}

var defaultPalette = []string{"#E41A1C", "#377EB8", "#4DAF4A", "#984EA3", "#FF7F00", "#A65628"}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:          42,
		NodeTypes:     1,
		EdgeTypes:     1,
		Palette:       defaultPalette,
		EdgeColorMode: model.ColorModeCustom,
	}
}

// Generator creates test fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.NodeTypes <= 0 {
		cfg.NodeTypes = 1
	}
	if cfg.EdgeTypes <= 0 {
		cfg.EdgeTypes = 1
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = defaultPalette
	}
	if cfg.EdgeColorMode == "" {
		cfg.EdgeColorMode = model.ColorModeCustom
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// ============================================================================
// Graph Topology Generators
// ============================================================================

// Chain creates a linear chain: n0 -> n1 -> ... -> n{size-1}
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, 0, max(size-1, 0))
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Linear chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Star creates a hub with edges pointing to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := make([]string, spokes+1)
	edges := make([][2]int, spokes)
	nodes[0] = "hub"
	for i := 1; i <= spokes; i++ {
		nodes[i] = fmt.Sprintf("spoke%d", i)
		edges[i-1] = [2]int{0, i}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Star with hub and %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Cycle creates a ring: n0 -> n1 -> ... -> n{size-1} -> n0
func (g *Generator) Cycle(size int) GraphFixture {
	gf := g.Chain(size)
	if size > 1 {
		gf.Edges = append(gf.Edges, [2]int{size - 1, 0})
	}
	gf.Description = fmt.Sprintf("Ring of %d nodes", size)
	return gf
}

// Tree creates a tree with given depth and branching factor, edges pointing
// from parent to child.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	nodes := []string{"root"}
	var edges [][2]int
	level := []int{0}
	for d := 1; d <= depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				idx := len(nodes)
				nodes = append(nodes, fmt.Sprintf("%s.%d", nodes[parent], b))
				edges = append(edges, [2]int{parent, idx})
				next = append(next, idx)
			}
		}
		level = next
	}
	return GraphFixture{
		Description: fmt.Sprintf("Tree of depth %d, breadth %d", depth, breadth),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Disconnected creates multiple isolated chains.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		base := len(nodes)
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{base + i - 1, base + i})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d components of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Complete creates a graph where every earlier node points to every later one.
func (g *Generator) Complete(size int) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Complete graph of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// Random creates a random directed graph. density is the probability of an
// edge between any ordered pair of distinct nodes.
func (g *Generator) Random(size int, density float64) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i != j && g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("Random graph of %d nodes, density %.2f", size, density),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ============================================================================
// Payload Generators (convert graph fixtures to model.Payload)
// ============================================================================

// ToPayload converts a fixture to a host payload. Nodes and edges are spread
// over the configured types round-robin; type ids are "1", "2", ...
func (g *Generator) ToPayload(gf GraphFixture) *model.Payload {
	p := &model.Payload{}
	for i := 0; i < g.cfg.NodeTypes; i++ {
		p.NodeTypes = append(p.NodeTypes, model.NodeType{
			ID:    fmt.Sprint(i + 1),
			Name:  fmt.Sprintf("Type%d", i+1),
			Color: g.cfg.Palette[i%len(g.cfg.Palette)],
		})
	}
	for i := 0; i < g.cfg.EdgeTypes; i++ {
		p.EdgeTypes = append(p.EdgeTypes, model.EdgeType{
			ID:        fmt.Sprint(100 + i),
			Name:      fmt.Sprintf("REL%d", i+1),
			Color:     g.cfg.Palette[(i+3)%len(g.cfg.Palette)],
			ColorMode: g.cfg.EdgeColorMode,
		})
	}
	for i, id := range gf.Nodes {
		n := model.NodeData{
			ID:     id,
			TypeID: p.NodeTypes[i%len(p.NodeTypes)].ID,
			Label:  strings.ToUpper(id),
		}
		if g.cfg.WithPositions {
			x, y := float64(i*10), float64(i%3)
			n.X, n.Y = &x, &y
		}
		p.Nodes = append(p.Nodes, n)
	}
	for i, e := range gf.Edges {
		p.Edges = append(p.Edges, model.EdgeData{
			ID:     fmt.Sprintf("e%d", i),
			TypeID: p.EdgeTypes[i%len(p.EdgeTypes)].ID,
			Source: gf.Nodes[e[0]],
			Target: gf.Nodes[e[1]],
		})
	}
	p.Normalize()
	return p
}

// ToJSON converts a payload to its wire format.
func ToJSON(p *model.Payload) string {
	data, err := json.Marshal(p)
	if err != nil {
		panic(fmt.Sprintf("marshal payload: %v", err))
	}
	return string(data)
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickChain creates a chain payload with default settings.
func QuickChain(size int) *model.Payload {
	g := NewDefault()
	return g.ToPayload(g.Chain(size))
}

// QuickStar creates a star payload with default settings.
func QuickStar(spokes int) *model.Payload {
	g := NewDefault()
	return g.ToPayload(g.Star(spokes))
}

// QuickRandom creates a random payload with default settings.
func QuickRandom(size int, density float64) *model.Payload {
	g := NewDefault()
	return g.ToPayload(g.Random(size, density))
}

// Empty returns a payload with one node type and no elements.
func Empty() *model.Payload {
	return NewDefault().ToPayload(GraphFixture{})
}

// Scenario returns the four-node graph A->B, B->C plus an isolated D.
func Scenario() *model.Payload {
	return NewDefault().ToPayload(GraphFixture{
		Description: "A->B->C with isolated D",
		Nodes:       []string{"A", "B", "C", "D"},
		Edges:       [][2]int{{0, 1}, {1, 2}},
	})
}
