package layout

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/layout"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
)

// ForceParams tunes the Eades simulation.
type ForceParams struct {
	Repulsion float64 `yaml:"repulsion"`
	Rate      float64 `yaml:"rate"`
	Theta     float64 `yaml:"theta"`
	// Scale converts store units to simulation units; the spring length of
	// the simulation is one unit.
	Scale float64 `yaml:"scale"`
}

// DefaultForceParams returns the standard simulation parameters.
func DefaultForceParams() ForceParams {
	return ForceParams{Repulsion: 1, Rate: 0.05, Theta: 0.2, Scale: 100}
}

// Force runs an Eades spring-electrical simulation over a snapshot of the
// store's graph. Positions flow in at Reset and out after every Step.
type Force struct {
	params ForceParams
	store  *graphstore.Store
	ids    []string
	index  map[string]int64
	eades  *layout.EadesR2
	opt    layout.OptimizerR2
}

// NewForce returns a simulation bound to store. Call Reset before Step.
func NewForce(store *graphstore.Store, p ForceParams) *Force {
	def := DefaultForceParams()
	if p.Repulsion <= 0 {
		p.Repulsion = def.Repulsion
	}
	if p.Rate <= 0 {
		p.Rate = def.Rate
	}
	if p.Theta < 0 {
		p.Theta = def.Theta
	}
	if p.Scale <= 0 {
		p.Scale = def.Scale
	}
	return &Force{params: p, store: store}
}

// Reset rebuilds the simulation graph from ids and seeds it with the
// nodes' current positions. Self-loops and edges leaving ids are skipped.
func (f *Force) Reset(ids []string) {
	f.ids = ids
	f.index = make(map[string]int64, len(ids))
	g := simple.NewUndirectedGraph()
	for i, id := range ids {
		f.index[id] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range f.store.Edges() {
		u, ok := f.index[e.Source]
		if !ok {
			continue
		}
		v, ok := f.index[e.Target]
		if !ok || u == v {
			continue
		}
		if g.HasEdgeBetween(u, v) {
			continue
		}
		g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	}

	seed := f.seedPositions()
	f.eades = &layout.EadesR2{
		Repulsion: f.params.Repulsion,
		Rate:      f.params.Rate,
		Theta:     f.params.Theta,
	}
	f.opt = layout.NewOptimizerR2(g, func(g graph.Graph, l layout.LayoutR2) bool {
		if !l.IsInitialized() {
			for id, p := range seed {
				l.SetCoord2(id, p)
			}
		}
		return f.eades.Update(g, l)
	})
}

// seedPositions converts store positions to simulation units, pulling
// coincident nodes apart; the Barnes-Hut tree cannot split identical
// points.
func (f *Force) seedPositions() map[int64]r2.Vec {
	seed := make(map[int64]r2.Vec, len(f.ids))
	taken := make(map[r2.Vec]bool, len(f.ids))
	for i, id := range f.ids {
		n, _ := f.store.Node(id)
		p := r2.Vec{X: n.X / f.params.Scale, Y: n.Y / f.params.Scale}
		for k := 1; taken[p]; k++ {
			a := float64(i+k) * 2.399963229728653
			p = r2.Add(p, r2.Vec{X: 0.01 * math.Cos(a), Y: 0.01 * math.Sin(a)})
		}
		taken[p] = true
		seed[int64(i)] = p
	}
	return seed
}

// Len returns the number of simulated nodes.
func (f *Force) Len() int { return len(f.ids) }

// Step runs n iterations and writes the positions back to the store.
func (f *Force) Step(n int) {
	if len(f.ids) == 0 || n <= 0 {
		return
	}
	f.eades.Updates = n
	for f.opt.Update() {
	}
	for i, id := range f.ids {
		p := f.opt.Coord2(int64(i))
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		_ = f.store.SetPosition(id, p.X*f.params.Scale, p.Y*f.params.Scale)
	}
}
