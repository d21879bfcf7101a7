package layout

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/anim"
	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/loop"
	"github.com/vanderheijden86/graphlens/pkg/metrics"
)

// Mode is the layout state.
type Mode int

const (
	Idle Mode = iota
	ForceRunning
	ForcePaused
	StaticGrid
	StaticCircular
)

func (m Mode) String() string {
	switch m {
	case ForceRunning:
		return "force-running"
	case ForcePaused:
		return "force-paused"
	case StaticGrid:
		return "grid"
	case StaticCircular:
		return "circular"
	}
	return "idle"
}

// Static names a deterministic layout.
type Static int

const (
	GridLayout Static = iota
	CircularLayout
)

// ParseStatic parses "grid" or "circular".
func ParseStatic(s string) (Static, bool) {
	switch s {
	case "grid":
		return GridLayout, true
	case "circular", "circle":
		return CircularLayout, true
	}
	return 0, false
}

// Config tunes the engine.
type Config struct {
	TickInterval      time.Duration
	IterationsPerTick int
	Animation         time.Duration
	Cell              float64
	Force             ForceParams
	// DrawHidden makes layouts place hidden nodes too.
	DrawHidden bool
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		TickInterval:      16 * time.Millisecond,
		IterationsPerTick: 1,
		Animation:         500 * time.Millisecond,
		Cell:              DefaultCell,
		Force:             DefaultForceParams(),
	}
}

// Engine owns node positions. Exactly one of its modes is authoritative at a
// time; all methods must be called from the scheduler's goroutine.
type Engine struct {
	cfg    Config
	store  *graphstore.Store
	sched  loop.Scheduler
	logger *log.Logger

	mode       Mode
	force      *Force
	tick       loop.Timer
	transition *anim.Animation

	// OnFrame runs after positions changed (simulation tick or transition
	// step).
	OnFrame func()
}

// NewEngine returns an idle engine.
func NewEngine(store *graphstore.Store, sched loop.Scheduler, cfg Config, logger *log.Logger) *Engine {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.IterationsPerTick <= 0 {
		cfg.IterationsPerTick = def.IterationsPerTick
	}
	if cfg.Animation < 0 {
		cfg.Animation = def.Animation
	}
	if cfg.Cell <= 0 {
		cfg.Cell = def.Cell
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{cfg: cfg, store: store, sched: sched, logger: logger}
}

// Mode returns the current state.
func (e *Engine) Mode() Mode { return e.mode }

// Running reports whether the simulation is iterating.
func (e *Engine) Running() bool { return e.mode == ForceRunning }

// Animating reports whether a layout transition is in progress.
func (e *Engine) Animating() bool { return e.transition.Running() }

// SetDrawHidden toggles whether hidden nodes take part in layouts.
func (e *Engine) SetDrawHidden(v bool) { e.cfg.DrawHidden = v }

// LayoutIDs returns the nodes layouts operate on.
func (e *Engine) LayoutIDs() []string {
	if e.cfg.DrawHidden {
		return e.store.NodeIDs()
	}
	return e.store.VisibleNodeIDs()
}

// Start begins the force-directed simulation from any state. It reports
// false and moves to Idle when there is nothing to lay out. Starting while
// running is a no-op.
func (e *Engine) Start() bool {
	if e.mode == ForceRunning {
		return true
	}
	ids := e.LayoutIDs()
	if len(ids) == 0 {
		e.cancelTransition()
		e.mode = Idle
		e.logger.Debug("simulation skipped on empty graph")
		return false
	}
	e.cancelTransition()
	if e.force == nil {
		e.force = NewForce(e.store, e.cfg.Force)
	}
	e.force.Reset(ids)
	e.mode = ForceRunning
	e.scheduleTick()
	e.logger.Debug("simulation started", "nodes", len(ids))
	return true
}

// Stop halts the simulation. Only a running simulation is affected.
func (e *Engine) Stop() {
	if e.mode != ForceRunning {
		return
	}
	if e.tick != nil {
		e.tick.Stop()
		e.tick = nil
	}
	e.mode = ForcePaused
	e.logger.Debug("simulation stopped")
}

// Refresh re-reads the graph into a running simulation after nodes, edges
// or visibility changed.
func (e *Engine) Refresh() {
	if e.mode != ForceRunning {
		return
	}
	e.force.Reset(e.LayoutIDs())
}

func (e *Engine) scheduleTick() {
	e.tick = e.sched.AfterFunc(e.cfg.TickInterval, e.onTick)
}

func (e *Engine) onTick() {
	if e.mode != ForceRunning {
		return
	}
	done := metrics.Timer(metrics.SimulationTick)
	e.force.Step(e.cfg.IterationsPerTick)
	done()
	if e.OnFrame != nil {
		e.OnFrame()
	}
	e.scheduleTick()
}

// Step runs n simulation iterations synchronously without changing mode.
// Batch consumers such as the export command use it.
func (e *Engine) Step(n int) {
	ids := e.LayoutIDs()
	if len(ids) == 0 {
		return
	}
	if e.force == nil {
		e.force = NewForce(e.store, e.cfg.Force)
	}
	e.force.Reset(ids)
	e.force.Step(n)
}

// Targets computes static layout positions without applying them.
func (e *Engine) Targets(kind Static, key SortKey) map[string]r2.Vec {
	done := metrics.Timer(metrics.StaticLayout)
	defer done()
	ids := Sort(e.store, e.LayoutIDs(), key)
	if kind == CircularLayout {
		return Circular(ids)
	}
	return Grid(ids, e.cfg.Cell)
}

// Apply switches to a static layout from any state: the simulation is
// halted and nodes move from their current to their target positions over
// the animation duration.
func (e *Engine) Apply(kind Static, key SortKey) {
	e.Stop()
	e.cancelTransition()
	targets := e.Targets(kind, key)
	if len(targets) == 0 {
		e.mode = Idle
		return
	}
	e.mode = StaticGrid
	if kind == CircularLayout {
		e.mode = StaticCircular
	}
	e.logger.Debug("layout applied", "mode", e.mode, "sort", key.By, "desc", key.Desc, "nodes", len(targets))
	e.Animate(targets)
}

// Animate moves nodes to targets over the animation duration.
func (e *Engine) Animate(targets map[string]r2.Vec) {
	e.cancelTransition()
	type move struct {
		id       string
		from, to r2.Vec
	}
	moves := make([]move, 0, len(targets))
	for _, id := range e.store.NodeIDs() {
		to, ok := targets[id]
		if !ok {
			continue
		}
		n, _ := e.store.Node(id)
		moves = append(moves, move{id: id, from: r2.Vec{X: n.X, Y: n.Y}, to: to})
	}
	e.transition = anim.Start(e.sched, anim.Options{
		Duration: e.cfg.Animation,
		Frame:    e.cfg.TickInterval,
		Easing:   anim.QuadraticInOut,
		Step: func(p float64) {
			for _, m := range moves {
				// Nodes can disappear mid-transition.
				_ = e.store.SetPosition(m.id, anim.Lerp(m.from.X, m.to.X, p), anim.Lerp(m.from.Y, m.to.Y, p))
			}
			if e.OnFrame != nil {
				e.OnFrame()
			}
		},
	})
}

func (e *Engine) cancelTransition() {
	if e.transition != nil {
		e.transition.Cancel()
		e.transition = nil
	}
}

// Close stops every scheduled callback.
func (e *Engine) Close() {
	e.Stop()
	e.cancelTransition()
}
