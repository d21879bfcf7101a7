// Package gesture interprets pointer input against the engaged selection
// tool. It is an explicit state machine: each state owns a binding set
// (see Binding), and handlers only react to input their binding allows.
package gesture

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/geometry"
	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/metrics"
	"github.com/vanderheijden86/graphlens/pkg/selection"
)

// ErrToolDisabled is returned when engaging a tool whose feature is off.
var ErrToolDisabled = errors.New("tool disabled")

// DefaultFreehandMinDistance is the minimum pointer travel, in pixels,
// between two sampled freehand vertices.
const DefaultFreehandMinDistance = 20

// State is the gesture state.
type State int

const (
	Idle State = iota
	OverNode
	PressingNode
	DraggingNode
	DraggingStage
	AreaSelecting
)

func (s State) String() string {
	switch s {
	case OverNode:
		return "over-node"
	case PressingNode:
		return "pressing-node"
	case DraggingNode:
		return "dragging-node"
	case DraggingStage:
		return "dragging-stage"
	case AreaSelecting:
		return "area-selecting"
	}
	return "idle"
}

// Signal is a notification the machine raises towards its host.
type Signal int

const (
	SignalNodeInfo Signal = iota
	SignalNodeInfoCleared
	SignalToolChanged
	SignalNodeMoved
	SignalHover
)

// Context is the engine surface the machine drives.
type Context interface {
	// HitTest returns the visible node under a screen position.
	HitTest(screen r2.Vec) (string, bool)
	// NodesInPolygon returns the nodes whose screen position lies inside.
	NodesInPolygon(poly geometry.Polygon) []string
	// Interpolator maps between screen and simulation space for the
	// current frame.
	Interpolator() (geometry.Interpolator, error)
	Store() *graphstore.Store
	Selection() *selection.Set
	// ApplySelection projects the selection and raises its notification.
	ApplySelection()
	StopSimulation()
	Pan(delta r2.Vec)
	ZoomAt(in bool, screen r2.Vec)
	Signal(s Signal, nodeID string)
}

// Config tunes the machine.
type Config struct {
	Features            Features
	FreehandMinDistance float64
}

// Machine is the gesture state machine of one engine.
type Machine struct {
	ctx    Context
	cfg    Config
	logger *log.Logger

	state    State
	tool     Tool
	bindings Binding

	overed   string
	pressed  string
	downPos  r2.Vec
	lastPos  r2.Vec
	moved    bool
	stageArm bool // stage-down was bound when the press started
	path     geometry.Polygon

	widgetOpen bool
	nodeInfo   string
}

// New returns an idle machine with no tool engaged.
func New(ctx Context, cfg Config, logger *log.Logger) *Machine {
	if cfg.FreehandMinDistance <= 0 {
		cfg.FreehandMinDistance = DefaultFreehandMinDistance
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := &Machine{ctx: ctx, cfg: cfg, logger: logger}
	m.enter(Idle)
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Tool returns the engaged tool.
func (m *Machine) Tool() Tool { return m.tool }

// Bindings returns the handler set of the current state.
func (m *Machine) Bindings() Binding { return m.bindings }

// Overed returns the hovered node, if any.
func (m *Machine) Overed() string { return m.overed }

// Path returns the selection path being drawn.
func (m *Machine) Path() geometry.Polygon { return m.path }

// NodeInfo returns the node whose info is shown.
func (m *Machine) NodeInfo() string { return m.nodeInfo }

func (m *Machine) enter(s State) {
	m.state = s
	m.bindings = bindingsFor(s, m.tool)
}

// Engage toggles a tool: engaging the engaged tool disengages it, engaging
// another replaces it. Every toggle, disengaging included, stops the
// simulation.
func (m *Machine) Engage(t Tool) error {
	if !m.cfg.Features.allows(t) {
		return ErrToolDisabled
	}
	if t == m.tool {
		t = ToolNone
	}
	m.ctx.StopSimulation()
	m.setTool(t)
	return nil
}

func (m *Machine) setTool(t Tool) {
	if t == m.tool {
		return
	}
	m.tool = t
	m.path = nil
	m.pressed = ""
	if t.Area() && m.overed != "" {
		m.overed = ""
		m.ctx.Signal(SignalHover, "")
	}
	if m.overed != "" {
		m.enter(OverNode)
	} else {
		m.enter(Idle)
	}
	m.logger.Debug("tool changed", "tool", t)
	m.ctx.Signal(SignalToolChanged, "")
}

// OpenWidget marks a transient widget (e.g. a color popover) as open; the
// next plain stage click only closes it.
func (m *Machine) OpenWidget() { m.widgetOpen = true }

// CloseWidget clears the transient widget flag.
func (m *Machine) CloseWidget() { m.widgetOpen = false }

// WidgetOpen reports the transient widget flag.
func (m *Machine) WidgetOpen() bool { return m.widgetOpen }

// ClearNodeInfo hides node info without a stage click.
func (m *Machine) ClearNodeInfo() {
	if m.nodeInfo == "" {
		return
	}
	m.nodeInfo = ""
	m.ctx.Signal(SignalNodeInfoCleared, "")
}

// Forget drops references to a node that left the store.
func (m *Machine) Forget(id string) {
	if m.nodeInfo == id {
		m.ClearNodeInfo()
	}
	if m.pressed == id {
		m.pressed = ""
		m.enter(Idle)
	}
	if m.overed == id {
		m.overed = ""
		if m.state == OverNode {
			m.enter(Idle)
		}
	}
}

// Down handles a primary button press.
func (m *Machine) Down(pos r2.Vec) {
	m.downPos, m.lastPos = pos, pos
	m.moved = false
	switch {
	case m.state == OverNode && m.bindings.Has(BindNodeDown):
		m.pressed = m.overed
		m.enter(PressingNode)
	case m.state == Idle && m.tool.Area():
		m.path = geometry.Polygon{pos}
		m.enter(AreaSelecting)
	case m.state == Idle:
		m.stageArm = m.bindings.Has(BindStageDown)
		m.enter(DraggingStage)
	}
}

// Move handles pointer motion.
func (m *Machine) Move(pos r2.Vec) {
	delta := r2.Sub(pos, m.lastPos)
	switch m.state {
	case Idle, OverNode:
		m.hover(pos)
	case PressingNode:
		if delta == (r2.Vec{}) {
			return
		}
		m.ctx.StopSimulation()
		m.enter(DraggingNode)
		m.drag(pos)
	case DraggingNode:
		m.drag(pos)
	case DraggingStage:
		if delta != (r2.Vec{}) {
			m.moved = true
			if m.bindings.Has(BindCamera) {
				m.ctx.Pan(delta)
			}
		}
	case AreaSelecting:
		m.extendPath(pos)
	}
	m.lastPos = pos
}

// Up handles a primary button release.
func (m *Machine) Up(pos r2.Vec) {
	switch m.state {
	case PressingNode:
		id := m.pressed
		m.pressed = ""
		m.enter(OverNode)
		m.nodeClick(id)
	case DraggingNode:
		m.pressed = ""
		m.enter(Idle)
		m.overed = ""
		m.hover(pos)
	case DraggingStage:
		m.enter(Idle)
		if !m.moved && m.stageArm {
			m.stageClick()
		}
		m.hover(pos)
	case AreaSelecting:
		m.extendPath(pos)
		m.finishArea()
	}
	m.lastPos = pos
}

// Wheel handles a wheel notch at pos. Positive delta zooms in.
func (m *Machine) Wheel(pos r2.Vec, delta float64) {
	if delta == 0 || !m.bindings.Has(BindCamera) {
		return
	}
	m.ctx.ZoomAt(delta > 0, pos)
}

// Leave handles the pointer leaving the canvas.
func (m *Machine) Leave() {
	switch m.state {
	case OverNode:
		m.setOvered("")
		m.enter(Idle)
	case DraggingStage:
		m.enter(Idle)
	}
}

func (m *Machine) hover(pos r2.Vec) {
	if !m.bindings.Has(BindHover) {
		return
	}
	id, _ := m.ctx.HitTest(pos)
	if id == m.overed {
		return
	}
	m.setOvered(id)
	if id == "" {
		m.enter(Idle)
	} else {
		m.enter(OverNode)
	}
}

func (m *Machine) setOvered(id string) {
	m.overed = id
	m.ctx.Signal(SignalHover, id)
}

func (m *Machine) drag(pos r2.Vec) {
	store := m.ctx.Store()
	n, ok := store.Node(m.pressed)
	if !ok {
		m.enter(Idle)
		return
	}
	interp, err := m.ctx.Interpolator()
	if err != nil {
		m.logger.Debug("drag ignored", "node", m.pressed, "err", err)
		return
	}
	from := r2.Vec{X: n.X, Y: n.Y}
	to := interp.ToSim(pos)
	_ = store.SetPosition(n.ID, to.X, to.Y)

	sel := m.ctx.Selection()
	if m.tool == ToolMove && !sel.All() && sel.Contains(n.ID) {
		// The dragged node's delta is taken in simulation space. A rotation
		// maps equal deltas to equal deltas, so the group stays rigid at any
		// camera angle.
		d := r2.Sub(to, from)
		for _, id := range sel.IDs() {
			if id == n.ID {
				continue
			}
			other, ok := store.Node(id)
			if !ok {
				continue
			}
			_ = store.SetPosition(id, other.X+d.X, other.Y+d.Y)
		}
	}
	m.ctx.Signal(SignalNodeMoved, n.ID)
}

func (m *Machine) nodeClick(id string) {
	if _, ok := m.ctx.Store().Node(id); !ok {
		return
	}
	sel := m.ctx.Selection()
	switch m.tool {
	case ToolClick:
		sel.Toggle(id)
		m.ctx.ApplySelection()
	case ToolNeighborhood:
		nodes, edges, err := m.ctx.Store().Neighborhood(id)
		if err != nil {
			return
		}
		sel.ReplaceWithEdges(nodes, edges)
		m.ctx.ApplySelection()
		m.setTool(ToolNone)
	case ToolNone:
		if m.cfg.Features.NodeInfo {
			m.nodeInfo = id
			m.ctx.Signal(SignalNodeInfo, id)
		}
	}
}

// stageClick runs for a press and release on empty stage without movement.
func (m *Machine) stageClick() {
	switch {
	case m.widgetOpen:
		m.widgetOpen = false
	case m.nodeInfo != "":
		m.ClearNodeInfo()
	case !m.ctx.Selection().All():
		m.ctx.Selection().Clear()
		m.ctx.ApplySelection()
	}
}

func (m *Machine) extendPath(pos r2.Vec) {
	switch m.tool {
	case ToolRectangle:
		if pos == m.downPos {
			m.path = geometry.Polygon{m.downPos}
			return
		}
		m.path = geometry.Rectangle(m.downPos, pos)
	case ToolFreehand:
		last := m.path[len(m.path)-1]
		if r2.Norm(r2.Sub(pos, last)) >= m.cfg.FreehandMinDistance {
			m.path = append(m.path, pos)
		}
	}
}

func (m *Machine) finishArea() {
	done := metrics.Timer(metrics.AreaSelect)
	ids := m.ctx.NodesInPolygon(m.path)
	done()
	m.logger.Debug("area selection", "tool", m.tool, "vertices", len(m.path), "nodes", len(ids))
	m.ctx.Selection().Replace(ids)
	m.ctx.ApplySelection()
	m.path = nil
	m.setTool(ToolNone)
	if m.state == AreaSelecting {
		m.enter(Idle)
	}
}
