// Package view orchestrates one graph view: it owns the camera, drives the
// layout engine and its auto-stop timer, routes pointer input through the
// gesture machine and persists cosmetic preferences to the host.
//
// A Controller is not safe for concurrent use. Every method must run on the
// goroutine of its loop.Scheduler; host calls run elsewhere and post their
// results back.
package view

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vanderheijden86/graphlens/pkg/anim"
	"github.com/vanderheijden86/graphlens/pkg/geometry"
	"github.com/vanderheijden86/graphlens/pkg/gesture"
	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/hostapi"
	"github.com/vanderheijden86/graphlens/pkg/layout"
	"github.com/vanderheijden86/graphlens/pkg/loop"
	"github.com/vanderheijden86/graphlens/pkg/selection"
)

// Features gates optional behavior.
type Features struct {
	gesture.Features
	BoxPersistence bool
}

// AllFeatures enables everything.
func AllFeatures() Features {
	return Features{Features: gesture.AllFeatures(), BoxPersistence: true}
}

// Config tunes a controller.
type Config struct {
	Layout              layout.Config
	Zoom                geometry.ZoomLimits
	ZoomDuration        time.Duration
	FreehandMinDistance float64
	Features            Features
	SizeMode            SizeMode
	// BoxSuppression is how long box moves are not saved after the
	// controller moved boxes itself.
	BoxSuppression time.Duration
	HostTimeout    time.Duration
	Viewport       geometry.Viewport
	// AutoStop, when positive, replaces the size-based simulation timeout.
	AutoStop time.Duration
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Layout:              layout.DefaultConfig(),
		Zoom:                geometry.DefaultZoomLimits(),
		ZoomDuration:        200 * time.Millisecond,
		FreehandMinDistance: gesture.DefaultFreehandMinDistance,
		Features:            AllFeatures(),
		SizeMode:            SizeSame,
		BoxSuppression:      300 * time.Millisecond,
		HostTimeout:         hostapi.DefaultTimeout,
		Viewport:            geometry.Viewport{Width: 800, Height: 600},
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithHost sets the host collaborator. Without one nothing is persisted.
func WithHost(h hostapi.Host) Option {
	return func(c *Controller) { c.host = h }
}

// Controller is one mounted graph view.
type Controller struct {
	cfg    Config
	store  *graphstore.Store
	sched  loop.Scheduler
	host   hostapi.Host
	logger *log.Logger

	sel     *selection.Set
	engine  *layout.Engine
	machine *gesture.Machine

	viewport  geometry.Viewport
	camera    geometry.Camera
	camTarget geometry.Camera
	camAnim   *anim.Animation
	proj      geometry.Projection
	projValid bool

	autoStop    loop.Timer
	autoStopFor time.Duration

	sizeMode SizeMode
	sizeAnim *anim.Animation

	boxes         hostapi.BoxLayout
	suppressUntil time.Time
	edit          *pendingEdit

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup
	closed   bool

	subs    map[int]func(Event)
	nextSub int
}

// New mounts a view over store. The simulation is not started; call Start.
func New(store *graphstore.Store, sched loop.Scheduler, cfg Config, opts ...Option) *Controller {
	def := DefaultConfig()
	if cfg.Zoom.Step <= 1 || cfg.Zoom.Min <= 0 || cfg.Zoom.Max < cfg.Zoom.Min {
		cfg.Zoom = def.Zoom
	}
	if cfg.ZoomDuration < 0 {
		cfg.ZoomDuration = def.ZoomDuration
	}
	if cfg.BoxSuppression <= 0 {
		cfg.BoxSuppression = def.BoxSuppression
	}
	if cfg.HostTimeout <= 0 {
		cfg.HostTimeout = def.HostTimeout
	}
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		cfg.Viewport = def.Viewport
	}

	c := &Controller{
		cfg:      cfg,
		store:    store,
		sched:    sched,
		host:     hostapi.Nop{},
		viewport: cfg.Viewport,
		camera:   geometry.HomeCamera(),
		sizeMode: cfg.SizeMode,
		subs:     make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.sel = selection.New(store)
	c.engine = layout.NewEngine(store, sched, cfg.Layout, c.logger)
	c.engine.OnFrame = c.changed
	c.machine = gesture.New(c, gesture.Config{
		Features:            cfg.Features.Features,
		FreehandMinDistance: cfg.FreehandMinDistance,
	}, c.logger)
	c.applySizes(false)
	return c
}

// Store implements gesture.Context.
func (c *Controller) Store() *graphstore.Store { return c.store }

// Selection implements gesture.Context.
func (c *Controller) Selection() *selection.Set { return c.sel }

// Engine returns the layout engine.
func (c *Controller) Engine() *layout.Engine { return c.engine }

// Gestures returns the gesture machine.
func (c *Controller) Gestures() *gesture.Machine { return c.machine }

// AutoStopAfter returns how long a simulation of n nodes runs before it is
// considered converged.
func AutoStopAfter(n int) time.Duration {
	switch {
	case n <= 20:
		return 10 * time.Second
	case n <= 50:
		return 15 * time.Second
	case n <= 100:
		return 20 * time.Second
	}
	return 30 * time.Second
}

// Start runs the force-directed simulation and arms the auto-stop timer.
// It reports false for an empty graph. Starting while running is a no-op.
func (c *Controller) Start() bool {
	if c.engine.Running() {
		return true
	}
	if !c.engine.Start() {
		c.disarm()
		c.emit(Event{Kind: EventLayout, Message: c.engine.Mode().String()})
		return false
	}
	d := c.cfg.AutoStop
	if d <= 0 {
		d = AutoStopAfter(c.store.Len())
	}
	c.arm(d)
	c.emit(Event{Kind: EventSimulation, Message: "started"})
	return true
}

// Stop pauses the simulation and cancels the auto-stop timer.
func (c *Controller) Stop() {
	c.disarm()
	if !c.engine.Running() {
		return
	}
	c.engine.Stop()
	c.emit(Event{Kind: EventSimulation, Message: "stopped"})
}

// TogglePause stops a running simulation or restarts the force layout,
// leaving any static layout.
func (c *Controller) TogglePause() bool {
	if c.engine.Running() {
		c.Stop()
		return false
	}
	return c.Start()
}

// StopSimulation implements gesture.Context.
func (c *Controller) StopSimulation() { c.Stop() }

// AutoStop returns the duration of the armed auto-stop timer.
func (c *Controller) AutoStop() (time.Duration, bool) {
	return c.autoStopFor, c.autoStop != nil
}

func (c *Controller) arm(d time.Duration) {
	c.disarm()
	c.autoStopFor = d
	c.autoStop = c.sched.AfterFunc(d, func() {
		c.autoStop = nil
		c.autoStopFor = 0
		if !c.engine.Running() {
			return
		}
		c.engine.Stop()
		c.logger.Debug("simulation auto-stopped", "after", d, "nodes", c.store.Len())
		c.emit(Event{Kind: EventSimulation, Message: "auto-stopped"})
	})
	c.logger.Debug("auto-stop armed", "after", d)
}

func (c *Controller) disarm() {
	if c.autoStop == nil {
		return
	}
	c.autoStop.Stop()
	c.autoStop = nil
	c.autoStopFor = 0
}

// ApplyLayout switches to a static layout and animates nodes to it.
func (c *Controller) ApplyLayout(kind layout.Static, key layout.SortKey) {
	c.disarm()
	c.engine.Apply(kind, key)
	c.emit(Event{Kind: EventLayout, Message: c.engine.Mode().String()})
}

// SetDrawHidden toggles whether layouts place hidden nodes.
func (c *Controller) SetDrawHidden(v bool) {
	c.engine.SetDrawHidden(v)
	c.changed()
}

// SetNodeTypeHidden toggles a node type and refreshes the frame.
func (c *Controller) SetNodeTypeHidden(typeID string, hidden bool) error {
	if err := c.store.SetNodeTypeHidden(typeID, hidden); err != nil {
		return err
	}
	if hidden {
		if t, ok := c.store.NodeType(typeID); ok {
			for _, id := range t.Nodes {
				if c.machine.Overed() == id {
					c.machine.Forget(id)
				}
			}
		}
	}
	c.engine.Refresh()
	c.changed()
	return nil
}

// SetEdgeTypeHidden toggles an edge type and refreshes the frame.
func (c *Controller) SetEdgeTypeHidden(typeID string, hidden bool) error {
	if err := c.store.SetEdgeTypeHidden(typeID, hidden); err != nil {
		return err
	}
	c.changed()
	return nil
}

// Engage toggles a selection tool.
func (c *Controller) Engage(t gesture.Tool) error {
	return c.machine.Engage(t)
}

// ApplySelection implements gesture.Context.
func (c *Controller) ApplySelection() {
	n := c.sel.Project()
	c.changed()
	if n.Kind == selection.EntireGraph {
		c.emit(Event{Kind: EventEntireGraph})
		return
	}
	c.emit(Event{Kind: EventSubgraph, NodeIDs: n.NodeIDs})
}

// ClearSelection returns to the entire graph.
func (c *Controller) ClearSelection() {
	c.sel.Clear()
	c.ApplySelection()
}

// Signal implements gesture.Context.
func (c *Controller) Signal(s gesture.Signal, nodeID string) {
	switch s {
	case gesture.SignalNodeInfo:
		c.emit(Event{Kind: EventNodeInfo, NodeID: nodeID})
	case gesture.SignalNodeInfoCleared:
		c.emit(Event{Kind: EventNodeInfoCleared})
	case gesture.SignalToolChanged:
		c.emit(Event{Kind: EventToolChanged, Message: c.machine.Tool().String()})
	case gesture.SignalHover:
		c.emit(Event{Kind: EventHover, NodeID: nodeID})
	case gesture.SignalNodeMoved:
		c.changed()
	}
}

// changed invalidates the cached projection and tells subscribers a new
// frame is due.
func (c *Controller) changed() {
	c.projValid = false
	c.emit(Event{Kind: EventFrame})
}

// Close unmounts the view: timers and animations stop and in-flight host
// calls are cancelled. Results arriving later are dropped.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.disarm()
	c.engine.Close()
	c.camAnim.Cancel()
	c.sizeAnim.Cancel()
}

// Wait blocks until every host call started so far has returned and posted
// its result. Tests and batch callers use it; the UI never waits.
func (c *Controller) Wait() {
	c.inflight.Wait()
}
