package view

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/anim"
	"github.com/vanderheijden86/graphlens/pkg/geometry"
	"github.com/vanderheijden86/graphlens/pkg/metrics"
)

// MinHitRadius is the smallest on-screen radius, in pixels, a node can be
// picked with.
const MinHitRadius = 4

// Camera returns the current camera.
func (c *Controller) Camera() geometry.Camera { return c.camera }

// Viewport returns the current drawing surface size.
func (c *Controller) Viewport() geometry.Viewport { return c.viewport }

// CameraAnimating reports whether a zoom or recenter is easing.
func (c *Controller) CameraAnimating() bool { return c.camAnim.Running() }

// SetCamera jumps to cam, clamping its ratio.
func (c *Controller) SetCamera(cam geometry.Camera) {
	c.camAnim.Cancel()
	cam.Ratio = c.cfg.Zoom.Clamp(cam.Ratio)
	c.camera = cam
	c.changed()
}

// Zoom zooms in or out around a screen point, easing the camera so the
// point stays fixed. It reports false when the ratio is already at its
// limit. Consecutive zooms build on the pending target.
func (c *Controller) Zoom(in bool, focal r2.Vec) bool {
	base := c.camera
	running := c.camAnim.Running()
	if running {
		base = c.camTarget
	}
	proj := geometry.NewProjection(c.bounds(), base, c.viewport)
	target, ok := geometry.ZoomTarget(base, in, proj.ToCamera(focal), c.cfg.Zoom)
	if !ok {
		return false
	}
	easing := anim.QuadraticInOut
	if running {
		easing = anim.QuadraticOut
	}
	c.animateCamera(target, easing)
	return true
}

// ZoomAt implements gesture.Context.
func (c *Controller) ZoomAt(in bool, screen r2.Vec) { c.Zoom(in, screen) }

// ZoomButton zooms around the viewport center.
func (c *Controller) ZoomButton(in bool) bool {
	return c.Zoom(in, c.viewport.Center())
}

// Recenter eases the camera back home.
func (c *Controller) Recenter() {
	c.animateCamera(geometry.HomeCamera(), anim.QuadraticInOut)
}

// Pan implements gesture.Context.
func (c *Controller) Pan(delta r2.Vec) {
	c.camAnim.Cancel()
	c.camera = geometry.Pan(c.camera, delta)
	c.changed()
}

func (c *Controller) animateCamera(target geometry.Camera, easing anim.Easing) {
	c.camAnim.Cancel()
	from := c.camera
	c.camTarget = target
	c.camAnim = anim.Start(c.sched, anim.Options{
		Duration: c.cfg.ZoomDuration,
		Frame:    c.cfg.Layout.TickInterval,
		Easing:   easing,
		Step: func(p float64) {
			c.camera = geometry.Camera{
				X:     anim.Lerp(from.X, target.X, p),
				Y:     anim.Lerp(from.Y, target.Y, p),
				Ratio: anim.Lerp(from.Ratio, target.Ratio, p),
				Angle: anim.Lerp(from.Angle, target.Angle, p),
			}
			c.changed()
		},
	})
}

// Resize sets the drawing surface size. Repeating a size changes nothing.
func (c *Controller) Resize(width, height float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	vp := geometry.Viewport{Width: width, Height: height}
	if vp == c.viewport {
		return false
	}
	c.viewport = vp
	c.changed()
	return true
}

// bounds is the extent of the nodes the layout places.
func (c *Controller) bounds() geometry.Bounds {
	ids := c.engine.LayoutIDs()
	pts := make([]r2.Vec, 0, len(ids))
	for _, id := range ids {
		n, _ := c.store.Node(id)
		pts = append(pts, r2.Vec{X: n.X, Y: n.Y})
	}
	return geometry.BoundsOf(pts)
}

// Projection returns the projection of the current frame.
func (c *Controller) Projection() geometry.Projection {
	if !c.projValid {
		c.proj = geometry.NewProjection(c.bounds(), c.camera, c.viewport)
		c.projValid = true
	}
	return c.proj
}

// ScreenPos returns where a node is drawn.
func (c *Controller) ScreenPos(id string) (r2.Vec, bool) {
	n, ok := c.store.Node(id)
	if !ok {
		return r2.Vec{}, false
	}
	return c.Projection().ToScreen(r2.Vec{X: n.X, Y: n.Y}), true
}

// HitTest implements gesture.Context. Nodes drawn last win.
func (c *Controller) HitTest(screen r2.Vec) (string, bool) {
	proj := c.Projection()
	ids := c.store.VisibleNodeIDs()
	for i := len(ids) - 1; i >= 0; i-- {
		n, _ := c.store.Node(ids[i])
		p := proj.ToScreen(r2.Vec{X: n.X, Y: n.Y})
		r := math.Max(proj.NodeSize(n.Size), MinHitRadius)
		if r2.Norm(r2.Sub(p, screen)) <= r {
			return n.ID, true
		}
	}
	return "", false
}

// NodesInPolygon implements gesture.Context. Hidden nodes are included so
// that revealing their type later shows them selected.
func (c *Controller) NodesInPolygon(poly geometry.Polygon) []string {
	if len(poly) < 3 {
		return nil
	}
	proj := c.Projection()
	var out []string
	for _, n := range c.store.Nodes() {
		if poly.Contains(proj.ToScreen(r2.Vec{X: n.X, Y: n.Y})) {
			out = append(out, n.ID)
		}
	}
	return out
}

// Interpolator implements gesture.Context. The first visible node is paired
// with the first later node that gives a non-degenerate mapping.
func (c *Controller) Interpolator() (geometry.Interpolator, error) {
	ids := c.store.VisibleNodeIDs()
	if len(ids) < 2 {
		return geometry.Interpolator{}, geometry.ErrDegenerateTransform
	}
	proj := c.Projection()
	ref := func(id string) geometry.Reference {
		n, _ := c.store.Node(id)
		sim := r2.Vec{X: n.X, Y: n.Y}
		return geometry.Reference{Sim: sim, Screen: proj.ToScreen(sim)}
	}
	r0 := ref(ids[0])
	for _, id := range ids[1:] {
		in, err := geometry.NewInterpolator(r0, ref(id), c.camera.Angle)
		if err == nil {
			return in, nil
		}
	}
	c.logger.Debug("degenerate transform", "nodes", len(ids))
	return geometry.Interpolator{}, geometry.ErrDegenerateTransform
}

// FrameNode is a node as drawn.
type FrameNode struct {
	ID     string
	Label  string
	Pos    r2.Vec
	Radius float64
	Color  string
	Gray   bool
}

// FrameEdge is an edge as drawn.
type FrameEdge struct {
	ID     string
	Source string
	Target string
	From   r2.Vec
	To     r2.Vec
	Color  string
	Gray   bool
}

// Frame is a renderer-independent snapshot of what is on screen.
type Frame struct {
	Viewport geometry.Viewport
	Camera   geometry.Camera
	Nodes    []FrameNode
	Edges    []FrameEdge
	Hovered  string
	Path     geometry.Polygon
}

// Frame projects the visible graph.
func (c *Controller) Frame() Frame {
	done := metrics.Timer(metrics.FrameBuild)
	defer done()

	proj := c.Projection()
	f := Frame{
		Viewport: c.viewport,
		Camera:   c.camera,
		Hovered:  c.machine.Overed(),
		Path:     c.machine.Path(),
	}
	pos := make(map[string]r2.Vec)
	for _, id := range c.store.VisibleNodeIDs() {
		n, _ := c.store.Node(id)
		p := proj.ToScreen(r2.Vec{X: n.X, Y: n.Y})
		pos[id] = p
		f.Nodes = append(f.Nodes, FrameNode{
			ID:     n.ID,
			Label:  n.Label,
			Pos:    p,
			Radius: proj.NodeSize(n.Size),
			Color:  n.DisplayColor(),
			Gray:   n.Gray,
		})
	}
	for _, id := range c.store.VisibleEdgeIDs() {
		e, _ := c.store.Edge(id)
		f.Edges = append(f.Edges, FrameEdge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
			From:   pos[e.Source],
			To:     pos[e.Target],
			Color:  e.DisplayColor(),
			Gray:   e.Gray,
		})
	}
	return f
}

// PointerDown forwards a primary button press.
func (c *Controller) PointerDown(pos r2.Vec) { c.machine.Down(pos) }

// PointerMove forwards pointer motion.
func (c *Controller) PointerMove(pos r2.Vec) { c.machine.Move(pos) }

// PointerUp forwards a primary button release.
func (c *Controller) PointerUp(pos r2.Vec) { c.machine.Up(pos) }

// Wheel forwards a wheel notch; positive delta zooms in.
func (c *Controller) Wheel(pos r2.Vec, delta float64) { c.machine.Wheel(pos, delta) }

// PointerLeave forwards the pointer leaving the canvas.
func (c *Controller) PointerLeave() { c.machine.Leave() }
