package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrDegenerateTransform is returned when two reference points coincide on
// an axis, which leaves the interpolation undefined.
var ErrDegenerateTransform = errors.New("degenerate transform: reference nodes coincide")

// Viewport is the pixel size of the drawing surface.
type Viewport struct {
	Width  float64
	Height float64
}

// Center returns the middle of the viewport in screen coordinates.
func (v Viewport) Center() r2.Vec {
	return r2.Vec{X: v.Width / 2, Y: v.Height / 2}
}

// Bounds is the axis-aligned extent of the nodes being drawn.
type Bounds struct {
	Min r2.Vec
	Max r2.Vec
}

// BoundsOf returns the extent of pts. An empty input yields a zero box.
func BoundsOf(pts []r2.Vec) Bounds {
	if len(pts) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Projection maps simulation coordinates to screen coordinates for one
// frame. The graph is first rescaled to fit the viewport (minus Margin on
// each side), then viewed through the camera.
type Projection struct {
	Camera   Camera
	Viewport Viewport
	scale    float64
	center   r2.Vec
}

// Margin is the fraction of the viewport left empty around the graph.
const Margin = 0.1

// NewProjection fits b into vp and applies cam.
func NewProjection(b Bounds, cam Camera, vp Viewport) Projection {
	w := b.Max.X - b.Min.X
	h := b.Max.Y - b.Min.Y
	scale := 1.0
	usableW := vp.Width * (1 - 2*Margin)
	usableH := vp.Height * (1 - 2*Margin)
	switch {
	case w > 0 && h > 0:
		scale = math.Min(usableW/w, usableH/h)
	case w > 0:
		scale = usableW / w
	case h > 0:
		scale = usableH / h
	}
	if scale <= 0 || math.IsInf(scale, 0) || math.IsNaN(scale) {
		scale = 1
	}
	if cam.Ratio <= 0 {
		cam.Ratio = 1
	}
	return Projection{
		Camera:   cam,
		Viewport: vp,
		scale:    scale,
		center:   r2.Vec{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2},
	}
}

// Scale returns the simulation-to-pixel factor at ratio 1.
func (p Projection) Scale() float64 {
	return p.scale
}

// ToScreen projects a simulation point.
func (p Projection) ToScreen(sim r2.Vec) r2.Vec {
	rescaled := r2.Scale(p.scale, r2.Sub(sim, p.center))
	rel := r2.Sub(rescaled, r2.Vec{X: p.Camera.X, Y: p.Camera.Y})
	rot := Rotate(rel, p.Camera.Angle)
	return r2.Add(r2.Scale(1/p.Camera.Ratio, rot), p.Viewport.Center())
}

// ToSim is the exact inverse of ToScreen.
func (p Projection) ToSim(screen r2.Vec) r2.Vec {
	rot := r2.Scale(p.Camera.Ratio, r2.Sub(screen, p.Viewport.Center()))
	rel := Unrotate(rot, p.Camera.Angle)
	rescaled := r2.Add(rel, r2.Vec{X: p.Camera.X, Y: p.Camera.Y})
	return r2.Add(r2.Scale(1/p.scale, rescaled), p.center)
}

// ToCamera converts a screen point into the camera-centered frame used for
// zoom focal points.
func (p Projection) ToCamera(screen r2.Vec) r2.Vec {
	rot := r2.Scale(p.Camera.Ratio, r2.Sub(screen, p.Viewport.Center()))
	return Unrotate(rot, p.Camera.Angle)
}

// NodeSize returns the on-screen radius of a node of the given size.
func (p Projection) NodeSize(size float64) float64 {
	return size / math.Sqrt(p.Camera.Ratio)
}

// Reference pairs a node's simulation position with its rendered position.
type Reference struct {
	Sim    r2.Vec
	Screen r2.Vec
}

// Interpolator converts between screen and simulation space using only two
// reference nodes and the camera angle, without knowing the renderer's
// projection matrix.
type Interpolator struct {
	angle float64
	a, b  r2.Vec // rotated simulation coordinates of the references
	sa    r2.Vec
	sb    r2.Vec
}

// NewInterpolator builds an interpolator from two references. Both the
// screen and the rotated simulation coordinates must differ on each axis.
func NewInterpolator(r0, r1 Reference, angle float64) (Interpolator, error) {
	const eps = 1e-12
	a := Rotate(r0.Sim, angle)
	b := Rotate(r1.Sim, angle)
	if math.Abs(r1.Screen.X-r0.Screen.X) < eps || math.Abs(r1.Screen.Y-r0.Screen.Y) < eps ||
		math.Abs(b.X-a.X) < eps || math.Abs(b.Y-a.Y) < eps {
		return Interpolator{}, ErrDegenerateTransform
	}
	return Interpolator{angle: angle, a: a, b: b, sa: r0.Screen, sb: r1.Screen}, nil
}

// ToSim maps a screen point to simulation space.
func (in Interpolator) ToSim(screen r2.Vec) r2.Vec {
	rot := r2.Vec{
		X: (screen.X-in.sa.X)/(in.sb.X-in.sa.X)*(in.b.X-in.a.X) + in.a.X,
		Y: (screen.Y-in.sa.Y)/(in.sb.Y-in.sa.Y)*(in.b.Y-in.a.Y) + in.a.Y,
	}
	return Unrotate(rot, in.angle)
}

// ToScreen maps a simulation point to screen space.
func (in Interpolator) ToScreen(sim r2.Vec) r2.Vec {
	rot := Rotate(sim, in.angle)
	return r2.Vec{
		X: (rot.X-in.a.X)/(in.b.X-in.a.X)*(in.sb.X-in.sa.X) + in.sa.X,
		Y: (rot.Y-in.a.Y)/(in.b.Y-in.a.Y)*(in.sb.Y-in.sa.Y) + in.sa.Y,
	}
}
