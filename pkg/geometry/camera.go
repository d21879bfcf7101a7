// Package geometry maps between simulation space and screen space.
//
// Simulation space is where layouts place nodes. A Camera (pan, zoom ratio,
// rotation) looks at simulation space; a Projection turns the camera view into
// pixel positions inside a Viewport. Screen coordinates have their origin at
// the top-left corner of the viewport.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Camera is the logical view transform. X/Y are in rescaled simulation
// units, Ratio > 1 zooms out, Angle is in radians.
type Camera struct {
	X     float64
	Y     float64
	Ratio float64
	Angle float64
}

// HomeCamera is the camera reached by re-centering.
func HomeCamera() Camera {
	return Camera{Ratio: 1}
}

// ZoomLimits bounds the camera ratio.
type ZoomLimits struct {
	Min  float64
	Max  float64
	Step float64 // zooming ratio applied per zoom action, > 1
}

// DefaultZoomLimits mirrors the defaults of common canvas graph renderers.
func DefaultZoomLimits() ZoomLimits {
	return ZoomLimits{Min: 0.0625, Max: 2, Step: 1.7}
}

// Clamp returns ratio limited to [Min, Max].
func (z ZoomLimits) Clamp(ratio float64) float64 {
	return math.Max(z.Min, math.Min(z.Max, ratio))
}

// ZoomTarget computes the camera after zooming in or out around focal,
// a point given relative to the viewport center. It returns false when the
// clamped ratio equals the current one and nothing should change.
func ZoomTarget(c Camera, in bool, focal r2.Vec, z ZoomLimits) (Camera, bool) {
	step := z.Step
	if in {
		step = 1 / z.Step
	}
	newRatio := z.Clamp(c.Ratio * step)
	if newRatio == c.Ratio {
		return c, false
	}
	step = newRatio / c.Ratio
	target := c
	target.X = focal.X*(1-step) + c.X
	target.Y = focal.Y*(1-step) + c.Y
	target.Ratio = newRatio
	return target, true
}

// Rotate applies the camera rotation to a simulation vector, producing the
// camera-aligned coordinates renderers lay out along screen axes.
func Rotate(p r2.Vec, angle float64) r2.Vec {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return r2.Vec{
		X: p.X*cos + p.Y*sin,
		Y: p.Y*cos - p.X*sin,
	}
}

// Unrotate is the inverse of Rotate.
func Unrotate(p r2.Vec, angle float64) r2.Vec {
	cos, sin := math.Cos(angle), math.Sin(angle)
	return r2.Vec{
		X: p.X*cos - p.Y*sin,
		Y: p.Y*cos + p.X*sin,
	}
}

// Pan moves the camera by a screen-space delta, the way dragging the stage
// does: the content follows the pointer.
func Pan(c Camera, delta r2.Vec) Camera {
	d := Unrotate(r2.Scale(c.Ratio, delta), c.Angle)
	c.X -= d.X
	c.Y -= d.Y
	return c
}
