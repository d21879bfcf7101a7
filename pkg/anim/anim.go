// Package anim drives time-based transitions (camera easing, layout
// interpolation, node resizing) on a loop.Scheduler.
package anim

import (
	"time"

	"github.com/vanderheijden86/graphlens/pkg/loop"
)

// Easing maps linear progress in [0,1] to eased progress.
type Easing func(float64) float64

// Linear is the identity easing.
func Linear(k float64) float64 { return k }

// QuadraticIn accelerates from zero velocity.
func QuadraticIn(k float64) float64 { return k * k }

// QuadraticOut decelerates to zero velocity.
func QuadraticOut(k float64) float64 { return k * (2 - k) }

// QuadraticInOut accelerates until halfway, then decelerates.
func QuadraticInOut(k float64) float64 {
	k *= 2
	if k < 1 {
		return 0.5 * k * k
	}
	k--
	return -0.5 * (k*(k-2) - 1)
}

// Easings maps config names to easing functions.
var Easings = map[string]Easing{
	"linear":         Linear,
	"quadraticIn":    QuadraticIn,
	"quadraticOut":   QuadraticOut,
	"quadraticInOut": QuadraticInOut,
}

// DefaultFrame is the step interval of an animation.
const DefaultFrame = 16 * time.Millisecond

// Options configures an animation.
type Options struct {
	Duration time.Duration
	Frame    time.Duration
	Easing   Easing
	// Step receives eased progress. The final call always receives 1.
	Step func(p float64)
	// Done runs after the final step. It does not run on Cancel.
	Done func()
}

// Animation is a running transition.
type Animation struct {
	sched   loop.Scheduler
	opts    Options
	start   time.Time
	timer   loop.Timer
	running bool
}

// Start begins an animation and performs its first step synchronously.
// A zero duration completes immediately.
func Start(s loop.Scheduler, opts Options) *Animation {
	if opts.Frame <= 0 {
		opts.Frame = DefaultFrame
	}
	if opts.Easing == nil {
		opts.Easing = QuadraticInOut
	}
	a := &Animation{sched: s, opts: opts, start: s.Now(), running: true}
	a.step()
	return a
}

// Running reports whether the animation has not yet completed or been
// cancelled.
func (a *Animation) Running() bool {
	return a != nil && a.running
}

// Cancel stops the animation where it is. Done is not called.
func (a *Animation) Cancel() {
	if a == nil || !a.running {
		return
	}
	a.running = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

func (a *Animation) step() {
	if !a.running {
		return
	}
	k := 1.0
	if a.opts.Duration > 0 {
		k = float64(a.sched.Now().Sub(a.start)) / float64(a.opts.Duration)
	}
	if k >= 1 {
		a.running = false
		a.timer = nil
		if a.opts.Step != nil {
			a.opts.Step(1)
		}
		if a.opts.Done != nil {
			a.opts.Done()
		}
		return
	}
	if a.opts.Step != nil {
		a.opts.Step(a.opts.Easing(k))
	}
	a.timer = a.sched.AfterFunc(a.opts.Frame, a.step)
}

// Lerp interpolates between a and b. It returns exactly b at p == 1.
func Lerp(a, b, p float64) float64 {
	if p == 1 {
		return b
	}
	return a + (b-a)*p
}
