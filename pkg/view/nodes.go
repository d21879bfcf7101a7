package view

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/vanderheijden86/graphlens/pkg/anim"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

// SizeMode decides what node radii encode.
type SizeMode int

const (
	SizeSame SizeMode = iota
	SizeTotalDegree
	SizeInDegree
	SizeOutDegree
)

var sizeModeNames = []string{"same", "total-degree", "in-degree", "out-degree"}

func (m SizeMode) String() string {
	if int(m) < len(sizeModeNames) {
		return sizeModeNames[m]
	}
	return fmt.Sprintf("size(%d)", int(m))
}

// ParseSizeMode parses a mode name as printed by String.
func ParseSizeMode(s string) (SizeMode, error) {
	for i, name := range sizeModeNames {
		if name == s {
			return SizeMode(i), nil
		}
	}
	return SizeSame, fmt.Errorf("unknown size mode %q", s)
}

func (m SizeMode) direction() model.Direction {
	switch m {
	case SizeInDegree:
		return model.DirIn
	case SizeOutDegree:
		return model.DirOut
	}
	return model.DirTotal
}

// Node size limits in pixels at zoom ratio 1.
const (
	MinNodeSize       = 1
	DegreeMinNodeSize = 2
	DegreeMultiplier  = 2
)

// MaxNodeSize shrinks with the graph so large graphs stay legible.
func MaxNodeSize(n int) float64 {
	switch {
	case n >= 50:
		return 4
	case n >= 20:
		return 6
	}
	return 8
}

// SizeMode returns the active sizing mode.
func (c *Controller) SizeMode() SizeMode { return c.sizeMode }

// SetSizeMode changes what node radii encode and animates the change.
func (c *Controller) SetSizeMode(m SizeMode) {
	c.sizeMode = m
	c.applySizes(true)
}

// sizes computes every node's radius for the active mode. Degree modes map
// the metric linearly onto [DegreeMinNodeSize, max*DegreeMultiplier].
func (c *Controller) sizes() map[string]float64 {
	maxSize := MaxNodeSize(c.store.Len())
	out := make(map[string]float64, c.store.Len())
	if c.sizeMode == SizeSame {
		for _, id := range c.store.NodeIDs() {
			out[id] = maxSize
		}
		return out
	}
	dir := c.sizeMode.direction()
	lo, hi := -1, -1
	ids := c.store.NodeIDs()
	for _, id := range ids {
		d := c.store.DegreeOf(id, dir)
		if lo < 0 || d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	minSize, maxSize := float64(DegreeMinNodeSize), maxSize*DegreeMultiplier
	for _, id := range ids {
		d := c.store.DegreeOf(id, dir)
		if hi == lo {
			out[id] = minSize
			continue
		}
		out[id] = minSize + float64(d-lo)/float64(hi-lo)*(maxSize-minSize)
	}
	return out
}

func (c *Controller) applySizes(animate bool) {
	c.sizeAnim.Cancel()
	targets := c.sizes()
	if !animate {
		for id, s := range targets {
			_ = c.store.SetSize(id, s)
		}
		c.projValid = false
		return
	}
	from := make(map[string]float64, len(targets))
	for id := range targets {
		n, _ := c.store.Node(id)
		from[id] = n.Size
	}
	c.sizeAnim = anim.Start(c.sched, anim.Options{
		Duration: c.cfg.Layout.Animation,
		Frame:    c.cfg.Layout.TickInterval,
		Step: func(p float64) {
			for id, to := range targets {
				_ = c.store.SetSize(id, anim.Lerp(from[id], to, p))
			}
			c.changed()
		},
	})
}

type pendingEdit struct {
	id        string
	x, y      float64
	selection []string
}

// RemoveNode deletes a node from the node form. With forEdit the node's
// position and the selection are remembered for the AddNode that follows.
func (c *Controller) RemoveNode(id string, forEdit bool) error {
	n, ok := c.store.Node(id)
	if !ok {
		_, err := c.store.RemoveNode(id)
		return err
	}
	c.edit = nil
	if forEdit {
		c.edit = &pendingEdit{id: id, x: n.X, y: n.Y}
		if !c.sel.All() && c.sel.Contains(id) {
			c.edit.selection = c.sel.IDs()
		}
	}
	if _, err := c.store.RemoveNode(id); err != nil {
		return err
	}
	c.sel.Forget(id)
	c.machine.Forget(id)
	c.afterStructuralChange()
	return nil
}

// AddNode inserts a node and its edges from the node form. A node without
// an id gets a random one. When fromEdit completes an edit of the same node
// it keeps its old position and selection membership; otherwise a new node
// joins the selection only implicitly, when the entire graph is selected.
func (c *Controller) AddNode(n model.Node, edges []model.Edge, fromEdit bool) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	edit := c.edit
	c.edit = nil
	if fromEdit && edit != nil && edit.id == n.ID {
		n.X, n.Y = edit.x, edit.y
	} else {
		edit = nil
		if n.X == 0 && n.Y == 0 {
			n.X, n.Y = c.spawnPoint()
		}
	}
	if err := c.store.AddNode(n); err != nil {
		return "", err
	}
	var errs []error
	for i, e := range edges {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Source == "" {
			e.Source = n.ID
		}
		if e.Target == "" {
			e.Target = n.ID
		}
		if err := c.store.AddEdge(e); err != nil {
			errs = append(errs, fmt.Errorf("edge %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		// All or nothing: dropping the node detaches the edges already added.
		_, _ = c.store.RemoveNode(n.ID)
		return "", errors.Join(errs...)
	}
	if edit != nil && len(edit.selection) > 0 {
		c.sel.Replace(edit.selection)
	}
	c.afterStructuralChange()
	return n.ID, nil
}

// spawnPoint places new nodes at the center of the current layout.
func (c *Controller) spawnPoint() (float64, float64) {
	b := c.bounds()
	return (b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2
}

func (c *Controller) afterStructuralChange() {
	c.engine.Refresh()
	c.applySizes(false)
	c.ApplySelection()
}
