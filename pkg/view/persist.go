package view

import (
	"context"
	"strings"

	"github.com/vanderheijden86/graphlens/pkg/hostapi"
	"github.com/vanderheijden86/graphlens/pkg/metrics"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

// persist runs call off the event loop. done receives the result back on
// the scheduler goroutine unless the controller was closed meanwhile.
func (c *Controller) persist(what string, call func(ctx context.Context) error, done func(err error)) {
	ctx := c.ctx
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		cctx, cancel := context.WithTimeout(ctx, c.cfg.HostTimeout)
		err := call(cctx)
		cancel()
		c.sched.Post(func() {
			if c.closed {
				return
			}
			if err != nil {
				metrics.PersistFailures.Inc()
				c.logger.Warn("host call failed", "call", what, "err", err)
			}
			done(err)
		})
	}()
}

func (c *Controller) notice(msg string) {
	c.emit(Event{Kind: EventNotice, Message: msg})
}

// RecolorNodeType changes a node type color at once and saves it. If the
// host rejects it the previous color comes back and a notice is raised.
// After a successful save every edge type color is resubmitted so colors
// derived from endpoints stay in sync on the host.
func (c *Controller) RecolorNodeType(typeID, color string) error {
	prev, err := c.store.RecolorNodeType(typeID, color)
	if err != nil {
		return err
	}
	c.changed()
	tc := hostapi.TypeColor{Kind: hostapi.KindNode, TypeID: typeID, Color: color}
	c.persist("node type color", func(ctx context.Context) error {
		return c.host.PersistTypeColor(ctx, tc)
	}, func(err error) {
		if err != nil {
			c.rollbackNodeType(typeID, color, prev)
			return
		}
		c.persistEdgeTypeColors()
	})
	return nil
}

func (c *Controller) rollbackNodeType(typeID, applied, prev string) {
	t, ok := c.store.NodeType(typeID)
	// A newer recolor owns the type now.
	if !ok || !strings.EqualFold(t.Color, applied) {
		c.notice(NoticeSaveFailed)
		return
	}
	if _, err := c.store.RecolorNodeType(typeID, prev); err != nil {
		c.logger.Error("rollback failed", "type", typeID, "err", err)
	}
	metrics.Rollbacks.Inc()
	c.logger.Debug("node type color rolled back", "type", typeID, "color", prev)
	c.changed()
	c.notice(NoticeSaveFailed)
}

func (c *Controller) persistEdgeTypeColors() {
	types := c.store.EdgeTypes()
	if len(types) == 0 {
		return
	}
	cs := make([]hostapi.TypeColor, 0, len(types))
	for _, t := range types {
		cs = append(cs, hostapi.TypeColor{Kind: hostapi.KindEdge, TypeID: t.ID, Color: t.Color, ColorMode: string(t.ColorMode)})
	}
	c.persist("edge type colors", func(ctx context.Context) error {
		return c.host.PersistEveryEdgeTypeColor(ctx, cs)
	}, func(err error) {
		if err != nil {
			c.notice(NoticeSaveFailed)
		}
	})
}

// RecolorEdgeType changes an edge type color and policy at once and saves
// them, rolling both back if the host rejects the change. An empty mode
// keeps the current policy.
func (c *Controller) RecolorEdgeType(typeID, color string, mode model.ColorMode) error {
	prevColor, prevMode, err := c.store.RecolorEdgeType(typeID, color, mode)
	if err != nil {
		return err
	}
	c.changed()
	t, _ := c.store.EdgeType(typeID)
	tc := hostapi.TypeColor{Kind: hostapi.KindEdge, TypeID: typeID, Color: color, ColorMode: string(t.ColorMode)}
	c.persist("edge type color", func(ctx context.Context) error {
		return c.host.PersistTypeColor(ctx, tc)
	}, func(err error) {
		if err == nil {
			return
		}
		t, ok := c.store.EdgeType(typeID)
		if ok && strings.EqualFold(t.Color, tc.Color) && string(t.ColorMode) == tc.ColorMode {
			if _, _, err := c.store.RecolorEdgeType(typeID, prevColor, prevMode); err != nil {
				c.logger.Error("rollback failed", "type", typeID, "err", err)
			}
			metrics.Rollbacks.Inc()
			c.changed()
		}
		c.notice(NoticeSaveFailed)
	})
	return nil
}

// RunQuery replaces the selection with the nodes a stored query returns.
func (c *Controller) RunQuery(queryID string) {
	c.runSelectionQuery(hostapi.Query{ID: queryID})
}

// Search replaces the selection with the nodes matching terms.
func (c *Controller) Search(terms string) {
	c.runSelectionQuery(hostapi.Query{Terms: terms})
}

func (c *Controller) runSelectionQuery(q hostapi.Query) {
	var ids []string
	c.persist("selection query", func(ctx context.Context) error {
		var err error
		ids, err = c.host.PersistSelectionQuery(ctx, q)
		return err
	}, func(err error) {
		if err != nil {
			c.notice(NoticeQueryFailed)
			return
		}
		c.sel.Replace(ids)
		c.ApplySelection()
	})
}

// Boxes returns the last known side panel layout.
func (c *Controller) Boxes() hostapi.BoxLayout { return c.boxes }

// RestoreBoxLayout places the side panels programmatically. Moves reported
// shortly afterwards are echoes and are not saved.
func (c *Controller) RestoreBoxLayout(l hostapi.BoxLayout) {
	c.boxes = cloneBoxes(l)
	c.suppressUntil = c.sched.Now().Add(c.cfg.BoxSuppression)
}

// SaveBoxLayout records a user move of the side panels and saves it. It
// reports whether a save was issued.
func (c *Controller) SaveBoxLayout(l hostapi.BoxLayout) bool {
	if !c.cfg.Features.BoxPersistence {
		return false
	}
	if c.sched.Now().Before(c.suppressUntil) {
		return false
	}
	c.boxes = cloneBoxes(l)
	saved := cloneBoxes(l)
	c.persist("box layout", func(ctx context.Context) error {
		return c.host.PersistBoxLayout(ctx, saved)
	}, func(err error) {
		if err != nil {
			c.notice(NoticeSaveFailed)
		}
	})
	return true
}

func cloneBoxes(l hostapi.BoxLayout) hostapi.BoxLayout {
	out := hostapi.BoxLayout{Boxes: make(map[string]hostapi.BoxPosition, len(l.Boxes))}
	for k, v := range l.Boxes {
		out.Boxes[k] = v
	}
	return out
}
