// Package hostapi defines the calls the engine makes back into its host
// application and provides an HTTP implementation of them.
//
// Every call is fire-and-forget from the engine's point of view: the engine
// applies changes optimistically, runs the call off the event loop and rolls
// back when it fails.
package hostapi

import (
	"context"
	"errors"
)

// ErrStatus is wrapped by errors caused by a non-2xx host response.
var ErrStatus = errors.New("unexpected host status")

// Kind tells node types from edge types.
type Kind string

const (
	KindNode Kind = "node"
	KindEdge Kind = "edge"
)

// TypeColor is the persisted color of a node or edge type. ColorMode is
// only meaningful for edge types.
type TypeColor struct {
	Kind      Kind   `json:"kind"`
	TypeID    string `json:"typeId"`
	Color     string `json:"color"`
	ColorMode string `json:"colorMode,omitempty"`
}

// Query asks the host for a node id list. A non-empty Terms runs a search
// instead of the stored query ID.
type Query struct {
	ID    string `json:"id,omitempty"`
	Terms string `json:"terms,omitempty"`
}

// BoxPosition is the placement of one side panel.
type BoxPosition struct {
	Top       float64 `json:"top"`
	Left      float64 `json:"left"`
	Collapsed bool    `json:"collapsed"`
}

// BoxLayout maps box names to their position.
type BoxLayout struct {
	Boxes map[string]BoxPosition `json:"boxes"`
}

// Host is the collaborator the view controller persists preferences to.
type Host interface {
	PersistTypeColor(ctx context.Context, c TypeColor) error
	PersistEveryEdgeTypeColor(ctx context.Context, cs []TypeColor) error
	PersistSelectionQuery(ctx context.Context, q Query) ([]string, error)
	PersistBoxLayout(ctx context.Context, l BoxLayout) error
}

// Nop is a Host that stores nothing. Queries return no ids.
type Nop struct{}

func (Nop) PersistTypeColor(context.Context, TypeColor) error              { return nil }
func (Nop) PersistEveryEdgeTypeColor(context.Context, []TypeColor) error   { return nil }
func (Nop) PersistSelectionQuery(context.Context, Query) ([]string, error) { return nil, nil }
func (Nop) PersistBoxLayout(context.Context, BoxLayout) error              { return nil }
