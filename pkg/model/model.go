// Package model defines the graph elements shared by every graphlens
// component: nodes, edges, their types and the payload a host hands over at
// startup.
package model

import (
	"strconv"
	"strings"
)

// GrayColor is the neutral display color of de-emphasized elements.
const GrayColor = "#EEEEEE"

// ColorMode decides how an edge derives its color.
type ColorMode string

const (
	ColorModeCustom ColorMode = "custom" // fixed palette color of the edge type
	ColorModeSource ColorMode = "source" // palette color of the source node
	ColorModeTarget ColorMode = "target" // palette color of the target node
	ColorModeAvg    ColorMode = "avg"    // RGB mean of both endpoints
)

// IsValid returns true if the mode is one of the known policies.
func (m ColorMode) IsValid() bool {
	switch m {
	case ColorModeCustom, ColorModeSource, ColorModeTarget, ColorModeAvg:
		return true
	}
	return false
}

// Node is a graph vertex as held by the graph store.
type Node struct {
	ID         string         `json:"id"`
	TypeID     string         `json:"nodetypeId"`
	Label      string         `json:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Size       float64        `json:"size,omitempty"`

	// Color is the palette color inherited from the node type. The display
	// color differs only while the node is grayed out.
	Color  string `json:"color,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Gray   bool   `json:"-"`
}

// DisplayColor returns the color a renderer should paint.
func (n *Node) DisplayColor() string {
	if n.Gray {
		return GrayColor
	}
	return n.Color
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Properties != nil {
		c.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			c.Properties[k] = v
		}
	}
	return &c
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	ID     string `json:"id"`
	TypeID string `json:"reltypeId"`
	Source string `json:"source"`
	Target string `json:"target"`

	// Color is computed from the edge type's color policy.
	Color  string `json:"color,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
	Gray   bool   `json:"-"`
}

// DisplayColor returns the color a renderer should paint.
func (e *Edge) DisplayColor() string {
	if e.Gray {
		return GrayColor
	}
	return e.Color
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	c := *e
	return &c
}

// NodeType groups nodes sharing a palette color and a visibility toggle.
type NodeType struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
	Nodes []string `json:"nodes"`
}

// EdgeType groups edges sharing a color policy and a visibility toggle.
type EdgeType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	ColorMode ColorMode `json:"colorMode"`
	Edges     []string  `json:"relationships"`
}

// Degree holds the three degree metrics of a node.
type Degree struct {
	In    int `json:"in"`
	Out   int `json:"out"`
	Total int `json:"total"`
}

// Direction selects one of the degree metrics.
type Direction int

const (
	DirTotal Direction = iota
	DirIn
	DirOut
)

// Of returns the metric for dir.
func (d Degree) Of(dir Direction) int {
	switch dir {
	case DirIn:
		return d.In
	case DirOut:
		return d.Out
	default:
		return d.Total
	}
}

// CompareIDs orders ids numerically when both are integers and
// lexicographically otherwise. Hosts usually hand out database ids, so
// "10" must sort after "9".
func CompareIDs(a, b string) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
