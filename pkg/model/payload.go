package model

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidPayload is wrapped by every payload validation failure.
var ErrInvalidPayload = errors.New("invalid graph payload")

// NodeData is a node as sent by the host.
type NodeData struct {
	ID         string         `json:"id"`
	TypeID     string         `json:"nodetypeId"`
	Label      string         `json:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	X          *float64       `json:"x,omitempty"`
	Y          *float64       `json:"y,omitempty"`
}

// EdgeData is an edge as sent by the host.
type EdgeData struct {
	ID     string `json:"id"`
	TypeID string `json:"reltypeId"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Payload is the read-only snapshot a host supplies at init.
type Payload struct {
	Nodes     []NodeData `json:"nodes"`
	Edges     []EdgeData `json:"edges"`
	NodeTypes []NodeType `json:"nodetypes"`
	EdgeTypes []EdgeType `json:"reltypes"`
}

// Size returns the total node count.
func (p *Payload) Size() int {
	return len(p.Nodes)
}

// Validate checks ids, references and colors. It returns the first problem
// found, wrapped in ErrInvalidPayload.
func (p *Payload) Validate() error {
	nodeTypes := make(map[string]bool, len(p.NodeTypes))
	for _, t := range p.NodeTypes {
		if t.ID == "" {
			return fmt.Errorf("%w: node type without id", ErrInvalidPayload)
		}
		if nodeTypes[t.ID] {
			return fmt.Errorf("%w: duplicate node type %q", ErrInvalidPayload, t.ID)
		}
		if _, err := colorful.Hex(t.Color); err != nil {
			return fmt.Errorf("%w: node type %q color %q", ErrInvalidPayload, t.ID, t.Color)
		}
		nodeTypes[t.ID] = true
	}
	edgeTypes := make(map[string]bool, len(p.EdgeTypes))
	for _, t := range p.EdgeTypes {
		if t.ID == "" {
			return fmt.Errorf("%w: edge type without id", ErrInvalidPayload)
		}
		if edgeTypes[t.ID] {
			return fmt.Errorf("%w: duplicate edge type %q", ErrInvalidPayload, t.ID)
		}
		if t.ColorMode != "" && !t.ColorMode.IsValid() {
			return fmt.Errorf("%w: edge type %q color mode %q", ErrInvalidPayload, t.ID, t.ColorMode)
		}
		if _, err := colorful.Hex(t.Color); err != nil {
			return fmt.Errorf("%w: edge type %q color %q", ErrInvalidPayload, t.ID, t.Color)
		}
		edgeTypes[t.ID] = true
	}

	nodes := make(map[string]bool, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node without id", ErrInvalidPayload)
		}
		if nodes[n.ID] {
			return fmt.Errorf("%w: duplicate node %q", ErrInvalidPayload, n.ID)
		}
		if !nodeTypes[n.TypeID] {
			return fmt.Errorf("%w: node %q has unknown type %q", ErrInvalidPayload, n.ID, n.TypeID)
		}
		nodes[n.ID] = true
	}
	edges := make(map[string]bool, len(p.Edges))
	for _, e := range p.Edges {
		if e.ID == "" {
			return fmt.Errorf("%w: edge without id", ErrInvalidPayload)
		}
		if edges[e.ID] {
			return fmt.Errorf("%w: duplicate edge %q", ErrInvalidPayload, e.ID)
		}
		if !edgeTypes[e.TypeID] {
			return fmt.Errorf("%w: edge %q has unknown type %q", ErrInvalidPayload, e.ID, e.TypeID)
		}
		if !nodes[e.Source] || !nodes[e.Target] {
			return fmt.Errorf("%w: edge %q references a missing node", ErrInvalidPayload, e.ID)
		}
		edges[e.ID] = true
	}
	return nil
}

// ReadPayload decodes and validates a JSON payload.
func ReadPayload(r io.Reader) (*Payload, error) {
	var p Payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	p.fillMembership()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ReadPayloadFile reads a JSON payload from disk.
func ReadPayloadFile(path string) (*Payload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadPayload(f)
}

// WritePayload encodes p as indented JSON.
func WritePayload(w io.Writer, p *Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return nil
}

// fillMembership rebuilds the type member lists from the element lists when
// the host left them empty. Type registries carry the membership order used
// for legends, so lists that are present are kept untouched.
func (p *Payload) fillMembership() {
	nodeIdx := make(map[string]int, len(p.NodeTypes))
	for i, t := range p.NodeTypes {
		if len(t.Nodes) == 0 {
			nodeIdx[t.ID] = i
		}
	}
	for _, n := range p.Nodes {
		if i, ok := nodeIdx[n.TypeID]; ok {
			p.NodeTypes[i].Nodes = append(p.NodeTypes[i].Nodes, n.ID)
		}
	}
	edgeIdx := make(map[string]int, len(p.EdgeTypes))
	for i, t := range p.EdgeTypes {
		if len(t.Edges) == 0 {
			edgeIdx[t.ID] = i
		}
		if t.ColorMode == "" {
			p.EdgeTypes[i].ColorMode = ColorModeCustom
		}
	}
	for _, e := range p.Edges {
		if i, ok := edgeIdx[e.TypeID]; ok {
			p.EdgeTypes[i].Edges = append(p.EdgeTypes[i].Edges, e.ID)
		}
	}
}

// Normalize fills defaults that hosts commonly omit. ReadPayload calls it;
// programmatic callers should too before validating.
func (p *Payload) Normalize() {
	p.fillMembership()
}
