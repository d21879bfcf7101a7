package model

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"testing"
)

const samplePayload = `{
  "nodetypes": [{"id": "1", "name": "Person", "color": "#FF0000"}, {"id": "2", "name": "City", "color": "#0000FF"}],
  "reltypes": [{"id": "10", "name": "lives_in", "color": "#00FF00"}],
  "nodes": [
    {"id": "a", "nodetypeId": "1", "label": "Alice", "x": 1.5, "y": 2},
    {"id": "b", "nodetypeId": "1", "label": "Bob"},
    {"id": "c", "nodetypeId": "2", "label": "Paris"}
  ],
  "edges": [{"id": "e1", "reltypeId": "10", "source": "a", "target": "c"}]
}`

func TestReadPayload(t *testing.T) {
	p, err := ReadPayload(strings.NewReader(samplePayload))
	if err != nil {
		t.Fatalf("ReadPayload: %v", err)
	}
	if p.Size() != 3 {
		t.Errorf("Size = %d, want 3", p.Size())
	}
	if got := p.NodeTypes[0].Nodes; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("person members = %v", got)
	}
	if got := p.EdgeTypes[0].ColorMode; got != ColorModeCustom {
		t.Errorf("default color mode = %q", got)
	}
	if p.Nodes[0].X == nil || *p.Nodes[0].X != 1.5 {
		t.Errorf("position of a not decoded")
	}
	if p.Nodes[1].X != nil {
		t.Errorf("b should have no position")
	}
}

func TestValidateRejects(t *testing.T) {
	base := func() *Payload {
		p, err := ReadPayload(strings.NewReader(samplePayload))
		if err != nil {
			t.Fatalf("ReadPayload: %v", err)
		}
		return p
	}
	tests := []struct {
		name   string
		mutate func(p *Payload)
	}{
		{"duplicate node", func(p *Payload) { p.Nodes = append(p.Nodes, NodeData{ID: "a", TypeID: "1"}) }},
		{"unknown node type", func(p *Payload) { p.Nodes[0].TypeID = "99" }},
		{"dangling edge", func(p *Payload) { p.Edges[0].Target = "zzz" }},
		{"duplicate edge", func(p *Payload) { p.Edges = append(p.Edges, p.Edges[0]) }},
		{"bad color", func(p *Payload) { p.NodeTypes[1].Color = "blue" }},
		{"bad color mode", func(p *Payload) { p.EdgeTypes[0].ColorMode = "rainbow" }},
		{"empty node id", func(p *Payload) { p.Nodes[2].ID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			tt.mutate(p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Validate = %v, want ErrInvalidPayload", err)
			}
		})
	}
}

func TestWriteReadPayload(t *testing.T) {
	p, err := ReadPayload(strings.NewReader(samplePayload))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WritePayload(&buf, p); err != nil {
		t.Fatalf("WritePayload: %v", err)
	}
	q, err := ReadPayload(&buf)
	if err != nil {
		t.Fatalf("re-read: %v", err)
	}
	if len(q.Nodes) != 3 || len(q.Edges) != 1 || q.NodeTypes[1].Name != "City" {
		t.Errorf("unexpected payload after write/read: %+v", q)
	}
}

func TestCompareIDs(t *testing.T) {
	ids := []string{"10", "9", "b", "100", "a", "2"}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) < 0 })
	want := []string{"2", "9", "10", "100", "a", "b"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", ids, want)
		}
	}
}

func TestDisplayColor(t *testing.T) {
	n := &Node{Color: "#123456"}
	if n.DisplayColor() != "#123456" {
		t.Errorf("DisplayColor = %q", n.DisplayColor())
	}
	n.Gray = true
	if n.DisplayColor() != GrayColor {
		t.Errorf("grayed DisplayColor = %q", n.DisplayColor())
	}
	c := n.Clone()
	c.Color = "#000000"
	if n.Color != "#123456" {
		t.Error("Clone shares state with original")
	}
}

func TestDegreeOf(t *testing.T) {
	d := Degree{In: 1, Out: 2, Total: 3}
	if d.Of(DirIn) != 1 || d.Of(DirOut) != 2 || d.Of(DirTotal) != 3 {
		t.Errorf("Degree.Of mismatch: %+v", d)
	}
}
