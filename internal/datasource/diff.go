package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/graphlens/pkg/model"
)

// PayloadDiff represents differences between two graph snapshots
type PayloadDiff struct {
	// SourceA names the first snapshot
	SourceA string
	// SourceB names the second snapshot
	SourceB string
	// AddedNodes contains node IDs present in B but not in A
	AddedNodes []string
	// RemovedNodes contains node IDs present in A but not in B
	RemovedNodes []string
	// Retyped contains nodes whose type differs between snapshots
	Retyped []TypeDifference
	// AddedEdges contains edge IDs present in B but not in A
	AddedEdges []string
	// RemovedEdges contains edge IDs present in A but not in B
	RemovedEdges []string
	// Recolored contains types whose color differs between snapshots
	Recolored []ColorDifference
	// CountA is the number of nodes in A
	CountA int
	// CountB is the number of nodes in B
	CountB int
}

// TypeDifference is a node that changed type
type TypeDifference struct {
	ID    string `json:"id"`
	TypeA string `json:"type_a"`
	TypeB string `json:"type_b"`
}

// ColorDifference is a node or edge type that changed color
type ColorDifference struct {
	TypeID string `json:"type_id"`
	ColorA string `json:"color_a"`
	ColorB string `json:"color_b"`
}

// HasChanges returns true if the snapshots differ
func (d PayloadDiff) HasChanges() bool {
	return len(d.AddedNodes) > 0 || len(d.RemovedNodes) > 0 || len(d.Retyped) > 0 ||
		len(d.AddedEdges) > 0 || len(d.RemovedEdges) > 0 || len(d.Recolored) > 0
}

// Summary returns a human-readable summary of the differences
func (d PayloadDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("Graphs match (%d nodes each)", d.CountA)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Differences between %s and %s:\n", d.SourceA, d.SourceB)
	if d.CountA != d.CountB {
		fmt.Fprintf(&b, "  - Node count: %d vs %d\n", d.CountA, d.CountB)
	}
	list := func(what string, ids []string) {
		if len(ids) == 0 {
			return
		}
		fmt.Fprintf(&b, "  - %d %s\n", len(ids), what)
		if len(ids) <= 5 {
			for _, id := range ids {
				fmt.Fprintf(&b, "    - %s\n", id)
			}
		}
	}
	list("nodes added", d.AddedNodes)
	list("nodes removed", d.RemovedNodes)
	list("edges added", d.AddedEdges)
	list("edges removed", d.RemovedEdges)
	if len(d.Retyped) > 0 {
		fmt.Fprintf(&b, "  - %d nodes changed type\n", len(d.Retyped))
		if len(d.Retyped) <= 5 {
			for _, r := range d.Retyped {
				fmt.Fprintf(&b, "    - %s: %s vs %s\n", r.ID, r.TypeA, r.TypeB)
			}
		}
	}
	if len(d.Recolored) > 0 {
		fmt.Fprintf(&b, "  - %d types changed color\n", len(d.Recolored))
		if len(d.Recolored) <= 5 {
			for _, r := range d.Recolored {
				fmt.Fprintf(&b, "    - %s: %s vs %s\n", r.TypeID, r.ColorA, r.ColorB)
			}
		}
	}
	return b.String()
}

// DiffOptions configures the diff operation
type DiffOptions struct {
	// MaxDifferences caps each list (0 = unlimited)
	MaxDifferences int
}

func (o DiffOptions) room(n int) bool {
	return o.MaxDifferences == 0 || n < o.MaxDifferences
}

// DiffPayloads compares two snapshots. Every list is sorted by id.
func DiffPayloads(a, b *model.Payload, nameA, nameB string, opts DiffOptions) PayloadDiff {
	diff := PayloadDiff{SourceA: nameA, SourceB: nameB, CountA: len(a.Nodes), CountB: len(b.Nodes)}

	nodesA := make(map[string]string, len(a.Nodes))
	for _, n := range a.Nodes {
		nodesA[n.ID] = n.TypeID
	}
	nodesB := make(map[string]string, len(b.Nodes))
	for _, n := range b.Nodes {
		nodesB[n.ID] = n.TypeID
	}
	for _, id := range sortedIDs(nodesA) {
		typeB, ok := nodesB[id]
		switch {
		case !ok:
			if opts.room(len(diff.RemovedNodes)) {
				diff.RemovedNodes = append(diff.RemovedNodes, id)
			}
		case typeB != nodesA[id]:
			if opts.room(len(diff.Retyped)) {
				diff.Retyped = append(diff.Retyped, TypeDifference{ID: id, TypeA: nodesA[id], TypeB: typeB})
			}
		}
	}
	for _, id := range sortedIDs(nodesB) {
		if _, ok := nodesA[id]; !ok && opts.room(len(diff.AddedNodes)) {
			diff.AddedNodes = append(diff.AddedNodes, id)
		}
	}

	edgesA := make(map[string]string, len(a.Edges))
	for _, e := range a.Edges {
		edgesA[e.ID] = e.TypeID
	}
	edgesB := make(map[string]string, len(b.Edges))
	for _, e := range b.Edges {
		edgesB[e.ID] = e.TypeID
	}
	for _, id := range sortedIDs(edgesA) {
		if _, ok := edgesB[id]; !ok && opts.room(len(diff.RemovedEdges)) {
			diff.RemovedEdges = append(diff.RemovedEdges, id)
		}
	}
	for _, id := range sortedIDs(edgesB) {
		if _, ok := edgesA[id]; !ok && opts.room(len(diff.AddedEdges)) {
			diff.AddedEdges = append(diff.AddedEdges, id)
		}
	}

	colorsA := typeColors(a)
	colorsB := typeColors(b)
	for _, id := range sortedIDs(colorsA) {
		cb, ok := colorsB[id]
		if ok && !strings.EqualFold(cb, colorsA[id]) && opts.room(len(diff.Recolored)) {
			diff.Recolored = append(diff.Recolored, ColorDifference{TypeID: id, ColorA: colorsA[id], ColorB: cb})
		}
	}
	return diff
}

// typeColors keys node types by id and edge types by "rel:" plus id, since
// the two registries may share ids.
func typeColors(p *model.Payload) map[string]string {
	out := make(map[string]string, len(p.NodeTypes)+len(p.EdgeTypes))
	for _, t := range p.NodeTypes {
		out[t.ID] = t.Color
	}
	for _, t := range p.EdgeTypes {
		out["rel:"+t.ID] = t.Color
	}
	return out
}

func sortedIDs(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return model.CompareIDs(out[i], out[j]) < 0 })
	return out
}

// CompareSources loads and compares two data sources
func CompareSources(ctx context.Context, sourceA, sourceB DataSource, opts Options, dopts DiffOptions) (*PayloadDiff, error) {
	a, err := Load(ctx, sourceA, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load source A (%s): %w", sourceA.Path, err)
	}
	b, err := Load(ctx, sourceB, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load source B (%s): %w", sourceB.Path, err)
	}
	diff := DiffPayloads(a, b, sourceA.String(), sourceB.String(), dopts)
	return &diff, nil
}
