package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/geometry"
	"github.com/vanderheijden86/graphlens/pkg/view"
)

func TestLineGlyph(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy float64
		want   rune
	}{
		{"horizontal", 80, 0, '─'},
		{"vertical", 0, 160, '│'},
		{"down-right", 80, 160, '╲'},
		{"up-left", -80, -160, '╲'},
		{"up-right", 80, -160, '╱'},
		{"down-left", -80, 160, '╱'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lineGlyph(tt.dx, tt.dy); got != tt.want {
				t.Errorf("lineGlyph(%v, %v) = %q, want %q", tt.dx, tt.dy, got, tt.want)
			}
		})
	}
}

func TestCellPixelRoundTrip(t *testing.T) {
	for _, c := range [][2]int{{0, 0}, {3, 7}, {79, 23}} {
		x, y := cellAt(pixelAt(c[0], c[1]))
		if x != c[0] || y != c[1] {
			t.Errorf("cellAt(pixelAt(%v)) = (%d, %d)", c, x, y)
		}
	}
}

func TestLineDrawsHorizontalSegment(t *testing.T) {
	c := newCanvas(10, 3)
	c.line(pixelAt(1, 1), pixelAt(8, 1), "#FF0000")

	rows := strings.Split(c.plain(), "\n")
	if rows[1] != " ──────── " {
		t.Errorf("row = %q", rows[1])
	}
	if strings.TrimSpace(rows[0]) != "" || strings.TrimSpace(rows[2]) != "" {
		t.Error("segment leaked into other rows")
	}
}

func TestLineClipsFarSegments(t *testing.T) {
	c := newCanvas(10, 3)
	// Both ends are far outside; only the crossing part is drawn.
	c.line(r2.Vec{X: -1e6, Y: 24}, r2.Vec{X: 1e6, Y: 24}, "")
	rows := strings.Split(c.plain(), "\n")
	if rows[1] != strings.Repeat("─", 10) {
		t.Errorf("row = %q", rows[1])
	}

	if _, _, ok := c.clip(r2.Vec{X: -1e6, Y: -1e6}, r2.Vec{X: -1e5, Y: -1e6}); ok {
		t.Error("segment entirely outside should be rejected")
	}
}

func TestTextWideRunes(t *testing.T) {
	c := newCanvas(6, 1)
	c.text(0, 0, "日本語", "", 6)
	if got := c.plain(); got != "日本語" {
		t.Errorf("plain = %q", got)
	}

	c = newCanvas(6, 1)
	c.text(0, 0, "abcdefgh", "", 4)
	if got := strings.TrimRight(c.plain(), " "); got != "abc…" {
		t.Errorf("truncated = %q", got)
	}
}

func TestOverwritingWideRuneClearsHalf(t *testing.T) {
	c := newCanvas(4, 1)
	c.text(0, 0, "日", "", 4)
	c.set(1, 0, 'x', "")
	if got := c.plain(); got != " x  " {
		t.Errorf("plain = %q", got)
	}
}

func TestDrawFrame(t *testing.T) {
	f := view.Frame{
		Viewport: geometry.Viewport{Width: 160, Height: 48},
		Nodes: []view.FrameNode{
			{ID: "a", Label: "Alpha", Pos: pixelAt(1, 1), Color: "#E41A1C"},
			{ID: "b", Label: "Beta", Pos: pixelAt(15, 1), Color: "#377EB8", Gray: true},
		},
		Edges: []view.FrameEdge{
			{ID: "e", Source: "a", Target: "b", From: pixelAt(1, 1), To: pixelAt(15, 1), Color: "#999999"},
		},
		Hovered: "a",
	}
	c := newCanvas(20, 3)
	c.draw(f, true)

	row := []rune(strings.Split(c.plain(), "\n")[1])
	if row[1] != glyphHovered {
		t.Errorf("hovered node drawn as %q", row[1])
	}
	if row[15] != glyphNode {
		t.Errorf("node b drawn as %q", row[15])
	}
	if got := string(row[3:8]); got != "Alpha" {
		t.Errorf("label = %q", got)
	}
	// Gray nodes are unlabeled.
	if strings.Contains(c.plain(), "Beta") {
		t.Error("gray node got a label")
	}
}

func TestDrawLasso(t *testing.T) {
	f := view.Frame{Path: geometry.Polygon{pixelAt(0, 0), pixelAt(4, 0), pixelAt(4, 2)}}
	c := newCanvas(6, 3)
	c.draw(f, false)
	if c.at(0, 0) != glyphLasso || c.at(4, 2) != glyphLasso {
		t.Errorf("lasso vertices missing:\n%s", c.plain())
	}
	if c.at(2, 0) != '─' {
		t.Errorf("lasso edge missing:\n%s", c.plain())
	}
}

func TestRenderKeepsText(t *testing.T) {
	th := DefaultTheme(lipgloss.DefaultRenderer())
	c := newCanvas(5, 2)
	c.text(0, 0, "hi", "#FF0000", 5)
	c.text(0, 1, "yo", "not-a-color", 5)
	out := c.render(&th)
	if !strings.Contains(out, "hi") || !strings.Contains(out, "yo") {
		t.Errorf("render lost text: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected 2 rows, got %q", out)
	}
}
