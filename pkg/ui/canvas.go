package ui

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/pkg/view"
)

// A terminal cell stands for a cellWidth x cellHeight block of engine
// pixels, so the engine sees a viewport with roughly square pixels.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

const (
	glyphNode    = '●'
	glyphHovered = '◉'
	glyphLasso   = '•'
	// continuation marks the right half of a wide rune.
	continuation = rune(-1)
)

type cell struct {
	r     rune
	color string // hex, or "" for the theme's muted color
	lasso bool
}

// canvas is a character grid the frame is rasterized onto.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

// cellAt maps an engine pixel position to a cell.
func cellAt(p r2.Vec) (int, int) {
	return int(math.Floor(p.X / cellWidth)), int(math.Floor(p.Y / cellHeight))
}

// pixelAt maps a cell to the engine pixel at its center.
func pixelAt(x, y int) r2.Vec {
	return r2.Vec{X: (float64(x) + 0.5) * cellWidth, Y: (float64(y) + 0.5) * cellHeight}
}

func (c *canvas) in(x, y int) bool { return x >= 0 && y >= 0 && x < c.w && y < c.h }

func (c *canvas) set(x, y int, r rune, color string) {
	if !c.in(x, y) {
		return
	}
	i := y*c.w + x
	// A wide rune losing its left half leaves a blank behind.
	if c.cells[i].r == continuation && x > 0 {
		c.cells[i-1].r = ' '
	}
	c.cells[i] = cell{r: r, color: color}
}

func (c *canvas) at(x, y int) rune {
	if !c.in(x, y) {
		return 0
	}
	return c.cells[y*c.w+x].r
}

// line draws a segment between two engine pixel positions.
func (c *canvas) line(from, to r2.Vec, color string) {
	r := lineGlyph(to.X-from.X, to.Y-from.Y)
	a, b, ok := c.clip(from, to)
	if !ok {
		return
	}
	x0, y0 := cellAt(a)
	x1, y1 := cellAt(b)

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, r, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// clip cuts the segment to the canvas area plus a one cell margin
// (Liang-Barsky). It reports false when nothing of it is inside.
func (c *canvas) clip(from, to r2.Vec) (r2.Vec, r2.Vec, bool) {
	minX, minY := -cellWidth, -cellHeight
	maxX, maxY := float64(c.w+1)*cellWidth, float64(c.h+1)*cellHeight
	d := r2.Sub(to, from)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-d.X, from.X - minX},
		{d.X, maxX - from.X},
		{-d.Y, from.Y - minY},
		{d.Y, maxY - from.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return from, to, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return from, to, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return from, to, false
			}
			t1 = math.Min(t1, t)
		}
	}
	return r2.Add(from, r2.Scale(t0, d)), r2.Add(from, r2.Scale(t1, d)), true
}

// lineGlyph picks the box-drawing rune closest to the segment's direction.
func lineGlyph(dx, dy float64) rune {
	// Compare in cell units so the slope matches what is drawn.
	ax, ay := math.Abs(dx/cellWidth), math.Abs(dy/cellHeight)
	switch {
	case ay < ax/2:
		return '─'
	case ax < ay/2:
		return '│'
	case (dx > 0) == (dy > 0):
		return '╲'
	}
	return '╱'
}

// text writes s starting at (x, y), at most limit cells wide.
func (c *canvas) text(x, y int, s string, color string, limit int) {
	s = truncateRunesHelper(s, limit, "…")
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > c.w {
			return
		}
		c.set(x, y, r, color)
		if w == 2 {
			c.set(x+1, y, continuation, color)
		}
		x += w
	}
}

// draw rasterizes f: edges first, then the lasso, then nodes and labels.
func (c *canvas) draw(f view.Frame, labels bool) {
	for _, e := range f.Edges {
		c.line(e.From, e.To, e.Color)
	}
	for i := 1; i < len(f.Path); i++ {
		c.line(f.Path[i-1], f.Path[i], "")
	}
	for _, p := range f.Path {
		x, y := cellAt(p)
		if c.in(x, y) {
			c.cells[y*c.w+x] = cell{r: glyphLasso, lasso: true}
		}
	}
	for _, n := range f.Nodes {
		x, y := cellAt(n.Pos)
		r := glyphNode
		if n.ID == f.Hovered {
			r = glyphHovered
		}
		c.set(x, y, r, n.Color)
	}
	if !labels {
		return
	}
	for _, n := range f.Nodes {
		if n.Gray && n.ID != f.Hovered {
			continue
		}
		label := n.Label
		if label == "" {
			label = n.ID
		}
		x, y := cellAt(n.Pos)
		// Labels never overwrite nodes.
		room := 0
		for cx := x + 2; cx < c.w && room < 24; cx++ {
			if r := c.at(cx, y); r == glyphNode || r == glyphHovered {
				break
			}
			room++
		}
		if room > 1 {
			c.text(x+2, y, label, "", room)
		}
	}
}

// render paints the grid as lines of styled text, one style per color run.
func (c *canvas) render(t *Theme) string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		row := c.cells[y*c.w : (y+1)*c.w]
		for i := 0; i < len(row); {
			j := i
			var run strings.Builder
			for j < len(row) && row[j].color == row[i].color && row[j].lasso == row[i].lasso {
				if row[j].r != continuation {
					run.WriteRune(row[j].r)
				}
				j++
			}
			switch {
			case row[i].lasso:
				b.WriteString(t.Lasso.Render(run.String()))
			case row[i].color == "":
				b.WriteString(t.MutedText.Render(run.String()))
			default:
				b.WriteString(t.Fg(row[i].color).Render(run.String()))
			}
			i = j
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// plain returns the grid without styling.
func (c *canvas) plain() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		for _, cl := range c.cells[y*c.w : (y+1)*c.w] {
			if cl.r != continuation {
				b.WriteRune(cl.r)
			}
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
