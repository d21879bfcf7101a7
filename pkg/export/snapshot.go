// Package export writes static images of a graph view. A snapshot renders
// one view.Frame below a summary header, with a legend of the node types.
package export

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/view"
)

// LegendEntry is one row of the node type legend.
type LegendEntry struct {
	Name   string
	Color  string
	Hidden bool
}

// Legend lists the node types of s in registry order.
func Legend(s *graphstore.Store) []LegendEntry {
	var out []LegendEntry
	for _, t := range s.NodeTypes() {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		out = append(out, LegendEntry{Name: name, Color: t.Color, Hidden: s.NodeTypeHidden(t.ID)})
	}
	return out
}

// SnapshotOptions controls snapshot export behaviour.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title rendered in the header
	Source string // Where the graph came from, shown in the header
	Frame  view.Frame
	Legend []LegendEntry
}

// format resolves the output format of opts.
func (opts SnapshotOptions) format() (string, error) {
	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
		}
	}
	if format != "svg" && format != "png" {
		return "", fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	return format, nil
}

// SaveSnapshot renders opts.Frame to opts.Path.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	format, err := opts.format()
	if err != nil {
		return err
	}
	if opts.Frame.Viewport.Width <= 0 || opts.Frame.Viewport.Height <= 0 {
		return fmt.Errorf("frame has an empty viewport")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	l := buildLayout(opts)
	switch format {
	case "png":
		return renderPNG(opts.Path, l)
	default:
		f, err := os.Create(opts.Path)
		if err != nil {
			return err
		}
		if err := renderSVG(f, l); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}

// SaveSnapshots writes the same frame to every path concurrently. The
// format of each file follows its extension.
func SaveSnapshots(ctx context.Context, opts SnapshotOptions, paths ...string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		o := opts
		o.Path = p
		o.Format = ""
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := SaveSnapshot(o); err != nil {
				return fmt.Errorf("%s: %w", o.Path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// WriteSVG renders opts.Frame as SVG to w.
func WriteSVG(w io.Writer, opts SnapshotOptions) error {
	return renderSVG(w, buildLayout(opts))
}

// --- layout ----------------------------------------------------------------

const (
	headerHeight = 96.0
	arrowLen     = 7.0
)

type layoutResult struct {
	Width, Height int
	Title         string
	Source        string
	NodeCount     int
	EdgeCount     int
	Zoom          float64
	Frame         view.Frame
	Legend        []LegendEntry
}

func buildLayout(opts SnapshotOptions) layoutResult {
	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Graph Snapshot"
	}
	return layoutResult{
		Width:     int(math.Ceil(opts.Frame.Viewport.Width)),
		Height:    int(math.Ceil(opts.Frame.Viewport.Height + headerHeight)),
		Title:     title,
		Source:    opts.Source,
		NodeCount: len(opts.Frame.Nodes),
		EdgeCount: len(opts.Frame.Edges),
		Zoom:      opts.Frame.Camera.Ratio,
		Frame:     opts.Frame,
		Legend:    opts.Legend,
	}
}

// edgeEnds shortens an edge so its arrow tip touches the target circle.
func edgeEnds(e view.FrameEdge, targetRadius float64) (x1, y1, x2, y2, ux, uy float64, ok bool) {
	dx, dy := e.To.X-e.From.X, e.To.Y-e.From.Y
	d := math.Hypot(dx, dy)
	if d < 1e-9 {
		return 0, 0, 0, 0, 0, 0, false
	}
	ux, uy = dx/d, dy/d
	return e.From.X, e.From.Y + headerHeight, e.To.X - ux*targetRadius, e.To.Y + headerHeight - uy*targetRadius, ux, uy, true
}

// --- rendering -------------------------------------------------------------

var (
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorHeaderBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorLegendBG = color.RGBA{0xee, 0xee, 0xee, 0xff}
	colorHover    = color.RGBA{0xff, 0x8c, 0x00, 0xff}
	colorPath     = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
)

// parseColor reads a #rrggbb color, falling back to gray.
func parseColor(hex string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(model.GrayColor)
	}
	r, g, b := c.RGB255()
	return color.RGBA{r, g, b, 0xff}
}

func radii(f view.Frame) map[string]float64 {
	out := make(map[string]float64, len(f.Nodes))
	for _, n := range f.Nodes {
		out[n.ID] = n.Radius
	}
	return out
}

func renderPNG(path string, l layoutResult) error {
	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(8, 8, float64(l.Width)-16, headerHeight-16, 10)
	dc.Fill()
	dc.SetFontFace(basicfont.Face7x13)
	drawSummaryBlock(dc, l)
	drawLegend(dc, l)

	r := radii(l.Frame)
	for _, e := range l.Frame.Edges {
		x1, y1, x2, y2, ux, uy, ok := edgeEnds(e, r[e.Target])
		if !ok {
			continue
		}
		c := parseColor(e.Color)
		dc.SetColor(c)
		dc.SetLineWidth(1.5)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
		drawArrow(dc, x2, y2, ux, uy)
	}

	for _, n := range l.Frame.Nodes {
		x, y := n.Pos.X, n.Pos.Y+headerHeight
		dc.SetColor(parseColor(n.Color))
		dc.DrawCircle(x, y, n.Radius)
		dc.Fill()
		if n.ID == l.Frame.Hovered {
			dc.SetColor(colorHover)
			dc.SetLineWidth(2)
			dc.DrawCircle(x, y, n.Radius+2)
			dc.Stroke()
		}
		if n.Label != "" && !n.Gray {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(truncate(n.Label, 24), x+n.Radius+4, y, 0, 0.5)
		}
	}

	if len(l.Frame.Path) > 1 {
		dc.SetColor(colorPath)
		dc.SetLineWidth(1)
		dc.SetDash(4, 3)
		for i, p := range l.Frame.Path {
			if i == 0 {
				dc.MoveTo(p.X, p.Y+headerHeight)
				continue
			}
			dc.LineTo(p.X, p.Y+headerHeight)
		}
		dc.Stroke()
		dc.SetDash()
	}

	return dc.SavePNG(path)
}

func drawArrow(dc *gg.Context, x, y, ux, uy float64) {
	// Perpendicular of the edge direction.
	px, py := -uy, ux
	bx, by := x-ux*arrowLen, y-uy*arrowLen
	dc.NewSubPath()
	dc.MoveTo(x, y)
	dc.LineTo(bx+px*3.5, by+py*3.5)
	dc.LineTo(bx-px*3.5, by-py*3.5)
	dc.ClosePath()
	dc.Fill()
}

func drawSummaryBlock(dc *gg.Context, l layoutResult) {
	dc.SetColor(colorText)
	dc.DrawStringAnchored(l.Title, 24, 28, 0, 0.5)
	dc.SetColor(colorSubtle)
	if l.Source != "" {
		dc.DrawStringAnchored(fmt.Sprintf("source: %s", truncate(l.Source, 60)), 24, 46, 0, 0.5)
	}
	dc.DrawStringAnchored(fmt.Sprintf("nodes: %d  edges: %d  zoom: %.2f", l.NodeCount, l.EdgeCount, l.Zoom), 24, 64, 0, 0.5)
}

func legendBox(l layoutResult) (x, y, w, h float64) {
	w = 180
	h = 24 + 16*float64(min(len(l.Legend), 3))
	return float64(l.Width) - w - 16, 12, w, h
}

// drawLegend shows at most three types; the header has no room for more.
func drawLegend(dc *gg.Context, l layoutResult) {
	if len(l.Legend) == 0 {
		return
	}
	x, y, w, h := legendBox(l)
	dc.SetColor(colorLegendBG)
	dc.DrawRoundedRectangle(x, y, w, h, 8)
	dc.Fill()
	for i, e := range legendRows(l.Legend) {
		drawLegendRow(dc, x+10, y+18+16*float64(i), parseColor(e.Color), e.Name)
	}
}

func legendRows(entries []LegendEntry) []LegendEntry {
	rows := make([]LegendEntry, 0, 3)
	for i, e := range entries {
		if i == 2 && len(entries) > 3 {
			rows = append(rows, LegendEntry{Name: fmt.Sprintf("+%d more", len(entries)-2), Color: model.GrayColor})
			break
		}
		if e.Hidden {
			e.Name += " (hidden)"
		}
		rows = append(rows, e)
	}
	return rows
}

func drawLegendRow(dc *gg.Context, x, y float64, c color.RGBA, label string) {
	dc.SetColor(c)
	dc.DrawCircle(x+6, y, 6)
	dc.Fill()
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(truncate(label, 20), x+18, y, 0, 0.5)
}

func renderSVG(w io.Writer, l layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(l.Width, l.Height)
	canvas.Rect(0, 0, l.Width, l.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(8, 8, l.Width-16, int(headerHeight-16), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	drawSummaryBlockSVG(canvas, l)
	drawLegendSVG(canvas, l)

	r := radii(l.Frame)
	for _, e := range l.Frame.Edges {
		x1, y1, x2, y2, ux, uy, ok := edgeEnds(e, r[e.Target])
		if !ok {
			continue
		}
		c := css(parseColor(e.Color))
		canvas.Line(int(x1), int(y1), int(x2), int(y2), fmt.Sprintf("stroke:%s;stroke-width:1.5", c))
		px, py := -uy, ux
		bx, by := x2-ux*arrowLen, y2-uy*arrowLen
		canvas.Polygon(
			[]int{int(x2), int(bx + px*3.5), int(bx - px*3.5)},
			[]int{int(y2), int(by + py*3.5), int(by - py*3.5)},
			fmt.Sprintf("fill:%s", c),
		)
	}

	for _, n := range l.Frame.Nodes {
		x, y := int(n.Pos.X), int(n.Pos.Y+headerHeight)
		rad := int(math.Max(1, math.Round(n.Radius)))
		style := fmt.Sprintf("fill:%s", css(parseColor(n.Color)))
		if n.ID == l.Frame.Hovered {
			style += fmt.Sprintf(";stroke:%s;stroke-width:2", css(colorHover))
		}
		canvas.Circle(x, y, rad, style)
		if n.Label != "" && !n.Gray {
			canvas.Text(x+rad+4, y+4, truncate(n.Label, 24), fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorText)))
		}
	}

	if len(l.Frame.Path) > 1 {
		xs := make([]int, len(l.Frame.Path))
		ys := make([]int, len(l.Frame.Path))
		for i, p := range l.Frame.Path {
			xs[i], ys[i] = int(p.X), int(p.Y+headerHeight)
		}
		canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-dasharray:4,3", css(colorPath)))
	}

	canvas.End()
	return nil
}

func drawSummaryBlockSVG(canvas *svg.SVG, l layoutResult) {
	canvas.Text(24, 32, l.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	if l.Source != "" {
		canvas.Text(24, 50, fmt.Sprintf("source: %s", truncate(l.Source, 60)), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
	canvas.Text(24, 68, fmt.Sprintf("nodes: %d  edges: %d  zoom: %.2f", l.NodeCount, l.EdgeCount, l.Zoom), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
}

func drawLegendSVG(canvas *svg.SVG, l layoutResult) {
	if len(l.Legend) == 0 {
		return
	}
	x, y, w, h := legendBox(l)
	canvas.Roundrect(int(x), int(y), int(w), int(h), 8, 8, fmt.Sprintf("fill:%s", css(colorLegendBG)))
	for i, e := range legendRows(l.Legend) {
		ry := int(y) + 18 + 16*i
		canvas.Circle(int(x)+16, ry, 6, fmt.Sprintf("fill:%s", css(parseColor(e.Color))))
		canvas.Text(int(x)+28, ry+4, truncate(e.Name, 20), fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
