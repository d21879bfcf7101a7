// Package ui is the terminal host of a graph view. It maps mouse and keys to
// view operations, drives the view's clock from a frame tick and draws each
// frame as colored characters.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphlens/internal/datasource"
	"github.com/vanderheijden86/graphlens/pkg/debug"
	"github.com/vanderheijden86/graphlens/pkg/export"
	"github.com/vanderheijden86/graphlens/pkg/gesture"
	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/hostapi"
	"github.com/vanderheijden86/graphlens/pkg/layout"
	"github.com/vanderheijden86/graphlens/pkg/loop"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/view"
	"github.com/vanderheijden86/graphlens/pkg/watcher"
)

const (
	// LegendBox is the box layout key of the side panel.
	LegendBox = "legend"

	panelWidth    = 30
	minPanelTotal = 70 // terminals narrower than this get no side panel
	noticeTTL     = 5 * time.Second
	panStep       = 6 * cellWidth
	maxInfoProps  = 6
)

// Options configures the terminal host.
type Options struct {
	Title  string
	Config view.Config
	Host   hostapi.Host
	Logger *log.Logger
	// Boxes is the saved side panel layout.
	Boxes hostapi.BoxLayout

	// Source enables live reload when it names a file.
	Source      datasource.DataSource
	LoadOptions datasource.Options
	// Prepare runs on every reloaded payload before it is mounted.
	Prepare func(ctx context.Context, p *model.Payload) error

	ShowHelp  bool
	FrameRate int
	ExportDir string
}

// FileChangedMsg is sent when the payload file changes on disk
type FileChangedMsg struct{}

type frameMsg time.Time

type reloadMsg struct {
	payload *model.Payload
	err     error
}

type exportMsg struct {
	path string
	err  error
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

var sortKeys = []layout.SortKey{
	{By: layout.SortNone},
	{By: layout.SortType},
	{By: layout.SortTotalDegree, Desc: true},
	{By: layout.SortInDegree, Desc: true},
	{By: layout.SortOutDegree, Desc: true},
}

// Model is the bubbletea model of the viewer.
type Model struct {
	opts  Options
	theme Theme
	keys  keyMap
	help  help.Model

	search    textinput.Model
	searching bool
	form      *nodeForm

	clock   *loop.Manual
	ctrl    *view.Controller
	unsub   func()
	payload *model.Payload
	boxes   hostapi.BoxLayout
	watcher *watcher.Watcher

	width  int
	height int

	status    string
	statusErr bool
	statusAt  time.Time
	nodeInfo  string
	sortIdx   int
	startedAt time.Time
	running   bool
	closed    bool
}

// New mounts p and starts its simulation. The model owns the view from
// here on; call Close once the program exits.
func New(p *model.Payload, opts Options) (*Model, error) {
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30
	}
	if opts.Host == nil {
		opts.Host = hostapi.Nop{}
	}
	if opts.Title == "" {
		opts.Title = "graphlens"
	}

	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search nodes"
	search.CharLimit = 200

	h := help.New()
	h.ShowAll = opts.ShowHelp

	m := &Model{
		opts:   opts,
		theme:  DefaultTheme(lipgloss.DefaultRenderer()),
		keys:   defaultKeyMap(),
		help:   h,
		search: search,
		clock:  loop.NewManual(time.Now()),
		boxes:  cloneBoxes(opts.Boxes),
	}
	if err := m.mount(p); err != nil {
		return nil, err
	}

	if opts.Source.IsFile() {
		w, err := watcher.NewWatcher(opts.Source.Path,
			watcher.WithDebounceDuration(200*time.Millisecond),
		)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			m.setStatus(fmt.Sprintf("Live reload unavailable: %v", err), true)
		} else {
			m.watcher = w
		}
	}
	return m, nil
}

// Controller returns the mounted view.
func (m *Model) Controller() *view.Controller { return m.ctrl }

// Close stops live reload and unmounts the view.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	if m.watcher != nil {
		m.watcher.Stop()
	}
	if m.unsub != nil {
		m.unsub()
	}
	m.ctrl.Close()
}

func (m *Model) mount(p *model.Payload) error {
	store, err := graphstore.New(p, graphstore.WithLogger(m.opts.Logger))
	if err != nil {
		return err
	}
	if m.ctrl != nil {
		m.unsub()
		m.ctrl.Close()
	}
	cfg := m.opts.Config
	if cols, rows := m.canvasSize(); cols > 0 && rows > 0 {
		cfg.Viewport.Width = float64(cols) * cellWidth
		cfg.Viewport.Height = float64(rows) * cellHeight
	}
	m.ctrl = view.New(store, m.clock, cfg, view.WithHost(m.opts.Host), view.WithLogger(m.opts.Logger))
	m.unsub = m.ctrl.Subscribe(m.onEvent)
	m.ctrl.RestoreBoxLayout(m.boxes)
	m.payload = p
	m.nodeInfo = ""
	m.ctrl.Start()
	return nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.frameCmd()}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m *Model) frameCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.opts.FrameRate), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.form != nil {
		if cmd, ok := m.updateForm(msg); ok {
			m.clock.RunPending()
			return m, cmd
		}
	}

	switch msg := msg.(type) {
	case frameMsg:
		m.clock.AdvanceTo(time.Time(msg))
		if !m.closed {
			cmds = append(cmds, m.frameCmd())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		if cmd := m.handleKey(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case FileChangedMsg:
		debug.Log("reload: file change detected path=%s", m.opts.Source.Path)
		cmds = append(cmds, m.reloadCmd())
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case reloadMsg:
		m.applyReload(msg)

	case exportMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Export failed: %v", msg.err), true)
		} else {
			m.setStatus("Exported "+msg.path, false)
		}
	}

	m.clock.RunPending()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.searching {
		switch msg.String() {
		case "enter":
			terms := strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			if terms != "" {
				m.ctrl.Search(terms)
				m.setStatus(fmt.Sprintf("Searching %q", terms), false)
			}
			return nil
		case "esc":
			m.searching = false
			m.search.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return cmd
	}

	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.Close()
		return tea.Quit
	case key.Matches(msg, k.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
	case key.Matches(msg, k.Pause):
		m.ctrl.TogglePause()
	case key.Matches(msg, k.Stop):
		m.ctrl.Stop()
	case key.Matches(msg, k.Rectangle):
		m.engage(gesture.ToolRectangle)
	case key.Matches(msg, k.Freehand):
		m.engage(gesture.ToolFreehand)
	case key.Matches(msg, k.Click):
		m.engage(gesture.ToolClick)
	case key.Matches(msg, k.Neighborhood):
		m.engage(gesture.ToolNeighborhood)
	case key.Matches(msg, k.Move):
		m.engage(gesture.ToolMove)
	case key.Matches(msg, k.Apply):
		m.ctrl.ApplySelection()
	case key.Matches(msg, k.Clear):
		m.ctrl.ClearSelection()
	case key.Matches(msg, k.Grid):
		m.ctrl.ApplyLayout(layout.GridLayout, sortKeys[m.sortIdx])
	case key.Matches(msg, k.Circular):
		m.ctrl.ApplyLayout(layout.CircularLayout, sortKeys[m.sortIdx])
	case key.Matches(msg, k.SortKey):
		m.sortIdx = (m.sortIdx + 1) % len(sortKeys)
		m.setStatus("Layout order: "+sortKeyName(sortKeys[m.sortIdx]), false)
	case key.Matches(msg, k.ZoomIn):
		m.ctrl.ZoomButton(true)
	case key.Matches(msg, k.ZoomOut):
		m.ctrl.ZoomButton(false)
	case key.Matches(msg, k.Recenter):
		m.ctrl.Recenter()
	case key.Matches(msg, k.PanUp):
		m.ctrl.Pan(r2.Vec{Y: panStep})
	case key.Matches(msg, k.PanDown):
		m.ctrl.Pan(r2.Vec{Y: -panStep})
	case key.Matches(msg, k.PanLeft):
		m.ctrl.Pan(r2.Vec{X: panStep})
	case key.Matches(msg, k.PanRight):
		m.ctrl.Pan(r2.Vec{X: -panStep})
	case key.Matches(msg, k.SizeMode):
		next := (m.ctrl.SizeMode() + 1) % 4
		m.ctrl.SetSizeMode(next)
		m.setStatus("Node size: "+next.String(), false)
	case key.Matches(msg, k.DrawHidden):
		m.opts.Config.Layout.DrawHidden = !m.opts.Config.Layout.DrawHidden
		m.ctrl.SetDrawHidden(m.opts.Config.Layout.DrawHidden)
	case key.Matches(msg, k.HideType):
		m.toggleNodeType(int(msg.Runes[0] - '1'))
	case key.Matches(msg, k.Legend):
		m.toggleLegend()
	case key.Matches(msg, k.Search):
		m.searching = true
		m.search.SetValue("")
		return m.search.Focus()
	case key.Matches(msg, k.Export):
		return m.exportCmd()
	case key.Matches(msg, k.AddNode):
		return m.openNodeForm()
	case key.Matches(msg, k.RemoveNode):
		m.removeNode()
	case key.Matches(msg, k.Copy):
		m.copyNodeID()
	}
	return nil
}

func (m *Model) engage(t gesture.Tool) {
	if err := m.ctrl.Engage(t); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) toggleNodeType(i int) {
	types := m.ctrl.Store().NodeTypes()
	if i < 0 || i >= len(types) {
		return
	}
	id := types[i].ID
	hidden := !m.ctrl.Store().NodeTypeHidden(id)
	if err := m.ctrl.SetNodeTypeHidden(id, hidden); err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) legendCollapsed() bool {
	return m.boxes.Boxes[LegendBox].Collapsed
}

func (m *Model) toggleLegend() {
	b := m.boxes.Boxes[LegendBox]
	b.Collapsed = !b.Collapsed
	if m.boxes.Boxes == nil {
		m.boxes.Boxes = make(map[string]hostapi.BoxPosition)
	}
	m.boxes.Boxes[LegendBox] = b
	m.ctrl.SaveBoxLayout(m.boxes)
}

// pointer maps a mouse cell to an engine pixel. A visible node drawn in the
// cell wins over the cell center so nodes stay clickable at any zoom.
func (m *Model) pointer(x, y int) (r2.Vec, bool) {
	cols, rows := m.canvasSize()
	cy := y - headerRows
	if x < 0 || cy < 0 || x >= cols || cy >= rows {
		return r2.Vec{}, false
	}
	f := m.ctrl.Frame()
	for i := len(f.Nodes) - 1; i >= 0; i-- {
		nx, ny := cellAt(f.Nodes[i].Pos)
		if nx == x && ny == cy {
			return f.Nodes[i].Pos, true
		}
	}
	return pixelAt(x, cy), true
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	pos, inside := m.pointer(msg.X, msg.Y)
	switch {
	case msg.Button == tea.MouseButtonWheelUp && inside:
		m.ctrl.Wheel(pos, 1)
	case msg.Button == tea.MouseButtonWheelDown && inside:
		m.ctrl.Wheel(pos, -1)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inside:
		m.ctrl.PointerDown(pos)
	case msg.Action == tea.MouseActionRelease:
		if inside {
			m.ctrl.PointerUp(pos)
		} else {
			m.ctrl.PointerLeave()
		}
	case msg.Action == tea.MouseActionMotion:
		if inside {
			m.ctrl.PointerMove(pos)
		} else {
			m.ctrl.PointerLeave()
		}
	}
}

func (m *Model) onEvent(ev view.Event) {
	switch ev.Kind {
	case view.EventNotice:
		m.setStatus(ev.Message, true)
	case view.EventEntireGraph:
		m.setStatus("Entire graph selected", false)
	case view.EventSubgraph:
		m.setStatus(fmt.Sprintf("%d nodes selected", len(ev.NodeIDs)), false)
	case view.EventNodeInfo:
		m.nodeInfo = ev.NodeID
	case view.EventNodeInfoCleared:
		m.nodeInfo = ""
	case view.EventSimulation:
		m.running = ev.Message == "started"
		if m.running {
			m.startedAt = m.clock.Now()
		}
		debug.Log("simulation %s", ev.Message)
	case view.EventLayout:
		m.running = false
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
	m.statusAt = m.clock.Now()
}

func (m *Model) reloadCmd() tea.Cmd {
	src := m.opts.Source
	opts := m.opts.LoadOptions
	prepare := m.opts.Prepare
	return func() tea.Msg {
		ctx := context.Background()
		p, err := datasource.Load(ctx, src, opts)
		if err == nil && prepare != nil {
			err = prepare(ctx, p)
		}
		return reloadMsg{payload: p, err: err}
	}
}

func (m *Model) applyReload(msg reloadMsg) {
	if msg.err != nil {
		m.setStatus(fmt.Sprintf("Reload failed: %v", msg.err), true)
		return
	}
	diff := datasource.DiffPayloads(m.payload, msg.payload, "current", "disk", datasource.DiffOptions{})
	debug.Log("reload: %s", diff.Summary())
	if !diff.HasChanges() {
		m.setStatus("Reloaded: no changes", false)
		return
	}
	if err := m.mount(msg.payload); err != nil {
		m.setStatus(fmt.Sprintf("Reload failed: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Reloaded: +%d/-%d nodes, +%d/-%d edges",
		len(diff.AddedNodes), len(diff.RemovedNodes), len(diff.AddedEdges), len(diff.RemovedEdges)), false)
}

func (m *Model) exportCmd() tea.Cmd {
	name := fmt.Sprintf("graphlens-%s.svg", m.clock.Now().Format("20060102-150405"))
	opts := export.SnapshotOptions{
		Path:   filepath.Join(m.opts.ExportDir, name),
		Title:  m.opts.Title,
		Source: m.opts.Source.Path,
		Frame:  m.ctrl.Frame(),
		Legend: export.Legend(m.ctrl.Store()),
	}
	return func() tea.Msg {
		return exportMsg{path: opts.Path, err: export.SaveSnapshot(opts)}
	}
}

const (
	headerRows = 1
	statusRows = 1
)

// canvasSize returns the drawing area in cells.
func (m *Model) canvasSize() (cols, rows int) {
	if m.width <= 0 || m.height <= 0 {
		return 0, 0
	}
	cols = m.width
	if m.width >= minPanelTotal {
		cols -= panelWidth
	}
	rows = m.height - headerRows - statusRows - lipgloss.Height(m.help.View(m.keys))
	if rows < 1 {
		rows = 1
	}
	return cols, rows
}

func (m *Model) resize() {
	cols, rows := m.canvasSize()
	if cols > 0 && rows > 0 {
		m.ctrl.Resize(float64(cols)*cellWidth, float64(rows)*cellHeight)
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return "Initializing..."
	}
	cols, rows := m.canvasSize()

	var body string
	if m.form != nil {
		body = lipgloss.Place(m.width, rows, lipgloss.Center, lipgloss.Center,
			m.theme.Panel.Render(m.theme.PanelHead.Render("Add node")+"\n\n"+m.form.form.View()))
	} else {
		c := newCanvas(cols, rows)
		c.draw(m.ctrl.Frame(), true)
		body = c.render(&m.theme)
		if cols < m.width {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.panel(rows))
		}
	}

	return strings.Join([]string{m.header(), body, m.statusLine(), m.help.View(m.keys)}, "\n")
}

func (m *Model) header() string {
	store := m.ctrl.Store()
	parts := []string{
		m.opts.Title,
		fmt.Sprintf("%d nodes, %d edges", store.Len(), store.EdgeLen()),
		m.ctrl.Engine().Mode().String(),
	}
	if t := m.ctrl.Gestures().Tool(); t != gesture.ToolNone {
		parts = append(parts, "tool: "+t.String())
	}
	if d, armed := m.ctrl.AutoStop(); armed && m.running {
		parts = append(parts, "auto-stop in "+formatDuration(d-m.clock.Now().Sub(m.startedAt)))
	}
	return m.theme.Header.Render(truncateRunesHelper(strings.Join(parts, " · "), m.width, "…"))
}

func (m *Model) statusLine() string {
	if m.searching {
		return m.search.View()
	}
	if m.status == "" || m.clock.Now().Sub(m.statusAt) > noticeTTL {
		return ""
	}
	if m.statusErr {
		return m.theme.StatusErr.Render(truncateRunesHelper(m.status, m.width, "…"))
	}
	return m.theme.Status.Render(truncateRunesHelper(m.status, m.width, "…"))
}

// panel renders the legend and node info beside the canvas.
func (m *Model) panel(rows int) string {
	inner := panelWidth - 4 // border and padding
	var lines []string

	store := m.ctrl.Store()
	if m.legendCollapsed() {
		lines = append(lines, m.theme.PanelHead.Render("Legend ▸"))
	} else {
		lines = append(lines, m.theme.PanelHead.Render("Legend ▾"))
		for i, t := range store.NodeTypes() {
			name := t.Name
			if store.NodeTypeHidden(t.ID) {
				name += " (hidden)"
			}
			prefix := "  "
			if i < 9 {
				prefix = fmt.Sprintf("%d ", i+1)
			}
			lines = append(lines, prefix+m.theme.Fg(t.Color).Render("●")+" "+padRight(name, inner-4))
		}
		for _, t := range store.EdgeTypes() {
			lines = append(lines, "  "+m.theme.Fg(t.Color).Render("─")+" "+padRight(t.Name, inner-4))
		}
	}

	if info := m.nodeInfoLines(inner); len(info) > 0 {
		lines = append(lines, "")
		lines = append(lines, info...)
	}

	if limit := rows - 2; limit > 0 && len(lines) > limit {
		lines = lines[:limit]
	}
	return m.theme.Panel.Width(panelWidth - 2).Render(strings.Join(lines, "\n"))
}

func (m *Model) nodeInfoLines(width int) []string {
	if m.nodeInfo == "" {
		return nil
	}
	store := m.ctrl.Store()
	n, ok := store.Node(m.nodeInfo)
	if !ok {
		return nil
	}
	lines := []string{m.theme.PanelHead.Render(truncateRunesHelper(nodeTitle(n), width, "…"))}
	if t, ok := store.NodeType(n.TypeID); ok {
		lines = append(lines, padRight("type: "+t.Name, width))
	}
	if d, err := store.Degree(n.ID); err == nil {
		lines = append(lines, padRight(fmt.Sprintf("in %d · out %d · total %d", d.In, d.Out, d.Total), width))
	}
	keys := make([]string, 0, len(n.Properties))
	for k := range n.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i == maxInfoProps {
			lines = append(lines, m.theme.MutedText.Render(fmt.Sprintf("+%d more", len(keys)-i)))
			break
		}
		lines = append(lines, padRight(fmt.Sprintf("%s: %v", k, n.Properties[k]), width))
	}
	return lines
}

func nodeTitle(n *model.Node) string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

func sortKeyName(k layout.SortKey) string {
	if k.By == layout.SortNone {
		return "payload order"
	}
	if k.Desc {
		return k.By.String() + " desc"
	}
	return k.By.String()
}

func cloneBoxes(l hostapi.BoxLayout) hostapi.BoxLayout {
	out := hostapi.BoxLayout{Boxes: make(map[string]hostapi.BoxPosition, len(l.Boxes))}
	for k, v := range l.Boxes {
		out.Boxes[k] = v
	}
	return out
}
