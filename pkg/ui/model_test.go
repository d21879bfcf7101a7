package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/graphlens/internal/datasource"
	"github.com/vanderheijden86/graphlens/pkg/gesture"
	"github.com/vanderheijden86/graphlens/pkg/hostapi"
	"github.com/vanderheijden86/graphlens/pkg/layout"
	"github.com/vanderheijden86/graphlens/pkg/model"
	"github.com/vanderheijden86/graphlens/pkg/testutil"
	"github.com/vanderheijden86/graphlens/pkg/view"
)

type fakeHost struct {
	mu      sync.Mutex
	results []string
	queries []hostapi.Query
	boxes   []hostapi.BoxLayout
}

func (h *fakeHost) PersistTypeColor(context.Context, hostapi.TypeColor) error            { return nil }
func (h *fakeHost) PersistEveryEdgeTypeColor(context.Context, []hostapi.TypeColor) error { return nil }

func (h *fakeHost) PersistSelectionQuery(_ context.Context, q hostapi.Query) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queries = append(h.queries, q)
	return h.results, nil
}

func (h *fakeHost) PersistBoxLayout(_ context.Context, l hostapi.BoxLayout) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.boxes = append(h.boxes, l)
	return nil
}

func newTestModel(t *testing.T, p *model.Payload, opts Options) *Model {
	t.Helper()
	m, err := New(p, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// advance moves the model's clock d past its current time.
func advance(m *Model, d time.Duration) {
	m.Update(frameMsg(m.clock.Now().Add(d)))
}

func TestNewStartsSimulation(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{Title: "scenario"})

	if !m.Controller().Engine().Running() {
		t.Fatal("expected the force layout to run after New")
	}
	out := m.View()
	for _, want := range []string{"scenario", "4 nodes, 2 edges", "force-running", "Legend"} {
		if !strings.Contains(out, want) {
			t.Errorf("view lacks %q:\n%s", want, out)
		}
	}
}

func TestViewBeforeSize(t *testing.T) {
	m, err := New(testutil.Scenario(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if got := m.View(); got != "Initializing..." {
		t.Errorf("View = %q", got)
	}
}

func TestNewRejectsInvalidPayload(t *testing.T) {
	p := testutil.Scenario()
	p.Edges[0].Target = "missing"
	if _, err := New(p, Options{}); err == nil {
		t.Fatal("expected an error for a dangling edge")
	}
}

func TestPauseAndStopKeys(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	ctrl := m.Controller()

	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if ctrl.Engine().Running() {
		t.Fatal("space should pause the simulation")
	}
	m.Update(tea.KeyMsg{Type: tea.KeySpace})
	if !ctrl.Engine().Running() {
		t.Fatal("space should resume the simulation")
	}
	m.Update(runes("s"))
	if ctrl.Engine().Running() {
		t.Fatal("s should stop the simulation")
	}
	if _, armed := ctrl.AutoStop(); armed {
		t.Error("stop should cancel the auto-stop timer")
	}
}

func TestToolKeysToggle(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	g := m.Controller().Gestures()

	m.Update(runes("r"))
	if g.Tool() != gesture.ToolRectangle {
		t.Fatalf("tool = %v, want rectangle", g.Tool())
	}
	m.Update(runes("r"))
	if g.Tool() != gesture.ToolNone {
		t.Fatalf("engaging the engaged tool should disengage it, got %v", g.Tool())
	}
	m.Update(runes("c"))
	if g.Tool() != gesture.ToolClick {
		t.Fatalf("tool = %v, want click", g.Tool())
	}
	if out := m.View(); !strings.Contains(out, "tool: click") {
		t.Errorf("header lacks the engaged tool:\n%s", out)
	}
}

func TestLayoutKeys(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	ctrl := m.Controller()

	m.Update(runes("g"))
	if got := ctrl.Engine().Mode(); got != layout.StaticGrid {
		t.Fatalf("mode = %v, want grid", got)
	}
	if ctrl.Engine().Running() {
		t.Error("a static layout should stop the simulation")
	}
	m.Update(runes("k"))
	m.Update(runes("o"))
	if got := ctrl.Engine().Mode(); got != layout.StaticCircular {
		t.Fatalf("mode = %v, want circular", got)
	}
	if !strings.Contains(m.status, "type") {
		t.Errorf("status = %q, want the sort key", m.status)
	}
}

func TestClickToolSelectsNode(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	ctrl := m.Controller()
	m.Update(runes("s"))
	m.Update(runes("c"))

	pos, ok := ctrl.ScreenPos("A")
	if !ok {
		t.Fatal("node A not on screen")
	}
	x, y := cellAt(pos)
	y += headerRows
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion})
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	sel := ctrl.Selection()
	if sel.All() || sel.Len() != 1 {
		t.Fatalf("expected one selected node, got all=%v len=%d", sel.All(), sel.Len())
	}
	if !strings.Contains(m.View(), "1 nodes selected") {
		t.Error("status line should report the selection")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !sel.All() {
		t.Error("esc should clear the selection")
	}
}

func TestWheelZoomsIn(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	m.Update(tea.MouseMsg{X: 10, Y: 10, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	advance(m, time.Second)

	if r := m.Controller().Camera().Ratio; r >= 1 {
		t.Errorf("camera ratio = %v, want < 1 after zooming in", r)
	}
}

func TestWheelOutsideCanvasIgnored(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	// Column 90 lies in the side panel.
	m.Update(tea.MouseMsg{X: 90, Y: 5, Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
	advance(m, time.Second)

	if r := m.Controller().Camera().Ratio; r != 1 {
		t.Errorf("camera ratio = %v, want 1", r)
	}
}

func TestSearchRunsHostQuery(t *testing.T) {
	host := &fakeHost{results: []string{"B"}}
	m := newTestModel(t, testutil.Scenario(), Options{Host: host})

	m.Update(runes("/"))
	if !m.searching {
		t.Fatal("slash should open the search prompt")
	}
	m.Update(runes("b"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Controller().Wait()
	advance(m, 10*time.Millisecond)

	host.mu.Lock()
	queries := append([]hostapi.Query(nil), host.queries...)
	host.mu.Unlock()
	if len(queries) != 1 || queries[0].Terms != "b" {
		t.Fatalf("queries = %+v", queries)
	}
	sel := m.Controller().Selection()
	if sel.All() || !sel.Contains("B") {
		t.Errorf("selection = %v, want [B]", sel.IDs())
	}
}

func TestSearchEscapeCancels(t *testing.T) {
	host := &fakeHost{}
	m := newTestModel(t, testutil.Scenario(), Options{Host: host})

	m.Update(runes("/"))
	m.Update(runes("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m.Controller().Wait()

	if m.searching {
		t.Error("esc should close the prompt")
	}
	if len(host.queries) != 0 {
		t.Errorf("cancelled search reached the host: %+v", host.queries)
	}
}

func TestLegendToggleSavesBoxLayout(t *testing.T) {
	host := &fakeHost{}
	m := newTestModel(t, testutil.Scenario(), Options{Host: host})

	// Moves right after mounting are echoes of the restored layout.
	advance(m, time.Second)
	m.Update(runes("l"))
	m.Controller().Wait()

	host.mu.Lock()
	saved := append([]hostapi.BoxLayout(nil), host.boxes...)
	host.mu.Unlock()
	if len(saved) != 1 || !saved[0].Boxes[LegendBox].Collapsed {
		t.Fatalf("saved layouts = %+v", saved)
	}
	if !strings.Contains(m.View(), "Legend ▸") {
		t.Error("legend should render collapsed")
	}
}

func TestLegendRestoredCollapsed(t *testing.T) {
	boxes := hostapi.BoxLayout{Boxes: map[string]hostapi.BoxPosition{LegendBox: {Collapsed: true}}}
	m := newTestModel(t, testutil.Scenario(), Options{Boxes: boxes})
	if !m.legendCollapsed() {
		t.Error("expected the restored layout to collapse the legend")
	}
}

func TestHideTypeKey(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	store := m.Controller().Store()
	typeID := store.NodeTypes()[0].ID

	m.Update(runes("1"))
	if !store.NodeTypeHidden(typeID) {
		t.Fatal("1 should hide the first node type")
	}
	if !strings.Contains(m.View(), "(hidden)") {
		t.Error("legend should mark the hidden type")
	}
	m.Update(runes("1"))
	if store.NodeTypeHidden(typeID) {
		t.Error("1 again should reveal the type")
	}
	// Out of range digits are ignored.
	m.Update(runes("9"))
}

func TestSizeModeKeyCycles(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	m.Update(runes("z"))
	if got := m.Controller().SizeMode().String(); got != "total-degree" {
		t.Errorf("size mode = %s, want total-degree", got)
	}
}

func TestNodeInfoPanel(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	m.onEvent(view.Event{Kind: view.EventNodeInfo, NodeID: "B"})

	out := m.View()
	if !strings.Contains(out, "in 1 · out 1 · total 2") {
		t.Errorf("node info lacks degrees:\n%s", out)
	}
}

func TestReloadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	writePayload(t, path, testutil.Scenario())
	src, err := datasource.Parse(path)
	if err != nil {
		t.Fatal(err)
	}

	m := newTestModel(t, testutil.Scenario(), Options{Source: src})

	// Unchanged file keeps the mounted view.
	before := m.Controller()
	m.Update(m.reloadCmd()())
	if m.Controller() != before || !strings.Contains(m.status, "no changes") {
		t.Fatalf("status = %q", m.status)
	}

	writePayload(t, path, testutil.QuickChain(6))
	m.Update(m.reloadCmd()())
	if got := m.Controller().Store().Len(); got != 6 {
		t.Fatalf("reloaded store has %d nodes, want 6", got)
	}
	if !strings.HasPrefix(m.status, "Reloaded:") {
		t.Errorf("status = %q", m.status)
	}
}

func TestReloadFailureKeepsView(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	writePayload(t, path, testutil.Scenario())
	src, _ := datasource.Parse(path)
	m := newTestModel(t, testutil.Scenario(), Options{Source: src})

	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m.Update(m.reloadCmd()())
	if !m.statusErr || !strings.Contains(m.status, "Reload failed") {
		t.Errorf("status = %q (err=%v)", m.status, m.statusErr)
	}
	if m.Controller().Store().Len() != 4 {
		t.Error("failed reload replaced the view")
	}
}

func TestExportWritesSVG(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, testutil.Scenario(), Options{ExportDir: dir})

	msg := m.exportCmd()()
	em, ok := msg.(exportMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if em.err != nil {
		t.Fatalf("export: %v", em.err)
	}
	if filepath.Dir(em.path) != dir || filepath.Ext(em.path) != ".svg" {
		t.Errorf("export path = %q", em.path)
	}
	data, err := os.ReadFile(em.path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("export is not an SVG document")
	}
	m.Update(msg)
	if !strings.HasPrefix(m.status, "Exported ") {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuitClosesView(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
	if m.Controller().Engine().Running() {
		t.Error("closing should stop the simulation")
	}
}

func TestNoticeExpires(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	m.setStatus("Your changes could not be saved. Please try again.", true)
	if !strings.Contains(m.statusLine(), "could not be saved") {
		t.Fatal("notice not shown")
	}
	advance(m, noticeTTL+time.Second)
	if m.statusLine() != "" {
		t.Errorf("notice still shown: %q", m.statusLine())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{1400 * time.Millisecond, "1s"},
		{59 * time.Second, "59s"},
		{65 * time.Second, "1m05s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func writePayload(t *testing.T, path string, p *model.Payload) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := model.WritePayload(f, p); err != nil {
		t.Fatal(err)
	}
}

func TestAddNodeForm(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})

	m.Update(runes("a"))
	if m.form == nil {
		t.Fatal("a should open the node form")
	}
	if m.form.typeID != "1" {
		t.Errorf("form type = %q, want the first node type", m.form.typeID)
	}
	if !strings.Contains(m.View(), "Add node") {
		t.Error("view does not show the form")
	}
	// Frames keep flowing while the form is open.
	before := m.clock.Now()
	advance(m, time.Second)
	if !m.clock.Now().After(before) {
		t.Error("clock stalled behind the form")
	}

	m.form.label = "  Fresh  "
	m.submitNode()
	if m.form != nil {
		t.Error("form still open after submit")
	}
	if got := m.Controller().Store().Len(); got != 5 {
		t.Fatalf("store has %d nodes, want 5", got)
	}
	n, ok := m.Controller().Store().Node(m.nodeInfo)
	if !ok || n.Label != "Fresh" || n.TypeID != "1" {
		t.Errorf("added node = %+v", n)
	}
	if !strings.HasPrefix(m.status, "Added node") {
		t.Errorf("status = %q", m.status)
	}
}

func TestAddNodeFormEscape(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})
	m.Update(runes("a"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.form != nil {
		t.Fatal("esc should close the form")
	}
	if got := m.Controller().Store().Len(); got != 4 {
		t.Errorf("store has %d nodes after cancel", got)
	}
}

func TestRemoveNodeKey(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), Options{})

	m.Update(tea.KeyMsg{Type: tea.KeyDelete})
	if !m.statusErr {
		t.Error("delete without a node should warn")
	}

	m.onEvent(view.Event{Kind: view.EventNodeInfo, NodeID: "B"})
	m.Update(tea.KeyMsg{Type: tea.KeyDelete})
	if _, ok := m.Controller().Store().Node("B"); ok {
		t.Fatal("B still present")
	}
	if m.nodeInfo != "" {
		t.Error("info panel still points at the removed node")
	}
	if got := m.Controller().Store().EdgeLen(); got != 0 {
		t.Errorf("%d edges left, want 0", got)
	}
}

func TestCopyNodeID(t *testing.T) {
	saved := writeClipboard
	defer func() { writeClipboard = saved }()
	var copied string
	writeClipboard = func(s string) error {
		copied = s
		return nil
	}

	m := newTestModel(t, testutil.Scenario(), Options{})
	m.Update(runes("y"))
	if copied != "" || !m.statusErr {
		t.Errorf("copy without a node: copied %q, status %q", copied, m.status)
	}

	m.onEvent(view.Event{Kind: view.EventNodeInfo, NodeID: "C"})
	m.Update(runes("y"))
	if copied != "C" {
		t.Errorf("copied %q, want C", copied)
	}
	if m.status != "Copied C to clipboard" {
		t.Errorf("status = %q", m.status)
	}
}
