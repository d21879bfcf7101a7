package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap lists every key binding of the viewer. It implements help.KeyMap.
type keyMap struct {
	Pause        key.Binding
	Stop         key.Binding
	Rectangle    key.Binding
	Freehand     key.Binding
	Click        key.Binding
	Neighborhood key.Binding
	Move         key.Binding
	Apply        key.Binding
	Clear        key.Binding
	Grid         key.Binding
	Circular     key.Binding
	SortKey      key.Binding
	ZoomIn       key.Binding
	ZoomOut      key.Binding
	Recenter     key.Binding
	PanUp        key.Binding
	PanDown      key.Binding
	PanLeft      key.Binding
	PanRight     key.Binding
	SizeMode     key.Binding
	DrawHidden   key.Binding
	HideType     key.Binding
	Legend       key.Binding
	Search       key.Binding
	Export       key.Binding
	AddNode      key.Binding
	RemoveNode   key.Binding
	Copy         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Pause:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "pause/resume")),
		Stop:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop layout")),
		Rectangle:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rectangle select")),
		Freehand:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "freehand select")),
		Click:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "click select")),
		Neighborhood: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "neighborhood")),
		Move:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move selected")),
		Apply:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply selection")),
		Clear:        key.NewBinding(key.WithKeys("esc", "x"), key.WithHelp("esc", "clear selection")),
		Grid:         key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "grid layout")),
		Circular:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "circular layout")),
		SortKey:      key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "cycle sort key")),
		ZoomIn:       key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Recenter:     key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "recenter")),
		PanUp:        key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "pan")),
		PanDown:      key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "pan")),
		PanLeft:      key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "pan")),
		PanRight:     key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "pan")),
		SizeMode:     key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "node size mode")),
		DrawHidden:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "lay out hidden")),
		HideType:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "toggle node type")),
		Legend:       key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "collapse legend")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Export:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export svg")),
		AddNode:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add node")),
		RemoveNode:   key.NewBinding(key.WithKeys("delete"), key.WithHelp("del", "remove node")),
		Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy node id")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Rectangle, k.Click, k.Search, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Stop, k.Grid, k.Circular, k.SortKey, k.SizeMode, k.DrawHidden},
		{k.Rectangle, k.Freehand, k.Click, k.Neighborhood, k.Move, k.Apply, k.Clear},
		{k.ZoomIn, k.ZoomOut, k.Recenter, k.PanUp, k.PanDown, k.PanLeft, k.PanRight},
		{k.HideType, k.Legend, k.Search, k.Export, k.Help, k.Quit},
		{k.AddNode, k.RemoveNode, k.Copy},
	}
}
