package ui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/graphlens/pkg/graphstore"
	"github.com/vanderheijden86/graphlens/pkg/model"
)

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

// nodeForm asks for the type and label of a node added from the keyboard.
type nodeForm struct {
	form   *huh.Form
	typeID string
	label  string
}

func newNodeForm(store *graphstore.Store) *nodeForm {
	f := &nodeForm{}
	var opts []huh.Option[string]
	for _, t := range store.NodeTypes() {
		name := t.Name
		if name == "" {
			name = t.ID
		}
		opts = append(opts, huh.NewOption(name, t.ID))
	}
	if len(opts) > 0 {
		f.typeID = opts[0].Value
	}
	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Node type").
				Options(opts...).
				Value(&f.typeID),
			huh.NewInput().
				Title("Label").
				Placeholder("optional").
				CharLimit(200).
				Value(&f.label),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false).WithWidth(2 * panelWidth)
	return f
}

func (m *Model) openNodeForm() tea.Cmd {
	if len(m.ctrl.Store().NodeTypes()) == 0 {
		m.setStatus("No node types to add a node of", true)
		return nil
	}
	m.form = newNodeForm(m.ctrl.Store())
	return m.form.form.Init()
}

// updateForm routes msg to the open node form. It reports false for
// messages the viewer must keep handling, such as frame ticks.
func (m *Model) updateForm(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case frameMsg, tea.WindowSizeMsg, FileChangedMsg, reloadMsg, exportMsg:
		return nil, false
	case tea.MouseMsg:
		return nil, true
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			m.form = nil
			m.setStatus("Add node cancelled", false)
			return nil, true
		}
	}

	next, cmd := m.form.form.Update(msg)
	if f, ok := next.(*huh.Form); ok {
		m.form.form = f
	}
	switch m.form.form.State {
	case huh.StateCompleted:
		m.submitNode()
		return nil, true
	case huh.StateAborted:
		m.form = nil
		return nil, true
	}
	return cmd, true
}

func (m *Model) submitNode() {
	f := m.form
	m.form = nil
	id, err := m.ctrl.AddNode(model.Node{TypeID: f.typeID, Label: strings.TrimSpace(f.label)}, nil, false)
	if err != nil {
		m.setStatus(fmt.Sprintf("Add node failed: %v", err), true)
		return
	}
	m.nodeInfo = id
	m.setStatus("Added node "+id, false)
}

// removeNode deletes the node shown in the info panel.
func (m *Model) removeNode() {
	if m.nodeInfo == "" {
		m.setStatus("Pick a node with the click tool first", true)
		return
	}
	id := m.nodeInfo
	if err := m.ctrl.RemoveNode(id, false); err != nil {
		m.setStatus(fmt.Sprintf("Remove failed: %v", err), true)
		return
	}
	m.nodeInfo = ""
	m.setStatus("Removed node "+id, false)
}

// copyNodeID puts the id of the node in the info panel, or else the hovered
// node, on the clipboard.
func (m *Model) copyNodeID() {
	id := m.nodeInfo
	if id == "" {
		id = m.ctrl.Frame().Hovered
	}
	if id == "" {
		m.setStatus("No node to copy", true)
		return
	}
	if err := writeClipboard(id); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus("Copied "+id+" to clipboard", false)
}
