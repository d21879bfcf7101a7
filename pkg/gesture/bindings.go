package gesture

import "strings"

// Binding is the set of pointer handlers currently attached. Bindings
// change only when the machine enters a state or switches tools, so a
// handler is never attached twice.
type Binding uint8

const (
	// BindCamera lets stage drags pan and the wheel zoom.
	BindCamera Binding = 1 << iota
	// BindHover tracks the node under the pointer.
	BindHover
	// BindStageDown turns a press on empty stage into a stage click.
	BindStageDown
	// BindNodeDown turns a press on the overed node into a node press.
	BindNodeDown
)

// Has reports whether every binding in b2 is set.
func (b Binding) Has(b2 Binding) bool { return b&b2 == b2 }

func (b Binding) String() string {
	var parts []string
	for _, x := range []struct {
		bit  Binding
		name string
	}{
		{BindCamera, "camera"},
		{BindHover, "hover"},
		{BindStageDown, "stage-down"},
		{BindNodeDown, "node-down"},
	} {
		if b.Has(x.bit) {
			parts = append(parts, x.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// bindingsFor derives the handler set for a state and tool.
func bindingsFor(s State, t Tool) Binding {
	var b Binding
	if !t.Area() {
		b |= BindCamera | BindHover
	}
	switch s {
	case Idle:
		if !t.capturesNodeClicks() {
			b |= BindStageDown
		}
	case OverNode:
		b |= BindNodeDown
	case PressingNode, DraggingNode:
		// Hover is frozen on the pressed node until release.
		b &^= BindHover
	case DraggingStage:
		b &^= BindHover
	case AreaSelecting:
		b = 0
	}
	return b
}
