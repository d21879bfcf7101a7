package gesture

import "fmt"

// Tool is a selection tool. At most one is engaged at a time.
type Tool int

const (
	ToolNone Tool = iota
	ToolRectangle
	ToolFreehand
	ToolClick
	ToolNeighborhood
	ToolMove
)

var toolNames = []string{"none", "rectangle", "freehand", "click", "neighborhood", "move"}

func (t Tool) String() string {
	if int(t) < len(toolNames) {
		return toolNames[t]
	}
	return fmt.Sprintf("tool(%d)", int(t))
}

// ParseTool parses a tool name as printed by String.
func ParseTool(s string) (Tool, error) {
	for i, name := range toolNames {
		if name == s {
			return Tool(i), nil
		}
	}
	return ToolNone, fmt.Errorf("unknown tool %q", s)
}

// Area reports whether the tool draws a selection path.
func (t Tool) Area() bool {
	return t == ToolRectangle || t == ToolFreehand
}

// OneShot reports whether the tool disengages after one selection.
func (t Tool) OneShot() bool {
	return t.Area() || t == ToolNeighborhood
}

// capturesNodeClicks reports whether plain stage clicks are left alone
// while the tool is engaged.
func (t Tool) capturesNodeClicks() bool {
	return t == ToolClick || t == ToolNeighborhood || t == ToolMove
}

// Features gates the optional tools and behaviors.
type Features struct {
	Freehand     bool
	Neighborhood bool
	MoveSelected bool
	NodeInfo     bool
}

// AllFeatures enables everything.
func AllFeatures() Features {
	return Features{Freehand: true, Neighborhood: true, MoveSelected: true, NodeInfo: true}
}

func (f Features) allows(t Tool) bool {
	switch t {
	case ToolFreehand:
		return f.Freehand
	case ToolNeighborhood:
		return f.Neighborhood
	case ToolMove:
		return f.MoveSelected
	}
	return true
}
