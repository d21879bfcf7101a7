package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Theme holds the styles of the terminal viewer.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor

	Header    lipgloss.Style
	Status    lipgloss.Style
	StatusErr lipgloss.Style
	Panel     lipgloss.Style
	PanelHead lipgloss.Style
	MutedText lipgloss.Style
	Lasso     lipgloss.Style

	// Per-hex foreground styles, filled lazily while drawing.
	fg map[string]lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Subtext: lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Danger:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Border:  lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Muted:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},

		fg: make(map[string]lipgloss.Style),
	}

	t.Header = r.NewStyle().Bold(true).Foreground(t.Primary)
	t.Status = r.NewStyle().Foreground(t.Subtext)
	t.StatusErr = r.NewStyle().Bold(true).Foreground(t.Danger)
	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	t.PanelHead = r.NewStyle().Bold(true).Foreground(t.Primary)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.Lasso = r.NewStyle().Foreground(t.Primary)
	return t
}

// Fg returns a style painting text in hex. Invalid colors fall back to the
// muted text style.
func (t *Theme) Fg(hex string) lipgloss.Style {
	if s, ok := t.fg[hex]; ok {
		return s
	}
	s := t.MutedText
	if c, err := colorful.Hex(hex); err == nil {
		s = t.Renderer.NewStyle().Foreground(ThemeFg(c.Hex()))
	}
	if t.fg == nil {
		t.fg = make(map[string]lipgloss.Style)
	}
	t.fg[hex] = s
	return s
}
