package ui

import (
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

func TestDefaultTheme(t *testing.T) {
	th := DefaultTheme(lipgloss.DefaultRenderer())
	for name, c := range map[string]lipgloss.AdaptiveColor{
		"Primary": th.Primary,
		"Subtext": th.Subtext,
		"Danger":  th.Danger,
		"Border":  th.Border,
		"Muted":   th.Muted,
	} {
		if c.Light == "" || c.Dark == "" {
			t.Errorf("%s color is empty: %+v", name, c)
		}
	}
}

func TestColorProfile_Detection(t *testing.T) {
	// TermProfile is set at init(); just verify it's a valid value
	valid := map[colorprofile.Profile]bool{
		colorprofile.Unknown:   true,
		colorprofile.NoTTY:     true,
		colorprofile.ASCII:     true,
		colorprofile.ANSI:      true,
		colorprofile.ANSI256:   true,
		colorprofile.TrueColor: true,
	}
	if !valid[TermProfile] {
		t.Errorf("TermProfile has unexpected value: %d", TermProfile)
	}
}

func TestThemeFg(t *testing.T) {
	saved := TermProfile
	defer func() { TermProfile = saved }()

	tests := []struct {
		profile colorprofile.Profile
		ansi    bool
	}{
		{colorprofile.TrueColor, false},
		{colorprofile.ANSI256, false},
		{colorprofile.ANSI, true},
		{colorprofile.NoTTY, true},
	}
	for _, tt := range tests {
		TermProfile = tt.profile
		got := ThemeFg("#FF6B6B")
		c, isANSI := got.(lipgloss.ANSIColor)
		if isANSI != tt.ansi {
			t.Errorf("profile %v: ThemeFg returned %T", tt.profile, got)
		}
		if isANSI && c != 7 {
			t.Errorf("profile %v: ThemeFg = ANSI %d, want 7", tt.profile, c)
		}
	}
}

func TestFgCachesAndFallsBack(t *testing.T) {
	th := DefaultTheme(lipgloss.DefaultRenderer())

	th.Fg("#E41A1C")
	th.Fg("#E41A1C")
	th.Fg("nope")
	if len(th.fg) != 2 {
		t.Errorf("cached %d styles, want 2", len(th.fg))
	}
	if got := th.Fg("nope").GetForeground(); got != th.MutedText.GetForeground() {
		t.Errorf("invalid color foreground = %v, want muted", got)
	}
}
