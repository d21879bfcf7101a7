package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		// Even suffix is too wide, truncate suffix
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// padRight pads s with spaces to exactly width cells, truncating when longer.
func padRight(s string, width int) string {
	s = truncateRunesHelper(s, width, "…")
	if w := runewidth.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// formatDuration renders an auto-stop countdown ("12s", "1m05s").
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
