package ui

import (
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		name  string
		input string
		width int
		want  string
	}{
		{"zero width", "hello", 0, ""},
		{"fits", "hello", 10, "hello"},
		{"ellipsis", "hello world", 6, "hello…"},
		{"wide runes", "日本語テキスト", 5, "日本…"},
		{"suffix only", "hello", 1, "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunesHelper(tt.input, tt.width, "…")
			if got != tt.want {
				t.Errorf("truncateRunesHelper(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("output is not valid UTF-8: %q", got)
			}
			if w := runewidth.StringWidth(got); w > tt.width {
				t.Errorf("output is %d cells wide, max %d", w, tt.width)
			}
		})
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"ab", 4, "ab  "},
		{"abcdef", 4, "abc…"},
		{"日本", 6, "日本  "},
		{"", 2, "  "},
	}
	for _, tt := range tests {
		if got := padRight(tt.in, tt.width); got != tt.want {
			t.Errorf("padRight(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
