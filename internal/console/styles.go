// Package console renders operator-facing output and reads operator input.
package console

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RuleWidth is the width of the separator printed around banners
const RuleWidth = 120

var (
	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#6C7A89")
	ColorAccent  = lipgloss.Color("#20B9B4")
)

// Styles holds the lipgloss styles bound to one output's renderer
type Styles struct {
	Rule    lipgloss.Style
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Command lipgloss.Style
}

// NewStyles creates styles for w. Colour support is detected from w, so
// writing to a file or buffer produces plain text.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Rule:    r.NewStyle().Foreground(ColorMuted),
		Title:   r.NewStyle().Bold(true).Foreground(ColorAccent),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(ColorMuted),
		Success: r.NewStyle().Foreground(ColorSuccess),
		Warning: r.NewStyle().Foreground(ColorWarning),
		Error:   r.NewStyle().Foreground(ColorError),
		Command: r.NewStyle().Foreground(ColorAccent),
	}
}

func rule() string {
	return strings.Repeat("-", RuleWidth)
}
