package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// accent is the chart colour (palevioletred).
const accent = lipgloss.Color("#DB7093")

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	ID      lipgloss.Style
	Bar     lipgloss.Style
	Marker  lipgloss.Style
}

// newStyles builds styles bound to w. Colour is disabled unless w is a TTY.
func newStyles(w io.Writer, isTTY bool) *Styles {
	lr := lipgloss.NewRenderer(w)
	if !isTTY {
		lr.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Title:   lr.NewStyle().Bold(true).Foreground(accent),
		Header:  lr.NewStyle().Bold(true),
		Success: lr.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   lr.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Muted:   lr.NewStyle().Faint(true),
		ID:      lr.NewStyle().Foreground(lipgloss.Color("6")),
		Bar:     lr.NewStyle().Foreground(accent),
		Marker:  lr.NewStyle().Foreground(accent).Bold(true),
	}
}
