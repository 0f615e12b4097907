package reporting

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette, dark-terminal friendly.
var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

// styles are bound to one renderer so the color profile follows the
// reporter's writer rather than the process stdout.
type styles struct {
	accent  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
	border  lipgloss.Style
	bold    lipgloss.Style
	panel   lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		accent:  r.NewStyle().Foreground(purple),
		success: r.NewStyle().Foreground(green),
		failure: r.NewStyle().Foreground(red),
		warn:    r.NewStyle().Foreground(yellow),
		muted:   r.NewStyle().Foreground(dim),
		border:  r.NewStyle().Foreground(faint),
		bold:    r.NewStyle().Bold(true),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(yellow).
			Padding(0, 1),
		header: r.NewStyle().Foreground(purple).Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
	}
}
