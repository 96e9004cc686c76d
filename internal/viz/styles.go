package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/levelctl/internal/lifecycle"
)

type styles struct {
	panel  lipgloss.Style
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	active lipgloss.Style
	water  lipgloss.Style
	mark   lipgloss.Style
	help   lipgloss.Style
	theme  Theme
}

func newStyles(t Theme) styles {
	return styles{
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Primary).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		active: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		water:  lipgloss.NewStyle().Foreground(t.Water),
		mark:   lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		help:   lipgloss.NewStyle().Foreground(t.Muted).Italic(true).MarginTop(1),
		theme:  t,
	}
}

func (s styles) state(st lifecycle.State) string {
	c := s.theme.Muted
	switch st {
	case lifecycle.Running:
		c = s.theme.Success
	case lifecycle.Stopped:
		c = s.theme.Error
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render(strings.ToUpper(st.String()))
}
