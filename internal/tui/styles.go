package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/tasklist/internal/store"
)

// Color palette
var (
	colorPrimary   = lipgloss.Color("#6C63FF")
	colorMuted     = lipgloss.Color("#666666")
	colorSuccess   = lipgloss.Color("#2ECC71")
	colorWarning   = lipgloss.Color("#F39C12")
	colorError     = lipgloss.Color("#E74C3C")
	colorFg        = lipgloss.Color("#C0CAF5")
	colorSubtle    = lipgloss.Color("#414868")
	colorHighlight = lipgloss.Color("#7AA2F7")
)

// Styles
var (
	// Tabs
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colorPrimary).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorMuted).
				Padding(0, 2)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Padding(1, 2)

	// Text
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorFg)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorMuted)

	// Header/footer
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	// List items
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(colorFg)
)

var statusColors = map[store.Status]lipgloss.Color{
	store.StatusNew:        colorMuted,
	store.StatusTodo:       colorHighlight,
	store.StatusInProgress: colorWarning,
	store.StatusDone:       colorSuccess,
}

func statusStyle(s store.Status) lipgloss.Style {
	c, ok := statusColors[s]
	if !ok {
		c = colorFg
	}
	return lipgloss.NewStyle().Foreground(c)
}
