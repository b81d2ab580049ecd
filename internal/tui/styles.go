package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/innerglow/internal/session"
)

type palette struct {
	primary   lipgloss.Color
	secondary lipgloss.Color
	accent    lipgloss.Color
	muted     lipgloss.Color
	success   lipgloss.Color
	warning   lipgloss.Color
	danger    lipgloss.Color
	fg        lipgloss.Color
	subtle    lipgloss.Color
	highlight lipgloss.Color
}

var (
	darkPalette = palette{
		primary:   "#A855F7",
		secondary: "#EC4899",
		accent:    "#F472B6",
		muted:     "#6B7280",
		success:   "#22C55E",
		warning:   "#F59E0B",
		danger:    "#EF4444",
		fg:        "#E5E7EB",
		subtle:    "#374151",
		highlight: "#C4B5FD",
	}
	lightPalette = palette{
		primary:   "#7C3AED",
		secondary: "#DB2777",
		accent:    "#BE185D",
		muted:     "#6B7280",
		success:   "#15803D",
		warning:   "#B45309",
		danger:    "#B91C1C",
		fg:        "#111827",
		subtle:    "#D1D5DB",
		highlight: "#6D28D9",
	}
)

// Color palette
var (
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorAccent    lipgloss.Color
	colorMuted     lipgloss.Color
	colorSuccess   lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color
	colorFg        lipgloss.Color
	colorSubtle    lipgloss.Color
	colorHighlight lipgloss.Color
)

// Styles
var (
	activeTabStyle   lipgloss.Style
	inactiveTabStyle lipgloss.Style

	panelStyle       lipgloss.Style
	activePanelStyle lipgloss.Style
	alertPanelStyle  lipgloss.Style
	cardStyle        lipgloss.Style

	timerStyle lipgloss.Style

	titleStyle     lipgloss.Style
	subtitleStyle  lipgloss.Style
	accentStyle    lipgloss.Style
	successStyle   lipgloss.Style
	warningStyle   lipgloss.Style
	errorStyle     lipgloss.Style
	mutedStyle     lipgloss.Style
	highlightStyle lipgloss.Style
	brandStyle     lipgloss.Style

	headerStyle lipgloss.Style
	footerStyle lipgloss.Style

	selectedItemStyle lipgloss.Style
	normalItemStyle   lipgloss.Style
)

var currentTheme session.Theme

func init() {
	applyTheme(session.Dark)
}

// applyTheme rebuilds every style from the palette of t.
func applyTheme(t session.Theme) {
	p := darkPalette
	if t == session.Light {
		p = lightPalette
	}
	currentTheme = t

	colorPrimary = p.primary
	colorSecondary = p.secondary
	colorAccent = p.accent
	colorMuted = p.muted
	colorSuccess = p.success
	colorWarning = p.warning
	colorError = p.danger
	colorFg = p.fg
	colorSubtle = p.subtle
	colorHighlight = p.highlight

	activeTabStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorPrimary).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(colorPrimary).
		Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
		Foreground(colorMuted).
		Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSubtle).
		Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(1, 2)

	alertPanelStyle = lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorError).
		Padding(1, 3)

	cardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorSecondary).
		Padding(0, 2).
		Align(lipgloss.Center)

	timerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(colorPrimary).
		Align(lipgloss.Center)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorFg)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	accentStyle = lipgloss.NewStyle().Foreground(colorAccent)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	highlightStyle = lipgloss.NewStyle().Foreground(colorHighlight)
	brandStyle = lipgloss.NewStyle().Bold(true).Italic(true).Foreground(colorSecondary)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(colorMuted).Padding(0, 1)

	selectedItemStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	normalItemStyle = lipgloss.NewStyle().Foreground(colorFg)
}

// dot renders a colored bullet.
func dot(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
}
