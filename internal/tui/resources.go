package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/innerglow/internal/content"
)

type resourcesModel struct {
	lib    *content.Library
	width  int
	height int

	group int
	vp    viewport.Model
}

func newResourcesModel(lib *content.Library) resourcesModel {
	r := resourcesModel{lib: lib, vp: viewport.New(60, 10)}
	r.fill()
	return r
}

func (r *resourcesModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.vp.Width = max(20, w-8)
	r.vp.Height = max(5, h-14)
	r.fill()
}

func (r resourcesModel) groups() []content.ResourceGroup {
	if r.lib == nil {
		return nil
	}
	return r.lib.Resources
}

func (r *resourcesModel) fill() {
	r.vp.SetContent(r.renderGroup())
	r.vp.GotoTop()
}

func (r resourcesModel) update(msg tea.Msg) (resourcesModel, tea.Cmd) {
	n := len(r.groups())
	if msg, ok := msg.(tea.KeyMsg); ok && n > 0 {
		switch {
		case key.Matches(msg, keys.Left):
			r.group = (r.group + n - 1) % n
			r.fill()
			return r, nil
		case key.Matches(msg, keys.Right):
			r.group = (r.group + 1) % n
			r.fill()
			return r, nil
		}
	}
	var cmd tea.Cmd
	r.vp, cmd = r.vp.Update(msg)
	return r, cmd
}

func (r resourcesModel) renderGroup() string {
	groups := r.groups()
	if len(groups) == 0 {
		return mutedStyle.Render("No resources available.")
	}
	g := groups[r.group%len(groups)]
	width := max(20, r.vp.Width-2)

	var rows []string
	rows = append(rows, mutedStyle.Width(width).Render(g.Intro), "")
	for _, e := range g.Entries {
		name := highlightStyle.Bold(true).Render(e.Name)
		if e.Crisis {
			name = errorStyle.Bold(true).Render(e.Name)
		}
		var meta []string
		if e.Available != "" {
			meta = append(meta, e.Available)
		}
		if e.Category != "" {
			meta = append(meta, e.Category)
		}
		if len(meta) > 0 {
			name += mutedStyle.Render("  " + strings.Join(meta, " • "))
		}
		rows = append(rows, name)
		if e.Contact != "" {
			rows = append(rows, "  "+accentStyle.Render(e.Contact))
		}
		if e.URL != "" {
			rows = append(rows, "  "+accentStyle.Underline(true).Render(e.URL))
		}
		if e.Description != "" {
			rows = append(rows, lipgloss.NewStyle().PaddingLeft(2).Width(width).Render(e.Description))
		}
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (r resourcesModel) view() string {
	w := r.width - 4
	banner := alertPanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Bold(true).Render("In crisis? You don't have to face this alone."),
		r.crisisLine(),
	))

	var tabs []string
	for i, g := range r.groups() {
		if i == r.group {
			tabs = append(tabs, activeTabStyle.Render(g.Title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(g.Title))
		}
	}

	var footer []string
	if r.lib != nil {
		for _, line := range r.lib.Reminders {
			footer = append(footer, mutedStyle.Render("♥ "+line))
		}
	}
	footer = append(footer, "", mutedStyle.Render(fmt.Sprintf("  ←/→: section  ↑/↓: scroll  %3.f%%", r.vp.ScrollPercent()*100)))

	body := panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Mental Health Resources"),
		lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...),
		"",
		r.vp.View(),
		"",
		strings.Join(footer, "\n"),
	))
	return lipgloss.JoinVertical(lipgloss.Left, banner, body)
}

// crisisLine summarizes the first few crisis contacts on one line.
func (r resourcesModel) crisisLine() string {
	if r.lib == nil {
		return ""
	}
	var parts []string
	for _, c := range r.lib.CrisisLines() {
		if len(parts) == 3 {
			break
		}
		parts = append(parts, c.Name+": "+c.Contact)
	}
	return strings.Join(parts, "  ·  ")
}
