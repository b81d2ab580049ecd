package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/innerglow/internal/content"
	"github.com/sadopc/innerglow/internal/store"
)

type ritualPhase int

const (
	ritualBrowse ritualPhase = iota
	ritualRunning
	ritualDone
)

type ritualsModel struct {
	deps   *Deps
	width  int
	height int

	phase  ritualPhase
	cursor int

	active    *content.Ritual
	step      int
	stepsDone int
	timer     timerModel
	elapsed   time.Duration

	history []store.RitualSession
}

type ritualHistoryMsg struct {
	sessions []store.RitualSession
	err      error
}

type ritualRecordedMsg struct {
	session *store.RitualSession
}

const ritualHistoryLimit = 5

func newRitualsModel(d *Deps) ritualsModel {
	return ritualsModel{deps: d, timer: newTimerModel()}
}

func (r *ritualsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

func (r ritualsModel) rituals() []content.Ritual {
	if r.deps.Content == nil {
		return nil
	}
	return r.deps.Content.Rituals
}

// refresh loads the user's recent completed rituals.
func (r ritualsModel) refresh() tea.Cmd {
	owner := r.deps.Session.UserID()
	if owner == "" {
		return nil
	}
	st := r.deps.Store
	return func() tea.Msg {
		sessions, err := st.ListRitualSessions(owner, ritualHistoryLimit)
		return ritualHistoryMsg{sessions: sessions, err: err}
	}
}

// reset abandons any practice in progress.
func (r *ritualsModel) reset() {
	r.timer.stop()
	r.phase = ritualBrowse
	r.active = nil
	r.history = nil
}

func (r ritualsModel) update(msg tea.Msg) (ritualsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case ritualHistoryMsg:
		if msg.err != nil {
			r.deps.Log.Warn("ritual history unavailable", "error", msg.err)
			return r, nil
		}
		r.history = msg.sessions
		return r, nil

	case ritualRecordedMsg:
		return r, r.refresh()

	case tickMsg:
		if r.phase == ritualRunning && !r.timer.paused() && r.timer.stepRemaining() <= 0 {
			return r.advance()
		}
		return r, nil

	case tea.KeyMsg:
		switch r.phase {
		case ritualRunning:
			return r.updateRunning(msg)
		case ritualDone:
			return r.updateDone(msg)
		default:
			return r.updateBrowse(msg)
		}
	}
	return r, nil
}

func (r ritualsModel) updateBrowse(msg tea.KeyMsg) (ritualsModel, tea.Cmd) {
	n := len(r.rituals())
	switch {
	case key.Matches(msg, keys.Up):
		if r.cursor > 0 {
			r.cursor--
		}
	case key.Matches(msg, keys.Down):
		if r.cursor < n-1 {
			r.cursor++
		}
	case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Save):
		if r.cursor < n {
			return r.begin(r.rituals()[r.cursor])
		}
	}
	return r, nil
}

func (r ritualsModel) updateRunning(msg tea.KeyMsg) (ritualsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Pause):
		r.timer.toggle()
	case key.Matches(msg, keys.Right), key.Matches(msg, keys.Enter):
		return r.advance()
	case key.Matches(msg, keys.Left):
		if r.step > 0 {
			r.step--
			r.timer.resetStep(r.active.StepDuration())
		}
	case key.Matches(msg, keys.Stop), key.Matches(msg, keys.Back):
		r.timer.stop()
		r.phase = ritualBrowse
		r.active = nil
		return r, statusCmd("Ritual ended early")
	}
	return r, nil
}

func (r ritualsModel) updateDone(msg tea.KeyMsg) (ritualsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Save):
		return r.begin(*r.active)
	case key.Matches(msg, keys.Back), key.Matches(msg, keys.Enter):
		r.phase = ritualBrowse
		r.active = nil
	}
	return r, nil
}

func (r ritualsModel) begin(rit content.Ritual) (ritualsModel, tea.Cmd) {
	r.active = &rit
	r.step = 0
	r.stepsDone = 0
	r.elapsed = 0
	r.phase = ritualRunning
	r.timer.start(rit.StepDuration())
	return r, nil
}

// advance moves to the next step, finishing the ritual after the last one.
func (r ritualsModel) advance() (ritualsModel, tea.Cmd) {
	r.stepsDone = max(r.stepsDone, r.step+1)
	if r.step < len(r.active.Steps)-1 {
		r.step++
		r.timer.resetStep(r.active.StepDuration())
		return r, nil
	}
	r.elapsed = r.timer.stop()
	r.phase = ritualDone
	return r, r.complete()
}

func (r ritualsModel) complete() tea.Cmd {
	owner := r.deps.Session.UserID()
	st := r.deps.Store
	notify := r.deps.Notify
	rit := *r.active
	session := store.RitualSession{
		Ritual:      rit.ID,
		Category:    rit.Category,
		StepsDone:   r.stepsDone,
		StepsTotal:  len(rit.Steps),
		Duration:    int64(r.elapsed / time.Second),
		CompletedAt: time.Now(),
	}
	log := r.deps.Log
	return func() tea.Msg {
		saved, err := st.RecordRitual(owner, session)
		if err != nil {
			return alertMsg{title: "Could not save your practice", text: err.Error()}
		}
		if notify != nil {
			if err := notify("Ritual complete", rit.Title+" finished. Well done."); err != nil {
				log.Debug("notification failed", "error", err)
			}
		}
		return ritualRecordedMsg{session: saved}
	}
}

func (r ritualsModel) view() string {
	w := r.width - 4
	switch r.phase {
	case ritualRunning:
		return r.viewRunning(w)
	case ritualDone:
		return r.viewDone(w)
	}
	return r.viewBrowse(w)
}

func (r ritualsModel) viewBrowse(w int) string {
	list := r.rituals()
	var rows []string
	rows = append(rows, titleStyle.Render("Self-Care Rituals"), mutedStyle.Render("Gentle practices to nurture your inner self"), "")

	for i, rit := range list {
		cursor := "  "
		style := normalItemStyle
		if i == r.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, fmt.Sprintf("%s%s %s", cursor, dot(rit.Color), style.Render(rit.Title))+
			mutedStyle.Render(fmt.Sprintf("  %s • %d min", rit.Category, rit.Minutes)))
		if i == r.cursor {
			rows = append(rows, mutedStyle.Render("     "+truncate(rit.Description, w-10)))
		}
	}

	if len(r.history) > 0 {
		rows = append(rows, "", subtitleStyle.Render("Recently practiced"))
		for _, s := range r.history {
			name := s.Ritual
			if r.deps.Content != nil {
				if rit, ok := r.deps.Content.Ritual(s.Ritual); ok {
					name = rit.Title
				}
			}
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %s  %s  %d/%d steps  %s",
				humanize.Time(s.CompletedAt), name, s.StepsDone, s.StepsTotal,
				formatDuration(time.Duration(s.Duration)*time.Second))))
		}
	}

	if r.deps.Content != nil && r.deps.Content.Reminder != "" {
		rows = append(rows, "", accentStyle.Italic(true).Width(w-6).Render(r.deps.Content.Reminder))
	}
	rows = append(rows, "", mutedStyle.Render("  ↑/↓: choose  enter: begin"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (r ritualsModel) viewRunning(w int) string {
	rit := r.active
	color := lipgloss.NewStyle().Foreground(lipgloss.Color(rit.Color))

	step := rit.Steps[r.step]
	if rit.Kind == "affirmations" {
		step = "“" + step + "”"
	}
	countdown := timerStyle.Width(w - 6).Render(formatDuration(r.timer.stepRemaining()))
	state := color.Bold(true).Render(fmt.Sprintf("STEP %d OF %d", r.step+1, len(rit.Steps)))
	if r.timer.paused() {
		state = warningStyle.Bold(true).Render("PAUSED")
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(rit.Title),
		mutedStyle.Render(rit.Category),
		"",
		countdown,
		state,
		"",
		lipgloss.NewStyle().Width(w-10).Align(lipgloss.Center).Bold(true).Render(step),
		"",
		r.renderProgress(),
		mutedStyle.Render("elapsed "+formatDuration(r.timer.currentElapsed())),
	)
	controls := mutedStyle.Render("space: pause  ←/→: step  x: stop")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, content, "", controls))
}

func (r ritualsModel) viewDone(w int) string {
	rit := r.active
	content := lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render(rit.Title),
		"",
		successStyle.Bold(true).Render("Ritual Complete"),
		mutedStyle.Render(fmt.Sprintf("%d of %d steps in %s", r.stepsDone, len(rit.Steps), formatDuration(r.elapsed))),
		"",
		r.renderProgress(),
		"",
		mutedStyle.Render("Take a moment to notice how you feel."),
	)
	controls := mutedStyle.Render("s: practice again  esc: back to rituals")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, content, "", controls))
}

func (r ritualsModel) renderProgress() string {
	total := len(r.active.Steps)
	var parts []string
	for i := 0; i < total; i++ {
		switch {
		case i < r.stepsDone && !(r.phase == ritualRunning && i == r.step):
			parts = append(parts, successStyle.Render("●"))
		case i == r.step && r.phase == ritualRunning:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	return strings.Join(parts, " ") + mutedStyle.Render(fmt.Sprintf("  %d/%d", r.stepsDone, total))
}
