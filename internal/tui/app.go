package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/innerglow/internal/auth"
	"github.com/sadopc/innerglow/internal/content"
	"github.com/sadopc/innerglow/internal/export"
	"github.com/sadopc/innerglow/internal/feed"
	"github.com/sadopc/innerglow/internal/recorder"
	"github.com/sadopc/innerglow/internal/session"
	"github.com/sadopc/innerglow/internal/store"
)

// Deps is everything the UI talks to.
type Deps struct {
	Store    *store.Store
	Auth     *auth.Service
	Session  *session.Session
	Feed     *feed.Hub
	Recorder *recorder.Recorder
	Content  *content.Library
	AudioDir string
	Log      *slog.Logger
	// Notify raises a desktop notification. May be nil.
	Notify func(title, message string) error
}

// App is the root Bubble Tea model.
type App struct {
	deps   *Deps
	width  int
	height int

	restored bool
	userID   string
	watch    <-chan session.Event
	unwatch  func()

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	alert         *alertMsg

	signin    signinModel
	journal   journalModel
	voice     voiceModel
	tracker   trackerModel
	rituals   ritualsModel
	resources resourcesModel
	profile   profileModel

	help   help.Model
	status string
}

type reminderSentMsg struct{}

func NewApp(d *Deps) App {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	h := help.New()
	h.ShowAll = false

	watch, unwatch := d.Session.Watch()
	applyTheme(d.Session.Theme())

	return App{
		deps:       d,
		watch:      watch,
		unwatch:    unwatch,
		activeView: viewJournal,
		signin:     newSigninModel(d),
		journal:    newJournalModel(d),
		voice:      newVoiceModel(d),
		tracker:    newTrackerModel(d),
		rituals:    newRitualsModel(d),
		resources:  newResourcesModel(d.Content),
		profile:    newProfileModel(d),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.restore(),
		waitForSession(a.watch),
		waitForRecorderFailure(a.deps.Recorder),
		a.signin.init(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) restore() tea.Cmd {
	svc := a.deps.Auth
	return func() tea.Msg {
		u, err := svc.Restore()
		return restoredMsg{user: u, err: err}
	}
}

func waitForSession(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return sessionMsg{event: ev, ok: ok}
	}
}

func waitForRecorderFailure(rec *recorder.Recorder) tea.Cmd {
	if rec == nil {
		return nil
	}
	return func() tea.Msg {
		return recordFailedMsg{err: <-rec.Failed()}
	}
}

// shutdown releases the microphone and session watch before quitting.
func (a App) shutdown() tea.Cmd {
	if a.deps.Recorder != nil {
		a.deps.Recorder.Close()
	}
	if a.unwatch != nil {
		a.unwatch()
	}
	a.journal.feed.close()
	a.voice.feed.close()
	a.tracker.feed.close()
	a.profile.feed.close()
	return tea.Quit
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.signin.setSize(a.width, a.height)
		a.journal.setSize(a.width, contentHeight)
		a.voice.setSize(a.width, contentHeight)
		a.tracker.setSize(a.width, contentHeight)
		a.rituals.setSize(a.width, contentHeight)
		a.resources.setSize(a.width, contentHeight)
		a.profile.setSize(a.width, contentHeight)
		return a, nil

	case restoredMsg:
		a.restored = true
		if msg.err != nil {
			a.deps.Log.Warn("could not restore session", "error", msg.err)
		}
		return a, nil

	case sessionMsg:
		if !msg.ok {
			return a, nil
		}
		cmd := a.onUserChange(msg.event.User)
		return a, tea.Batch(cmd, waitForSession(a.watch))

	case recordFailedMsg:
		a.alert = &alertMsg{title: "Recording stopped", text: recorder.Reason(msg.err)}
		return a, waitForRecorderFailure(a.deps.Recorder)

	case alertMsg:
		a.alert = &msg
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, a.shutdown()
		}
		if a.alert != nil {
			if key.Matches(msg, keys.Enter) || key.Matches(msg, keys.Back) {
				a.alert = nil
			}
			return a, nil
		}
		if a.userID == "" {
			var cmd tea.Cmd
			a.signin, cmd = a.signin.update(msg)
			return a, cmd
		}
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, a.shutdown()
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Theme):
			cmd := a.toggleTheme()
			a.resources.fill()
			return a, cmd
		case key.Matches(msg, keys.Tab1):
			return a.switchTo(viewJournal)
		case key.Matches(msg, keys.Tab2):
			return a.switchTo(viewVoice)
		case key.Matches(msg, keys.Tab3):
			return a.switchTo(viewTracker)
		case key.Matches(msg, keys.Tab4):
			return a.switchTo(viewRituals)
		case key.Matches(msg, keys.Tab5):
			return a.switchTo(viewResources)
		case key.Matches(msg, keys.Tab6):
			return a.switchTo(viewProfile)
		case key.Matches(msg, keys.Tab):
			return a.switchTo((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		cmds = append(cmds, tickCmd())
		var cmd tea.Cmd
		a.rituals, cmd = a.rituals.update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case snapshotMsg:
		var cmd tea.Cmd
		switch msg.view {
		case viewJournal:
			a.journal, cmd = a.journal.update(msg)
		case viewVoice:
			a.voice, cmd = a.voice.update(msg)
		case viewTracker:
			a.tracker, cmd = a.tracker.update(msg)
		case viewProfile:
			a.profile, cmd = a.profile.update(msg)
		}
		return a, cmd

	case spinner.TickMsg:
		// each spinner ignores ticks carrying another spinner's id
		var c1, c2, c3, c4 tea.Cmd
		a.journal, c1 = a.journal.update(msg)
		a.voice, c2 = a.voice.update(msg)
		a.tracker, c3 = a.tracker.update(msg)
		a.profile, c4 = a.profile.update(msg)
		return a, tea.Batch(c1, c2, c3, c4)

	case authResultMsg:
		var cmd tea.Cmd
		a.signin, cmd = a.signin.update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg.text
		return a, nil

	case journalSavedMsg:
		a.status = "Entry saved"
		return a, nil

	case journalDeletedMsg:
		a.status = "Entry deleted"
		return a, nil

	case recordingStartedMsg:
		a.status = "Recording..."
		return a, nil

	case recordingStoppedMsg:
		var cmd tea.Cmd
		a.voice, cmd = a.voice.update(msg)
		return a, cmd

	case voiceSavedMsg:
		a.status = "Recording saved"
		return a, nil

	case voiceDeletedMsg:
		a.status = "Recording deleted"
		return a, nil

	case ritualHistoryMsg:
		var cmd tea.Cmd
		a.rituals, cmd = a.rituals.update(msg)
		return a, cmd

	case ritualRecordedMsg:
		a.status = "Ritual complete"
		var c1, c2 tea.Cmd
		a.rituals, c1 = a.rituals.update(msg)
		a.profile, c2 = a.profile.update(msg)
		return a, tea.Batch(c1, c2)

	case profileDataMsg:
		var cmd tea.Cmd
		a.profile, cmd = a.profile.update(msg)
		return a, cmd

	case settingsSavedMsg:
		a.deps.Session.SetTheme(msg.theme)
		applyTheme(msg.theme)
		a.tracker.loadPrefs()
		a.voice.pickAffirmation()
		a.resources.fill()
		a.status = "Preferences saved"
		var cmd tea.Cmd
		a.profile, cmd = a.profile.update(msg)
		return a, cmd

	case profileSavedMsg:
		// same user id, so the session stays quiet
		a.deps.Session.SetUser(msg.user)
		a.status = "Profile updated"
		return a, nil

	case passwordChangedMsg:
		a.status = "Password changed"
		return a, nil

	case signOutMsg:
		if msg.err != nil {
			a.deps.Log.Warn("sign-out incomplete", "error", msg.err)
		}
		return a, nil

	case reminderSentMsg:
		return a, nil

	case exportDoneMsg:
		a.status = fmt.Sprintf("Exported %s to %s", humanize.Bytes(uint64(msg.size)), msg.path)
		a.exportPicking = false
		return a, nil
	}

	if a.userID == "" {
		var cmd tea.Cmd
		a.signin, cmd = a.signin.update(msg)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

// onUserChange tears down the previous user's state and loads the new one.
func (a *App) onUserChange(u *store.User) tea.Cmd {
	next := ""
	if u != nil {
		next = u.ID
	}
	if next == a.userID {
		return nil
	}
	a.userID = next
	a.restored = true
	a.alert = nil
	a.exportPicking = false
	if a.deps.Recorder != nil {
		a.deps.Recorder.Close()
	}
	a.rituals.reset()
	a.voice.affirmation = nil

	if u == nil {
		a.journal.feed.close()
		a.voice.feed.close()
		a.tracker.feed.close()
		a.profile.feed.close()
		a.activeView = viewJournal
		a.status = "Signed out"
		a.signin.reset()
		return a.signin.init()
	}

	a.deps.Log.Info("signed in", "user", u.ID)
	theme := session.Dark
	if v, err := a.deps.Store.GetSetting(u.ID, store.SettingTheme); err == nil {
		theme = session.ParseTheme(v)
	}
	a.deps.Session.SetTheme(theme)
	applyTheme(theme)
	a.resources.fill()
	a.tracker.loadPrefs()
	a.status = "Welcome, " + u.FirstName

	return tea.Batch(
		a.journal.feed.subscribe(u.ID),
		a.voice.feed.subscribe(u.ID),
		a.tracker.feed.subscribe(u.ID),
		a.profile.feed.subscribe(u.ID),
		a.rituals.refresh(),
		a.profile.refresh(),
		a.dailyReminder(u.ID),
	)
}

const reminderStatePrefix = "last_reminder:"

// dailyReminder notifies at most once per day for users who opted in.
func (a App) dailyReminder(owner string) tea.Cmd {
	st := a.deps.Store
	notify := a.deps.Notify
	log := a.deps.Log
	if notify == nil {
		return nil
	}
	return func() tea.Msg {
		if v, err := st.GetSetting(owner, store.SettingDailyReminder); err != nil || v != "on" {
			return nil
		}
		today := time.Now().Format("2006-01-02")
		stateKey := reminderStatePrefix + owner
		if last, err := st.GetState(stateKey); err == nil && last == today {
			return nil
		}
		if err := notify("InnerGlow", "Take a moment to check in with yourself today."); err != nil {
			log.Debug("reminder not shown", "error", err)
			return nil
		}
		if err := st.SetState(stateKey, today); err != nil {
			log.Warn("could not record reminder", "error", err)
		}
		return reminderSentMsg{}
	}
}

func (a App) toggleTheme() tea.Cmd {
	theme := a.deps.Session.ToggleTheme()
	applyTheme(theme)
	owner := a.userID
	st := a.deps.Store
	return func() tea.Msg {
		if err := st.SetSetting(owner, store.SettingTheme, string(theme)); err != nil {
			return alertMsg{title: "Could not save theme", text: err.Error()}
		}
		return statusMsg{text: "Theme: " + string(theme)}
	}
}

func (a App) switchTo(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	switch v {
	case viewVoice:
		if a.voice.affirmation == nil {
			a.voice.pickAffirmation()
		}
	case viewProfile:
		return a, a.profile.refresh()
	case viewRituals:
		return a, a.rituals.refresh()
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewJournal:
		a.journal, cmd = a.journal.update(msg)
	case viewVoice:
		a.voice, cmd = a.voice.update(msg)
	case viewTracker:
		a.tracker, cmd = a.tracker.update(msg)
	case viewRituals:
		a.rituals, cmd = a.rituals.update(msg)
	case viewResources:
		a.resources, cmd = a.resources.update(msg)
	case viewProfile:
		a.profile, cmd = a.profile.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewJournal:
		return a.journal.formActive
	case viewVoice:
		return a.voice.formActive
	case viewProfile:
		return a.profile.formKind != formNone
	}
	return false
}

func (a App) View() string {
	if a.width == 0 || !a.restored {
		return "Loading..."
	}

	if a.userID == "" {
		if a.alert != nil {
			return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, a.renderAlert())
		}
		return a.signin.view()
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewJournal:
		content = a.journal.view()
	case viewVoice:
		content = a.voice.view()
	case viewTracker:
		content = a.tracker.view()
	case viewRituals:
		content = a.rituals.view()
	case viewResources:
		content = a.resources.view()
	case viewProfile:
		content = a.profile.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	switch {
	case a.alert != nil:
		content = a.renderAlert()
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := brandStyle.Render("✨ InnerGlow")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		status = mutedStyle.Render(" " + a.status)
	}

	var activity string
	if rec := a.deps.Recorder; rec != nil && rec.State() == recorder.Recording {
		activity = errorStyle.Render(" ● REC " + recorder.FormatDuration(rec.Elapsed()))
	} else if a.rituals.phase == ritualRunning {
		activity = successStyle.Render(" ◐ " + formatDuration(a.rituals.timer.currentElapsed()))
		if a.rituals.timer.paused() {
			activity = warningStyle.Render(" ⏸ " + formatDuration(a.rituals.timer.currentElapsed()))
		}
	}

	left := footerStyle.Render(helpView)
	right := activity + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderAlert() string {
	w := min(64, a.width-4)
	return alertPanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Bold(true).Render(a.alert.title),
		"",
		lipgloss.NewStyle().Width(w-4).Render(a.alert.text),
		"",
		mutedStyle.Render("enter: dismiss"),
	))
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// ExportPath is where an export of the given extension lands by default.
func ExportPath(ext string, now time.Time) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, fmt.Sprintf("innerglow-export-%s.%s", now.Format("2006-01-02"), ext))
}

func (a App) doExport(format int) tea.Cmd {
	owner := a.userID
	st := a.deps.Store
	return func() tea.Msg {
		snap, err := st.Snapshot(context.Background(), owner)
		if err != nil {
			return alertMsg{title: "Export failed", text: err.Error()}
		}

		var path string
		if format == 0 {
			path = ExportPath("csv", time.Now())
			err = export.ToCSV(&snap, path)
		} else {
			path = ExportPath("json", time.Now())
			err = export.ToJSON(&snap, path)
		}
		if err != nil {
			return alertMsg{title: "Export failed", text: err.Error()}
		}

		var size int64
		if fi, err := os.Stat(path); err == nil {
			size = fi.Size()
		}
		return exportDoneMsg{path: path, size: size}
	}
}
