package tui

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/innerglow/internal/emotion"
	"github.com/sadopc/innerglow/internal/store"
)

type journalModel struct {
	deps   *Deps
	feed   feedClient
	width  int
	height int

	cursor     int
	expanded   bool
	confirming bool

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formTitle     *string
	formContent   *string
	formEmotion   *string
	formIntensity *string
}

type journalSavedMsg struct {
	entry *store.JournalEntry
}

type journalDeletedMsg struct{}

func newJournalModel(d *Deps) journalModel {
	title, content, emo, intensity := "", "", "", ""
	return journalModel{
		deps:          d,
		feed:          newFeedClient(viewJournal, d.Feed),
		formTitle:     &title,
		formContent:   &content,
		formEmotion:   &emo,
		formIntensity: &intensity,
	}
}

func (j *journalModel) setSize(w, h int) {
	j.width = w
	j.height = h
}

// entries returns the text records newest first.
func (j journalModel) entries() []store.JournalEntry {
	out := make([]store.JournalEntry, len(j.feed.snap.Text))
	copy(out, j.feed.snap.Text)
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

func (j journalModel) update(msg tea.Msg) (journalModel, tea.Cmd) {
	// feed traffic keeps flowing while a form is open
	switch msg := msg.(type) {
	case snapshotMsg:
		ok, cmd := j.feed.accept(msg)
		if ok {
			j.cursor = clamp(j.cursor, 0, max(0, len(j.feed.snap.Text)-1))
		}
		return j, cmd

	case spinner.TickMsg:
		return j, j.feed.updateSpinner(msg)
	}

	if j.formActive && j.form != nil {
		return j.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if j.confirming {
			return j.updateConfirm(msg)
		}
		return j.updateList(msg)
	}
	return j, nil
}

func (j journalModel) updateList(msg tea.KeyMsg) (journalModel, tea.Cmd) {
	n := len(j.feed.snap.Text)
	switch {
	case key.Matches(msg, keys.Up):
		if j.cursor > 0 {
			j.cursor--
		}
	case key.Matches(msg, keys.Down):
		if j.cursor < n-1 {
			j.cursor++
		}
	case key.Matches(msg, keys.Enter):
		j.expanded = !j.expanded
	case key.Matches(msg, keys.New):
		return j.showForm()
	case key.Matches(msg, keys.Delete):
		if n > 0 {
			j.confirming = true
		}
	}
	return j, nil
}

func (j journalModel) updateConfirm(msg tea.KeyMsg) (journalModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Yes):
		j.confirming = false
		list := j.entries()
		if j.cursor < len(list) {
			return j, j.deleteEntry(list[j.cursor].ID)
		}
	case key.Matches(msg, keys.No):
		j.confirming = false
	}
	return j, nil
}

func (j journalModel) deleteEntry(id string) tea.Cmd {
	owner := j.feed.snap.OwnerID
	st := j.deps.Store
	return func() tea.Msg {
		if err := st.DeleteJournalEntry(owner, id); err != nil {
			return alertMsg{title: "Could not delete entry", text: err.Error()}
		}
		return journalDeletedMsg{}
	}
}

func emotionOptions() []huh.Option[string] {
	all := emotion.All()
	opts := make([]huh.Option[string], len(all))
	for i, e := range all {
		opts[i] = huh.NewOption(fmt.Sprintf("%s %s", e.Emoji, emotion.Title(e.Name)), e.Name)
	}
	return opts
}

func validateIntensity(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 10 {
		return errors.New("enter a number from 0 to 10, or leave blank")
	}
	return nil
}

func parseIntensity(s string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	v = clamp(v, 0, 10)
	return &v
}

func required(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

func (j journalModel) showForm() (journalModel, tea.Cmd) {
	*j.formTitle = ""
	*j.formContent = ""
	*j.formEmotion = emotion.Calm
	*j.formIntensity = ""

	j.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Entry Title").
				Placeholder("Give your entry a meaningful title...").
				Validate(required("a title")).
				Value(j.formTitle),
			huh.NewSelect[string]().Title("How are you feeling?").
				Options(emotionOptions()...).
				Value(j.formEmotion),
			huh.NewInput().Title("Intensity (0-10, optional)").
				Validate(validateIntensity).
				Value(j.formIntensity),
			huh.NewText().Title("Your thoughts").
				Placeholder("Write freely...").
				Validate(required("some writing")).
				Value(j.formContent),
		),
	).WithShowHelp(true).WithShowErrors(true)

	j.formActive = true
	return j, j.form.Init()
}

func (j journalModel) updateForm(msg tea.Msg) (journalModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			j.formActive = false
			j.form = nil
			return j, nil
		}
	}

	form, cmd := j.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		j.form = f
	}

	switch j.form.State {
	case huh.StateCompleted:
		j.formActive = false
		j.form = nil
		return j, j.save()
	case huh.StateAborted:
		j.formActive = false
		j.form = nil
		return j, nil
	}

	return j, cmd
}

// save writes the entry; the list only changes when the feed publishes it.
func (j journalModel) save() tea.Cmd {
	owner := j.deps.Session.UserID()
	in := store.NewJournalEntry{
		Title:     strings.TrimSpace(*j.formTitle),
		Content:   strings.TrimSpace(*j.formContent),
		Emotion:   *j.formEmotion,
		Intensity: parseIntensity(*j.formIntensity),
	}
	st := j.deps.Store
	return func() tea.Msg {
		e, err := st.CreateJournalEntry(owner, in)
		if err != nil {
			return alertMsg{title: "Could not save entry", text: err.Error()}
		}
		return journalSavedMsg{entry: e}
	}
}

func (j journalModel) view() string {
	w := j.width - 4
	if j.formActive && j.form != nil {
		content := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("New Entry"), "", j.form.View())
		return panelStyle.Width(w).Render(content)
	}

	title := titleStyle.Render("My Journal")
	if !j.feed.loaded {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", j.feed.loadingView("your journal")))
	}

	list := j.entries()
	if len(list) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			mutedStyle.Render("Start your journey. Press n to write your first entry."),
			"",
			j.renderGuide(),
		))
	}

	var rows []string
	rows = append(rows, title+mutedStyle.Render(fmt.Sprintf("  %d entries", len(list))))
	rows = append(rows, "")

	visible := max(3, (j.height-10)/2)
	start := 0
	if j.cursor >= visible {
		start = j.cursor - visible + 1
	}
	for i := start; i < len(list) && i < start+visible; i++ {
		rows = append(rows, j.renderEntry(list[i], i == j.cursor, w-6))
	}

	if j.expanded && j.cursor < len(list) {
		rows = append(rows, "", j.renderDetail(list[j.cursor], w-6))
	}

	rows = append(rows, "")
	if j.confirming {
		rows = append(rows, warningStyle.Render("  Delete this entry? y: yes  n: no"))
	} else {
		rows = append(rows, mutedStyle.Render("  n: new  enter: read  d: delete"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (j journalModel) renderEntry(e store.JournalEntry, selected bool, w int) string {
	emo, _ := emotion.Lookup(e.Emotion)
	cursor := "  "
	style := normalItemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}
	when := e.DisplayDate
	if !e.CreatedAt.IsZero() {
		when = humanize.Time(e.CreatedAt)
	}
	head := style.Render(fmt.Sprintf("%s%s %s", cursor, emo.Emoji, truncate(e.Title, w-30))) +
		"  " + lipgloss.NewStyle().Foreground(lipgloss.Color(emo.Color)).Render(emotion.Title(e.Emotion)) +
		mutedStyle.Render("  "+when)
	preview := mutedStyle.Render("     " + truncate(strings.ReplaceAll(e.Content, "\n", " "), w-6))
	return head + "\n" + preview
}

func (j journalModel) renderDetail(e store.JournalEntry, w int) string {
	emo, _ := emotion.Lookup(e.Emotion)
	meta := fmt.Sprintf("%s at %s", e.DisplayDate, e.DisplayTime)
	if e.Intensity != nil {
		meta += fmt.Sprintf("  intensity %d/10", *e.Intensity)
	}
	body := lipgloss.NewStyle().Width(w - 4).Render(e.Content)
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(emo.Emoji+" "+e.Title),
		mutedStyle.Render(meta),
		"",
		body,
	))
}

// renderGuide lists the emotions an entry can be tagged with.
func (j journalModel) renderGuide() string {
	var items []string
	for _, e := range emotion.All() {
		items = append(items, fmt.Sprintf("%s %s", e.Emoji, lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render(emotion.Title(e.Name))))
	}
	return mutedStyle.Render("Emotion guide: ") + strings.Join(items, "  ")
}
