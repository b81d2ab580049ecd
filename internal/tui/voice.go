package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/sadopc/innerglow/internal/content"
	"github.com/sadopc/innerglow/internal/emotion"
	"github.com/sadopc/innerglow/internal/recorder"
	"github.com/sadopc/innerglow/internal/store"
)

type voiceModel struct {
	deps   *Deps
	feed   feedClient
	width  int
	height int

	emotionIdx  int
	affirmation *content.Affirmation

	cursor     int
	confirming bool

	formActive bool
	form       *huh.Form
	formTitle  *string
	formLevel  *string
}

type voiceSavedMsg struct {
	entry *store.VoiceEntry
}

type voiceDeletedMsg struct{}

type recordingStartedMsg struct{}

type recordingStoppedMsg struct {
	clip *recorder.Clip
	err  error
}

// recordFailedMsg carries an error that aborted a recording.
type recordFailedMsg struct {
	err error
}

func newVoiceModel(d *Deps) voiceModel {
	title, level := "", ""
	v := voiceModel{
		deps:      d,
		feed:      newFeedClient(viewVoice, d.Feed),
		formTitle: &title,
		formLevel: &level,
	}
	return v
}

func (v *voiceModel) setSize(w, h int) {
	v.width = w
	v.height = h
}

func (v voiceModel) selectedEmotion() string {
	names := emotion.Names()
	return names[v.emotionIdx%len(names)]
}

func (v voiceModel) entries() []store.VoiceEntry {
	out := make([]store.VoiceEntry, len(v.feed.snap.Voice))
	copy(out, v.feed.snap.Voice)
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out
}

// affirmationLevel is the signed-in user's preferred affirmation intensity.
func (v voiceModel) affirmationLevel() string {
	owner := v.deps.Session.UserID()
	if owner == "" {
		return content.Gentle
	}
	level, err := v.deps.Store.GetSetting(owner, store.SettingAffirmationIntensity)
	if err != nil || !content.ValidIntensity(level) {
		return content.Gentle
	}
	return level
}

func (v *voiceModel) pickAffirmation() {
	if v.deps.Content == nil {
		v.affirmation = nil
		return
	}
	v.affirmation = v.deps.Content.RandomAffirmation(v.selectedEmotion(), v.affirmationLevel(), nil)
}

func (v voiceModel) recState() recorder.State {
	if v.deps.Recorder == nil {
		return recorder.Idle
	}
	return v.deps.Recorder.State()
}

func (v voiceModel) update(msg tea.Msg) (voiceModel, tea.Cmd) {
	// feed traffic keeps flowing while a form is open
	switch msg := msg.(type) {
	case snapshotMsg:
		ok, cmd := v.feed.accept(msg)
		if ok {
			v.cursor = clamp(v.cursor, 0, max(0, len(v.feed.snap.Voice)-1))
			if v.affirmation == nil {
				v.pickAffirmation()
			}
		}
		return v, cmd

	case spinner.TickMsg:
		return v, v.feed.updateSpinner(msg)
	}

	if v.formActive && v.form != nil {
		return v.updateForm(msg)
	}

	switch msg := msg.(type) {
	case recordingStoppedMsg:
		if msg.err != nil {
			return v, func() tea.Msg {
				return alertMsg{title: "Recording", text: recorder.Reason(msg.err)}
			}
		}
		return v, statusCmd("Recording ready: " + recorder.FormatDuration(msg.clip.Duration))

	case tea.KeyMsg:
		if v.confirming {
			return v.updateConfirm(msg)
		}
		return v.updateKeys(msg)
	}
	return v, nil
}

func (v voiceModel) updateKeys(msg tea.KeyMsg) (voiceModel, tea.Cmd) {
	state := v.recState()
	n := len(v.feed.snap.Voice)

	switch {
	case key.Matches(msg, keys.Left):
		if state != recorder.Recording {
			v.emotionIdx = (v.emotionIdx + len(emotion.Names()) - 1) % len(emotion.Names())
			v.pickAffirmation()
		}
	case key.Matches(msg, keys.Right):
		if state != recorder.Recording {
			v.emotionIdx = (v.emotionIdx + 1) % len(emotion.Names())
			v.pickAffirmation()
		}
	case key.Matches(msg, keys.Affirm):
		v.pickAffirmation()
	case key.Matches(msg, keys.Record):
		if state == recorder.Idle || state == recorder.Recorded {
			return v, v.startRecording()
		}
	case key.Matches(msg, keys.Stop):
		if state == recorder.Recording {
			return v, v.stopRecording()
		}
	case key.Matches(msg, keys.Save):
		if state == recorder.Recorded {
			return v.showForm()
		}
	case key.Matches(msg, keys.Delete):
		if state == recorder.Recorded {
			v.deps.Recorder.Discard()
			return v, statusCmd("Recording discarded")
		}
		if n > 0 {
			v.confirming = true
		}
	case key.Matches(msg, keys.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case key.Matches(msg, keys.Down):
		if v.cursor < n-1 {
			v.cursor++
		}
	}
	return v, nil
}

func (v voiceModel) startRecording() tea.Cmd {
	rec := v.deps.Recorder
	if rec == nil {
		return func() tea.Msg {
			return alertMsg{title: "Recording", text: recorder.Reason(recorder.ErrUnsupported)}
		}
	}
	if err := rec.Start(context.Background()); err != nil {
		return func() tea.Msg {
			return alertMsg{title: "Recording", text: recorder.Reason(err)}
		}
	}
	return func() tea.Msg { return recordingStartedMsg{} }
}

func (v voiceModel) stopRecording() tea.Cmd {
	rec := v.deps.Recorder
	return func() tea.Msg {
		clip, err := rec.Stop()
		return recordingStoppedMsg{clip: clip, err: err}
	}
}

func (v voiceModel) updateConfirm(msg tea.KeyMsg) (voiceModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Yes):
		v.confirming = false
		list := v.entries()
		if v.cursor < len(list) {
			return v, v.deleteEntry(list[v.cursor])
		}
	case key.Matches(msg, keys.No):
		v.confirming = false
	}
	return v, nil
}

func (v voiceModel) deleteEntry(e store.VoiceEntry) tea.Cmd {
	st := v.deps.Store
	log := v.deps.Log
	return func() tea.Msg {
		if err := st.DeleteVoiceEntry(e.OwnerID, e.ID); err != nil {
			return alertMsg{title: "Could not delete recording", text: err.Error()}
		}
		if err := recorder.RemoveClip(e.AudioPath); err != nil {
			log.Warn("audio file left behind", "path", e.AudioPath, "error", err)
		}
		return voiceDeletedMsg{}
	}
}

func (v voiceModel) showForm() (voiceModel, tea.Cmd) {
	*v.formTitle = ""
	*v.formLevel = ""

	v.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Recording Title").
				Placeholder("What is this recording about?").
				Validate(required("a title")).
				Value(v.formTitle),
			huh.NewInput().Title("Intensity (0-10, optional)").
				Validate(validateIntensity).
				Value(v.formLevel),
		),
	).WithShowHelp(true).WithShowErrors(true)

	v.formActive = true
	return v, v.form.Init()
}

func (v voiceModel) updateForm(msg tea.Msg) (voiceModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			v.formActive = false
			v.form = nil
			return v, nil
		}
	}

	form, cmd := v.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		v.form = f
	}

	switch v.form.State {
	case huh.StateCompleted:
		v.formActive = false
		v.form = nil
		return v, v.save()
	case huh.StateAborted:
		v.formActive = false
		v.form = nil
	}
	return v, cmd
}

// save writes the clip to disk and then the record. A failed record write
// removes the orphaned file.
func (v voiceModel) save() tea.Cmd {
	rec := v.deps.Recorder
	clip := rec.Clip()
	owner := v.deps.Session.UserID()
	dir := v.deps.AudioDir
	st := v.deps.Store
	in := store.NewVoiceEntry{
		Title:     strings.TrimSpace(*v.formTitle),
		Emotion:   v.selectedEmotion(),
		Intensity: parseIntensity(*v.formLevel),
	}
	if a := v.affirmation; a != nil {
		in.Affirmation = &store.Affirmation{Text: a.Text, Category: a.Category, Intensity: a.Intensity}
	}

	return func() tea.Msg {
		if clip == nil {
			return alertMsg{title: "Could not save recording", text: recorder.Reason(recorder.ErrEmptyRecording)}
		}
		path, err := recorder.SaveClip(dir, uuid.NewString(), clip)
		if err != nil {
			return alertMsg{title: "Could not save recording", text: err.Error()}
		}
		in.AudioPath = path
		in.MIME = clip.MIME
		in.Duration = recorder.FormatDuration(clip.Duration)

		e, err := st.CreateVoiceEntry(owner, in)
		if err != nil {
			_ = recorder.RemoveClip(path)
			return alertMsg{title: "Could not save recording", text: err.Error()}
		}
		rec.Discard()
		return voiceSavedMsg{entry: e}
	}
}

func (v voiceModel) view() string {
	w := v.width - 4
	if v.formActive && v.form != nil {
		emo, _ := emotion.Lookup(v.selectedEmotion())
		head := titleStyle.Render("Save Recording") + mutedStyle.Render(fmt.Sprintf("  %s %s", emo.Emoji, emotion.Title(emo.Name)))
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, head, "", v.form.View()))
	}

	recorderPanel := v.renderRecorder(w)

	var list string
	switch {
	case !v.feed.loaded:
		list = panelStyle.Width(w).Render(v.feed.loadingView("recordings"))
	default:
		list = v.renderList(w)
	}
	return lipgloss.JoinVertical(lipgloss.Left, recorderPanel, list)
}

func (v voiceModel) renderRecorder(w int) string {
	emo, _ := emotion.Lookup(v.selectedEmotion())
	mood := fmt.Sprintf("← %s %s →", emo.Emoji,
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(emo.Color)).Render(emotion.Title(emo.Name)))

	var affirmation string
	if a := v.affirmation; a != nil {
		affirmation = lipgloss.JoinVertical(lipgloss.Center,
			accentStyle.Italic(true).Width(w-8).Align(lipgloss.Center).Render("“"+a.Text+"”"),
			mutedStyle.Render(a.Category+" • "+a.Intensity),
		)
	}

	var status, controls string
	state := v.recState()
	switch state {
	case recorder.Recording:
		status = errorStyle.Bold(true).Render("● REC ") + timerStyle.Render(recorder.FormatDuration(v.deps.Recorder.Elapsed()))
		controls = "x: stop"
	case recorder.Stopping:
		status = warningStyle.Render("Finishing...")
	case recorder.Recorded:
		status = successStyle.Render("✓ Recorded " + recorder.FormatDuration(v.deps.Recorder.Elapsed()))
		controls = "s: save  d: discard  r: record again"
	default:
		status = mutedStyle.Render("Ready to record")
		controls = "r: record  ←/→: mood  a: new affirmation"
	}

	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		titleStyle.Render("Voice Journal"),
		"",
		mood,
		"",
		affirmation,
		"",
		status,
		mutedStyle.Render(controls),
	))
}

func (v voiceModel) renderList(w int) string {
	list := v.entries()
	title := titleStyle.Render("Your Recordings")
	if len(list) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No recordings yet. Press r to record your first voice entry.")))
	}

	var rows []string
	rows = append(rows, title)
	visible := max(3, v.height-24)
	start := 0
	if v.cursor >= visible {
		start = v.cursor - visible + 1
	}
	for i := start; i < len(list) && i < start+visible; i++ {
		e := list[i]
		emo, _ := emotion.Lookup(e.Emotion)
		cursor := "  "
		style := normalItemStyle
		if i == v.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		when := e.DisplayDate
		if !e.CreatedAt.IsZero() {
			when = humanize.Time(e.CreatedAt)
		}
		row := style.Render(fmt.Sprintf("%s%s %s", cursor, emo.Emoji, truncate(e.Title, w-40))) +
			mutedStyle.Render(fmt.Sprintf("  %s  %s", e.Duration, when))
		rows = append(rows, row)
		if i == v.cursor && e.Affirmation != nil {
			rows = append(rows, mutedStyle.Italic(true).Render("     “"+truncate(e.Affirmation.Text, w-12)+"”"))
		}
		if i == v.cursor && e.AudioPath != "" {
			rows = append(rows, mutedStyle.Render("     "+e.AudioPath))
		}
	}

	rows = append(rows, "")
	if v.confirming {
		rows = append(rows, warningStyle.Render("  Delete this recording? y: yes  n: no"))
	} else {
		rows = append(rows, mutedStyle.Render("  ↑/↓: select  d: delete"))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
