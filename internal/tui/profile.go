package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/innerglow/internal/auth"
	"github.com/sadopc/innerglow/internal/content"
	"github.com/sadopc/innerglow/internal/session"
	"github.com/sadopc/innerglow/internal/stats"
	"github.com/sadopc/innerglow/internal/store"
)

type profileForm int

const (
	formNone profileForm = iota
	formSettings
	formProfile
	formPassword
)

type profileModel struct {
	deps   *Deps
	feed   feedClient
	width  int
	height int

	settings   []store.Setting
	rituals    int
	ritualDays int
	formKind   profileForm
	form       *huh.Form

	// Form values as pointers (survive value copies)
	intensity *string
	weekStart *string
	reminder  *string
	theme     *string
	firstName *string
	lastName  *string
	oldPass   *string
	newPass   *string
}

type profileDataMsg struct {
	settings   []store.Setting
	rituals    int
	ritualDays int
	err        error
}

// settingsSavedMsg tells the app to re-read preferences.
type settingsSavedMsg struct {
	theme session.Theme
}

type profileSavedMsg struct {
	user *store.User
}

type passwordChangedMsg struct{}

type signOutMsg struct {
	err error
}

func newProfileModel(d *Deps) profileModel {
	in, ws, rm, th := "", "", "", ""
	fn, ln, op, np := "", "", "", ""
	return profileModel{
		deps:      d,
		feed:      newFeedClient(viewProfile, d.Feed),
		intensity: &in,
		weekStart: &ws,
		reminder:  &rm,
		theme:     &th,
		firstName: &fn,
		lastName:  &ln,
		oldPass:   &op,
		newPass:   &np,
	}
}

func (p *profileModel) setSize(w, h int) {
	p.width = w
	p.height = h
}

func (p profileModel) refresh() tea.Cmd {
	owner := p.deps.Session.UserID()
	if owner == "" {
		return nil
	}
	st := p.deps.Store
	return func() tea.Msg {
		settings, err := st.GetAllSettings(owner)
		if err != nil {
			return profileDataMsg{err: err}
		}
		sessions, err := st.ListRitualSessions(owner, 0)
		if err != nil {
			return profileDataMsg{err: err}
		}
		days, err := st.RitualDays(owner)
		if err != nil {
			return profileDataMsg{err: err}
		}
		return profileDataMsg{settings: settings, rituals: len(sessions), ritualDays: len(days)}
	}
}

func (p profileModel) update(msg tea.Msg) (profileModel, tea.Cmd) {
	// data keeps flowing while a form is open
	switch msg := msg.(type) {
	case snapshotMsg:
		_, cmd := p.feed.accept(msg)
		return p, cmd

	case spinner.TickMsg:
		return p, p.feed.updateSpinner(msg)

	case profileDataMsg:
		if msg.err != nil {
			p.deps.Log.Warn("profile data unavailable", "error", msg.err)
			return p, nil
		}
		p.settings = msg.settings
		p.rituals = msg.rituals
		p.ritualDays = msg.ritualDays
		return p, nil

	case ritualRecordedMsg, settingsSavedMsg:
		return p, p.refresh()
	}

	if p.formKind != formNone && p.form != nil {
		return p.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter):
			return p.showSettingsForm()
		case key.Matches(msg, keys.New):
			return p.showProfileForm()
		case msg.String() == "p":
			return p.showPasswordForm()
		case key.Matches(msg, keys.SignOut):
			return p, p.signOut()
		}
	}
	return p, nil
}

func (p profileModel) getVal(k, fallback string) string {
	for _, s := range p.settings {
		if s.Key == k {
			return s.Value
		}
	}
	return fallback
}

func (p profileModel) showSettingsForm() (profileModel, tea.Cmd) {
	*p.intensity = p.getVal(store.SettingAffirmationIntensity, content.Gentle)
	*p.weekStart = p.getVal(store.SettingWeekStart, "sunday")
	*p.reminder = p.getVal(store.SettingDailyReminder, "off")
	*p.theme = string(p.deps.Session.Theme())

	var levels []huh.Option[string]
	for _, l := range content.Intensities() {
		levels = append(levels, huh.NewOption(strings.ToUpper(l[:1])+l[1:], l))
	}

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Affirmation intensity").
				Options(levels...).
				Value(p.intensity),
			huh.NewSelect[string]().Title("Week starts on").
				Options(
					huh.NewOption("Sunday", "sunday"),
					huh.NewOption("Monday", "monday"),
				).Value(p.weekStart),
			huh.NewSelect[string]().Title("Daily reminder").
				Options(
					huh.NewOption("Off", "off"),
					huh.NewOption("On", "on"),
				).Value(p.reminder),
			huh.NewSelect[string]().Title("Theme").
				Options(
					huh.NewOption("Dark", string(session.Dark)),
					huh.NewOption("Light", string(session.Light)),
				).Value(p.theme),
		).Title("Preferences"),
	).WithShowHelp(true).WithShowErrors(true)

	return p.openForm(formSettings)
}

func (p profileModel) showProfileForm() (profileModel, tea.Cmd) {
	u := p.deps.Session.User()
	if u == nil {
		return p, nil
	}
	*p.firstName = u.FirstName
	*p.lastName = u.LastName

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").
				Validate(func(s string) error { return auth.ValidateName("first_name", s) }).
				Value(p.firstName),
			huh.NewInput().Title("Last name").
				Validate(func(s string) error { return auth.ValidateName("last_name", s) }).
				Value(p.lastName),
		).Title("Edit Profile"),
	).WithShowHelp(true).WithShowErrors(true)

	return p.openForm(formProfile)
}

func (p profileModel) showPasswordForm() (profileModel, tea.Cmd) {
	*p.oldPass = ""
	*p.newPass = ""

	p.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Current password").
				EchoMode(huh.EchoModePassword).
				Value(p.oldPass),
			huh.NewInput().Title("New password").
				EchoMode(huh.EchoModePassword).
				Validate(auth.ValidatePassword).
				DescriptionFunc(func() string { return strengthLabel(*p.newPass) }, p.newPass).
				Value(p.newPass),
		).Title("Change Password"),
	).WithShowHelp(true).WithShowErrors(true)

	return p.openForm(formPassword)
}

func (p profileModel) openForm(kind profileForm) (profileModel, tea.Cmd) {
	p.formKind = kind
	return p, p.form.Init()
}

func (p *profileModel) closeForm() {
	p.formKind = formNone
	p.form = nil
}

func strengthLabel(pw string) string {
	score, name := auth.Strength(pw)
	if name == "" {
		return ""
	}
	return fmt.Sprintf("Strength: %s %s", stats.IntensityBar(score*2, "▰", "▱"), name)
}

func (p profileModel) updateForm(msg tea.Msg) (profileModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			p.closeForm()
			return p, nil
		}
	}

	form, cmd := p.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		p.form = f
	}

	switch p.form.State {
	case huh.StateCompleted:
		kind := p.formKind
		p.closeForm()
		switch kind {
		case formSettings:
			return p, p.saveSettings()
		case formProfile:
			return p, p.saveProfile()
		case formPassword:
			return p, p.savePassword()
		}
	case huh.StateAborted:
		p.closeForm()
		return p, nil
	}
	return p, cmd
}

func (p profileModel) saveSettings() tea.Cmd {
	owner := p.deps.Session.UserID()
	st := p.deps.Store
	values := []store.Setting{
		{Key: store.SettingAffirmationIntensity, Value: *p.intensity},
		{Key: store.SettingWeekStart, Value: *p.weekStart},
		{Key: store.SettingDailyReminder, Value: *p.reminder},
		{Key: store.SettingTheme, Value: *p.theme},
	}
	theme := session.ParseTheme(*p.theme)
	return func() tea.Msg {
		for _, s := range values {
			if err := st.SetSetting(owner, s.Key, s.Value); err != nil {
				return alertMsg{title: "Could not save settings", text: err.Error()}
			}
		}
		return settingsSavedMsg{theme: theme}
	}
}

func (p profileModel) saveProfile() tea.Cmd {
	svc := p.deps.Auth
	first, last := *p.firstName, *p.lastName
	return func() tea.Msg {
		u, err := svc.UpdateProfile(first, last)
		if err != nil {
			return alertMsg{title: "Could not update profile", text: authMessage(err)}
		}
		return profileSavedMsg{user: u}
	}
}

func (p profileModel) savePassword() tea.Cmd {
	svc := p.deps.Auth
	oldPass, newPass := *p.oldPass, *p.newPass
	return func() tea.Msg {
		if err := svc.ChangePassword(oldPass, newPass); err != nil {
			if errors.Is(err, auth.ErrBadCredentials) {
				return alertMsg{title: "Password not changed", text: "Your current password is incorrect."}
			}
			return alertMsg{title: "Password not changed", text: authMessage(err)}
		}
		return passwordChangedMsg{}
	}
}

func (p profileModel) signOut() tea.Cmd {
	svc := p.deps.Auth
	return func() tea.Msg {
		return signOutMsg{err: svc.Logout()}
	}
}

func (p profileModel) view() string {
	w := p.width - 4
	if p.formKind != formNone && p.form != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Profile"), "", p.form.View()))
	}

	u := p.deps.Session.User()
	if u == nil {
		return panelStyle.Width(w).Render(mutedStyle.Render("Not signed in."))
	}

	initials := strings.ToUpper(firstRune(u.FirstName) + firstRune(u.LastName))
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		brandStyle.Padding(0, 1).Render(initials), "  ",
		lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(u.DisplayName()),
			mutedStyle.Render(u.Email),
			mutedStyle.Render("Member since "+u.CreatedAt.Format("January 2006")+" ("+humanize.Time(u.CreatedAt)+")"),
		),
	)

	var statsBlock string
	if p.feed.loaded {
		st := stats.FromRecords(p.feed.snap.Text, p.feed.snap.Voice)
		line := func(label string, v int) string {
			return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(22).Render(label), highlightStyle.Render(fmt.Sprint(v)))
		}
		statsBlock = strings.Join([]string{
			subtitleStyle.Render("Your Journey"),
			line("Journal entries", len(p.feed.snap.Text)),
			line("Voice recordings", len(p.feed.snap.Voice)),
			line("Active days", st.ActiveDays),
			line("Longest streak", st.LongestStreak),
			line("Rituals completed", p.rituals),
			line("Practice days", p.ritualDays),
		}, "\n")
	} else {
		statsBlock = p.feed.loadingView("your stats")
	}

	var rows []string
	rows = append(rows, subtitleStyle.Render("Preferences"))
	for _, s := range p.settings {
		label := lipgloss.NewStyle().Width(24).Render(settingLabel(s.Key))
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(s.Value)))
	}

	hint := mutedStyle.Render("enter: preferences  n: edit name  p: change password  o: sign out")
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "", statsBlock, "", strings.Join(rows, "\n"), "", hint,
	))
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

func settingLabel(k string) string {
	switch k {
	case store.SettingAffirmationIntensity:
		return "Affirmation intensity"
	case store.SettingWeekStart:
		return "Week starts on"
	case store.SettingDailyReminder:
		return "Daily reminder"
	case store.SettingTheme:
		return "Theme"
	}
	return k
}

// authMessage turns an auth error into text fit for the user.
func authMessage(err error) string {
	var fe *auth.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	switch {
	case errors.Is(err, auth.ErrBadCredentials), errors.Is(err, auth.ErrEmailTaken):
		return err.Error()
	}
	return "Something went wrong: " + err.Error()
}
