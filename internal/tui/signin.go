package tui

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/innerglow/internal/auth"
	"github.com/sadopc/innerglow/internal/store"
)

type signinMode int

const (
	modeLogin signinMode = iota
	modeRegister
)

// signinModel is the screen shown while nobody is signed in.
type signinModel struct {
	deps   *Deps
	width  int
	height int

	mode    signinMode
	form    *huh.Form
	busy    bool
	message string

	first    *string
	last     *string
	email    *string
	password *string
	confirm  *string
}

type authResultMsg struct {
	user *store.User
	err  error
}

func newSigninModel(d *Deps) signinModel {
	f, l, e, p, c := "", "", "", "", ""
	s := signinModel{deps: d, first: &f, last: &l, email: &e, password: &p, confirm: &c}
	s.form = s.buildForm()
	return s
}

func (s *signinModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s signinModel) init() tea.Cmd {
	return s.form.Init()
}

// reset clears everything, as after a sign-out.
func (s *signinModel) reset() {
	*s.first, *s.last, *s.email = "", "", ""
	s.clearPasswords()
	s.mode = modeLogin
	s.message = ""
	s.busy = false
	s.form = s.buildForm()
}

func (s *signinModel) clearPasswords() {
	*s.password = ""
	*s.confirm = ""
}

func (s signinModel) buildForm() *huh.Form {
	email := huh.NewInput().Title("Email").
		Placeholder("you@example.com").
		Validate(auth.ValidateEmail).
		Value(s.email)
	password := huh.NewInput().Title("Password").
		EchoMode(huh.EchoModePassword).
		Value(s.password)

	if s.mode == modeLogin {
		return huh.NewForm(
			huh.NewGroup(email, password.Validate(required("your password"))).
				Title("Welcome back").
				Description("Sign in to continue your journey"),
		).WithShowHelp(true).WithShowErrors(true)
	}

	pw := s.password
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("First name").
				Validate(func(v string) error { return auth.ValidateName("first_name", v) }).
				Value(s.first),
			huh.NewInput().Title("Last name").
				Validate(func(v string) error { return auth.ValidateName("last_name", v) }).
				Value(s.last),
			email,
			password.Validate(auth.ValidatePassword).
				DescriptionFunc(func() string { return strengthLabel(*pw) }, pw),
			huh.NewInput().Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Validate(func(v string) error {
					if v != *pw {
						return errors.New("passwords do not match")
					}
					return nil
				}).
				Value(s.confirm),
		).Title("Begin your journey").
			Description("Create an account to start journaling"),
	).WithShowHelp(true).WithShowErrors(true)
}

func (s signinModel) switchMode() (signinModel, tea.Cmd) {
	if s.mode == modeLogin {
		s.mode = modeRegister
	} else {
		s.mode = modeLogin
	}
	s.message = ""
	s.clearPasswords()
	s.form = s.buildForm()
	return s, s.form.Init()
}

func (s signinModel) update(msg tea.Msg) (signinModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authResultMsg:
		s.busy = false
		if msg.err == nil {
			s.reset()
			return s, nil
		}
		s.message = signinMessage(msg.err)
		s.clearPasswords()
		s.form = s.buildForm()
		return s, s.form.Init()

	case tea.KeyMsg:
		if s.busy {
			return s, nil
		}
		if msg.String() == "ctrl+r" {
			return s.switchMode()
		}
	}

	if s.busy {
		return s, nil
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}
	if s.form.State == huh.StateCompleted {
		s.busy = true
		s.message = ""
		return s, s.submit()
	}
	return s, cmd
}

func (s signinModel) submit() tea.Cmd {
	svc := s.deps.Auth
	mode := s.mode
	first, last := *s.first, *s.last
	email, password := strings.TrimSpace(*s.email), *s.password
	return func() tea.Msg {
		var u *store.User
		var err error
		if mode == modeLogin {
			u, err = svc.Login(email, password)
		} else {
			u, err = svc.Register(first, last, email, password)
		}
		return authResultMsg{user: u, err: err}
	}
}

func signinMessage(err error) string {
	if errors.Is(err, auth.ErrBadCredentials) {
		return "Invalid email or password. Please try again."
	}
	return authMessage(err)
}

func (s signinModel) view() string {
	w := min(72, s.width-4)

	brand := lipgloss.JoinVertical(lipgloss.Center,
		brandStyle.Render("✨ InnerGlow"),
		mutedStyle.Render("Your safe space for reflection and growth"),
	)

	rows := []string{brand, "", s.form.View()}
	if s.busy {
		rows = append(rows, "", accentStyle.Render("One moment..."))
	}
	if s.message != "" {
		rows = append(rows, "", errorStyle.Render(s.message))
	}
	switchHint := "ctrl+r: create an account"
	if s.mode == modeRegister {
		switchHint = "ctrl+r: I already have an account"
	}
	rows = append(rows, "", mutedStyle.Render(switchHint+"  ctrl+c: quit"))

	box := activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	return lipgloss.Place(s.width, s.height, lipgloss.Center, lipgloss.Center, box)
}
