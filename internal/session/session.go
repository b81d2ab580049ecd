// Package session holds who is signed in and how the UI is themed. A Session
// is passed explicitly to every component that needs it.
package session

import (
	"sync"

	"github.com/sadopc/innerglow/internal/store"
)

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"
)

// ParseTheme maps anything but "light" to Dark.
func ParseTheme(s string) Theme {
	if s == string(Light) {
		return Light
	}
	return Dark
}

// Event reports a change of signed-in user. User is nil after sign-out.
type Event struct {
	User *store.User
}

func (e Event) UserID() string {
	if e.User == nil {
		return ""
	}
	return e.User.ID
}

type Session struct {
	mu       sync.RWMutex
	user     *store.User
	theme    Theme
	watchers map[int]chan Event
	nextID   int
}

func New(theme Theme) *Session {
	return &Session{theme: theme, watchers: make(map[int]chan Event)}
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *store.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// SetUser replaces the current user. Watchers are told only when the user
// id actually changes; profile edits of the same user are silent.
func (s *Session) SetUser(u *store.User) {
	s.mu.Lock()
	prev := ""
	if s.user != nil {
		prev = s.user.ID
	}
	var cp *store.User
	if u != nil {
		c := *u
		cp = &c
	}
	s.user = cp
	next := ""
	if cp != nil {
		next = cp.ID
	}
	if prev == next {
		s.mu.Unlock()
		return
	}
	ev := Event{User: cp}
	for _, ch := range s.watchers {
		// latest wins
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
	s.mu.Unlock()
}

func (s *Session) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *Session) SetTheme(t Theme) {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
}

// ToggleTheme flips between dark and light and returns the new theme.
func (s *Session) ToggleTheme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.theme == Light {
		s.theme = Dark
	} else {
		s.theme = Light
	}
	return s.theme
}

// Watch returns a channel of user-change events. Only the most recent
// undelivered event is kept. cancel closes the channel.
func (s *Session) Watch() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}
