// Package auth is the local identity provider: account registration, sign-in
// with bcrypt-hashed passwords, and remembering the last signed-in user.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/innerglow/internal/session"
	"github.com/sadopc/innerglow/internal/store"
)

const (
	MinPasswordLength = 8
	lastUserKey       = "last_user"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrEmailTaken     = errors.New("an account with this email already exists")
	ErrBadCredentials = errors.New("invalid email or password")
)

// FieldError names the form field that failed validation.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

func invalid(field, msg string) error {
	return &FieldError{Field: field, Message: msg}
}

// Users is the part of the store the service needs.
type Users interface {
	CreateUser(firstName, lastName, email, passwordHash string) (*store.User, error)
	GetUser(id string) (*store.User, error)
	GetUserByEmail(email string) (*store.User, error)
	UpdateUserProfile(id, firstName, lastName string) error
	UpdatePassword(id, passwordHash string) error
	GetState(key string) (string, error)
	SetState(key, value string) error
}

type Service struct {
	users Users
	sess  *session.Session
	log   *slog.Logger
	cost  int
}

func NewService(users Users, sess *session.Session, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{users: users, sess: sess, log: log, cost: bcrypt.DefaultCost}
}

// SetCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) SetCost(cost int) { s.cost = cost }

func (s *Service) Current() *store.User { return s.sess.User() }

// Register validates the form, creates the account and signs it in.
func (s *Service) Register(firstName, lastName, email, password string) (*store.User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.TrimSpace(email)

	if err := ValidateName("first_name", firstName); err != nil {
		return nil, err
	}
	if err := ValidateName("last_name", lastName); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(firstName, lastName, email, string(hash))
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	s.log.Info("user registered", "user", u.ID)
	return u, s.signIn(u)
}

func (s *Service) Login(email, password string) (*store.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrBadCredentials
	}
	u, err := s.users.GetUserByEmail(email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed sign-in", "user", u.ID)
		return nil, ErrBadCredentials
	}
	return u, s.signIn(u)
}

func (s *Service) signIn(u *store.User) error {
	s.sess.SetUser(u)
	if err := s.users.SetState(lastUserKey, u.ID); err != nil {
		return fmt.Errorf("remember user: %w", err)
	}
	return nil
}

// Logout clears the session and the remembered user.
func (s *Service) Logout() error {
	s.sess.SetUser(nil)
	if err := s.users.SetState(lastUserKey, ""); err != nil {
		return fmt.Errorf("forget user: %w", err)
	}
	return nil
}

// Restore signs the last user back in, if one was remembered and still
// exists. It returns nil, nil when there is nobody to restore.
func (s *Service) Restore() (*store.User, error) {
	id, err := s.users.GetState(lastUserKey)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if id == "" {
		return nil, nil
	}
	u, err := s.users.GetUser(id)
	if errors.Is(err, store.ErrNotFound) {
		_ = s.users.SetState(lastUserKey, "")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	s.sess.SetUser(u)
	return u, nil
}

// UpdateProfile changes the current user's name.
func (s *Service) UpdateProfile(firstName, lastName string) (*store.User, error) {
	cur := s.sess.User()
	if cur == nil {
		return nil, ErrBadCredentials
	}
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if err := ValidateName("first_name", firstName); err != nil {
		return nil, err
	}
	if err := ValidateName("last_name", lastName); err != nil {
		return nil, err
	}
	if err := s.users.UpdateUserProfile(cur.ID, firstName, lastName); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	u, err := s.users.GetUser(cur.ID)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.sess.SetUser(u)
	return u, nil
}

// ChangePassword verifies the old password before storing the new one.
func (s *Service) ChangePassword(oldPassword, newPassword string) error {
	cur := s.sess.User()
	if cur == nil {
		return ErrBadCredentials
	}
	u, err := s.users.GetUser(cur.ID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrBadCredentials
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(u.ID, string(hash)); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.log.Info("password changed", "user", u.ID)
	return nil
}

func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		label := "First name"
		if field == "last_name" {
			label = "Last name"
		}
		return invalid(field, label+" is required")
	}
	return nil
}

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return invalid("email", "Please enter a valid email address")
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return invalid("password", "Password is required")
	}
	if len([]rune(password)) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Strength scores a password from 0 to 5 and names the score.
func Strength(password string) (int, string) {
	if password == "" {
		return 0, ""
	}
	var upper, lower, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	score := 0
	for _, ok := range []bool{len(password) >= MinPasswordLength, upper, lower, digit, other} {
		if ok {
			score++
		}
	}
	names := []string{"Very Weak", "Weak", "Fair", "Good", "Strong", "Strong"}
	return score, names[score]
}
