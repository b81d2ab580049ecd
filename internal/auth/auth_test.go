package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sadopc/innerglow/internal/session"
	"github.com/sadopc/innerglow/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store, *session.Session) {
	t.Helper()
	s, err := store.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	sess := session.New(session.Dark)
	svc := NewService(s, sess, nil)
	svc.SetCost(bcrypt.MinCost)
	return svc, s, sess
}

func TestRegisterSignsIn(t *testing.T) {
	svc, s, sess := newTestService(t)
	u, err := svc.Register(" Ada ", "Lovelace", "ada@example.com", "analytical1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FirstName)
	assert.NotEqual(t, "analytical1", u.PasswordHash)

	assert.Equal(t, u.ID, sess.UserID())
	last, _ := s.GetState(lastUserKey)
	assert.Equal(t, u.ID, last)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, sess := newTestService(t)
	tests := []struct {
		name                     string
		first, last, email, pass string
		field                    string
	}{
		{"no first", "", "L", "a@example.com", "longenough", "first_name"},
		{"no last", "A", " ", "a@example.com", "longenough", "last_name"},
		{"no email", "A", "L", "", "longenough", "email"},
		{"bad email", "A", "L", "not-an-email", "longenough", "email"},
		{"no tld", "A", "L", "a@localhost", "longenough", "email"},
		{"display name", "A", "L", "Ada <a@example.com>", "longenough", "email"},
		{"no password", "A", "L", "a@example.com", "", "password"},
		{"short password", "A", "L", "a@example.com", "short", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.first, tt.last, tt.email, tt.pass)
			require.ErrorIs(t, err, ErrInvalidInput)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.field, fe.Field)
		})
	}
	assert.Nil(t, sess.User())
}

func TestRegisterEmailTaken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register("A", "L", "ada@example.com", "longenough")
	require.NoError(t, err)
	_, err = svc.Register("B", "M", "ADA@example.com", "longenough")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginAndLogout(t *testing.T) {
	svc, s, sess := newTestService(t)
	reg, err := svc.Register("A", "L", "ada@example.com", "longenough")
	require.NoError(t, err)
	require.NoError(t, svc.Logout())
	assert.Nil(t, svc.Current())
	last, _ := s.GetState(lastUserKey)
	assert.Empty(t, last)

	_, err = svc.Login("ada@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Login("nobody@example.com", "longenough")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Login("", "")
	assert.ErrorIs(t, err, ErrBadCredentials)

	u, err := svc.Login("ada@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, u.ID)
	assert.Equal(t, reg.ID, sess.UserID())
}

func TestRestore(t *testing.T) {
	svc, s, _ := newTestService(t)
	u, err := svc.Restore()
	require.NoError(t, err)
	assert.Nil(t, u)

	reg, _ := svc.Register("A", "L", "ada@example.com", "longenough")

	// a fresh process: new session over the same store
	sess2 := session.New(session.Dark)
	svc2 := NewService(s, sess2, nil)
	u, err = svc2.Restore()
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, reg.ID, sess2.UserID())
}

func TestRestoreForgetsMissingUser(t *testing.T) {
	svc, s, _ := newTestService(t)
	require.NoError(t, s.SetState(lastUserKey, "ghost"))
	u, err := svc.Restore()
	require.NoError(t, err)
	assert.Nil(t, u)
	last, _ := s.GetState(lastUserKey)
	assert.Empty(t, last)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, sess := newTestService(t)
	_, err := svc.UpdateProfile("X", "Y")
	assert.ErrorIs(t, err, ErrBadCredentials)

	svc.Register("A", "L", "ada@example.com", "longenough")
	u, err := svc.UpdateProfile("Augusta", "King")
	require.NoError(t, err)
	assert.Equal(t, "Augusta King", u.DisplayName())
	assert.Equal(t, "Augusta", sess.User().FirstName)

	_, err = svc.UpdateProfile("", "King")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	svc.Register("A", "L", "ada@example.com", "longenough")

	assert.ErrorIs(t, svc.ChangePassword("wrong", "newpassword"), ErrBadCredentials)
	assert.ErrorIs(t, svc.ChangePassword("longenough", "short"), ErrInvalidInput)
	require.NoError(t, svc.ChangePassword("longenough", "newpassword"))

	svc.Logout()
	_, err := svc.Login("ada@example.com", "longenough")
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.Login("ada@example.com", "newpassword")
	assert.NoError(t, err)
}

func TestStrength(t *testing.T) {
	tests := []struct {
		pass  string
		score int
		name  string
	}{
		{"", 0, ""},
		{"abc", 1, "Weak"},
		{"abcdefgh", 2, "Fair"},
		{"Abcdefgh", 3, "Good"},
		{"Abcdefg1", 4, "Strong"},
		{"Abcdef1!", 5, "Strong"},
	}
	for _, tt := range tests {
		score, name := Strength(tt.pass)
		assert.Equal(t, tt.score, score, tt.pass)
		assert.Equal(t, tt.name, name, tt.pass)
	}
}
