package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a user and seeds their default settings.
func (s *Store) CreateUser(firstName, lastName, email, passwordHash string) (*User, error) {
	id := uuid.NewString()
	now := s.now().UTC().Format(time.RFC3339)

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO users (id, first_name, last_name, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, firstName, lastName, strings.TrimSpace(email), passwordHash, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	for _, d := range DefaultSettings {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO settings (owner_id, key, value) VALUES (?, ?, ?)`,
			id, d.Key, d.Value,
		); err != nil {
			return nil, fmt.Errorf("seed setting %q: %w", d.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetUser(id)
}

func (s *Store) GetUser(id string) (*User, error) {
	u, err := scanUser(s.db.QueryRow(
		`SELECT id, first_name, last_name, email, password_hash, created_at, updated_at FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail matches case-insensitively.
func (s *Store) GetUserByEmail(email string) (*User, error) {
	u, err := scanUser(s.db.QueryRow(
		`SELECT id, first_name, last_name, email, password_hash, created_at, updated_at FROM users WHERE email = ?`,
		strings.TrimSpace(email),
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get user by email: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) UpdateUserProfile(id, firstName, lastName string) error {
	now := s.now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE users SET first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`,
		firstName, lastName, now, id,
	)
	if err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update user profile %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) UpdatePassword(id, passwordHash string) error {
	now := s.now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, now, id,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update password %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanUser(r scanner) (*User, error) {
	u := &User{}
	var createdAt, updatedAt string
	if err := r.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return u, nil
}
