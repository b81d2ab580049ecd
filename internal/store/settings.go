package store

import (
	"database/sql"
	"fmt"
)

// Setting keys.
const (
	SettingTheme                = "theme"
	SettingAffirmationIntensity = "affirmation_intensity"
	SettingWeekStart            = "week_start"
	SettingDailyReminder        = "daily_reminder"
)

// DefaultSettings are seeded for every new user.
var DefaultSettings = []Setting{
	{Key: SettingTheme, Value: "dark"},
	{Key: SettingAffirmationIntensity, Value: "gentle"},
	{Key: SettingWeekStart, Value: "sunday"},
	{Key: SettingDailyReminder, Value: "off"},
}

func (s *Store) GetSetting(owner, key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE owner_id = ? AND key = ?`, owner, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("get setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(owner, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (owner_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(owner_id, key) DO UPDATE SET value = excluded.value`,
		owner, key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings(owner string) ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings WHERE owner_id = ? ORDER BY key`, owner)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GetState reads an application-wide value. Missing keys return "".
func (s *Store) GetState(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %q: %w", key, err)
	}
	return value, nil
}

// SetState writes an application-wide value; an empty value removes the key.
func (s *Store) SetState(key, value string) error {
	var err error
	if value == "" {
		_, err = s.db.Exec(`DELETE FROM app_state WHERE key = ?`, key)
	} else {
		_, err = s.db.Exec(
			`INSERT INTO app_state (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
	}
	if err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}
