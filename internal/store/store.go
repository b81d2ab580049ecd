package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

// ErrNotFound is returned when a record does not exist for the given owner.
var ErrNotFound = errors.New("not found")

type Store struct {
	db  *sql.DB
	now func() time.Time

	mu        sync.Mutex
	listeners map[int]func(owner string)
	nextID    int
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{
		db:        db,
		now:       time.Now,
		listeners: make(map[int]func(string)),
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SetClock replaces the wall clock used to stamp new rows.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// OnChange registers fn to be called with the owner id after every
// successful write or delete. The returned func unregisters it.
func (s *Store) OnChange(fn func(owner string)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(owner string) {
	s.mu.Lock()
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(owner)
	}
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		first_name     TEXT NOT NULL,
		last_name      TEXT NOT NULL,
		email          TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash  TEXT NOT NULL,
		created_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now')),
		updated_at     TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS journal_entries (
		id            TEXT PRIMARY KEY,
		owner_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title         TEXT NOT NULL DEFAULT '',
		content       TEXT NOT NULL DEFAULT '',
		emotion       TEXT NOT NULL DEFAULT '',
		intensity     INTEGER,
		display_date  TEXT NOT NULL DEFAULT '',
		display_time  TEXT NOT NULL DEFAULT '',
		day           TEXT NOT NULL DEFAULT '',
		created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_journal_owner ON journal_entries(owner_id);

	CREATE TABLE IF NOT EXISTS voice_entries (
		id                     TEXT PRIMARY KEY,
		owner_id               TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title                  TEXT NOT NULL DEFAULT '',
		audio_path             TEXT NOT NULL DEFAULT '',
		mime                   TEXT NOT NULL DEFAULT '',
		duration               TEXT NOT NULL DEFAULT '',
		emotion                TEXT NOT NULL DEFAULT '',
		intensity              INTEGER,
		affirmation_text       TEXT,
		affirmation_category   TEXT,
		affirmation_intensity  TEXT,
		display_date           TEXT NOT NULL DEFAULT '',
		display_time           TEXT NOT NULL DEFAULT '',
		day                    TEXT NOT NULL DEFAULT '',
		created_at             TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_voice_owner ON voice_entries(owner_id);

	CREATE TABLE IF NOT EXISTS settings (
		owner_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		key       TEXT NOT NULL,
		value     TEXT NOT NULL,
		PRIMARY KEY (owner_id, key)
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *Store) migrateV2() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS ritual_sessions (
		id            TEXT PRIMARY KEY,
		owner_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		ritual        TEXT NOT NULL,
		category      TEXT NOT NULL DEFAULT '',
		steps_done    INTEGER NOT NULL DEFAULT 0,
		steps_total   INTEGER NOT NULL DEFAULT 0,
		duration      INTEGER NOT NULL DEFAULT 0,
		completed_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ritual_owner ON ritual_sessions(owner_id);

	CREATE TABLE IF NOT EXISTS app_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/innerglow/innerglow.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "innerglow", "innerglow.db"), nil
}

// DefaultAudioDir returns ~/.config/innerglow/audio
func DefaultAudioDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "innerglow", "audio"), nil
}
