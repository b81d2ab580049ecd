package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/innerglow/internal/calendar"
)

// stamp holds the date fields written with every new record.
type stamp struct {
	displayDate string
	displayTime string
	day         string
	createdAt   string

	date calendar.Date
	at   time.Time
}

func (s *Store) stampNow() stamp {
	now := s.now()
	local := now.Local()
	at := now.UTC().Truncate(time.Second)
	date := calendar.FromTime(local)
	return stamp{
		displayDate: local.Format(DisplayDateLayout),
		displayTime: local.Format(DisplayTimeLayout),
		day:         date.String(),
		createdAt:   at.Format(time.RFC3339),
		date:        date,
		at:          at,
	}
}

// resolveDay prefers the normalized column and falls back to parsing the
// display string for rows written before it existed.
func resolveDay(day, display string) calendar.Date {
	if d, err := calendar.Parse(day); err == nil {
		return d
	}
	d, _ := calendar.Parse(display)
	return d
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func (s *Store) CreateJournalEntry(owner string, in NewJournalEntry) (*JournalEntry, error) {
	if owner == "" {
		return nil, fmt.Errorf("create journal entry: empty owner")
	}
	id := uuid.NewString()
	st := s.stampNow()
	_, err := s.db.Exec(
		`INSERT INTO journal_entries (id, owner_id, title, content, emotion, intensity, display_date, display_time, day, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, owner, in.Title, in.Content, in.Emotion, nullableInt(in.Intensity),
		st.displayDate, st.displayTime, st.day, st.createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	s.notify(owner)
	return s.GetJournalEntry(owner, id)
}

func (s *Store) GetJournalEntry(owner, id string) (*JournalEntry, error) {
	row := s.db.QueryRow(
		`SELECT id, owner_id, title, content, emotion, intensity, display_date, display_time, day, created_at
		 FROM journal_entries WHERE id = ? AND owner_id = ?`, id, owner,
	)
	e, err := scanJournal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get journal entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry %s: %w", id, err)
	}
	return &e, nil
}

// ListJournalEntries returns every text record of owner. No order is implied.
func (s *Store) ListJournalEntries(ctx context.Context, owner string) ([]JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, content, emotion, intensity, display_date, display_time, day, created_at
		 FROM journal_entries WHERE owner_id = ?`, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		e, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) DeleteJournalEntry(owner, id string) error {
	res, err := s.db.Exec(`DELETE FROM journal_entries WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete journal entry %s: %w", id, ErrNotFound)
	}
	s.notify(owner)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJournal(r scanner) (JournalEntry, error) {
	var e JournalEntry
	var intensity sql.NullInt64
	var day, createdAt string
	if err := r.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Content, &e.Emotion, &intensity,
		&e.DisplayDate, &e.DisplayTime, &day, &createdAt); err != nil {
		return e, err
	}
	e.Intensity = intPtr(intensity)
	e.Day = resolveDay(day, e.DisplayDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}
