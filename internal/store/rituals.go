package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordRitual stores a finished or abandoned guided practice.
func (s *Store) RecordRitual(owner string, r RitualSession) (*RitualSession, error) {
	if owner == "" {
		return nil, fmt.Errorf("record ritual: empty owner")
	}
	r.ID = uuid.NewString()
	r.OwnerID = owner
	if r.CompletedAt.IsZero() {
		r.CompletedAt = s.now()
	}
	r.CompletedAt = r.CompletedAt.UTC().Truncate(time.Second)

	_, err := s.db.Exec(
		`INSERT INTO ritual_sessions (id, owner_id, ritual, category, steps_done, steps_total, duration, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, owner, r.Ritual, r.Category, r.StepsDone, r.StepsTotal, r.Duration,
		r.CompletedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("record ritual: %w", err)
	}
	return &r, nil
}

// ListRitualSessions returns owner's sessions, newest first.
func (s *Store) ListRitualSessions(owner string, limit int) ([]RitualSession, error) {
	query := `SELECT id, owner_id, ritual, category, steps_done, steps_total, duration, completed_at
		FROM ritual_sessions WHERE owner_id = ? ORDER BY completed_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}
	rows, err := s.db.Query(query, owner)
	if err != nil {
		return nil, fmt.Errorf("list ritual sessions: %w", err)
	}
	defer rows.Close()

	var sessions []RitualSession
	for rows.Next() {
		var r RitualSession
		var completedAt string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Ritual, &r.Category, &r.StepsDone, &r.StepsTotal, &r.Duration, &completedAt); err != nil {
			return nil, err
		}
		r.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
		sessions = append(sessions, r)
	}
	return sessions, rows.Err()
}

// RitualDays returns the distinct local dates (YYYY-MM-DD) of completed rituals.
func (s *Store) RitualDays(owner string) ([]string, error) {
	sessions, err := s.ListRitualSessions(owner, 0)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var days []string
	for _, r := range sessions {
		if r.StepsDone < r.StepsTotal {
			continue
		}
		d := r.CompletedAt.Local().Format("2006-01-02")
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, nil
}
