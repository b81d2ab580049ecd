package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *Store) CreateVoiceEntry(owner string, in NewVoiceEntry) (*VoiceEntry, error) {
	if owner == "" {
		return nil, fmt.Errorf("create voice entry: empty owner")
	}
	var affText, affCategory, affIntensity sql.NullString
	if a := in.Affirmation; a != nil {
		affText = sql.NullString{String: a.Text, Valid: true}
		affCategory = sql.NullString{String: a.Category, Valid: true}
		affIntensity = sql.NullString{String: a.Intensity, Valid: true}
	}

	id := uuid.NewString()
	st := s.stampNow()
	_, err := s.db.Exec(
		`INSERT INTO voice_entries (id, owner_id, title, audio_path, mime, duration, emotion, intensity,
			affirmation_text, affirmation_category, affirmation_intensity,
			display_date, display_time, day, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, owner, in.Title, in.AudioPath, in.MIME, in.Duration, in.Emotion, nullableInt(in.Intensity),
		affText, affCategory, affIntensity,
		st.displayDate, st.displayTime, st.day, st.createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert voice entry: %w", err)
	}
	s.notify(owner)

	// no read-back: once the row exists its audio file must be kept
	e := &VoiceEntry{
		ID:          id,
		OwnerID:     owner,
		Title:       in.Title,
		AudioPath:   in.AudioPath,
		MIME:        in.MIME,
		Duration:    in.Duration,
		Emotion:     in.Emotion,
		DisplayDate: st.displayDate,
		DisplayTime: st.displayTime,
		Day:         st.date,
		CreatedAt:   st.at,
	}
	if a := in.Affirmation; a != nil {
		cp := *a
		e.Affirmation = &cp
	}
	if in.Intensity != nil {
		v := *in.Intensity
		e.Intensity = &v
	}
	return e, nil
}

const voiceColumns = `id, owner_id, title, audio_path, mime, duration, emotion, intensity,
	affirmation_text, affirmation_category, affirmation_intensity,
	display_date, display_time, day, created_at`

func (s *Store) GetVoiceEntry(owner, id string) (*VoiceEntry, error) {
	row := s.db.QueryRow(
		`SELECT `+voiceColumns+` FROM voice_entries WHERE id = ? AND owner_id = ?`, id, owner,
	)
	e, err := scanVoice(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get voice entry %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get voice entry %s: %w", id, err)
	}
	return &e, nil
}

// ListVoiceEntries returns every voice record of owner. No order is implied.
func (s *Store) ListVoiceEntries(ctx context.Context, owner string) ([]VoiceEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+voiceColumns+` FROM voice_entries WHERE owner_id = ?`, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list voice entries: %w", err)
	}
	defer rows.Close()

	var entries []VoiceEntry
	for rows.Next() {
		e, err := scanVoice(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteVoiceEntry removes the row. The audio file is left to the caller.
func (s *Store) DeleteVoiceEntry(owner, id string) error {
	res, err := s.db.Exec(`DELETE FROM voice_entries WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete voice entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete voice entry %s: %w", id, ErrNotFound)
	}
	s.notify(owner)
	return nil
}

func scanVoice(r scanner) (VoiceEntry, error) {
	var e VoiceEntry
	var intensity sql.NullInt64
	var affText, affCategory, affIntensity sql.NullString
	var day, createdAt string
	if err := r.Scan(&e.ID, &e.OwnerID, &e.Title, &e.AudioPath, &e.MIME, &e.Duration, &e.Emotion, &intensity,
		&affText, &affCategory, &affIntensity,
		&e.DisplayDate, &e.DisplayTime, &day, &createdAt); err != nil {
		return e, err
	}
	e.Intensity = intPtr(intensity)
	if affText.Valid {
		e.Affirmation = &Affirmation{
			Text:      affText.String,
			Category:  affCategory.String,
			Intensity: affIntensity.String,
		}
	}
	e.Day = resolveDay(day, e.DisplayDate)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return e, nil
}
