package store

import (
	"time"

	"github.com/sadopc/innerglow/internal/calendar"
)

// Display layouts written alongside every record.
const (
	DisplayDateLayout = "January 2, 2006"
	DisplayTimeLayout = "3:04 PM"
)

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// JournalEntry is a text journal record.
type JournalEntry struct {
	ID          string
	OwnerID     string
	Title       string
	Content     string
	Emotion     string
	Intensity   *int // 0-10, nil when not given
	DisplayDate string
	DisplayTime string
	Day         calendar.Date // zero when DisplayDate could not be parsed
	CreatedAt   time.Time
}

// Affirmation is attached to a voice record when one was shown while recording.
type Affirmation struct {
	Text      string
	Category  string
	Intensity string // gentle, moderate, strong
}

// VoiceEntry is a recorded voice journal record.
type VoiceEntry struct {
	ID          string
	OwnerID     string
	Title       string
	AudioPath   string
	MIME        string
	Duration    string // m:ss
	Emotion     string
	Intensity   *int
	Affirmation *Affirmation
	DisplayDate string
	DisplayTime string
	Day         calendar.Date
	CreatedAt   time.Time
}

// NewJournalEntry holds the user-supplied fields of a text record.
type NewJournalEntry struct {
	Title     string
	Content   string
	Emotion   string
	Intensity *int
}

// NewVoiceEntry holds the user-supplied fields of a voice record.
type NewVoiceEntry struct {
	Title       string
	AudioPath   string
	MIME        string
	Duration    string
	Emotion     string
	Intensity   *int
	Affirmation *Affirmation
}

// Snapshot is the complete current state of one user's records.
type Snapshot struct {
	OwnerID  string
	Text     []JournalEntry
	Voice    []VoiceEntry
	LoadedAt time.Time
}

// Total returns the number of records in the snapshot.
func (s Snapshot) Total() int { return len(s.Text) + len(s.Voice) }

type RitualSession struct {
	ID          string
	OwnerID     string
	Ritual      string
	Category    string
	StepsDone   int
	StepsTotal  int
	Duration    int64 // seconds
	CompletedAt time.Time
}

type Setting struct {
	Key   string
	Value string
}

// DateKey returns the calendar date of a record as YYYY-MM-DD, or the raw
// display string when it never parsed.
func DateKey(day calendar.Date, display string) string {
	if !day.IsZero() {
		return day.String()
	}
	return display
}

func (e JournalEntry) DateKey() string { return DateKey(e.Day, e.DisplayDate) }

func (e VoiceEntry) DateKey() string { return DateKey(e.Day, e.DisplayDate) }
