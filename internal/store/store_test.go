package store

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/sadopc/innerglow/internal/calendar"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestUser is a test helper that creates a user with a throwaway hash.
func newTestUser(t *testing.T, s *Store, email string) *User {
	t.Helper()
	u, err := s.CreateUser("Ada", "Lovelace", email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func fixedClock(ts string) func() time.Time {
	t, _ := time.Parse(time.RFC3339, ts)
	return func() time.Time { return t }
}

func ptr(n int) *int { return &n }

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/innerglow.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen; should succeed and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultPaths(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
	audio, err := DefaultAudioDir()
	if err != nil {
		t.Fatal(err)
	}
	if audio == "" {
		t.Fatal("empty audio dir")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Users
// ============================================================

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ada@example.com")
	if u.ID == "" {
		t.Fatal("expected an id")
	}
	if u.DisplayName() != "Ada Lovelace" {
		t.Fatalf("unexpected display name %q", u.DisplayName())
	}

	got, err := s.GetUserByEmail("ADA@example.com ")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != u.ID {
		t.Fatal("email lookup should be case-insensitive")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	newTestUser(t, s, "dup@example.com")
	if _, err := s.CreateUser("B", "C", "Dup@example.com", "h"); err == nil {
		t.Fatal("expected error for duplicate email")
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUser("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByEmail("nope@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserProfileAndPassword(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ada@example.com")
	if err := s.UpdateUserProfile(u.ID, "Augusta", "King"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdatePassword(u.ID, "newhash"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetUser(u.ID)
	if got.FirstName != "Augusta" || got.LastName != "King" || got.PasswordHash != "newhash" {
		t.Fatalf("update failed: %+v", got)
	}
	if err := s.UpdatePassword("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Journal entries
// ============================================================

func TestCreateJournalEntryStampsDates(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ada@example.com")
	s.SetClock(fixedClock("2024-03-05T12:00:00Z"))

	e, err := s.CreateJournalEntry(u.ID, NewJournalEntry{
		Title: "Morning", Content: "Slept well", Emotion: "calm", Intensity: ptr(7),
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.ID == "" || e.OwnerID != u.ID {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Intensity == nil || *e.Intensity != 7 {
		t.Fatal("intensity should round trip")
	}
	local := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC).Local()
	if e.DisplayDate != local.Format(DisplayDateLayout) {
		t.Fatalf("display date %q", e.DisplayDate)
	}
	if e.Day != calendar.FromTime(local) {
		t.Fatalf("day %v", e.Day)
	}
	if e.DateKey() != e.Day.String() {
		t.Fatal("date key should be the normalized day")
	}
}

func TestJournalEntryWithoutIntensity(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "ada@example.com")
	e, err := s.CreateJournalEntry(u.ID, NewJournalEntry{Title: "x", Emotion: "sad"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Intensity != nil {
		t.Fatal("intensity should stay nil")
	}
}

func TestCreateJournalEntryEmptyOwner(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJournalEntry("", NewJournalEntry{}); err == nil {
		t.Fatal("expected error for empty owner")
	}
}

func TestCreateJournalEntryUnknownOwner(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateJournalEntry("ghost", NewJournalEntry{Title: "x"}); err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestListJournalEntriesIsolation(t *testing.T) {
	s := newTestStore(t)
	a := newTestUser(t, s, "a@example.com")
	b := newTestUser(t, s, "b@example.com")
	s.CreateJournalEntry(a.ID, NewJournalEntry{Title: "A1"})
	s.CreateJournalEntry(a.ID, NewJournalEntry{Title: "A2"})
	s.CreateJournalEntry(b.ID, NewJournalEntry{Title: "B1"})

	entries, err := s.ListJournalEntries(context.Background(), a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.OwnerID != a.ID {
			t.Fatal("list leaked another user's entry")
		}
	}
}

func TestListJournalEntriesEmpty(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	entries, err := s.ListJournalEntries(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if entries != nil {
		t.Fatalf("expected nil slice, got %d items", len(entries))
	}
}

func TestDeleteJournalEntry(t *testing.T) {
	s := newTestStore(t)
	a := newTestUser(t, s, "a@example.com")
	b := newTestUser(t, s, "b@example.com")
	e, _ := s.CreateJournalEntry(a.ID, NewJournalEntry{Title: "x"})

	if err := s.DeleteJournalEntry(b.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other owner delete: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteJournalEntry(a.ID, e.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteJournalEntry(a.ID, e.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestLegacyRowDayFromDisplayDate(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	_, err := s.db.Exec(
		`INSERT INTO journal_entries (id, owner_id, title, emotion, display_date, display_time, day)
		 VALUES ('legacy', ?, 'old', 'happy', '1/15/2024', '9:00 AM', '')`, u.ID,
	)
	if err != nil {
		t.Fatal(err)
	}
	_, err = s.db.Exec(
		`INSERT INTO journal_entries (id, owner_id, title, emotion, display_date, display_time, day)
		 VALUES ('garbled', ?, 'old', 'happy', 'sometime', '', '')`, u.ID,
	)
	if err != nil {
		t.Fatal(err)
	}

	e, err := s.GetJournalEntry(u.ID, "legacy")
	if err != nil {
		t.Fatal(err)
	}
	if e.Day != calendar.New(2024, time.January, 15) {
		t.Fatalf("expected parsed legacy day, got %v", e.Day)
	}

	g, _ := s.GetJournalEntry(u.ID, "garbled")
	if !g.Day.IsZero() || g.DateKey() != "sometime" {
		t.Fatalf("unparseable row should keep its display string: %+v", g)
	}
}

// ============================================================
// Voice entries
// ============================================================

func TestCreateVoiceEntryWithAffirmation(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	v, err := s.CreateVoiceEntry(u.ID, NewVoiceEntry{
		Title: "Evening", AudioPath: "/tmp/x.wav", MIME: "audio/wav", Duration: "0:42",
		Emotion: "hopeful",
		Affirmation: &Affirmation{
			Text: "Tomorrow is new", Category: "hopeful", Intensity: "gentle",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.Affirmation == nil || v.Affirmation.Intensity != "gentle" {
		t.Fatalf("affirmation lost: %+v", v.Affirmation)
	}
	if v.MIME != "audio/wav" || v.Duration != "0:42" {
		t.Fatalf("unexpected voice entry: %+v", v)
	}
}

func TestCreateVoiceEntryReturnsWrittenRow(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	s.SetClock(fixedClock("2024-03-05T12:00:00Z"))

	v, err := s.CreateVoiceEntry(u.ID, NewVoiceEntry{
		Title: "Evening", AudioPath: "/tmp/x.wav", MIME: "audio/wav", Duration: "0:42",
		Emotion: "calm", Intensity: ptr(3),
		Affirmation: &Affirmation{Text: "Breathe", Category: "calm", Intensity: "strong"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetVoiceEntry(u.ID, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v.OwnerID != got.OwnerID || v.Title != got.Title || v.AudioPath != got.AudioPath ||
		v.Emotion != got.Emotion || *v.Intensity != *got.Intensity {
		t.Fatalf("returned %+v, stored %+v", v, got)
	}
	if v.DisplayDate != got.DisplayDate || v.DisplayTime != got.DisplayTime || v.Day != got.Day {
		t.Fatalf("dates differ: returned %+v, stored %+v", v, got)
	}
	if !v.CreatedAt.Equal(got.CreatedAt) {
		t.Fatalf("created at %v, stored %v", v.CreatedAt, got.CreatedAt)
	}
	if *v.Affirmation != *got.Affirmation {
		t.Fatalf("affirmation %+v, stored %+v", v.Affirmation, got.Affirmation)
	}
}

func TestCreateVoiceEntryUnknownOwner(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateVoiceEntry("ghost", NewVoiceEntry{Title: "x"}); err == nil {
		t.Fatal("expected foreign key failure")
	}
}

func TestCreateVoiceEntryWithoutAffirmation(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	v, err := s.CreateVoiceEntry(u.ID, NewVoiceEntry{Title: "x", Emotion: "calm"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Affirmation != nil {
		t.Fatal("affirmation should be nil")
	}
}

func TestDeleteVoiceEntry(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	v, _ := s.CreateVoiceEntry(u.ID, NewVoiceEntry{Title: "x"})
	if err := s.DeleteVoiceEntry(u.ID, v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetVoiceEntry(u.ID, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteVoiceEntry(u.ID, v.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Snapshot and change notices
// ============================================================

func TestSnapshotLoadsBothCollections(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	s.CreateJournalEntry(u.ID, NewJournalEntry{Title: "t1"})
	s.CreateJournalEntry(u.ID, NewJournalEntry{Title: "t2"})
	s.CreateVoiceEntry(u.ID, NewVoiceEntry{Title: "v1"})

	snap, err := s.Snapshot(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if snap.OwnerID != u.ID || len(snap.Text) != 2 || len(snap.Voice) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Total() != 3 {
		t.Fatalf("expected total 3, got %d", snap.Total())
	}
}

func TestSnapshotCancelled(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Snapshot(ctx, u.ID); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestOnChangeFiresForWritesOnly(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")

	var got []string
	cancel := s.OnChange(func(owner string) { got = append(got, owner) })

	e, _ := s.CreateJournalEntry(u.ID, NewJournalEntry{Title: "x"})
	v, _ := s.CreateVoiceEntry(u.ID, NewVoiceEntry{Title: "y"})
	s.DeleteJournalEntry(u.ID, e.ID)
	s.DeleteVoiceEntry(u.ID, v.ID)
	s.DeleteVoiceEntry(u.ID, v.ID) // not found, no notice
	s.CreateJournalEntry("ghost", NewJournalEntry{Title: "z"})

	if len(got) != 4 {
		t.Fatalf("expected 4 notices, got %d", len(got))
	}
	for _, o := range got {
		if o != u.ID {
			t.Fatalf("notice for wrong owner %q", o)
		}
	}

	cancel()
	s.CreateJournalEntry(u.ID, NewJournalEntry{Title: "after"})
	if len(got) != 4 {
		t.Fatal("cancelled listener should not be called")
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")

	tests := []struct {
		key  string
		want string
	}{
		{SettingTheme, "dark"},
		{SettingAffirmationIntensity, "gentle"},
		{SettingWeekStart, "sunday"},
		{SettingDailyReminder, "off"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := s.GetSetting(u.ID, tt.key)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	other := newTestUser(t, s, "b@example.com")

	if err := s.SetSetting(u.ID, SettingTheme, "light"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSetting(u.ID, SettingTheme)
	if got != "light" {
		t.Fatalf("expected light, got %q", got)
	}
	got, _ = s.GetSetting(other.ID, SettingTheme)
	if got != "dark" {
		t.Fatal("settings should be per user")
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	if _, err := s.GetSetting(u.ID, "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")
	settings, err := s.GetAllSettings(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != len(DefaultSettings) {
		t.Fatalf("expected %d settings, got %d", len(DefaultSettings), len(settings))
	}
	if !sort.SliceIsSorted(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key }) {
		t.Fatal("settings should be sorted by key")
	}
}

func TestAppState(t *testing.T) {
	s := newTestStore(t)
	v, err := s.GetState("last_user")
	if err != nil || v != "" {
		t.Fatalf("expected empty state, got %q, %v", v, err)
	}
	s.SetState("last_user", "abc")
	v, _ = s.GetState("last_user")
	if v != "abc" {
		t.Fatalf("expected abc, got %q", v)
	}
	s.SetState("last_user", "")
	v, _ = s.GetState("last_user")
	if v != "" {
		t.Fatal("empty value should clear the key")
	}
}

// ============================================================
// Rituals
// ============================================================

func TestRecordAndListRituals(t *testing.T) {
	s := newTestStore(t)
	u := newTestUser(t, s, "a@example.com")

	first, _ := time.Parse(time.RFC3339, "2024-01-01T10:00:00Z")
	second := first.Add(24 * time.Hour)
	s.RecordRitual(u.ID, RitualSession{Ritual: "4-7-8 Calming Breath", StepsDone: 4, StepsTotal: 4, Duration: 300, CompletedAt: first})
	s.RecordRitual(u.ID, RitualSession{Ritual: "Body Scan Meditation", StepsDone: 2, StepsTotal: 5, Duration: 120, CompletedAt: second})

	sessions, err := s.ListRitualSessions(u.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].Ritual != "Body Scan Meditation" {
		t.Fatal("expected newest first")
	}

	limited, _ := s.ListRitualSessions(u.ID, 1)
	if len(limited) != 1 {
		t.Fatalf("expected 1 session with limit, got %d", len(limited))
	}

	days, err := s.RitualDays(u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 1 {
		t.Fatalf("only completed rituals count, got %v", days)
	}
}

func TestRecordRitualEmptyOwner(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.RecordRitual("", RitualSession{Ritual: "x"}); err == nil {
		t.Fatal("expected error for empty owner")
	}
}

// ============================================================
// Close
// ============================================================

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetUser("x"); err == nil {
		t.Fatal("expected error after close")
	}
}
