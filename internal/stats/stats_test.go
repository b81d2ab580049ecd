package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/innerglow/internal/calendar"
	"github.com/sadopc/innerglow/internal/store"
)

func day(s string) calendar.Date {
	d, err := calendar.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func text(date, emo string) store.JournalEntry {
	return store.JournalEntry{Day: day(date), DisplayDate: date, Emotion: emo}
}

func voice(date, emo string) store.VoiceEntry {
	return store.VoiceEntry{Day: day(date), DisplayDate: date, Emotion: emo}
}

func ptr(n int) *int { return &n }

// ============================================================
// Aggregate
// ============================================================

func TestAggregateEmpty(t *testing.T) {
	agg := Aggregate(nil, nil)
	assert.Empty(t, agg.Trend)
	assert.Empty(t, agg.Distribution)
	assert.Zero(t, agg.Total)

	_, ok := agg.TopEmotion()
	assert.False(t, ok)
}

func TestAggregateDistributionRowsAndCounts(t *testing.T) {
	txt := []store.JournalEntry{
		text("2024-01-02", "happy"),
		text("2024-01-01", "sad"),
		text("2024-01-02", "happy"),
		text("2024-01-03", ""),
		text("2024-01-03", "nostalgic"),
	}
	vc := []store.VoiceEntry{
		voice("2024-01-01", "calm"),
		voice("2024-01-04", "happy"),
	}

	agg := Aggregate(txt, vc)
	require.Len(t, agg.Distribution, 3, "one row per distinct known label")

	sum := 0
	for _, s := range agg.Distribution {
		sum += s.Count
	}
	assert.Equal(t, 5, sum)
	assert.Equal(t, 5, agg.Total)

	// first-seen order
	assert.Equal(t, "happy", agg.Distribution[0].Emotion)
	assert.Equal(t, "sad", agg.Distribution[1].Emotion)
	assert.Equal(t, "calm", agg.Distribution[2].Emotion)
	assert.Equal(t, 3, agg.Distribution[0].Count)
	assert.Equal(t, 60, agg.Distribution[0].Percent)
	assert.Equal(t, "#EAB308", agg.Distribution[0].Color)

	top, ok := agg.TopEmotion()
	require.True(t, ok)
	assert.Equal(t, "happy", top.Emotion)
}

func TestAggregateTrendFirstSeenOrder(t *testing.T) {
	txt := []store.JournalEntry{
		text("2024-01-05", "happy"),
		text("2024-01-01", "sad"),
		text("2024-01-05", "calm"),
	}
	agg := Aggregate(txt, []store.VoiceEntry{voice("2024-01-03", "happy")})

	require.Len(t, agg.Trend, 3)
	assert.Equal(t, "2024-01-05", agg.Trend[0].Date)
	assert.Equal(t, "2024-01-01", agg.Trend[1].Date)
	assert.Equal(t, "2024-01-03", agg.Trend[2].Date)

	row := agg.Trend[0]
	assert.Equal(t, 1, row.Counts["happy"])
	assert.Equal(t, 1, row.Counts["calm"])
	assert.Equal(t, 0, row.Counts["angry"], "every known emotion has a count")
	assert.Len(t, row.Counts, 9)
}

func TestAggregateUnknownLabelDoesNotAffectOthers(t *testing.T) {
	base := []store.JournalEntry{text("2024-01-01", "happy"), text("2024-01-01", "sad")}
	with := append([]store.JournalEntry{text("2024-01-01", "wistful")}, base...)

	assert.Equal(t, Aggregate(base, nil), Aggregate(with, nil))
}

func TestAggregateSkipsRecordsWithoutDate(t *testing.T) {
	agg := Aggregate([]store.JournalEntry{{Emotion: "happy"}}, nil)
	assert.Empty(t, agg.Trend)
	assert.Empty(t, agg.Distribution)
}

func TestAggregatePercentNotCorrected(t *testing.T) {
	// thirds round to 33 each; the total stays at 99
	txt := []store.JournalEntry{
		text("2024-01-01", "happy"),
		text("2024-01-01", "sad"),
		text("2024-01-01", "calm"),
	}
	agg := Aggregate(txt, nil)
	total := 0
	for _, s := range agg.Distribution {
		assert.Equal(t, 33, s.Percent)
		total += s.Percent
	}
	assert.Equal(t, 99, total)
}

// ============================================================
// BuildMonth
// ============================================================

func TestBuildMonthTextThenVoiceKeepsTextMood(t *testing.T) {
	m := BuildMonth(2024, time.March,
		[]store.JournalEntry{text("2024-03-10", "sad")},
		[]store.VoiceEntry{voice("2024-03-10", "happy")},
	)
	c, ok := m.Cell(day("2024-03-10"))
	require.True(t, ok)
	assert.Equal(t, "sad", c.Mood)
	assert.True(t, c.HasVoice)
	assert.True(t, c.HasText)
}

func TestBuildMonthVoiceOnEmptyDate(t *testing.T) {
	m := BuildMonth(2024, time.March, nil, []store.VoiceEntry{voice("2024-03-11", "excited")})
	c, ok := m.Cell(day("2024-03-11"))
	require.True(t, ok)
	assert.Equal(t, "excited", c.Mood)
	assert.True(t, c.HasVoice)
	assert.False(t, c.HasText)
	assert.Equal(t, DefaultIntensity, c.Intensity)
}

func TestBuildMonthSecondVoiceOnlyFlags(t *testing.T) {
	v1 := voice("2024-03-11", "excited")
	v2 := voice("2024-03-11", "angry")
	m := BuildMonth(2024, time.March, nil, []store.VoiceEntry{v1, v2})
	c, _ := m.Cell(day("2024-03-11"))
	assert.Equal(t, "excited", c.Mood)
}

func TestBuildMonthUnlabeledVoiceFlagsExistingCell(t *testing.T) {
	m := BuildMonth(2024, time.March,
		[]store.JournalEntry{text("2024-03-05", "sad")},
		[]store.VoiceEntry{voice("2024-03-05", ""), voice("2024-03-06", "")})

	c, ok := m.Cell(day("2024-03-05"))
	require.True(t, ok)
	assert.Equal(t, "sad", c.Mood)
	assert.True(t, c.HasVoice)

	_, ok = m.Cell(day("2024-03-06"))
	assert.False(t, ok, "an unlabeled voice record alone creates no cell")
}

func TestBuildMonthNewestTextWins(t *testing.T) {
	older := text("2024-03-12", "anxious")
	older.CreatedAt = time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	older.Intensity = ptr(8)
	newer := text("2024-03-12", "calm")
	newer.CreatedAt = time.Date(2024, 3, 12, 21, 0, 0, 0, time.UTC)

	// store order is unspecified; feed newest first
	m := BuildMonth(2024, time.March, []store.JournalEntry{newer, older}, nil)
	c, _ := m.Cell(day("2024-03-12"))
	assert.Equal(t, "calm", c.Mood)
	assert.Equal(t, DefaultIntensity, c.Intensity)
}

func TestBuildMonthSkipsOutsideAndUnlabeled(t *testing.T) {
	m := BuildMonth(2024, time.March,
		[]store.JournalEntry{
			text("2024-02-29", "happy"),
			text("2024-03-01", ""),
			{DisplayDate: "garbled", Emotion: "happy"},
		},
		[]store.VoiceEntry{voice("2024-04-01", "calm")},
	)
	assert.Empty(t, m.Cells)
	assert.Equal(t, 5, m.Leading) // March 1, 2024 is a Friday
	assert.Equal(t, 31, m.Days)
}

func TestBuildMonthIntensityClamped(t *testing.T) {
	e := text("2024-03-02", "happy")
	e.Intensity = ptr(14)
	m := BuildMonth(2024, time.March, []store.JournalEntry{e}, nil)
	c, _ := m.Cell(day("2024-03-02"))
	assert.Equal(t, 10, c.Intensity)
}

func TestSelectionToggle(t *testing.T) {
	var s Selection
	d := day("2024-03-10")

	s.Toggle(d)
	got, open := s.Selected()
	assert.True(t, open)
	assert.Equal(t, d, got)

	s.Toggle(d)
	_, open = s.Selected()
	assert.False(t, open)

	other := day("2024-03-11")
	s.Toggle(d)
	s.Toggle(other)
	got, open = s.Selected()
	assert.True(t, open, "selecting a different date moves the panel")
	assert.Equal(t, other, got)

	s.Clear()
	_, open = s.Selected()
	assert.False(t, open)
}

func TestIntensityBar(t *testing.T) {
	assert.Equal(t, "■■■□□□□□□□", IntensityBar(3, "■", "□"))
	assert.Equal(t, "□□□□□□□□□□", IntensityBar(-1, "■", "□"))
	assert.Equal(t, "■■■■■■■■■■", IntensityBar(11, "■", "□"))
}

// ============================================================
// Streaks
// ============================================================

func TestStreaksEmpty(t *testing.T) {
	assert.Equal(t, StreakStats{}, Streaks(nil, 0))
	assert.Equal(t, StreakStats{}, FromRecords(nil, nil))
}

func TestStreaksExample(t *testing.T) {
	got := Streaks([]string{"2024-01-05", "2024-01-01", "2024-01-03", "2024-01-02"}, 4)
	assert.Equal(t, StreakStats{TotalEntries: 4, ActiveDays: 4, LongestStreak: 3}, got)
}

func TestStreaksSingleDate(t *testing.T) {
	got := Streaks([]string{"2024-01-05", "2024-01-05"}, 2)
	assert.Equal(t, StreakStats{TotalEntries: 2, ActiveDays: 1, LongestStreak: 1}, got)
}

func TestStreaksAcrossMonthAndLeapDay(t *testing.T) {
	got := Streaks([]string{"2024-02-28", "2024-02-29", "2024-03-01", "2024-03-03"}, 4)
	assert.Equal(t, 3, got.LongestStreak)
}

func TestStreaksMixedFormatsSameDay(t *testing.T) {
	got := Streaks([]string{"2024-01-01", "January 1, 2024", "1/2/2024"}, 3)
	assert.Equal(t, 2, got.ActiveDays)
	assert.Equal(t, 2, got.LongestStreak)
}

func TestStreaksUnparseableBreaksNothingButCounts(t *testing.T) {
	got := Streaks([]string{"2024-01-01", "someday", "2024-01-02", "", "soon"}, 5)
	assert.Equal(t, 4, got.ActiveDays)
	assert.Equal(t, 2, got.LongestStreak)

	only := Streaks([]string{"someday"}, 1)
	assert.Equal(t, StreakStats{TotalEntries: 1, ActiveDays: 1, LongestStreak: 1}, only)
}

func TestFromRecordsCountsBothKinds(t *testing.T) {
	got := FromRecords(
		[]store.JournalEntry{text("2024-01-01", "happy"), text("2024-01-02", "")},
		[]store.VoiceEntry{voice("2024-01-02", "calm"), voice("2024-01-03", "sad")},
	)
	assert.Equal(t, StreakStats{TotalEntries: 4, ActiveDays: 3, LongestStreak: 3}, got)
}

func TestCurrentStreak(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03", "2023-12-30"}
	assert.Equal(t, 3, CurrentStreak(dates, day("2024-01-03")))
	assert.Equal(t, 3, CurrentStreak(dates, day("2024-01-04")), "yesterday still counts")
	assert.Equal(t, 0, CurrentStreak(dates, day("2024-01-05")))
	assert.Equal(t, 0, CurrentStreak(nil, day("2024-01-05")))
}
