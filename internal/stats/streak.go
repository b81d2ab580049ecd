package stats

import (
	"sort"

	"github.com/sadopc/innerglow/internal/calendar"
	"github.com/sadopc/innerglow/internal/store"
)

type StreakStats struct {
	TotalEntries  int
	ActiveDays    int
	LongestStreak int
}

// Streaks computes streak figures from the date strings of all records.
// Dates naming the same day collapse into one active day. A date that does
// not parse still counts as an active day but can never extend or join a run.
func Streaks(dates []string, totalEntries int) StreakStats {
	st := StreakStats{TotalEntries: totalEntries}

	seenRaw := make(map[string]bool, len(dates))
	seenDay := make(map[calendar.Date]bool, len(dates))
	var parsed []calendar.Date
	unparsed := 0
	for _, s := range dates {
		if s == "" || seenRaw[s] {
			continue
		}
		seenRaw[s] = true
		d, err := calendar.Parse(s)
		if err != nil {
			unparsed++
			continue
		}
		if !seenDay[d] {
			seenDay[d] = true
			parsed = append(parsed, d)
		}
	}
	st.ActiveDays = len(parsed) + unparsed
	if st.ActiveDays == 0 {
		return st
	}

	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Before(parsed[j]) })

	run := 0
	var prev calendar.Date
	for i, d := range parsed {
		switch {
		case i == 0:
			run = 1
		case d.DaysSince(prev) == 1:
			run++
		default:
			run = 1
		}
		prev = d
		if run > st.LongestStreak {
			st.LongestStreak = run
		}
	}
	if unparsed > 0 && st.LongestStreak == 0 {
		st.LongestStreak = 1
	}
	return st
}

// FromRecords runs Streaks over both record collections.
func FromRecords(text []store.JournalEntry, voice []store.VoiceEntry) StreakStats {
	return Streaks(Dates(text, voice), len(text)+len(voice))
}

// Dates lists the date key of every record, duplicates included.
func Dates(text []store.JournalEntry, voice []store.VoiceEntry) []string {
	dates := make([]string, 0, len(text)+len(voice))
	for _, e := range text {
		dates = append(dates, e.DateKey())
	}
	for _, e := range voice {
		dates = append(dates, e.DateKey())
	}
	return dates
}

// CurrentStreak is the run of consecutive active days ending today, or
// ending yesterday when nothing has been written yet today.
func CurrentStreak(dates []string, today calendar.Date) int {
	active := make(map[calendar.Date]bool, len(dates))
	for _, s := range dates {
		if d, err := calendar.Parse(s); err == nil {
			active[d] = true
		}
	}
	day := today
	if !active[day] {
		day = day.AddDays(-1)
	}
	n := 0
	for active[day] {
		n++
		day = day.AddDays(-1)
	}
	return n
}
