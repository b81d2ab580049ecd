package stats

import (
	"sort"
	"time"

	"github.com/sadopc/innerglow/internal/calendar"
	"github.com/sadopc/innerglow/internal/store"
)

// DefaultIntensity is shown for records that carry no intensity.
const DefaultIntensity = 5

// Cell is the annotation of one calendar date.
type Cell struct {
	Date      calendar.Date
	Mood      string
	Intensity int
	HasText   bool
	HasVoice  bool
}

// Month is a month grid plus its annotated cells.
type Month struct {
	calendar.Grid
	Cells map[calendar.Date]Cell
}

// Cell returns the annotation for d, if any.
func (m Month) Cell(d calendar.Date) (Cell, bool) {
	c, ok := m.Cells[d]
	return c, ok
}

// BuildMonth annotates the grid of year/month. Text records are applied first,
// oldest to newest, so the most recently created text record sets a date's
// mood. Voice records then only flag dates that already have a cell; a voice
// record on an empty date creates the cell with its own mood.
func BuildMonth(year int, month time.Month, text []store.JournalEntry, voice []store.VoiceEntry) Month {
	m := Month{
		Grid:  calendar.MonthGrid(year, month),
		Cells: make(map[calendar.Date]Cell),
	}

	ordered := make([]store.JournalEntry, len(text))
	copy(ordered, text)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	for _, e := range ordered {
		if e.Emotion == "" || !m.Contains(e.Day) {
			continue
		}
		m.Cells[e.Day] = Cell{
			Date:      e.Day,
			Mood:      e.Emotion,
			Intensity: intensityOr(e.Intensity),
			HasText:   true,
		}
	}

	for _, e := range voice {
		if !m.Contains(e.Day) {
			continue
		}
		if c, ok := m.Cells[e.Day]; ok {
			c.HasVoice = true
			m.Cells[e.Day] = c
			continue
		}
		if e.Emotion == "" {
			continue
		}
		m.Cells[e.Day] = Cell{
			Date:      e.Day,
			Mood:      e.Emotion,
			Intensity: intensityOr(e.Intensity),
			HasVoice:  true,
		}
	}
	return m
}

func intensityOr(p *int) int {
	if p == nil {
		return DefaultIntensity
	}
	v := *p
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// Selection tracks which calendar date, if any, has its detail panel open.
type Selection struct {
	date calendar.Date
	open bool
}

// Toggle opens the panel for d, or closes it when d is already selected.
func (s *Selection) Toggle(d calendar.Date) {
	if s.open && s.date == d {
		s.open = false
		s.date = calendar.Date{}
		return
	}
	s.date = d
	s.open = true
}

func (s *Selection) Selected() (calendar.Date, bool) { return s.date, s.open }

func (s *Selection) Clear() { *s = Selection{} }

// IntensityBar renders v on a 10-segment bar using the given glyphs.
func IntensityBar(v int, full, empty string) string {
	if v < 0 {
		v = 0
	}
	if v > 10 {
		v = 10
	}
	out := ""
	for i := 0; i < 10; i++ {
		if i < v {
			out += full
		} else {
			out += empty
		}
	}
	return out
}
