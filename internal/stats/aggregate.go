// Package stats derives trend, distribution, calendar and streak figures from
// a user's complete set of journal records. Every function here is a pure
// pass over its inputs; malformed records are skipped, never reported.
package stats

import (
	"math"

	"github.com/sadopc/innerglow/internal/emotion"
	"github.com/sadopc/innerglow/internal/store"
)

// TrendRow holds the per-emotion counts of one date.
type TrendRow struct {
	Date   string // YYYY-MM-DD, or the raw display string when unparseable
	Counts map[string]int
}

// Share is one row of the emotion distribution.
type Share struct {
	Emotion string
	Count   int
	Percent int
	Color   string
}

type Aggregation struct {
	Trend        []TrendRow
	Distribution []Share
	Total        int // labeled records counted
}

type item struct {
	date    string
	emotion string
}

func collect(text []store.JournalEntry, voice []store.VoiceEntry) []item {
	items := make([]item, 0, len(text)+len(voice))
	for _, e := range text {
		items = append(items, item{date: e.DateKey(), emotion: e.Emotion})
	}
	for _, e := range voice {
		items = append(items, item{date: e.DateKey(), emotion: e.Emotion})
	}
	return items
}

// Aggregate buckets records by date and by emotion in a single pass. Records
// with no date or a label outside the known set are left out of both outputs.
// Rows keep first-seen order; percentages are rounded per row and may not
// add up to exactly 100.
func Aggregate(text []store.JournalEntry, voice []store.VoiceEntry) Aggregation {
	var agg Aggregation
	byDate := make(map[string]int) // date -> index into agg.Trend
	byEmotion := make(map[string]int)

	for _, it := range collect(text, voice) {
		if it.date == "" || !emotion.Known(it.emotion) {
			continue
		}
		idx, ok := byDate[it.date]
		if !ok {
			idx = len(agg.Trend)
			byDate[it.date] = idx
			agg.Trend = append(agg.Trend, TrendRow{Date: it.date, Counts: zeroCounts()})
		}
		agg.Trend[idx].Counts[it.emotion]++

		pos, ok := byEmotion[it.emotion]
		if !ok {
			pos = len(agg.Distribution)
			byEmotion[it.emotion] = pos
			e, _ := emotion.Lookup(it.emotion)
			agg.Distribution = append(agg.Distribution, Share{Emotion: it.emotion, Color: e.Color})
		}
		agg.Distribution[pos].Count++
		agg.Total++
	}

	for i := range agg.Distribution {
		share := &agg.Distribution[i]
		share.Percent = int(math.Round(float64(share.Count) / float64(agg.Total) * 100))
	}
	return agg
}

func zeroCounts() map[string]int {
	m := make(map[string]int, len(emotion.Names()))
	for _, n := range emotion.Names() {
		m[n] = 0
	}
	return m
}

// TopEmotion returns the most frequent label, ties going to the one seen first.
func (a Aggregation) TopEmotion() (Share, bool) {
	var best Share
	found := false
	for _, s := range a.Distribution {
		if !found || s.Count > best.Count {
			best = s
			found = true
		}
	}
	return best, found
}
