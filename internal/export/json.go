package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/innerglow/internal/stats"
	"github.com/sadopc/innerglow/internal/store"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	OwnerID    string      `json:"owner_id"`
	Count      int         `json:"count"`
	Stats      jsonStats   `json:"stats"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonStats struct {
	TotalEntries  int         `json:"total_entries"`
	ActiveDays    int         `json:"active_days"`
	LongestStreak int         `json:"longest_streak"`
	Distribution  []jsonShare `json:"distribution"`
}

type jsonShare struct {
	Emotion string `json:"emotion"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

type jsonEntry struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time,omitempty"`
	Title       string `json:"title"`
	Emotion     string `json:"emotion,omitempty"`
	Intensity   *int   `json:"intensity,omitempty"`
	Content     string `json:"content,omitempty"`
	Audio       string `json:"audio,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Affirmation string `json:"affirmation,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func ToJSON(snap *store.Snapshot, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    []jsonEntry{},
	}

	if snap != nil {
		export.OwnerID = snap.OwnerID
		export.Count = snap.Total()

		st := stats.FromRecords(snap.Text, snap.Voice)
		agg := stats.Aggregate(snap.Text, snap.Voice)
		export.Stats = jsonStats{
			TotalEntries:  st.TotalEntries,
			ActiveDays:    st.ActiveDays,
			LongestStreak: st.LongestStreak,
		}
		for _, s := range agg.Distribution {
			export.Stats.Distribution = append(export.Stats.Distribution, jsonShare{
				Emotion: s.Emotion,
				Count:   s.Count,
				Percent: s.Percent,
			})
		}
	}

	for _, r := range rows(snap) {
		export.Entries = append(export.Entries, jsonEntry{
			Type:        r.kind,
			ID:          r.id,
			Date:        r.date,
			Time:        r.time,
			Title:       r.title,
			Emotion:     r.emotion,
			Intensity:   r.intensity,
			Content:     r.content,
			Audio:       r.audio,
			Duration:    r.duration,
			Affirmation: r.affirmation,
			CreatedAt:   r.created.UTC().Format(time.RFC3339),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
