package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/sadopc/innerglow/internal/emotion"
	"github.com/sadopc/innerglow/internal/store"
)

var csvHeader = []string{"Type", "ID", "Date", "Time", "Title", "Emotion", "Intensity", "Content", "Audio", "Duration", "Affirmation", "Created"}

// row is one record of either kind, flattened for export.
type row struct {
	kind        string
	id          string
	date        string
	time        string
	title       string
	emotion     string
	intensity   *int
	content     string
	audio       string
	duration    string
	affirmation string
	created     time.Time
}

// rows merges text and voice records oldest first.
func rows(snap *store.Snapshot) []row {
	if snap == nil {
		return nil
	}
	out := make([]row, 0, snap.Total())
	for _, e := range snap.Text {
		out = append(out, row{
			kind:      "text",
			id:        e.ID,
			date:      e.DateKey(),
			time:      e.DisplayTime,
			title:     e.Title,
			emotion:   e.Emotion,
			intensity: e.Intensity,
			content:   e.Content,
			created:   e.CreatedAt,
		})
	}
	for _, e := range snap.Voice {
		r := row{
			kind:      "voice",
			id:        e.ID,
			date:      e.DateKey(),
			time:      e.DisplayTime,
			title:     e.Title,
			emotion:   e.Emotion,
			intensity: e.Intensity,
			audio:     e.AudioPath,
			duration:  e.Duration,
			created:   e.CreatedAt,
		}
		if e.Affirmation != nil {
			r.affirmation = e.Affirmation.Text
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].created.Before(out[j].created) })
	return out
}

func ToCSV(snap *store.Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range rows(snap) {
		rec := []string{
			r.kind,
			r.id,
			r.date,
			r.time,
			r.title,
			emotion.Title(r.emotion),
			formatIntensity(r.intensity),
			r.content,
			r.audio,
			r.duration,
			r.affirmation,
			r.created.Local().Format(time.RFC3339),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatIntensity(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
