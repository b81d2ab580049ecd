// Package emotion defines the fixed set of emotion labels a record may carry
// and how each one is drawn.
package emotion

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	Grateful = "grateful"
	Happy    = "happy"
	Calm     = "calm"
	Anxious  = "anxious"
	Sad      = "sad"
	Angry    = "angry"
	Confused = "confused"
	Excited  = "excited"
	Hopeful  = "hopeful"
)

// Emotion is the visual treatment for one label.
type Emotion struct {
	Name  string
	Color string
	Emoji string
}

var known = []Emotion{
	{Name: Grateful, Color: "#22C55E", Emoji: "🙏"},
	{Name: Happy, Color: "#EAB308", Emoji: "😊"},
	{Name: Calm, Color: "#3B82F6", Emoji: "😌"},
	{Name: Anxious, Color: "#F97316", Emoji: "😰"},
	{Name: Sad, Color: "#A855F7", Emoji: "😢"},
	{Name: Angry, Color: "#EF4444", Emoji: "😠"},
	{Name: Confused, Color: "#6B7280", Emoji: "😕"},
	{Name: Excited, Color: "#EC4899", Emoji: "🤩"},
	{Name: Hopeful, Color: "#14B8A6", Emoji: "🌱"},
}

// Default is used for labels outside the known set.
var Default = Emotion{Name: "", Color: "#9CA3AF", Emoji: "😐"}

var byName = func() map[string]Emotion {
	m := make(map[string]Emotion, len(known))
	for _, e := range known {
		m[e.Name] = e
	}
	return m
}()

// All returns the known emotions in canonical order.
func All() []Emotion {
	out := make([]Emotion, len(known))
	copy(out, known)
	return out
}

// Names returns the known labels in canonical order.
func Names() []string {
	out := make([]string, len(known))
	for i, e := range known {
		out[i] = e.Name
	}
	return out
}

func Known(label string) bool {
	_, ok := byName[label]
	return ok
}

// Lookup returns the treatment for label. Unknown and legacy labels get the
// default treatment, carrying the original label as Name, and ok=false.
func Lookup(label string) (Emotion, bool) {
	if e, ok := byName[label]; ok {
		return e, true
	}
	e := Default
	e.Name = label
	return e, false
}

// Normalize lowercases and trims a label typed or imported from elsewhere.
func Normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Title capitalizes a label for display.
func Title(label string) string {
	if label == "" {
		return "Unlabeled"
	}
	// a Caser is stateful; never share one between goroutines
	return cases.Title(language.English).String(label)
}
