// Package content holds the static copy shipped with the app: affirmations,
// guided rituals and support resources.
package content

import (
	"embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/innerglow/internal/emotion"
)

//go:embed data/*.yaml
var files embed.FS

// Affirmation intensities.
const (
	Gentle   = "gentle"
	Moderate = "moderate"
	Strong   = "strong"
)

// Intensities lists the affirmation intensities from softest to strongest.
func Intensities() []string { return []string{Gentle, Moderate, Strong} }

func ValidIntensity(s string) bool {
	switch s {
	case Gentle, Moderate, Strong:
		return true
	}
	return false
}

type Affirmation struct {
	Text      string `yaml:"text"`
	Category  string `yaml:"category"`
	Intensity string `yaml:"intensity"`
}

type Ritual struct {
	ID          string   `yaml:"id"`
	Category    string   `yaml:"category"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Minutes     int      `yaml:"minutes"`
	Kind        string   `yaml:"kind"` // steps, affirmations, prompts, movements, visualization
	Color       string   `yaml:"color"`
	Steps       []string `yaml:"steps"`
}

// Duration is the suggested length of the whole practice.
func (r Ritual) Duration() time.Duration {
	return time.Duration(r.Minutes) * time.Minute
}

// StepDuration splits the suggested length evenly across the steps.
func (r Ritual) StepDuration() time.Duration {
	if len(r.Steps) == 0 {
		return r.Duration()
	}
	return (r.Duration() / time.Duration(len(r.Steps))).Round(time.Second)
}

type Resource struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Contact     string `yaml:"contact"`
	URL         string `yaml:"url"`
	Category    string `yaml:"category"`
	Available   string `yaml:"available"`
	Crisis      bool   `yaml:"crisis"`
}

type ResourceGroup struct {
	ID      string     `yaml:"id"`
	Title   string     `yaml:"title"`
	Intro   string     `yaml:"intro"`
	Entries []Resource `yaml:"entries"`
}

// Library is the parsed content set.
type Library struct {
	Affirmations map[string][]Affirmation
	Rituals      []Ritual
	Reminder     string
	Resources    []ResourceGroup
	Reminders    []string
}

type ritualFile struct {
	Reminder string   `yaml:"reminder"`
	Rituals  []Ritual `yaml:"rituals"`
}

type resourceFile struct {
	Groups    []ResourceGroup `yaml:"groups"`
	Reminders []string        `yaml:"reminders"`
}

// Load parses the embedded content.
func Load() (*Library, error) {
	lib := &Library{}

	if err := decode("data/affirmations.yaml", &lib.Affirmations); err != nil {
		return nil, err
	}
	var rf ritualFile
	if err := decode("data/rituals.yaml", &rf); err != nil {
		return nil, err
	}
	lib.Rituals, lib.Reminder = rf.Rituals, rf.Reminder

	var res resourceFile
	if err := decode("data/resources.yaml", &res); err != nil {
		return nil, err
	}
	lib.Resources, lib.Reminders = res.Groups, res.Reminders

	if err := lib.validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

var defaultLib = sync.OnceValues(Load)

// Default returns the embedded library, parsed once.
func Default() (*Library, error) { return defaultLib() }

func decode(name string, out any) error {
	raw, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func (l *Library) validate() error {
	for label, list := range l.Affirmations {
		if !emotion.Known(label) {
			return fmt.Errorf("affirmations: unknown emotion %q", label)
		}
		for _, a := range list {
			if !ValidIntensity(a.Intensity) {
				return fmt.Errorf("affirmations: %s has bad intensity %q", label, a.Intensity)
			}
		}
	}
	seen := make(map[string]bool, len(l.Rituals))
	for _, r := range l.Rituals {
		if r.ID == "" || seen[r.ID] {
			return fmt.Errorf("rituals: missing or duplicate id %q", r.ID)
		}
		seen[r.ID] = true
		if len(r.Steps) == 0 || r.Minutes <= 0 {
			return fmt.Errorf("rituals: %s needs steps and a duration", r.ID)
		}
	}
	return nil
}

// AffirmationsFor returns every affirmation for emotion, or nil.
func (l *Library) AffirmationsFor(label string) []Affirmation {
	list := l.Affirmations[emotion.Normalize(label)]
	if len(list) == 0 {
		return nil
	}
	out := make([]Affirmation, len(list))
	copy(out, list)
	return out
}

// RandomAffirmation picks one affirmation for emotion. An empty intensity
// means any; an intensity with no match falls back to any. Returns nil for
// emotions without affirmations. rnd may be nil.
func (l *Library) RandomAffirmation(label, intensity string, rnd *rand.Rand) *Affirmation {
	list := l.Affirmations[emotion.Normalize(label)]
	if len(list) == 0 {
		return nil
	}
	pool := list
	if intensity != "" {
		var filtered []Affirmation
		for _, a := range list {
			if strings.EqualFold(a.Intensity, intensity) {
				filtered = append(filtered, a)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	var i int
	if rnd != nil {
		i = rnd.IntN(len(pool))
	} else {
		i = rand.IntN(len(pool))
	}
	a := pool[i]
	return &a
}

// Ritual looks a ritual up by id.
func (l *Library) Ritual(id string) (Ritual, bool) {
	for _, r := range l.Rituals {
		if r.ID == id {
			return r, true
		}
	}
	return Ritual{}, false
}

// CrisisLines returns every resource flagged as crisis support.
func (l *Library) CrisisLines() []Resource {
	var out []Resource
	for _, g := range l.Resources {
		for _, r := range g.Entries {
			if r.Crisis {
				out = append(out, r)
			}
		}
	}
	return out
}
