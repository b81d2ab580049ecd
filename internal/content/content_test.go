package content

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/innerglow/internal/emotion"
)

func loadLib(t *testing.T) *Library {
	t.Helper()
	lib, err := Load()
	require.NoError(t, err)
	return lib
}

func TestEveryEmotionHasAllIntensities(t *testing.T) {
	lib := loadLib(t)
	for _, name := range emotion.Names() {
		list := lib.AffirmationsFor(name)
		require.Len(t, list, 3, name)
		got := map[string]bool{}
		for _, a := range list {
			got[a.Intensity] = true
			assert.NotEmpty(t, a.Text)
			assert.NotEmpty(t, a.Category)
		}
		for _, in := range Intensities() {
			assert.True(t, got[in], "%s missing %s", name, in)
		}
	}
}

func TestRandomAffirmation(t *testing.T) {
	lib := loadLib(t)
	rnd := rand.New(rand.NewPCG(1, 2))

	assert.Nil(t, lib.RandomAffirmation("nostalgic", "", rnd))
	assert.Nil(t, lib.RandomAffirmation("", Gentle, rnd))

	for i := 0; i < 20; i++ {
		a := lib.RandomAffirmation("calm", Strong, rnd)
		require.NotNil(t, a)
		assert.Equal(t, Strong, a.Intensity)
		assert.Equal(t, "peace", a.Category)
	}

	a := lib.RandomAffirmation("  Anxious ", "", nil)
	require.NotNil(t, a)
	assert.Equal(t, "comfort", a.Category)

	a = lib.RandomAffirmation("sad", "overwhelming", rnd)
	require.NotNil(t, a, "unmatched intensity falls back to any")
}

func TestAffirmationsForReturnsCopy(t *testing.T) {
	lib := loadLib(t)
	list := lib.AffirmationsFor("happy")
	list[0].Text = "changed"
	assert.NotEqual(t, "changed", lib.AffirmationsFor("happy")[0].Text)
	assert.Nil(t, lib.AffirmationsFor("unknown"))
}

func TestRituals(t *testing.T) {
	lib := loadLib(t)
	require.Len(t, lib.Rituals, 6)
	assert.NotEmpty(t, lib.Reminder)

	r, ok := lib.Ritual("calming-breath")
	require.True(t, ok)
	assert.Equal(t, "Breathwork", r.Category)
	assert.Len(t, r.Steps, 6)
	assert.Equal(t, 5*time.Minute, r.Duration())
	assert.Equal(t, 50*time.Second, r.StepDuration())

	_, ok = lib.Ritual("missing")
	assert.False(t, ok)
}

func TestCrisisLines(t *testing.T) {
	lib := loadLib(t)
	lines := lib.CrisisLines()
	contacts := map[string]bool{}
	for _, r := range lines {
		contacts[r.Contact] = true
	}
	assert.True(t, contacts["988"])
	assert.True(t, contacts["Text HOME to 741741"])
	assert.True(t, contacts["1-800-799-7233"])
	assert.NotEmpty(t, lib.Reminders)
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestValidateRejectsBadData(t *testing.T) {
	lib := &Library{Affirmations: map[string][]Affirmation{
		"nostalgic": {{Text: "x", Intensity: Gentle}},
	}}
	assert.Error(t, lib.validate())

	lib = &Library{Rituals: []Ritual{{ID: "a", Minutes: 1, Steps: []string{"x"}}, {ID: "a", Minutes: 1, Steps: []string{"y"}}}}
	assert.Error(t, lib.validate())
}
