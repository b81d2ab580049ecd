package calendar

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayouts(t *testing.T) {
	want := Date{Year: 2024, Month: time.March, Day: 5}
	inputs := []string{
		"2024-03-05",
		"3/5/2024",
		"03/05/2024",
		"March 5, 2024",
		"Mar 5, 2024",
		"Tuesday, March 5, 2024",
		"2024-03-05T10:30:00Z",
		"  2024-03-05 ",
	}
	for _, in := range inputs {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2024-13-40", "5th of March"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrUnparseable, in)
	}
}

func TestNewNormalizes(t *testing.T) {
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 1}, New(2024, time.January, 32))
	assert.Equal(t, Date{Year: 2023, Month: time.December, Day: 31}, New(2024, time.January, 0))
}

func TestAddDaysAndDaysSince(t *testing.T) {
	d := New(2024, time.February, 28)
	assert.Equal(t, New(2024, time.February, 29), d.AddDays(1))
	assert.Equal(t, New(2024, time.March, 1), d.AddDays(2))
	assert.Equal(t, 2, d.AddDays(2).DaysSince(d))
	assert.Equal(t, -2, d.DaysSince(d.AddDays(2)))

	// crossing a DST boundary in local zones must not matter
	spring := New(2024, time.March, 10)
	assert.Equal(t, 1, spring.AddDays(1).DaysSince(spring))
}

func TestStringAndZero(t *testing.T) {
	assert.Equal(t, "", Date{}.String())
	assert.True(t, Date{}.IsZero())
	assert.Equal(t, "2024-01-09", New(2024, time.January, 9).String())
}

func TestTextRoundTripInJSON(t *testing.T) {
	type wrapper struct {
		Day Date `json:"day"`
	}
	b, err := json.Marshal(wrapper{Day: New(2024, time.May, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-05-01"}`, string(b))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"day":"May 1, 2024"}`), &w))
	assert.Equal(t, New(2024, time.May, 1), w.Day)
}

func TestMonthGrid(t *testing.T) {
	// September 2024 starts on a Sunday.
	g := MonthGrid(2024, time.September)
	assert.Equal(t, 0, g.Leading)
	assert.Equal(t, 30, g.Days)
	assert.Equal(t, 5, g.Weeks())

	// February 2024 starts on a Thursday and is a leap month.
	g = MonthGrid(2024, time.February)
	assert.Equal(t, 4, g.Leading)
	assert.Equal(t, 29, g.Days)
	assert.True(t, g.Contains(New(2024, time.February, 29)))
	assert.False(t, g.Contains(New(2024, time.March, 1)))
	assert.Equal(t, New(2024, time.February, 14), g.Date(14))
}
