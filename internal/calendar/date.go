// Package calendar holds the plain calendar-date type used everywhere a record
// is bucketed by day. Display strings are converted into a Date once, at the
// storage boundary, and never compared as strings afterwards.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseable is returned by Parse when no known layout matches.
var ErrUnparseable = errors.New("unparseable date")

// Layouts accepted by Parse, tried in order.
var layouts = []string{
	"2006-01-02",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"Monday, January 2, 2006",
	time.RFC3339,
}

// Date is a calendar day with no time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New returns the normalized date, so New(2024, 1, 32) is 2024-02-01.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime takes the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse converts a display or ISO date string into a Date.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrUnparseable
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
}

func (d Date) IsZero() bool { return d == Date{} }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// DaysSince returns the signed number of days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Time().Sub(other.Time()).Hours() / 24)
}

func (d Date) Before(other Date) bool { return d.Time().Before(other.Time()) }

func (d Date) Weekday() time.Weekday { return d.Time().Weekday() }

// Long renders the date as "Monday, January 2".
func (d Date) Long() string { return d.Time().Format("Monday, January 2") }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Grid describes a month laid out on a Sunday-first seven-column calendar.
type Grid struct {
	Year    int
	Month   time.Month
	Leading int // blank cells before the 1st
	Days    int
}

func MonthGrid(year int, month time.Month) Grid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Grid{
		Year:    year,
		Month:   month,
		Leading: int(first.Weekday()),
		Days:    first.AddDate(0, 1, -1).Day(),
	}
}

// Date returns the date of the given 1-based day in the grid's month.
func (g Grid) Date(day int) Date {
	return Date{Year: g.Year, Month: g.Month, Day: day}
}

func (g Grid) Contains(d Date) bool {
	return d.Year == g.Year && d.Month == g.Month && d.Day >= 1 && d.Day <= g.Days
}

// Weeks returns the number of calendar rows the grid needs.
func (g Grid) Weeks() int {
	return (g.Leading + g.Days + 6) / 7
}
