// Package calendar provides the calendar arithmetic used by month views:
// first-of-month resolution, weekday numbering, day stepping and
// start-of-day normalization in a fixed display location.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrOutOfRange is returned when a date cannot be resolved to a calendar month.
var ErrOutOfRange = errors.New("calendar: date out of range")

const (
	minYear = 1
	maxYear = 9999
)

// Calendar is the calendar/locale collaborator consumed by grid generation
// and day bucketing. Implementations must be consistent: AddDays applied
// DaysInMonth(first) times from FirstOfMonth lands on the next month's first day.
type Calendar interface {
	// FirstOfMonth returns midnight of day 1 of the month containing t.
	FirstOfMonth(t time.Time) (time.Time, error)
	// Weekday returns the 1-based weekday of t, Sunday = 1 .. Saturday = 7.
	Weekday(t time.Time) int
	DaysInMonth(t time.Time) int
	AddDays(t time.Time, n int) time.Time
	StartOfDay(t time.Time) time.Time
	Location() *time.Location
}

// Config is the grid configuration. All grid math is relative to FirstDayOfWeek.
type Config struct {
	FirstDayOfWeek time.Weekday
}

// DefaultConfig starts weeks on Monday.
func DefaultConfig() Config {
	return Config{FirstDayOfWeek: time.Monday}
}

// WeekdayNumber returns FirstDayOfWeek in the Calendar.Weekday numbering.
func (c Config) WeekdayNumber() int {
	return int(c.FirstDayOfWeek) + 1
}

// ParseWeekday parses "monday", "Mon", "sun", ... into a time.Weekday.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("calendar: unknown weekday %q", s)
}

// Gregorian implements Calendar in a single location.
type Gregorian struct {
	loc *time.Location
}

// NewGregorian returns a Gregorian calendar in loc. A nil loc means time.Local.
func NewGregorian(loc *time.Location) *Gregorian {
	if loc == nil {
		loc = time.Local
	}
	return &Gregorian{loc: loc}
}

func (g *Gregorian) Location() *time.Location {
	return g.loc
}

func (g *Gregorian) FirstOfMonth(t time.Time) (time.Time, error) {
	if t.IsZero() {
		return time.Time{}, ErrOutOfRange
	}
	t = t.In(g.loc)
	if y := t.Year(); y < minYear || y > maxYear {
		return time.Time{}, fmt.Errorf("%w: year %d", ErrOutOfRange, y)
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, g.loc), nil
}

func (g *Gregorian) Weekday(t time.Time) int {
	return int(t.In(g.loc).Weekday()) + 1
}

func (g *Gregorian) DaysInMonth(t time.Time) int {
	t = t.In(g.loc)
	// Day 0 of the next month is the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, g.loc).Day()
}

// AddDays steps by calendar days, keeping the wall clock across DST changes.
func (g *Gregorian) AddDays(t time.Time, n int) time.Time {
	t = t.In(g.loc)
	return time.Date(t.Year(), t.Month(), t.Day()+n, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), g.loc)
}

func (g *Gregorian) StartOfDay(t time.Time) time.Time {
	t = t.In(g.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, g.loc)
}

// StartOfNextMonth returns the first day of the month after the one containing t.
func StartOfNextMonth(c Calendar, t time.Time) (time.Time, error) {
	first, err := c.FirstOfMonth(t)
	if err != nil {
		return time.Time{}, err
	}
	return c.AddDays(first, c.DaysInMonth(first)), nil
}
