// Package grid builds the date axis of a month view: 6 weeks x 7 days,
// aligned to a configurable first day of week.
package grid

import (
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
)

const (
	DaysPerWeek = 7
	Weeks       = 6
	Cells       = DaysPerWeek * Weeks
)

// DateGrid is the ordered list of 42 contiguous dates of a month view.
// An empty grid means the month could not be resolved; do not index into it.
type DateGrid struct {
	Dates  []time.Time
	Month  time.Month
	Year   int
	offset int
}

// Generate returns the month grid for the month containing reference.
//
// The first day of the month sits at index
// (weekday(firstOfMonth) - cfg.FirstDayOfWeek + 7) mod 7; the cells before it
// are trailing days of the previous month and the cells after the last day
// are leading days of the next month.
func Generate(reference time.Time, cfg calendar.Config, cal calendar.Calendar) DateGrid {
	first, err := cal.FirstOfMonth(reference)
	if err != nil {
		appLog.Debug("grid: cannot resolve first of month", "reference", reference, "err", err)
		return DateGrid{}
	}

	offset := (cal.Weekday(first) - cfg.WeekdayNumber() + DaysPerWeek) % DaysPerWeek
	start := cal.AddDays(first, -offset)

	dates := make([]time.Time, Cells)
	for i := range dates {
		dates[i] = cal.AddDays(start, i)
	}

	return DateGrid{
		Dates:  dates,
		Month:  first.Month(),
		Year:   first.Year(),
		offset: offset,
	}
}

// Empty reports whether generation failed.
func (g DateGrid) Empty() bool {
	return len(g.Dates) == 0
}

// Offset is the index of the first day of the month.
func (g DateGrid) Offset() int {
	return g.offset
}

// FirstOfMonth returns the month's first day, or the zero time for an empty grid.
func (g DateGrid) FirstOfMonth() time.Time {
	if g.Empty() {
		return time.Time{}
	}
	return g.Dates[g.offset]
}

// InMonth reports whether cell i belongs to the target month
// rather than being a filler day.
func (g DateGrid) InMonth(i int) bool {
	if i < 0 || i >= len(g.Dates) {
		return false
	}
	d := g.Dates[i]
	return d.Month() == g.Month && d.Year() == g.Year
}

// Index returns the cell holding the calendar day of t, or -1.
func (g DateGrid) Index(t time.Time) int {
	if g.Empty() {
		return -1
	}
	t = t.In(g.Dates[0].Location())
	y, m, d := t.Date()
	for i, cell := range g.Dates {
		cy, cm, cd := cell.Date()
		if cy == y && cm == m && cd == d {
			return i
		}
	}
	return -1
}

// Contains reports whether the calendar day of t is one of the grid cells.
func (g DateGrid) Contains(t time.Time) bool {
	return g.Index(t) >= 0
}

// First returns the top-left cell, or the zero time for an empty grid.
func (g DateGrid) First() time.Time {
	if g.Empty() {
		return time.Time{}
	}
	return g.Dates[0]
}

// Last returns the bottom-right cell, or the zero time for an empty grid.
func (g DateGrid) Last() time.Time {
	if g.Empty() {
		return time.Time{}
	}
	return g.Dates[len(g.Dates)-1]
}

// Weeks splits the grid into rows. An empty grid yields nil.
func (g DateGrid) Weeks() [][]time.Time {
	if g.Empty() {
		return nil
	}
	rows := make([][]time.Time, 0, Weeks)
	for i := 0; i < len(g.Dates); i += DaysPerWeek {
		rows = append(rows, g.Dates[i:i+DaysPerWeek])
	}
	return rows
}

// Range returns the closed-open interval covered by the grid.
func (g DateGrid) Range(cal calendar.Calendar) (start, end time.Time) {
	if g.Empty() {
		return time.Time{}, time.Time{}
	}
	return g.First(), cal.AddDays(g.Last(), 1)
}
