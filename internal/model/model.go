package model

import (
	"time"

	"github.com/google/uuid"
)

// SourceEvent is a calendar event as supplied by the event store.
// It is owned by the store; the month-view code only mutates it through
// an explicit edit commit.
type SourceEvent struct {
	ID       string
	SourceID string // calendar source ID (e.g., config ICS ID)
	Title    string
	Location string

	// Start / End in the display timezone. End is exclusive.
	Start  time.Time
	End    time.Time
	AllDay bool

	// ColorSeed identifies the color bucket (usually the source calendar).
	ColorSeed string
}

// NewSourceEvent builds an event with a generated ID.
func NewSourceEvent(title string, start, end time.Time, allDay bool) *SourceEvent {
	return &SourceEvent{
		ID:     uuid.NewString(),
		Title:  title,
		Start:  start,
		End:    end,
		AllDay: allDay,
	}
}

// Duration is End - Start.
func (e *SourceEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Intersects reports whether [Start, End) overlaps [start, end).
// Zero-length events intersect the range that contains their start.
func (e *SourceEvent) Intersects(start, end time.Time) bool {
	if !e.Start.Before(end) {
		return false
	}
	if e.End.Equal(e.Start) {
		return !e.Start.Before(start)
	}
	return e.End.After(start)
}

// DaySegment is the visible slice of one event on one calendar day.
// It is derived on demand and never persisted.
type DaySegment struct {
	OwnerEventID string
	DayKey       time.Time // start of day
	VisibleStart time.Time
	VisibleEnd   time.Time
	AllDay       bool

	// ClippedStart / ClippedEnd are set when the event extends past
	// the start / end of this day.
	ClippedStart bool
	ClippedEnd   bool
}
