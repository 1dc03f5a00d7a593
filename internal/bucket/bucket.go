// Package bucket groups events by calendar day and slices multi-day events
// into per-day segments for a month view.
package bucket

import (
	"context"
	"fmt"
	"time"

	"monthcal/internal/calendar"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// Filter restricts a fetch to the given source calendars. Empty means all.
type Filter struct {
	SourceIDs []string
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev *model.SourceEvent) bool {
	if len(f.SourceIDs) == 0 {
		return true
	}
	for _, id := range f.SourceIDs {
		if id == ev.SourceID {
			return true
		}
	}
	return false
}

// EventStore supplies events intersecting the closed-open range [start, end).
// Result ordering is unspecified.
type EventStore interface {
	FetchEvents(ctx context.Context, start, end time.Time, filter Filter) ([]*model.SourceEvent, error)
}

// Buckets maps a day key (start of day in the calendar location) to the
// events starting on that day, in fetch order.
type Buckets map[time.Time][]*model.SourceEvent

// Len returns the total number of events across all buckets.
func (b Buckets) Len() int {
	n := 0
	for _, evs := range b {
		n += len(evs)
	}
	return n
}

// BucketByDay fetches the events of the month containing monthReference and
// groups them by start day.
func BucketByDay(ctx context.Context, store EventStore, monthReference time.Time, cal calendar.Calendar, filter Filter) (Buckets, error) {
	start, end, err := MonthRange(monthReference, cal)
	if err != nil {
		return nil, err
	}

	events, err := store.FetchEvents(ctx, start, end, filter)
	if err != nil {
		return nil, fmt.Errorf("bucket: fetch events: %w", err)
	}

	appLog.Debug("bucket: fetched month",
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"event_count", len(events),
	)
	return Bucket(events, cal), nil
}

// MonthRange returns the closed-open range of the month containing t.
func MonthRange(t time.Time, cal calendar.Calendar) (start, end time.Time, err error) {
	start, err = cal.FirstOfMonth(t)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bucket: %w", err)
	}
	return start, cal.AddDays(start, cal.DaysInMonth(start)), nil
}

// BucketMonth is BucketByDay for events that were already fetched, possibly
// over a wider range: events not touching the month are dropped first.
func BucketMonth(events []*model.SourceEvent, monthReference time.Time, cal calendar.Calendar) (Buckets, error) {
	start, end, err := MonthRange(monthReference, cal)
	if err != nil {
		return nil, err
	}
	inMonth := make([]*model.SourceEvent, 0, len(events))
	for _, ev := range events {
		if ev.Intersects(start, end) {
			inMonth = append(inMonth, ev)
		}
	}
	return Bucket(inMonth, cal), nil
}

// Bucket groups events by the start of day of their start instant.
func Bucket(events []*model.SourceEvent, cal calendar.Calendar) Buckets {
	out := make(Buckets)
	for _, ev := range events {
		key := cal.StartOfDay(ev.Start)
		out[key] = append(out[key], ev)
	}
	return out
}

// Segment clips ev to the calendar day starting at day.
// ok is false when the event does not touch that day.
func Segment(ev *model.SourceEvent, day time.Time, cal calendar.Calendar) (seg model.DaySegment, ok bool) {
	dayStart := cal.StartOfDay(day)
	dayEnd := cal.AddDays(dayStart, 1)
	if !ev.Intersects(dayStart, dayEnd) {
		return model.DaySegment{}, false
	}

	seg = model.DaySegment{
		OwnerEventID: ev.ID,
		DayKey:       dayStart,
		VisibleStart: ev.Start,
		VisibleEnd:   ev.End,
		AllDay:       ev.AllDay,
	}
	if ev.Start.Before(dayStart) {
		seg.VisibleStart = dayStart
		seg.ClippedStart = true
	}
	if ev.End.After(dayEnd) {
		seg.VisibleEnd = dayEnd
		seg.ClippedEnd = true
	}
	return seg, true
}

// Segments slices every event against every day of the axis. Days with no
// events are absent from the result. Within a day, segments follow the
// order of events.
func Segments(days []time.Time, events []*model.SourceEvent, cal calendar.Calendar) map[time.Time][]model.DaySegment {
	out := make(map[time.Time][]model.DaySegment)
	for _, day := range days {
		for _, ev := range events {
			seg, ok := Segment(ev, day, cal)
			if !ok {
				continue
			}
			out[seg.DayKey] = append(out[seg.DayKey], seg)
		}
	}
	return out
}
