package ics

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

const defaultMaxOccurrencesPerEvent = 5000

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// DisplayLocation is the zone every occurrence is converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the occurrences, closed-open.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE. Zero means the default.
	MaxOccurrencesPerEvent int
}

// ExpandResult holds the expanded events and the UIDs that hit the cap.
type ExpandResult struct {
	Events          []*model.SourceEvent
	TruncatedEvents []string
}

// ExpandOccurrences turns parsed VEVENTs into concrete events intersecting
// [RangeStart, RangeEnd). It handles single events, RRULE recurrences,
// EXDATE removal and RECURRENCE-ID overrides.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics: expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Base events keep input order; overrides are looked up by UID.
	bases := make([]ParsedEvent, 0, len(events))
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	out := make([]*model.SourceEvent, 0)
	truncated := make(map[string]bool)
	for _, ev := range bases {
		var occ []*model.SourceEvent
		hitCap := false
		if ev.RawRRule == "" {
			occ = expandSingle(ev, overridesByUID[ev.UID], cfg)
		} else {
			occ, hitCap = expandRecurring(ev, overridesByUID[ev.UID], cfg)
		}
		out = append(out, occ...)

		if hitCap && !truncated[ev.UID] {
			truncated[ev.UID] = true
			result.TruncatedEvents = append(result.TruncatedEvents, ev.UID)
			appLog.Error("ics expand: occurrences truncated",
				errors.New("max occurrences reached"),
				"uid", ev.UID,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	result.Events = out
	return result, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []*model.SourceEvent {
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}

	occ := toSourceEvent(ev, start, end, cfg.DisplayLocation)
	if !occ.Intersects(cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []*model.SourceEvent{occ}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]*model.SourceEvent, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	duration := ev.End.Sub(ev.Start)
	// Occurrences starting up to one duration before the range still reach into it.
	from := cfg.RangeStart.Add(-duration).In(ev.Start.Location())
	to := cfg.RangeEnd.In(ev.Start.Location())

	starts := set.Between(from, to, true)
	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]*model.SourceEvent, 0, len(starts))
	for _, s := range starts {
		base, start, end := ev, s, s.Add(duration)
		if ev.AllDay {
			start = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			end = start.AddDate(0, 0, int(duration.Hours()/24+0.5))
		}
		if o, ok := findOverride(overrides, start); ok {
			base, start, end = o, o.Start, o.End
		}

		occ := toSourceEvent(base, start, end, cfg.DisplayLocation)
		if occ.Intersects(cfg.RangeStart, cfg.RangeEnd) {
			out = append(out, occ)
		}
	}
	return out, hitCap
}

// findOverride finds an override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// toSourceEvent converts one occurrence into the display zone. The ID is
// stable across refreshes: UID plus the instance start.
func toSourceEvent(ev ParsedEvent, start, end time.Time, loc *time.Location) *model.SourceEvent {
	startLocal := start.In(loc)
	endLocal := end.In(loc)
	if ev.AllDay {
		// Keep all-day events on their calendar dates in the display zone.
		startLocal = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		endLocal = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	}

	return &model.SourceEvent{
		ID:        ev.UID + "@" + startLocal.Format(time.RFC3339),
		SourceID:  ev.Source.ID,
		Title:     ev.Summary,
		Location:  ev.Location,
		Start:     startLocal,
		End:       endLocal,
		AllDay:    ev.AllDay,
		ColorSeed: ev.Source.ID,
	}
}
