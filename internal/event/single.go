package event

import (
	"monthcal/internal/model"
	"monthcal/internal/palette"
)

// SingleDay is an event that fits inside one calendar day. Its interval is
// the source's absolute interval.
type SingleDay struct {
	handle Handle
	edited Handle

	source   *model.SourceEvent
	interval Interval
	colors   palette.Set
}

func NewSingleDay(src *model.SourceEvent, base palette.Color) *SingleDay {
	return &SingleDay{
		handle:   NewHandle(),
		source:   src,
		interval: Interval{Start: src.Start, End: src.End},
		colors:   palette.NewSet(base),
	}
}

func (e *SingleDay) Handle() Handle { return e.handle }

func (e *SingleDay) Kind() Kind { return KindSingleDay }

func (e *SingleDay) EditedEvent() Handle { return e.edited }

func (e *SingleDay) Source() *model.SourceEvent { return e.source }

func (e *SingleDay) DateInterval() Interval { return e.interval }

func (e *SingleDay) SetDateInterval(iv Interval) { e.interval = iv }

func (e *SingleDay) Text() string { return e.source.Title }

func (e *SingleDay) Colors() palette.Set { return e.colors }

func (e *SingleDay) AllDay() bool { return e.source.AllDay }

func (e *SingleDay) MakeEditable(reg *Registry) Descriptor {
	draft := &SingleDay{
		handle:   NewHandle(),
		edited:   e.handle,
		source:   e.source,
		interval: e.interval,
		colors:   e.colors,
	}
	if reg != nil {
		reg.Add(draft)
	}
	return draft
}

// CommitEditing writes the draft interval to the receiver and, for timed
// events, to its source. All-day sources keep their absolute bounds.
func (e *SingleDay) CommitEditing(draft Descriptor) bool {
	d, ok := draft.(*SingleDay)
	if !ok || !isDraftOf(d, e) {
		return false
	}
	e.interval = d.interval
	if !e.source.AllDay {
		e.source.Start = d.interval.Start
		e.source.End = d.interval.End
	}
	return true
}
