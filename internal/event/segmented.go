package event

import (
	"monthcal/internal/model"
	"monthcal/internal/palette"
)

// Segmented draws one day's slice of a possibly multi-day source event.
// The partial interval is independent of the source's absolute bounds.
type Segmented struct {
	handle Handle
	edited Handle

	source  *model.SourceEvent
	partial Interval
	colors  palette.Set
}

// NewSegmented wraps src for the day described by seg.
// Colors are derived once from base.
func NewSegmented(src *model.SourceEvent, seg model.DaySegment, base palette.Color) *Segmented {
	return &Segmented{
		handle:  NewHandle(),
		source:  src,
		partial: Interval{Start: seg.VisibleStart, End: seg.VisibleEnd},
		colors:  palette.NewSet(base),
	}
}

func (s *Segmented) Handle() Handle { return s.handle }

func (s *Segmented) Kind() Kind { return KindSegmented }

func (s *Segmented) EditedEvent() Handle { return s.edited }

// Source returns the wrapped event.
func (s *Segmented) Source() *model.SourceEvent { return s.source }

// DateInterval is the partial (visible) interval.
func (s *Segmented) DateInterval() Interval { return s.partial }

func (s *Segmented) SetDateInterval(iv Interval) { s.partial = iv }

func (s *Segmented) Text() string {
	if s.source.Location == "" {
		return s.source.Title
	}
	return s.source.Title + "\n" + s.source.Location
}

func (s *Segmented) Colors() palette.Set { return s.colors }

func (s *Segmented) AllDay() bool { return s.source.AllDay }

func (s *Segmented) MakeEditable(reg *Registry) Descriptor {
	draft := &Segmented{
		handle:  NewHandle(),
		edited:  s.handle,
		source:  s.source,
		partial: s.partial,
		colors:  s.colors,
	}
	if reg != nil {
		reg.Add(draft)
	}
	return draft
}

// CommitEditing copies the draft's partial bounds. For timed events the
// source is moved by the same amount as the partial start, keeping its
// duration; all-day sources keep their absolute bounds.
func (s *Segmented) CommitEditing(draft Descriptor) bool {
	d, ok := draft.(*Segmented)
	if !ok || !isDraftOf(d, s) {
		return false
	}

	delta := d.partial.Start.Sub(s.partial.Start)
	s.partial = d.partial

	if !s.source.AllDay {
		duration := s.source.End.Sub(s.source.Start)
		newStart := s.source.Start.Add(delta)
		s.source.Start = newStart
		s.source.End = newStart.Add(duration)
	}
	return true
}
