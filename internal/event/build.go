package event

import (
	"time"

	"monthcal/internal/model"
	"monthcal/internal/palette"
)

// KindFor picks the variant for one day's segment: events contained in the
// day are SingleDay, anything crossing a day boundary is Segmented.
func KindFor(seg model.DaySegment) Kind {
	if seg.ClippedStart || seg.ClippedEnd {
		return KindSegmented
	}
	return KindSingleDay
}

// ForSegment builds the descriptor for src on the day of seg.
func ForSegment(src *model.SourceEvent, seg model.DaySegment, base palette.Color) Descriptor {
	switch KindFor(seg) {
	case KindSegmented:
		return NewSegmented(src, seg, base)
	default:
		return NewSingleDay(src, base)
	}
}

// ColorFunc returns the base color for an event.
type ColorFunc func(*model.SourceEvent) palette.Color

// Placed is a descriptor together with the day segment it was built from.
type Placed struct {
	Descriptor
	Segment model.DaySegment
}

// Build turns per-day segments into registered descriptors. Segments whose
// owner is not in events are skipped.
func Build(segments map[time.Time][]model.DaySegment, events []*model.SourceEvent, color ColorFunc, reg *Registry) map[time.Time][]Placed {
	byID := make(map[string]*model.SourceEvent, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	out := make(map[time.Time][]Placed, len(segments))
	for day, segs := range segments {
		for _, seg := range segs {
			src, ok := byID[seg.OwnerEventID]
			if !ok {
				continue
			}
			d := ForSegment(src, seg, color(src))
			if reg != nil {
				reg.Add(d)
			}
			out[day] = append(out[day], Placed{Descriptor: d, Segment: seg})
		}
	}
	return out
}
