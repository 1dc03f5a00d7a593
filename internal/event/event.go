// Package event holds the renderable event descriptors of a month view and
// their draft/commit edit sessions.
package event

import (
	"time"

	"monthcal/internal/palette"
)

// Kind tags a Descriptor variant.
type Kind int

const (
	KindSingleDay Kind = iota + 1
	KindSegmented
)

func (k Kind) String() string {
	switch k {
	case KindSingleDay:
		return "single_day"
	case KindSegmented:
		return "segmented"
	default:
		return "unknown"
	}
}

// Interval is a closed-open time range.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration is End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Shift moves both bounds by d.
func (iv Interval) Shift(d time.Duration) Interval {
	return Interval{Start: iv.Start.Add(d), End: iv.End.Add(d)}
}

// Descriptor is anything the month view can draw and edit.
type Descriptor interface {
	Handle() Handle
	Kind() Kind
	DateInterval() Interval
	SetDateInterval(Interval)
	Text() string
	Colors() palette.Set
	AllDay() bool

	// EditedEvent is the handle of the committed original when this
	// descriptor is a draft, or the zero Handle otherwise.
	EditedEvent() Handle

	// MakeEditable clones the descriptor into a draft registered in reg.
	MakeEditable(reg *Registry) Descriptor

	// CommitEditing applies draft onto the receiver. It reports false and
	// leaves the receiver untouched unless draft is a same-kind draft of it.
	CommitEditing(draft Descriptor) bool
}

// isDraftOf reports whether draft was made from original and has the same kind.
func isDraftOf(draft, original Descriptor) bool {
	if draft == nil || original == nil {
		return false
	}
	if draft.Kind() != original.Kind() {
		return false
	}
	h := draft.EditedEvent()
	return !h.IsZero() && h == original.Handle()
}
