package bucket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/calendar"
	"monthcal/internal/grid"
	"monthcal/internal/model"
)

func at(day, hour int) time.Time {
	return time.Date(2025, 10, day, hour, 0, 0, 0, time.UTC)
}

func ev(id string, start, end time.Time) *model.SourceEvent {
	return &model.SourceEvent{ID: id, Title: id, Start: start, End: end, SourceID: "work"}
}

type failingStore struct{}

func (failingStore) FetchEvents(context.Context, time.Time, time.Time, Filter) ([]*model.SourceEvent, error) {
	return nil, errors.New("offline")
}

func TestBucketPartitionsInput(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)
	events := []*model.SourceEvent{
		ev("a", at(3, 9), at(3, 10)),
		ev("b", at(5, 8), at(7, 8)),
		ev("c", at(3, 18), at(3, 19)),
		ev("d", at(3, 0), at(4, 0)),
	}

	b := Bucket(events, cal)

	require.Len(t, b, 2)
	assert.Equal(t, len(events), b.Len())
	day3 := b[time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC)]
	require.Len(t, day3, 3)
	assert.Equal(t, []string{"a", "c", "d"}, []string{day3[0].ID, day3[1].ID, day3[2].ID})

	seen := map[string]int{}
	for key, evs := range b {
		for _, e := range evs {
			seen[e.ID]++
			assert.Equal(t, cal.StartOfDay(e.Start), key)
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, seen)
}

func TestBucketEmpty(t *testing.T) {
	b := Bucket(nil, calendar.NewGregorian(time.UTC))
	assert.NotNil(t, b)
	assert.Empty(t, b)
}

func TestBucketByDayFetchesMonthRange(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)
	inside := ev("inside", at(10, 9), at(10, 10))
	spanning := ev("spanning", time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC), at(2, 0))
	before := ev("before", time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC))
	after := ev("after", time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 1, 1, 0, 0, 0, time.UTC))
	other := ev("other", at(11, 9), at(11, 10))
	other.SourceID = "home"

	store := NewMemoryStore(inside, spanning, before, after, other)

	b, err := BucketByDay(context.Background(), store, at(15, 12), cal, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
	assert.Contains(t, b, time.Date(2025, 9, 29, 0, 0, 0, 0, time.UTC))

	b, err = BucketByDay(context.Background(), store, at(15, 12), cal, Filter{SourceIDs: []string{"home"}})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())
}

func TestBucketMonthDropsEventsOutsideMonth(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)
	events := []*model.SourceEvent{
		ev("late-sep", time.Date(2025, 9, 29, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC)),
		ev("spanning", time.Date(2025, 9, 30, 22, 0, 0, 0, time.UTC), at(1, 2)),
		ev("inside", at(10, 9), at(10, 10)),
		ev("early-nov", time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)),
	}

	b, err := BucketMonth(events, at(20, 0), cal)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Len())
	assert.Contains(t, b, time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC))
	assert.Contains(t, b, at(10, 0))

	_, err = BucketMonth(events, time.Time{}, cal)
	assert.ErrorIs(t, err, calendar.ErrOutOfRange)
}

func TestBucketByDayEmptyStore(t *testing.T) {
	b, err := BucketByDay(context.Background(), NewMemoryStore(), at(1, 0), calendar.NewGregorian(time.UTC), Filter{})
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestBucketByDayErrors(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)

	_, err := BucketByDay(context.Background(), failingStore{}, at(1, 0), cal, Filter{})
	assert.ErrorContains(t, err, "offline")

	_, err = BucketByDay(context.Background(), NewMemoryStore(), time.Time{}, cal, Filter{})
	assert.ErrorIs(t, err, calendar.ErrOutOfRange)
}

func TestSegmentClipsToDay(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)
	e := ev("trip", at(3, 18), at(5, 10))

	first, ok := Segment(e, at(3, 0), cal)
	require.True(t, ok)
	assert.Equal(t, at(3, 18), first.VisibleStart)
	assert.Equal(t, at(4, 0), first.VisibleEnd)
	assert.False(t, first.ClippedStart)
	assert.True(t, first.ClippedEnd)

	middle, ok := Segment(e, at(4, 13), cal)
	require.True(t, ok)
	assert.Equal(t, at(4, 0), middle.DayKey)
	assert.Equal(t, at(4, 0), middle.VisibleStart)
	assert.Equal(t, at(5, 0), middle.VisibleEnd)
	assert.True(t, middle.ClippedStart)
	assert.True(t, middle.ClippedEnd)

	last, ok := Segment(e, at(5, 0), cal)
	require.True(t, ok)
	assert.Equal(t, at(5, 0), last.VisibleStart)
	assert.Equal(t, at(5, 10), last.VisibleEnd)
	assert.Equal(t, "trip", last.OwnerEventID)

	_, ok = Segment(e, at(6, 0), cal)
	assert.False(t, ok)
}

func TestSegmentEndAtMidnightExcludesNextDay(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)
	allDay := ev("holiday", at(7, 0), at(8, 0))
	allDay.AllDay = true

	_, ok := Segment(allDay, at(8, 0), cal)
	assert.False(t, ok)

	seg, ok := Segment(allDay, at(7, 0), cal)
	require.True(t, ok)
	assert.True(t, seg.AllDay)
	assert.False(t, seg.ClippedEnd)
}

func TestSegmentsOverGrid(t *testing.T) {
	cal := calendar.NewGregorian(time.UTC)
	g := grid.Generate(at(15, 0), calendar.DefaultConfig(), cal)
	require.False(t, g.Empty())

	events := []*model.SourceEvent{
		ev("long", at(30, 12), time.Date(2025, 11, 2, 12, 0, 0, 0, time.UTC)),
		ev("short", at(30, 9), at(30, 10)),
		ev("instant", at(12, 9), at(12, 9)),
	}
	segs := Segments(g.Dates, events, cal)

	assert.Len(t, segs[at(30, 0)], 2)
	assert.Equal(t, "long", segs[at(30, 0)][0].OwnerEventID)
	assert.Len(t, segs[at(31, 0)], 1)
	assert.Len(t, segs[time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)], 1)
	assert.Len(t, segs[time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC)], 1)
	assert.Len(t, segs[at(12, 0)], 1)
	assert.Len(t, segs, 5)
}
