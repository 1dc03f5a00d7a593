package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monthcal/internal/bucket"
	"monthcal/internal/calendar"
)

var sampleICS = strings.ReplaceAll(`BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//monthcal//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20250901T000000Z
DTSTART:20251006T090000Z
DTEND:20251006T093000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20251013T090000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:holiday
DTSTAMP:20250901T000000Z
DTSTART;VALUE=DATE:20251009
DTEND;VALUE=DATE:20251011
SUMMARY:Holiday
END:VEVENT
BEGIN:VEVENT
UID:trip
DTSTAMP:20250901T000000Z
DTSTART:20251030T180000Z
DTEND:20251102T100000Z
SUMMARY:Trip
LOCATION:Busan
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20250901T000000Z
RECURRENCE-ID:20251020T090000Z
DTSTART:20251020T100000Z
DTEND:20251020T103000Z
SUMMARY:Standup (moved)
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20250901T000000Z
DTSTART:20251001T090000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`, "\n", "\r\n")

var work = Source{ID: "work", URL: "https://calendar.example.com/private/abc.ics?token=secret"}

func october() (time.Time, time.Time) {
	return time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(work, []byte(sampleICS), time.UTC)
	require.NoError(t, err)
	require.Len(t, events, 4, "event without UID is skipped")

	byUID := map[string]ParsedEvent{}
	for _, ev := range events {
		if !ev.IsOverride {
			byUID[ev.UID] = ev
		}
	}

	standup := byUID["standup"]
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", standup.RawRRule)
	require.Len(t, standup.ExDates, 1)
	assert.True(t, standup.ExDates[0].Equal(time.Date(2025, 10, 13, 9, 0, 0, 0, time.UTC)))
	assert.False(t, standup.AllDay)

	holiday := byUID["holiday"]
	assert.True(t, holiday.AllDay)
	assert.Equal(t, time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC), holiday.Start)
	assert.Equal(t, time.Date(2025, 10, 11, 0, 0, 0, 0, time.UTC), holiday.End)

	assert.Equal(t, "Busan", byUID["trip"].Location)
}

func TestParseICSEmpty(t *testing.T) {
	_, err := ParseICS(work, nil, time.UTC)
	assert.Error(t, err)
}

func TestExpandOccurrences(t *testing.T) {
	parsed, err := ParseICS(work, []byte(sampleICS), time.UTC)
	require.NoError(t, err)

	start, end := october()
	res, err := ExpandOccurrences(parsed, ExpandConfig{DisplayLocation: time.UTC, RangeStart: start, RangeEnd: end})
	require.NoError(t, err)
	require.Len(t, res.Events, 5)
	assert.Empty(t, res.TruncatedEvents)

	titles := map[string]string{}
	for _, ev := range res.Events {
		titles[ev.ID] = ev.Title
		assert.Equal(t, "work", ev.SourceID)
		assert.Equal(t, "work", ev.ColorSeed)
	}
	assert.Equal(t, "Standup", titles["standup@2025-10-06T09:00:00Z"])
	assert.Equal(t, "Standup (moved)", titles["standup@2025-10-20T10:00:00Z"])
	assert.Equal(t, "Standup", titles["standup@2025-10-27T09:00:00Z"])
	assert.NotContains(t, titles, "standup@2025-10-13T09:00:00Z")
	assert.Contains(t, titles, "holiday@2025-10-09T00:00:00Z")
	assert.Contains(t, titles, "trip@2025-10-30T18:00:00Z")
}

func TestExpandKeepsEventsReachingIntoRange(t *testing.T) {
	parsed := []ParsedEvent{{
		Source:   work,
		UID:      "night",
		Start:    time.Date(2025, 9, 1, 22, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 9, 2, 4, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}}

	start, end := october()
	res, err := ExpandOccurrences(parsed, ExpandConfig{DisplayLocation: time.UTC, RangeStart: start, RangeEnd: end})
	require.NoError(t, err)
	// Sep 30 22:00 reaches into Oct 1, then one per day of October.
	require.Len(t, res.Events, 32)
	assert.Equal(t, time.Date(2025, 9, 30, 22, 0, 0, 0, time.UTC), res.Events[0].Start)
}

func TestExpandCap(t *testing.T) {
	parsed := []ParsedEvent{{
		UID:      "tick",
		Start:    time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 10, 1, 0, 30, 0, 0, time.UTC),
		RawRRule: "FREQ=HOURLY",
	}}
	start, end := october()
	res, err := ExpandOccurrences(parsed, ExpandConfig{DisplayLocation: time.UTC, RangeStart: start, RangeEnd: end, MaxOccurrencesPerEvent: 10})
	require.NoError(t, err)
	assert.Len(t, res.Events, 10)
	assert.Equal(t, []string{"tick"}, res.TruncatedEvents)
}

func TestExpandRejectsInvertedRange(t *testing.T) {
	start, end := october()
	_, err := ExpandOccurrences(nil, ExpandConfig{RangeStart: end, RangeEnd: start})
	assert.Error(t, err)
}

func newTestFetcher(t *testing.T) *Fetcher {
	return NewFetcher(FetcherOptions{CacheDir: t.TempDir(), RetryDelay: time.Millisecond, Attempts: 3})
}

func TestFetchOneUsesETagCache(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		code := int(status.Load())
		if code == http.StatusOK && r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	src := Source{ID: "work", URL: srv.URL + "/cal.ics"}
	ctx := context.Background()

	res, err := f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, sampleICS, string(res.Body))

	res, err = f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, sampleICS, string(res.Body))

	// Server errors are retried, then the cache is used.
	status.Store(http.StatusBadGateway)
	hits.Store(0)
	res, err = f.FetchOne(ctx, src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetchOneWithoutCacheFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.FetchOne(context.Background(), Source{ID: "gone", URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = f.FetchOne(context.Background(), Source{ID: "blank"})
	assert.Error(t, err)
}

func TestFetchAllKeepsOrderAndJoinsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.ics" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	sources := []Source{
		{ID: "a", URL: srv.URL + "/a.ics"},
		{ID: "missing", URL: srv.URL + "/missing.ics"},
		{ID: "b", URL: srv.URL + "/b.ics"},
	}

	res, err := f.FetchAll(context.Background(), sources)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].Source.ID)
	assert.Equal(t, "/b.ics", string(res[1].Body))
}

func TestStoreServesMonthBuckets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleICS))
	}))
	defer srv.Close()

	store := NewStore(newTestFetcher(t), []Source{{ID: "work", URL: srv.URL}}, time.UTC)
	assert.True(t, store.LoadedAt().IsZero())

	start, end := october()
	events, err := store.FetchEvents(context.Background(), start, end, bucket.Filter{})
	require.NoError(t, err)
	assert.Len(t, events, 5)
	assert.False(t, store.LoadedAt().IsZero())

	events, err = store.FetchEvents(context.Background(), start, end, bucket.Filter{SourceIDs: []string{"home"}})
	require.NoError(t, err)
	assert.Empty(t, events)

	cal := calendar.NewGregorian(time.UTC)
	b, err := bucket.BucketByDay(context.Background(), store, time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC), cal, bucket.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 5, b.Len())
	assert.Len(t, b[time.Date(2025, 10, 9, 0, 0, 0, 0, time.UTC)], 1)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://calendar.example.com/...(redacted)", redactURL(work.URL))
	assert.Equal(t, "ics://...(redacted)", redactURL("not a url"))
}
