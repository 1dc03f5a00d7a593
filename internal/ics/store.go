package ics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"monthcal/internal/bucket"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// Store is an event store backed by ICS subscriptions. Feeds are fetched and
// parsed on first use and kept until Refresh; expansion runs per query.
type Store struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location

	mu       sync.Mutex
	parsed   []ParsedEvent
	loaded   bool
	loadedAt time.Time
}

var _ bucket.EventStore = (*Store)(nil)

// NewStore creates a store for sources. Events are reported in loc.
func NewStore(fetcher *Fetcher, sources []Source, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{fetcher: fetcher, sources: sources, loc: loc}
}

// Refresh refetches and reparses every source. Sources that fail keep
// contributing nothing; the error lists them. The previous snapshot is
// replaced even on partial failure.
func (s *Store) Refresh(ctx context.Context) error {
	results, fetchErr := s.fetcher.FetchAll(ctx, s.sources)

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		events, err := ParseICS(res.Source, res.Body, s.loc)
		if err != nil {
			continue
		}
		parsed = append(parsed, events...)
	}

	s.mu.Lock()
	s.parsed = parsed
	s.loaded = true
	s.loadedAt = time.Now()
	s.mu.Unlock()

	appLog.Info("ics store refreshed",
		"sources", len(s.sources),
		"fetched", len(results),
		"vevents", len(parsed),
	)
	if fetchErr != nil {
		return fmt.Errorf("ics: refresh: %w", fetchErr)
	}
	return nil
}

// LoadedAt is the time of the last Refresh, zero before the first one.
func (s *Store) LoadedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadedAt
}

// FetchEvents returns the occurrences intersecting [start, end).
func (s *Store) FetchEvents(ctx context.Context, start, end time.Time, filter bucket.Filter) ([]*model.SourceEvent, error) {
	s.mu.Lock()
	loaded := s.loaded
	s.mu.Unlock()

	if !loaded {
		if err := s.Refresh(ctx); err != nil {
			appLog.Error("ics store: initial load incomplete", err)
		}
	}

	s.mu.Lock()
	parsed := s.parsed
	s.mu.Unlock()

	res, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*model.SourceEvent, 0, len(res.Events))
	for _, ev := range res.Events {
		if filter.Match(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}
