package bucket

import (
	"context"
	"sync"
	"time"

	"monthcal/internal/model"
)

// MemoryStore is an in-process EventStore. It keeps pointers to the events it
// is given, so committed edits are visible to later fetches.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*model.SourceEvent
}

// NewMemoryStore returns a store holding events.
func NewMemoryStore(events ...*model.SourceEvent) *MemoryStore {
	s := &MemoryStore{}
	s.Add(events...)
	return s
}

// Add appends events to the store.
func (s *MemoryStore) Add(events ...*model.SourceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *MemoryStore) FetchEvents(ctx context.Context, start, end time.Time, filter Filter) ([]*model.SourceEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.SourceEvent, 0)
	for _, ev := range s.events {
		if ev.Intersects(start, end) && filter.Match(ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}
