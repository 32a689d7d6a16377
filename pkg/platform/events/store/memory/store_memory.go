package memory

import (
	"context"
	"sync"

	"curio/pkg/domain"
	events "curio/pkg/platform/events"
)

// InMemoryStore collects events for tests and single-process deployments.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []events.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListAll returns every recorded event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]events.Event{}, s.events...), nil
}

// ListByAction returns recorded events matching the given action.
func (s *InMemoryStore) ListByAction(_ context.Context, action events.Action) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []events.Event
	for _, ev := range s.events {
		if ev.Action == action {
			out = append(out, ev)
		}
	}
	return out, nil
}

// ListByToken returns recorded events touching the given token.
func (s *InMemoryStore) ListByToken(_ context.Context, tokenID domain.TokenID) ([]events.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []events.Event
	for _, ev := range s.events {
		if ev.TokenID == tokenID {
			out = append(out, ev)
		}
	}
	return out, nil
}
