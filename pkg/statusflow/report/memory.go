package report

import (
	"context"
	"sort"
	"sync"

	"github.com/kaiban-ai/statusflow/pkg/statusflow/entity"
	"github.com/kaiban-ai/statusflow/pkg/statusflow/event"
)

// MemoryStore is an in-memory report store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]*event.StatusChangeEvent // event ID -> event
	closed bool
}

// NewMemoryStore creates a new in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string]*event.StatusChangeEvent),
	}
}

// HandleStatusChange implements Store.
func (m *MemoryStore) HandleStatusChange(_ context.Context, evt *event.StatusChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	stored := *evt
	m.events[evt.EventID] = &stored
	return nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, kind entity.Kind, entityID string) ([]*event.StatusChangeEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]*event.StatusChangeEvent, 0)
	for _, evt := range m.events {
		if evt.EntityKind == kind && evt.EntityID == entityID {
			stored := *evt
			out = append(out, &stored)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

// Count implements Store.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.events), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.events = nil
	return nil
}
