package occupancy

import (
	"context"
	"sync"

	"github.com/wolfman30/clinic-booking/internal/slots"
)

// Store holds normalized occupied slots keyed by ISO date. A stored empty
// slice is a cached "nothing booked" and must be distinguishable from a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]slots.TimeSlot, bool, error)
	Set(ctx context.Context, key string, value []slots.TimeSlot) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]slots.TimeSlot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]slots.TimeSlot)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]slots.TimeSlot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]slots.TimeSlot{}, v...), true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []slots.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]slots.TimeSlot{}, value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]slots.TimeSlot)
	return nil
}

func (m *MemoryStore) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
