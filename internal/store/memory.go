package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pedidos/internal/model"
)

// MemoryStore keeps orders for the process lifetime only. Concurrent
// writers to the same order race with last-write-wins semantics.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]model.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]model.Order)}
}

func (s *MemoryStore) List(_ context.Context) ([]model.Order, error) {
	s.mu.RLock()
	out := make([]model.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return o.Clone(), nil
}

func (s *MemoryStore) Append(_ context.Context, o model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("append %s: %w", o.ID, ErrDuplicateID)
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return fmt.Errorf("remove %s: %w", id, ErrNotFound)
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("update status %s: %w", id, ErrNotFound)
	}
	o.Status = status
	s.orders[id] = o
	return nil
}

func (s *MemoryStore) UpdateFields(_ context.Context, id string, p model.OrderPatch) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("update fields %s: %w", id, ErrNotFound)
	}
	p.Apply(&o)
	s.orders[id] = o
	return o.Clone(), nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders), nil
}
