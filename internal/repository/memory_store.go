package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// MemoryStore keeps events and purchases in process memory.  Reads
// return copies, so callers never share maps with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	events    map[string]model.Event
	purchases map[string]model.Purchase
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:    make(map[string]model.Event),
		purchases: make(map[string]model.Purchase),
	}
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	return ev.Clone(), nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, id string, patch model.EventPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return ErrEventNotFound
	}
	ev = ev.Clone()
	if patch.SaleState != nil {
		ev.SaleState = *patch.SaleState
	}
	for label, n := range patch.AvailableSeats {
		sc, ok := ev.SeatCategories[label]
		if !ok {
			continue
		}
		if n < 0 {
			n = 0
		}
		sc.Available = n
		ev.SeatCategories[label] = sc
	}
	s.events[id] = ev
	return nil
}

// CreateEventIfMissing stores ev unless its ID is taken.
func (s *MemoryStore) CreateEventIfMissing(_ context.Context, ev model.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; ok {
		return false, nil
	}
	s.events[ev.ID] = ev.Clone()
	return true, nil
}

func (s *MemoryStore) CreatePurchase(_ context.Context, p model.Purchase) (model.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[p.EventID]; !ok {
		return model.Purchase{}, ErrEventNotFound
	}
	if _, ok := s.purchases[p.ID]; ok {
		return model.Purchase{}, ErrConflict
	}
	s.purchases[p.ID] = p
	return p, nil
}

func (s *MemoryStore) ListPurchases(_ context.Context, eventID string) ([]model.Purchase, error) {
	out := s.filter(func(p model.Purchase) bool { return p.EventID == eventID })
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.Before(out[j].PurchasedAt) })
	return out, nil
}

func (s *MemoryStore) ListPurchasesByUser(_ context.Context, userID string) ([]model.Purchase, error) {
	out := s.filter(func(p model.Purchase) bool { return p.UserID == userID })
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

func (s *MemoryStore) filter(keep func(model.Purchase) bool) []model.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Purchase
	for _, p := range s.purchases {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemoryStore) DeletePurchase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.purchases[id]; !ok {
		return ErrPurchaseNotFound
	}
	delete(s.purchases, id)
	return nil
}
