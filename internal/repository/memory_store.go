package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/raffle-ticketing/internal/model"
)

// MemoryStore keeps raffles and tickets in process memory.  It is the
// default driver for development and the store used by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	raffles map[string]model.Raffle
	tickets map[string]map[int]model.Ticket
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		raffles: make(map[string]model.Raffle),
		tickets: make(map[string]map[int]model.Ticket),
	}
}

func (s *MemoryStore) GetRaffle(_ context.Context, id string) (model.Raffle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.raffles[id]
	if !ok {
		return model.Raffle{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) SaveRaffle(_ context.Context, r model.Raffle) error {
	s.mu.Lock()
	s.raffles[r.ID] = r
	s.mu.Unlock()
	return nil
}

// ListRaffles returns every raffle, newest first.
func (s *MemoryStore) ListRaffles(_ context.Context) ([]model.Raffle, error) {
	s.mu.RLock()
	out := make([]model.Raffle, 0, len(s.raffles))
	for _, r := range s.raffles {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) DeleteRaffle(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.raffles[id]; !ok {
		return ErrNotFound
	}
	delete(s.raffles, id)
	return nil
}

func (s *MemoryStore) LoadTickets(_ context.Context, raffleID string) ([]model.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.tickets[raffleID]
	out := make([]model.Ticket, 0, len(m))
	for _, t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *MemoryStore) PutTickets(_ context.Context, raffleID string, tickets []model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.tickets[raffleID]
	if !ok {
		m = make(map[int]model.Ticket, len(tickets))
		s.tickets[raffleID] = m
	}
	for _, t := range tickets {
		m[t.Number] = t
	}
	return nil
}

func (s *MemoryStore) DeleteTickets(_ context.Context, raffleID string) error {
	s.mu.Lock()
	delete(s.tickets, raffleID)
	s.mu.Unlock()
	return nil
}

func sortNewestFirst(rs []model.Raffle) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
