package invite

import (
	"context"
	"sort"
	"sync"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// MemoryStore is an in-memory invitation store used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byCode  map[string]*Invitation
	byID    map[domain.InviteID]*Invitation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byCode: make(map[string]*Invitation),
		byID:   make(map[domain.InviteID]*Invitation),
	}
}

func (s *MemoryStore) Create(ctx context.Context, inv *Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCode[inv.Code]; ok {
		return sentinel.ErrConflict
	}
	cp := *inv
	s.byCode[inv.Code] = &cp
	s.byID[inv.ID] = &cp
	return nil
}

func (s *MemoryStore) ByCode(ctx context.Context, code string) (*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byCode[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *MemoryStore) ByID(ctx context.Context, id domain.InviteID) (*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *MemoryStore) ListByOperator(ctx context.Context, operatorID domain.AccountID) ([]*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Invitation
	for _, inv := range s.byID {
		if inv.OperatorID == operatorID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
