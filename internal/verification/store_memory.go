package verification

import (
	"context"
	"sync"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// MemoryPendingStore is an in-memory PendingStore for tests and single-node
// runs.
type MemoryPendingStore struct {
	mu      sync.RWMutex
	pending map[domain.RespondentID]Pending
}

func NewMemoryPending() *MemoryPendingStore {
	return &MemoryPendingStore{pending: make(map[domain.RespondentID]Pending)}
}

func (s *MemoryPendingStore) Put(ctx context.Context, p *Pending) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.RespondentID] = *p
	return nil
}

func (s *MemoryPendingStore) Get(ctx context.Context, rid domain.RespondentID) (*Pending, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pending[rid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *MemoryPendingStore) Delete(ctx context.Context, rid domain.RespondentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, rid)
	return nil
}
