package question

import (
	"context"
	"sort"
	"sync"

	"intake/pkg/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node runs.
type MemoryStore struct {
	mu        sync.RWMutex
	questions map[string]Question
}

func NewMemory() *MemoryStore {
	return &MemoryStore{questions: make(map[string]Question)}
}

func (s *MemoryStore) Active(ctx context.Context) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Question, 0, len(s.questions))
	for _, q := range s.questions {
		if q.Active {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, q Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.Key] = q
	return nil
}

func (s *MemoryStore) UpdateText(ctx context.Context, key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	q.Text = text
	s.questions[key] = q
	return nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	q.Active = false
	s.questions[key] = q
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions), nil
}
