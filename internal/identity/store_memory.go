package identity

import (
	"context"
	"sync"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// MemoryStore is an in-memory account store used in development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*Account // keyed by normalized username
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]*Account)}
}

func (s *MemoryStore) Create(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NormalizeUsername(account.Username)
	if _, ok := s.accounts[key]; ok {
		return sentinel.ErrConflict
	}
	cp := *account
	cp.Username = key
	s.accounts[key] = &cp
	return nil
}

func (s *MemoryStore) ByID(ctx context.Context, id domain.AccountID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.ID == id {
			cp := *account
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ByUsername(ctx context.Context, username string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[NormalizeUsername(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *MemoryStore) ByChatID(ctx context.Context, chatID domain.RespondentID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if chatID.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	for _, account := range s.accounts {
		if account.ChatID == chatID {
			cp := *account
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(ctx context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := NormalizeUsername(account.Username)
	if _, ok := s.accounts[key]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *account
	cp.Username = key
	s.accounts[key] = &cp
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Account, 0, len(s.accounts))
	for _, account := range s.accounts {
		cp := *account
		out = append(out, &cp)
	}
	return out, nil
}
