package funnel

import (
	"context"
	"sync"
	"time"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// MemoryStore is an in-memory session store for tests and single-node runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*Session
}

func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[domain.SessionID]*Session)}
}

func (s *MemoryStore) Create(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *MemoryStore) ByID(ctx context.Context, id domain.SessionID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copySession(sess), nil
}

func (s *MemoryStore) ActiveByRespondent(ctx context.Context, rid domain.RespondentID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findActive(func(sess *Session) bool {
		return sess.RespondentID == rid
	})
}

func (s *MemoryStore) ActiveByRespondentInvite(ctx context.Context, rid domain.RespondentID, inviteID domain.InviteID) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findActive(func(sess *Session) bool {
		return sess.RespondentID == rid && sess.InviteID == inviteID
	})
}

func (s *MemoryStore) findActive(match func(*Session) bool) (*Session, error) {
	var latest *Session
	for _, sess := range s.sessions {
		if sess.Status != StatusInProgress || !match(sess) {
			continue
		}
		if latest == nil || sess.CreatedAt.After(latest.CreatedAt) {
			latest = sess
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return copySession(latest), nil
}

func (s *MemoryStore) SaveAnswer(ctx context.Context, id domain.SessionID, key, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sess.Status != StatusInProgress {
		return sentinel.ErrInvalidState
	}
	if sess.Answers == nil {
		sess.Answers = make(map[string]string)
	}
	sess.Answers[key] = answer
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, id domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if sess.Status != StatusInProgress {
		return sentinel.ErrInvalidState
	}
	now := time.Now()
	sess.Status = StatusCompleted
	sess.CompletedAt = &now
	return nil
}

func (s *MemoryStore) CancelActive(ctx context.Context, rid domain.RespondentID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancelled := false
	for _, sess := range s.sessions {
		if sess.RespondentID == rid && sess.Status == StatusInProgress {
			sess.Status = StatusCancelled
			cancelled = true
		}
	}
	return cancelled, nil
}

func (s *MemoryStore) CountCompletedByInvite(ctx context.Context, inviteID domain.InviteID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.InviteID == inviteID && sess.Status == StatusCompleted {
			n++
		}
	}
	return n, nil
}

func copySession(sess *Session) *Session {
	cp := *sess
	if sess.Answers != nil {
		cp.Answers = make(map[string]string, len(sess.Answers))
		for k, v := range sess.Answers {
			cp.Answers[k] = v
		}
	}
	if sess.CompletedAt != nil {
		t := *sess.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}
