package fingerprint

import (
	"context"
	"sync"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// MemoryStore is an in-memory Store for tests and single-node runs.
type MemoryStore struct {
	mu  sync.RWMutex
	fps []*Fingerprint
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(ctx context.Context, fp *Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *fp
	s.fps = append(s.fps, &cp)
	return nil
}

func (s *MemoryStore) ByID(ctx context.Context, id domain.FingerprintID) (*Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fp := range s.fps {
		if fp.ID == id {
			cp := *fp
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) LatestByRespondent(ctx context.Context, rid domain.RespondentID) (*Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Appended in arrival order; scan from the tail.
	for i := len(s.fps) - 1; i >= 0; i-- {
		if s.fps[i].RespondentID == rid {
			cp := *s.fps[i]
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) LinkSession(ctx context.Context, id domain.FingerprintID, sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fp := range s.fps {
		if fp.ID == id {
			fp.SessionID = sessionID
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *MemoryStore) ByNetworkAddress(ctx context.Context, addr string, exclude domain.RespondentID) ([]*Fingerprint, error) {
	return s.filter(func(fp *Fingerprint) bool {
		return fp.Signals.NetworkAddress == addr
	}, exclude), nil
}

func (s *MemoryStore) ByCanvasHash(ctx context.Context, hash string, exclude domain.RespondentID) ([]*Fingerprint, error) {
	return s.filter(func(fp *Fingerprint) bool {
		return fp.Signals.CanvasHash == hash
	}, exclude), nil
}

func (s *MemoryStore) ByDeviceCombo(ctx context.Context, screen, timezone, platform string, exclude domain.RespondentID) ([]*Fingerprint, error) {
	return s.filter(func(fp *Fingerprint) bool {
		return fp.Signals.ScreenResolution == screen &&
			fp.Signals.Timezone == timezone &&
			fp.Signals.Platform == platform
	}, exclude), nil
}

func (s *MemoryStore) filter(keep func(*Fingerprint) bool, exclude domain.RespondentID) []*Fingerprint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Fingerprint
	for _, fp := range s.fps {
		if fp.RespondentID == exclude || !keep(fp) {
			continue
		}
		cp := *fp
		out = append(out, &cp)
	}
	return out
}
