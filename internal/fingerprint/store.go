package fingerprint

import (
	"context"

	"intake/pkg/domain"
)

// Store persists fingerprints and answers the matcher's per-rule lookups.
// Lookup methods exclude the given respondent's own records so a respondent
// never matches against themselves.
type Store interface {
	Create(ctx context.Context, fp *Fingerprint) error
	ByID(ctx context.Context, id domain.FingerprintID) (*Fingerprint, error)
	LatestByRespondent(ctx context.Context, rid domain.RespondentID) (*Fingerprint, error)
	LinkSession(ctx context.Context, id domain.FingerprintID, sessionID domain.SessionID) error

	ByNetworkAddress(ctx context.Context, addr string, exclude domain.RespondentID) ([]*Fingerprint, error)
	ByCanvasHash(ctx context.Context, hash string, exclude domain.RespondentID) ([]*Fingerprint, error)
	ByDeviceCombo(ctx context.Context, screen, timezone, platform string, exclude domain.RespondentID) ([]*Fingerprint, error)
}
