package funnel

import (
	"context"
	"errors"

	"intake/internal/fingerprint"
	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// sessionDirectory lets the fingerprint matcher enrich matches with session
// details without the fingerprint package depending on the funnel.
type sessionDirectory struct {
	store Store
}

func NewSessionDirectory(store Store) fingerprint.SessionDirectory {
	return &sessionDirectory{store: store}
}

func (d *sessionDirectory) SessionInfo(ctx context.Context, id domain.SessionID) (*fingerprint.SessionInfo, error) {
	sess, err := d.store.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &fingerprint.SessionInfo{
		SessionID:        sess.ID,
		RespondentHandle: sess.RespondentHandle,
		RespondentName:   sess.RespondentName,
		Completed:        sess.Status == StatusCompleted,
	}, nil
}

// ActiveLookup answers the verification gate's conflicting-session check.
type ActiveLookup struct {
	store Store
}

func NewActiveLookup(store Store) *ActiveLookup {
	return &ActiveLookup{store: store}
}

func (l *ActiveLookup) ActiveInvite(ctx context.Context, rid domain.RespondentID) (domain.InviteID, bool, error) {
	sess, err := l.store.ActiveByRespondent(ctx, rid)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.InviteID{}, false, nil
		}
		return domain.InviteID{}, false, err
	}
	return sess.InviteID, true, nil
}
