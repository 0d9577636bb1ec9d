package funnel

import (
	"context"

	"intake/pkg/domain"
)

// Store persists funnel sessions. SaveAnswer is the per-answer checkpoint;
// Complete transitions in_progress to completed and is the only path there.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	ByID(ctx context.Context, id domain.SessionID) (*Session, error)
	ActiveByRespondent(ctx context.Context, rid domain.RespondentID) (*Session, error)
	ActiveByRespondentInvite(ctx context.Context, rid domain.RespondentID, inviteID domain.InviteID) (*Session, error)
	SaveAnswer(ctx context.Context, id domain.SessionID, key, answer string) error

	// Complete marks the session completed; sentinel.ErrInvalidState when
	// the session is not in progress.
	Complete(ctx context.Context, id domain.SessionID) error

	// CancelActive cancels the respondent's active session, reporting
	// whether one existed.
	CancelActive(ctx context.Context, rid domain.RespondentID) (bool, error)

	CountCompletedByInvite(ctx context.Context, inviteID domain.InviteID) (int, error)
}
