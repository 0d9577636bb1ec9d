// Package verification gates funnel entry behind device-fingerprint capture.
// It issues capture links, validates capture payload integrity, and tracks
// which invitation a respondent is verifying for until capture completes.
package verification

import (
	"context"
	"time"

	"intake/pkg/domain"
)

// Pending records that a respondent was sent a capture link for an
// invitation and has not completed capture yet. At most one pending record
// exists per respondent; a new verification request replaces the old one.
type Pending struct {
	RespondentID domain.RespondentID
	InviteID     domain.InviteID
	CreatedAt    time.Time
}

// PendingStore keeps pending verifications keyed by respondent. Put replaces
// any existing record for the same respondent.
type PendingStore interface {
	Put(ctx context.Context, p *Pending) error
	Get(ctx context.Context, rid domain.RespondentID) (*Pending, error)
	Delete(ctx context.Context, rid domain.RespondentID) error
}
