package invite

import (
	"context"

	"intake/pkg/domain"
)

// Store persists invitations. Lookups return sentinel.ErrNotFound when the
// code or id cannot be resolved.
type Store interface {
	Create(ctx context.Context, inv *Invitation) error
	ByCode(ctx context.Context, code string) (*Invitation, error)
	ByID(ctx context.Context, id domain.InviteID) (*Invitation, error)
	ListByOperator(ctx context.Context, operatorID domain.AccountID) ([]*Invitation, error)
}
