package invite

import (
	"context"
	"fmt"
	"time"

	"intake/pkg/domain"
	"intake/pkg/funnelerrors"
)

// CompletionCounter reports how many funnel sessions finished for an
// invitation. Implemented by the funnel store; kept as an interface so this
// package does not depend on the funnel.
type CompletionCounter interface {
	CountCompletedByInvite(ctx context.Context, inviteID domain.InviteID) (int, error)
}

// Service creates and lists invitations on behalf of operators.
type Service struct {
	store       Store
	completions CompletionCounter
}

func NewService(store Store, completions CompletionCounter) *Service {
	return &Service{store: store, completions: completions}
}

// Create mints a new invitation with a fresh URL-safe code.
func (s *Service) Create(ctx context.Context, operatorID domain.AccountID, description string, language domain.Language) (*Invitation, error) {
	if operatorID.IsNil() {
		return nil, funnelerrors.New(funnelerrors.CodeInvalidInput, "operator is required")
	}
	if !language.Valid() {
		language = domain.DefaultLanguage
	}
	inv := &Invitation{
		ID:          domain.NewInviteID(),
		OperatorID:  operatorID,
		Code:        newCode(),
		Description: description,
		Language:    language,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return inv, nil
}

// ListByOperator returns the operator's invitations with completed counts.
func (s *Service) ListByOperator(ctx context.Context, operatorID domain.AccountID) ([]*Summary, error) {
	invs, err := s.store.ListByOperator(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	out := make([]*Summary, 0, len(invs))
	for _, inv := range invs {
		count := 0
		if s.completions != nil {
			count, err = s.completions.CountCompletedByInvite(ctx, inv.ID)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, &Summary{Invitation: *inv, CompletedCount: count})
	}
	return out, nil
}
