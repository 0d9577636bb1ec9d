package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// Service owns account management: adding/removing operators, promotion, and
// binding a chat identity on first contact. It also answers the verification
// gate's "is this respondent staff?" question.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// AddOperator registers a new operator account by username.
func (s *Service) AddOperator(ctx context.Context, username string) (*Account, error) {
	account := &Account{
		ID:        domain.NewAccountID(),
		Username:  NormalizeUsername(username),
		Active:    true,
		CreatedAt: time.Now(),
	}
	if account.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// RemoveOperator deactivates a non-admin account.
func (s *Service) RemoveOperator(ctx context.Context, username string) error {
	account, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return err
	}
	if account.Admin {
		return sentinel.ErrInvalidState
	}
	account.Active = false
	return s.store.Update(ctx, account)
}

// Promote grants admin to an active account.
func (s *Service) Promote(ctx context.Context, username string) error {
	return s.setAdmin(ctx, username, true)
}

// Demote revokes admin from an account.
func (s *Service) Demote(ctx context.Context, username string) error {
	return s.setAdmin(ctx, username, false)
}

func (s *Service) setAdmin(ctx context.Context, username string, admin bool) error {
	account, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return err
	}
	if !account.Active {
		return sentinel.ErrInvalidState
	}
	account.Admin = admin
	return s.store.Update(ctx, account)
}

// BindChatID records the chat-transport identity the first time a known
// username talks to the bot.
func (s *Service) BindChatID(ctx context.Context, username string, chatID domain.RespondentID) error {
	account, err := s.store.ByUsername(ctx, username)
	if err != nil {
		return err
	}
	if account.ChatID == chatID {
		return nil
	}
	account.ChatID = chatID
	return s.store.Update(ctx, account)
}

// IsStaff reports whether the respondent identity belongs to an active
// operator or administrator. Staff must never answer questionnaires.
func (s *Service) IsStaff(ctx context.Context, respondentID domain.RespondentID) (bool, error) {
	account, err := s.store.ByChatID(ctx, respondentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return account.Active, nil
}

// ByUsername looks up an account by (normalized) username.
func (s *Service) ByUsername(ctx context.Context, username string) (*Account, error) {
	return s.store.ByUsername(ctx, username)
}

// ByID looks up an account by identifier. Used to route notifications to
// the operator who issued an invitation.
func (s *Service) ByID(ctx context.Context, id domain.AccountID) (*Account, error) {
	return s.store.ByID(ctx, id)
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]*Account, error) {
	return s.store.List(ctx)
}

// EnsureFirstAdmin creates (or promotes) the bootstrap administrator. Called
// once on startup; a blank username is a no-op.
func (s *Service) EnsureFirstAdmin(ctx context.Context, username string) error {
	username = NormalizeUsername(username)
	if username == "" {
		return nil
	}
	account, err := s.store.ByUsername(ctx, username)
	switch {
	case err == nil:
		if account.Admin && account.Active {
			return nil
		}
		account.Admin = true
		account.Active = true
		return s.store.Update(ctx, account)
	case errors.Is(err, sentinel.ErrNotFound):
		return s.store.Create(ctx, &Account{
			ID:        domain.NewAccountID(),
			Username:  username,
			Admin:     true,
			Active:    true,
			CreatedAt: time.Now(),
		})
	default:
		return err
	}
}
