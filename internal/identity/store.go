package identity

import (
	"context"

	"intake/pkg/domain"
)

// Store persists operator/admin accounts. Usernames are stored normalized
// and unique; Create returns sentinel.ErrConflict on duplicates.
type Store interface {
	Create(ctx context.Context, account *Account) error
	ByID(ctx context.Context, id domain.AccountID) (*Account, error)
	ByUsername(ctx context.Context, username string) (*Account, error)
	ByChatID(ctx context.Context, chatID domain.RespondentID) (*Account, error)
	Update(ctx context.Context, account *Account) error
	List(ctx context.Context) ([]*Account, error)
}
