package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// PostgresStore persists accounts in PostgreSQL. Pure I/O; role rules live
// in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, chat_id, is_admin, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(account.ID), NormalizeUsername(account.Username), string(account.ChatID),
		account.Admin, account.Active, account.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id domain.AccountID) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, chat_id, is_admin, is_active, created_at
		FROM accounts WHERE id = $1
	`, uuid.UUID(id))
	return scanAccount(row)
}

func (s *PostgresStore) ByUsername(ctx context.Context, username string) (*Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, chat_id, is_admin, is_active, created_at
		FROM accounts WHERE username = $1
	`, NormalizeUsername(username))
	return scanAccount(row)
}

func (s *PostgresStore) ByChatID(ctx context.Context, chatID domain.RespondentID) (*Account, error) {
	if chatID.IsZero() {
		return nil, sentinel.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, username, chat_id, is_admin, is_active, created_at
		FROM accounts WHERE chat_id = $1
	`, string(chatID))
	return scanAccount(row)
}

func (s *PostgresStore) Update(ctx context.Context, account *Account) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET chat_id = $2, is_admin = $3, is_active = $4
		WHERE username = $1
	`, NormalizeUsername(account.Username), string(account.ChatID), account.Admin, account.Active)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, chat_id, is_admin, is_active, created_at
		FROM accounts ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []*Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*Account, error) {
	var (
		account Account
		id      uuid.UUID
		chatID  string
	)
	err := row.Scan(&id, &account.Username, &chatID, &account.Admin, &account.Active, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	account.ID = domain.AccountID(id)
	account.ChatID = domain.RespondentID(chatID)
	return &account, nil
}
