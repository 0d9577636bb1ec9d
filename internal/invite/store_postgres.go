package invite

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

// PostgresStore persists invitations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inv *Invitation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invites (id, operator_id, code, description, language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.UUID(inv.ID), uuid.UUID(inv.OperatorID), inv.Code, inv.Description,
		string(inv.Language), inv.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create invite: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByCode(ctx context.Context, code string) (*Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operator_id, code, description, language, created_at
		FROM invites WHERE code = $1
	`, code)
	return scanInvitation(row)
}

func (s *PostgresStore) ByID(ctx context.Context, id domain.InviteID) (*Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, operator_id, code, description, language, created_at
		FROM invites WHERE id = $1
	`, uuid.UUID(id))
	return scanInvitation(row)
}

func (s *PostgresStore) ListByOperator(ctx context.Context, operatorID domain.AccountID) ([]*Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operator_id, code, description, language, created_at
		FROM invites WHERE operator_id = $1 ORDER BY created_at DESC
	`, uuid.UUID(operatorID))
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()

	var out []*Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*Invitation, error) {
	var (
		inv        Invitation
		id         uuid.UUID
		operatorID uuid.UUID
		language   string
	)
	err := row.Scan(&id, &operatorID, &inv.Code, &inv.Description, &language, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan invite: %w", err)
	}
	inv.ID = domain.InviteID(id)
	inv.OperatorID = domain.AccountID(operatorID)
	inv.Language = domain.ParseLanguage(language)
	return &inv, nil
}
