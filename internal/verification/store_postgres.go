package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// PostgresPendingStore keeps pending verifications in PostgreSQL for
// deployments without Redis.
type PostgresPendingStore struct {
	db *sql.DB
}

func NewPostgresPending(db *sql.DB) *PostgresPendingStore {
	return &PostgresPendingStore{db: db}
}

func (s *PostgresPendingStore) Put(ctx context.Context, p *Pending) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_verifications (respondent_id, invite_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (respondent_id) DO UPDATE
		SET invite_id = EXCLUDED.invite_id, created_at = EXCLUDED.created_at
	`, string(p.RespondentID), uuid.UUID(p.InviteID), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("put pending: %w", err)
	}
	return nil
}

func (s *PostgresPendingStore) Get(ctx context.Context, rid domain.RespondentID) (*Pending, error) {
	var (
		p        Pending
		inviteID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT invite_id, created_at FROM pending_verifications WHERE respondent_id = $1
	`, string(rid)).Scan(&inviteID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get pending: %w", err)
	}
	p.RespondentID = rid
	p.InviteID = domain.InviteID(inviteID)
	return &p, nil
}

func (s *PostgresPendingStore) Delete(ctx context.Context, rid domain.RespondentID) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM pending_verifications WHERE respondent_id = $1
	`, string(rid))
	if err != nil {
		return fmt.Errorf("delete pending: %w", err)
	}
	return nil
}
