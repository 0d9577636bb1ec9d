package funnel

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// PostgresStore persists sessions in PostgreSQL. Answers live in a JSONB
// column; SaveAnswer sets one key atomically with jsonb_set so concurrent
// sessions never clobber each other.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sessionColumns = `
	id, invite_id, respondent_id, respondent_handle, respondent_name,
	answers, status, created_at, completed_at`

func (s *PostgresStore) Create(ctx context.Context, sess *Session) error {
	answers, err := json.Marshal(sess.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	if sess.Answers == nil {
		answers = []byte(`{}`)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO funnel_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(sess.ID), uuid.UUID(sess.InviteID), string(sess.RespondentID),
		sess.RespondentHandle, sess.RespondentName, answers, string(sess.Status),
		sess.CreatedAt, sess.CompletedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id domain.SessionID) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM funnel_sessions WHERE id = $1
	`, uuid.UUID(id))
	return scanSession(row)
}

func (s *PostgresStore) ActiveByRespondent(ctx context.Context, rid domain.RespondentID) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM funnel_sessions
		WHERE respondent_id = $1 AND status = 'in_progress'
		ORDER BY created_at DESC LIMIT 1
	`, string(rid))
	return scanSession(row)
}

func (s *PostgresStore) ActiveByRespondentInvite(ctx context.Context, rid domain.RespondentID, inviteID domain.InviteID) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM funnel_sessions
		WHERE respondent_id = $1 AND invite_id = $2 AND status = 'in_progress'
		ORDER BY created_at DESC LIMIT 1
	`, string(rid), uuid.UUID(inviteID))
	return scanSession(row)
}

func (s *PostgresStore) SaveAnswer(ctx context.Context, id domain.SessionID, key, answer string) error {
	value, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal answer: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE funnel_sessions
		SET answers = jsonb_set(answers, ARRAY[$2], $3::jsonb, true)
		WHERE id = $1 AND status = 'in_progress'
	`, uuid.UUID(id), key, value)
	if err != nil {
		return fmt.Errorf("save answer: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already terminal; distinguish for the caller.
		if _, err := s.ByID(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) Complete(ctx context.Context, id domain.SessionID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE funnel_sessions SET status = 'completed', completed_at = now()
		WHERE id = $1 AND status = 'in_progress'
	`, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already terminal; distinguish for the caller.
		if _, err := s.ByID(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) CancelActive(ctx context.Context, rid domain.RespondentID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE funnel_sessions SET status = 'cancelled'
		WHERE respondent_id = $1 AND status = 'in_progress'
	`, string(rid))
	if err != nil {
		return false, fmt.Errorf("cancel sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) CountCompletedByInvite(ctx context.Context, inviteID domain.InviteID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM funnel_sessions
		WHERE invite_id = $1 AND status = 'completed'
	`, uuid.UUID(inviteID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed sessions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess        Session
		id          uuid.UUID
		inviteID    uuid.UUID
		rid         string
		answers     []byte
		status      string
		completedAt sql.NullTime
	)
	err := row.Scan(&id, &inviteID, &rid, &sess.RespondentHandle, &sess.RespondentName,
		&answers, &status, &sess.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(answers, &sess.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	sess.ID = domain.SessionID(id)
	sess.InviteID = domain.InviteID(inviteID)
	sess.RespondentID = domain.RespondentID(rid)
	sess.Status = Status(status)
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	return &sess, nil
}
