package question

import (
	"context"
	"database/sql"
	"fmt"

	"intake/pkg/sentinel"
)

// PostgresStore persists the question catalog in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Active(ctx context.Context) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, position, text, is_active
		FROM questions WHERE is_active ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.Key, &q.Position, &q.Text, &q.Active); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Upsert(ctx context.Context, q Question) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (key, position, text, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET position = EXCLUDED.position, text = EXCLUDED.text, is_active = EXCLUDED.is_active
	`, q.Key, q.Position, q.Text, q.Active)
	if err != nil {
		return fmt.Errorf("upsert question: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateText(ctx context.Context, key, text string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET text = $2 WHERE key = $1`, key, text)
	if err != nil {
		return fmt.Errorf("update question text: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Deactivate(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET is_active = FALSE WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deactivate question: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
