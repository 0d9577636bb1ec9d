package question

import "context"

// Store persists the question catalog. Active returns only active questions
// ordered by position; Upsert keys on the question key.
type Store interface {
	Active(ctx context.Context) ([]Question, error)
	Upsert(ctx context.Context, q Question) error
	UpdateText(ctx context.Context, key, text string) error
	Deactivate(ctx context.Context, key string) error
	Count(ctx context.Context) (int, error)
}
