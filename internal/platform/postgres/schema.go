package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently on startup. The three fingerprint indexes
// are the store-layer contract that keeps match latency bounded as history
// grows: one per correlation rule.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		chat_id TEXT NOT NULL DEFAULT '',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS accounts_chat_id_idx ON accounts (chat_id) WHERE chat_id <> ''`,

	`CREATE TABLE IF NOT EXISTS invites (
		id UUID PRIMARY KEY,
		operator_id UUID NOT NULL REFERENCES accounts(id),
		code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT 'en',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS questions (
		key TEXT PRIMARY KEY,
		position INT NOT NULL,
		text TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,

	`CREATE TABLE IF NOT EXISTS funnel_sessions (
		id UUID PRIMARY KEY,
		invite_id UUID NOT NULL REFERENCES invites(id),
		respondent_id TEXT NOT NULL,
		respondent_handle TEXT NOT NULL DEFAULT '',
		respondent_name TEXT NOT NULL DEFAULT '',
		answers JSONB NOT NULL DEFAULT '{}'::jsonb,
		status TEXT NOT NULL DEFAULT 'in_progress',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS funnel_sessions_respondent_idx ON funnel_sessions (respondent_id, status)`,
	`CREATE INDEX IF NOT EXISTS funnel_sessions_invite_idx ON funnel_sessions (invite_id, status)`,

	`CREATE TABLE IF NOT EXISTS fingerprints (
		id UUID PRIMARY KEY,
		respondent_id TEXT NOT NULL,
		session_id UUID REFERENCES funnel_sessions(id),
		network_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		screen_resolution TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		locale TEXT NOT NULL DEFAULT '',
		platform TEXT NOT NULL DEFAULT '',
		canvas_hash TEXT NOT NULL DEFAULT '',
		webgl_hash TEXT NOT NULL DEFAULT '',
		fonts_hash TEXT NOT NULL DEFAULT '',
		is_premium BOOLEAN NOT NULL DEFAULT FALSE,
		raw_payload JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS fingerprints_respondent_idx ON fingerprints (respondent_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS fingerprints_network_idx ON fingerprints (network_address)`,
	`CREATE INDEX IF NOT EXISTS fingerprints_canvas_idx ON fingerprints (canvas_hash)`,
	`CREATE INDEX IF NOT EXISTS fingerprints_device_idx ON fingerprints (screen_resolution, timezone, platform)`,

	`CREATE TABLE IF NOT EXISTS pending_verifications (
		respondent_id TEXT PRIMARY KEY,
		invite_id UUID NOT NULL REFERENCES invites(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the record-store tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
