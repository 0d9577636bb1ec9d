package fingerprint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"intake/pkg/domain"
	"intake/pkg/sentinel"
)

// PostgresStore persists fingerprints in PostgreSQL. Each matcher rule maps
// to one indexed lookup.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const fingerprintColumns = `
	id, respondent_id, session_id,
	network_address, user_agent, screen_resolution, timezone, locale, platform,
	canvas_hash, webgl_hash, fonts_hash, is_premium, raw_payload, created_at`

func (s *PostgresStore) Create(ctx context.Context, fp *Fingerprint) error {
	var sessionID any
	if !fp.SessionID.IsNil() {
		sessionID = uuid.UUID(fp.SessionID)
	}
	raw := fp.Raw
	if len(raw) == 0 {
		raw = []byte(`{}`)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fingerprints (`+fingerprintColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, uuid.UUID(fp.ID), string(fp.RespondentID), sessionID,
		fp.Signals.NetworkAddress, fp.Signals.UserAgent, fp.Signals.ScreenResolution,
		fp.Signals.Timezone, fp.Signals.Locale, fp.Signals.Platform,
		fp.Signals.CanvasHash, fp.Signals.WebGLHash, fp.Signals.FontsHash,
		fp.Signals.Premium, []byte(raw), fp.CreatedAt)
	if err != nil {
		return fmt.Errorf("create fingerprint: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByID(ctx context.Context, id domain.FingerprintID) (*Fingerprint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fingerprintColumns+` FROM fingerprints WHERE id = $1
	`, uuid.UUID(id))
	return scanFingerprint(row)
}

func (s *PostgresStore) LatestByRespondent(ctx context.Context, rid domain.RespondentID) (*Fingerprint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+fingerprintColumns+` FROM fingerprints
		WHERE respondent_id = $1 ORDER BY created_at DESC LIMIT 1
	`, string(rid))
	return scanFingerprint(row)
}

func (s *PostgresStore) LinkSession(ctx context.Context, id domain.FingerprintID, sessionID domain.SessionID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE fingerprints SET session_id = $2 WHERE id = $1
	`, uuid.UUID(id), uuid.UUID(sessionID))
	if err != nil {
		return fmt.Errorf("link fingerprint session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ByNetworkAddress(ctx context.Context, addr string, exclude domain.RespondentID) ([]*Fingerprint, error) {
	return s.query(ctx, `
		SELECT `+fingerprintColumns+` FROM fingerprints
		WHERE network_address = $1 AND respondent_id <> $2
		ORDER BY created_at
	`, addr, string(exclude))
}

func (s *PostgresStore) ByCanvasHash(ctx context.Context, hash string, exclude domain.RespondentID) ([]*Fingerprint, error) {
	return s.query(ctx, `
		SELECT `+fingerprintColumns+` FROM fingerprints
		WHERE canvas_hash = $1 AND respondent_id <> $2
		ORDER BY created_at
	`, hash, string(exclude))
}

func (s *PostgresStore) ByDeviceCombo(ctx context.Context, screen, timezone, platform string, exclude domain.RespondentID) ([]*Fingerprint, error) {
	return s.query(ctx, `
		SELECT `+fingerprintColumns+` FROM fingerprints
		WHERE screen_resolution = $1 AND timezone = $2 AND platform = $3
			AND respondent_id <> $4
		ORDER BY created_at
	`, screen, timezone, platform, string(exclude))
}

func (s *PostgresStore) query(ctx context.Context, q string, args ...any) ([]*Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	var out []*Fingerprint
	for rows.Next() {
		fp, err := scanFingerprint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFingerprint(row rowScanner) (*Fingerprint, error) {
	var (
		fp        Fingerprint
		id        uuid.UUID
		rid       string
		sessionID uuid.NullUUID
		raw       []byte
	)
	err := row.Scan(&id, &rid, &sessionID,
		&fp.Signals.NetworkAddress, &fp.Signals.UserAgent, &fp.Signals.ScreenResolution,
		&fp.Signals.Timezone, &fp.Signals.Locale, &fp.Signals.Platform,
		&fp.Signals.CanvasHash, &fp.Signals.WebGLHash, &fp.Signals.FontsHash,
		&fp.Signals.Premium, &raw, &fp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan fingerprint: %w", err)
	}
	fp.ID = domain.FingerprintID(id)
	fp.RespondentID = domain.RespondentID(rid)
	if sessionID.Valid {
		fp.SessionID = domain.SessionID(sessionID.UUID)
	}
	fp.Raw = raw
	return &fp, nil
}
