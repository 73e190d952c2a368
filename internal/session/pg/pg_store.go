// Package pg implementa session.Store sobre PostgreSQL con upsert por
// (account_id, provider).
package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/session"
)

// Schema es el DDL mínimo del backend postgres.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    account_id    TEXT NOT NULL,
    provider      TEXT NOT NULL,
    user_urn      TEXT NOT NULL,
    name          TEXT NOT NULL DEFAULT '',
    access_token  TEXT NOT NULL,
    refresh_token TEXT NOT NULL DEFAULT '',
    expires_in    BIGINT NOT NULL DEFAULT 0,
    scope         TEXT NOT NULL DEFAULT '',
    last_updated  TIMESTAMPTZ NOT NULL,
    raw           JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (account_id, provider)
);
`

// Store es el session.Store respaldado por postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New crea el Store sobre un pool existente.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// EnsureSchema crea la tabla si no existe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("sessions schema: %w", err)
	}
	return nil
}

// Save implementa session.Store. El upsert reemplaza la fila entera.
func (s *Store) Save(ctx context.Context, accountID, provider string, sess *session.Session) error {
	raw, err := json.Marshal(sess.Raw)
	if err != nil {
		return fmt.Errorf("marshal raw grant: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (account_id, provider, user_urn, name, access_token, refresh_token, expires_in, scope, last_updated, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (account_id, provider) DO UPDATE SET
			user_urn = EXCLUDED.user_urn,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_in = EXCLUDED.expires_in,
			scope = EXCLUDED.scope,
			last_updated = EXCLUDED.last_updated,
			raw = EXCLUDED.raw`,
		accountID, provider, sess.UserURN, sess.Name, sess.AccessToken,
		sess.RefreshToken, sess.ExpiresIn, sess.Scope, sess.LastUpdated, raw)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get implementa session.Store.
func (s *Store) Get(ctx context.Context, accountID, provider string) (*session.Session, error) {
	var sess session.Session
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT user_urn, name, access_token, refresh_token, expires_in, scope, last_updated, raw
		FROM sessions WHERE account_id = $1 AND provider = $2`, accountID, provider).
		Scan(&sess.UserURN, &sess.Name, &sess.AccessToken, &sess.RefreshToken,
			&sess.ExpiresIn, &sess.Scope, &sess.LastUpdated, &raw)
	if err == pgx.ErrNoRows {
		return nil, session.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &sess.Raw)
	}
	return &sess, nil
}
