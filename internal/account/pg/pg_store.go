// Package pg implementa account.Store sobre PostgreSQL.
// Usa pgxpool directamente; la unicidad del secret token la garantiza un
// índice único, así la rotación no necesita lock de aplicación.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/socialgate/internal/account"
)

// Schema es el DDL mínimo del backend postgres. Se aplica en EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL DEFAULT '',
    secret_token      TEXT NOT NULL,
    client_id         TEXT NOT NULL,
    client_secret     TEXT NOT NULL DEFAULT '',
    client_secret_enc TEXT NOT NULL DEFAULT '',
    redirect_uri      TEXT NOT NULL DEFAULT '',
    scopes            TEXT[] NOT NULL DEFAULT '{}',
    manual_urn        TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_secret_token_uq ON accounts (secret_token);
`

// Store es el account.Store respaldado por postgres.
type Store struct {
	pool *pgxpool.Pool
}

// New crea el Store sobre un pool existente.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// EnsureSchema crea la tabla e índice si no existen.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("accounts schema: %w", err)
	}
	return nil
}

const selectCols = `id, name, secret_token, client_id, client_secret, client_secret_enc, redirect_uri, scopes, manual_urn`

func scanAccount(row pgx.Row) (*account.Account, error) {
	var a account.Account
	if err := row.Scan(&a.ID, &a.Name, &a.SecretToken, &a.ClientID, &a.ClientSecret,
		&a.ClientSecretEnc, &a.RedirectURI, &a.Scopes, &a.ManualURN); err != nil {
		return nil, err
	}
	return &a, nil
}

// Resolve implementa account.Store.
func (s *Store) Resolve(ctx context.Context, secretToken string) (*account.Account, error) {
	if strings.TrimSpace(secretToken) == "" {
		return nil, account.ErrMissingToken
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectCols+` FROM accounts WHERE secret_token = $1`, secretToken)
	a, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, account.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrConfigUnavailable, err)
	}
	return a, nil
}

// List implementa account.Lister.
func (s *Store) List(ctx context.Context) ([]account.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectCols+` FROM accounts ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrConfigUnavailable, err)
	}
	defer rows.Close()

	var out []account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", account.ErrConfigUnavailable, err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", account.ErrConfigUnavailable, err)
	}
	return out, nil
}

// RotateToken implementa account.Store.
// El UPDATE es atómico; un duplicado concurrente dispara el índice único
// (SQLSTATE 23505) y se mapea a ErrTokenTaken.
func (s *Store) RotateToken(ctx context.Context, currentToken, newToken string) (*account.Rotation, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE accounts SET secret_token = $2 WHERE secret_token = $1 RETURNING id, name`,
		currentToken, newToken)

	var rot account.Rotation
	err := row.Scan(&rot.AccountID, &rot.AccountName)
	if err == pgx.ErrNoRows {
		return nil, account.ErrInvalidToken
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, account.ErrTokenTaken
		}
		return nil, fmt.Errorf("%w: %v", account.ErrConfigUnavailable, err)
	}
	return &rot, nil
}
