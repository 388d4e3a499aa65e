package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoCredential means no stored credential is usable: either the table is
// empty or the newest row carries neither an access nor a refresh token.
var ErrNoCredential = errors.New("no usable stored credential")

type Credential struct {
	ID           int64
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

// LatestCredential returns the credential with the most recent update.
func LatestCredential(ctx context.Context, db *sql.DB) (Credential, error) {
	row := db.QueryRowContext(ctx, `
SELECT id, user_id, access_token, refresh_token, token_type, scope, expires_at
FROM meli_credentials
ORDER BY updated_at DESC, id DESC
LIMIT 1;`)

	var c Credential
	var expires string
	err := row.Scan(&c.ID, &c.UserID, &c.AccessToken, &c.RefreshToken, &c.TokenType, &c.Scope, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, fmt.Errorf("latest credential: %w", err)
	}

	if strings.TrimSpace(c.AccessToken) == "" && strings.TrimSpace(c.RefreshToken) == "" {
		return Credential{}, ErrNoCredential
	}
	c.ExpiresAt, _ = time.Parse(time.RFC3339, expires)
	return c, nil
}

// UpsertCredentialByUser inserts or replaces the credential row keyed by
// user_id. This is the canonical merge path when the refresh response names
// its owner; it tolerates concurrent refreshes from different users.
func UpsertCredentialByUser(ctx context.Context, db *sql.DB, userID string, c Credential) error {
	now := nowISO()
	_, err := db.ExecContext(ctx, `
INSERT INTO meli_credentials (user_id, access_token, refresh_token, token_type, scope, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) WHERE user_id != '' DO UPDATE SET
  access_token  = excluded.access_token,
  refresh_token = excluded.refresh_token,
  token_type    = excluded.token_type,
  scope         = excluded.scope,
  expires_at    = excluded.expires_at,
  updated_at    = excluded.updated_at;`,
		userID, c.AccessToken, c.RefreshToken, c.TokenType, c.Scope,
		c.ExpiresAt.UTC().Format(time.RFC3339), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert credential user=%s: %w", userID, err)
	}
	return nil
}

// UpdateCredentialByRefreshToken rewrites the row whose refresh_token matches
// the pre-refresh value. Used when the refresh response carries no user id;
// assumes refresh tokens are unique across rows (single-tenant schema).
func UpdateCredentialByRefreshToken(ctx context.Context, db *sql.DB, oldRefresh string, c Credential) (int64, error) {
	res, err := db.ExecContext(ctx, `
UPDATE meli_credentials
SET access_token = ?, refresh_token = ?, token_type = ?, scope = ?, expires_at = ?, updated_at = ?
WHERE refresh_token = ?;`,
		c.AccessToken, c.RefreshToken, c.TokenType, c.Scope,
		c.ExpiresAt.UTC().Format(time.RFC3339), nowISO(), oldRefresh,
	)
	if err != nil {
		return 0, fmt.Errorf("update credential by refresh token: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
