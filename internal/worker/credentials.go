package worker

import (
	"context"
	"database/sql"
	"log"

	"github.com/Kelokecl/keloke-trends-worker/internal/meli"
	"github.com/Kelokecl/keloke-trends-worker/internal/store"
)

// credentialStore adapts the SQLite credential table to meli.TokenStore so
// the refresher can persist what it mints.
type credentialStore struct {
	db *sql.DB
}

// NewCredentialStore wires the refresher's persistence to the database.
func NewCredentialStore(db *sql.DB) meli.TokenStore {
	return credentialStore{db: db}
}

func (s credentialStore) UpsertByUser(ctx context.Context, userID string, t meli.Token) error {
	return store.UpsertCredentialByUser(ctx, s.db, userID, store.Credential{
		UserID:       userID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Scope:        t.Scope,
		ExpiresAt:    t.ExpiresAt,
	})
}

func (s credentialStore) UpdateByRefreshToken(ctx context.Context, oldRefresh string, t meli.Token) error {
	n, err := store.UpdateCredentialByRefreshToken(ctx, s.db, oldRefresh, store.Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Scope:        t.Scope,
		ExpiresAt:    t.ExpiresAt,
	})
	if err != nil {
		return err
	}
	if n == 0 {
		// nothing matched the old token; the refreshed pair still flows back
		// to the caller, the row just stays stale
		log.Printf("[store] no credential row matched the pre-refresh token")
	}
	return nil
}
