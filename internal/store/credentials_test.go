package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatestCredentialEmptyTable(t *testing.T) {
	db := openTestDB(t)

	_, err := LatestCredential(context.Background(), db.Pool)
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestLatestCredentialIgnoresBlankTokenRows(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, UpsertCredentialByUser(ctx, db.Pool, "42", Credential{
		UserID: "42", AccessToken: " ", RefreshToken: "",
	}))

	_, err := LatestCredential(ctx, db.Pool)
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestUpsertCredentialByUserMergesOnUserID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	exp := time.Now().UTC().Add(6 * time.Hour).Truncate(time.Second)

	require.NoError(t, UpsertCredentialByUser(ctx, db.Pool, "42", Credential{
		UserID: "42", AccessToken: "AT-old", RefreshToken: "RT-old", TokenType: "Bearer",
	}))
	require.NoError(t, UpsertCredentialByUser(ctx, db.Pool, "42", Credential{
		UserID: "42", AccessToken: "AT-new", RefreshToken: "RT-new", TokenType: "Bearer",
		ExpiresAt: exp,
	}))

	cred, err := LatestCredential(ctx, db.Pool)
	require.NoError(t, err)
	require.Equal(t, "42", cred.UserID)
	require.Equal(t, "AT-new", cred.AccessToken)
	require.Equal(t, "RT-new", cred.RefreshToken)
	require.Equal(t, exp, cred.ExpiresAt)

	var n int
	require.NoError(t, db.Pool.QueryRow(`SELECT COUNT(*) FROM meli_credentials`).Scan(&n))
	require.Equal(t, 1, n, "same user must stay one row")
}

func TestUpdateCredentialByRefreshToken(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, UpsertCredentialByUser(ctx, db.Pool, "42", Credential{
		UserID: "42", AccessToken: "AT-old", RefreshToken: "RT-old",
	}))

	n, err := UpdateCredentialByRefreshToken(ctx, db.Pool, "RT-old", Credential{
		AccessToken: "AT-new", RefreshToken: "RT-new", TokenType: "Bearer",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	cred, err := LatestCredential(ctx, db.Pool)
	require.NoError(t, err)
	require.Equal(t, "AT-new", cred.AccessToken)
	require.Equal(t, "RT-new", cred.RefreshToken)

	// an already rotated token matches nothing
	n, err = UpdateCredentialByRefreshToken(ctx, db.Pool, "RT-old", Credential{AccessToken: "AT-x"})
	require.NoError(t, err)
	require.Zero(t, n)
}
