package meli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultExpiresIn is assumed when the token endpoint omits expires_in.
const DefaultExpiresIn = 21600 // seconds

// Token is the caller-visible truth after a refresh, regardless of which
// persistence branch fired.
type Token struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	ExpiresAt    time.Time
}

// TokenStore persists refreshed credentials. The worker wires it to the
// SQLite credential table.
type TokenStore interface {
	// UpsertByUser merges by user id; the canonical path when the refresh
	// response names its owner.
	UpsertByUser(ctx context.Context, userID string, t Token) error
	// UpdateByRefreshToken rewrites the row holding the pre-refresh token;
	// used when the response carries no user id.
	UpdateByRefreshToken(ctx context.Context, oldRefresh string, t Token) error
}

// RefreshError is a rejected refresh grant: the OAuth endpoint answered with
// a non-success status.
type RefreshError struct {
	Status int
	Body   string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("oauth refresh rejected: status %d: %s", e.Status, e.Body)
}

type Refresher struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	UserAgent    string
	Store        TokenStore

	hc *http.Client
	sf singleflight.Group
}

func NewRefresher(tokenURL, clientID, clientSecret, userAgent string, store TokenStore) *Refresher {
	return &Refresher{
		TokenURL:     tokenURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		UserAgent:    userAgent,
		Store:        store,
		hc:           &http.Client{Timeout: 15 * time.Second},
	}
}

// Refresh exchanges a refresh token for a new access/refresh pair and
// persists it. Concurrent refreshes of the same token collapse into one
// outbound call.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (Token, error) {
	v, err, _ := r.sf.Do(refreshToken, func() (any, error) {
		return r.refresh(ctx, refreshToken)
	})
	if err != nil {
		return Token{}, err
	}
	return v.(Token), nil
}

func (r *Refresher) refresh(ctx context.Context, refreshToken string) (Token, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", r.ClientID)
	form.Set("client_secret", r.ClientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.hc.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("oauth refresh: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Token{}, &RefreshError{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		TokenType    string      `json:"token_type"`
		Scope        string      `json:"scope"`
		ExpiresIn    int         `json:"expires_in"`
		UserID       json.Number `json:"user_id"`
	}
	// Malformed bodies fall through with zero values: defaults below still
	// produce a persistable record.
	_ = json.Unmarshal(body, &payload)

	expires := payload.ExpiresIn
	if expires <= 0 {
		expires = DefaultExpiresIn
	}
	tok := Token{
		UserID:       payload.UserID.String(),
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		Scope:        payload.Scope,
		ExpiresAt:    time.Now().UTC().Add(time.Duration(expires) * time.Second),
	}
	if tok.RefreshToken == "" {
		// endpoint kept the old token alive
		tok.RefreshToken = refreshToken
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}

	if r.Store != nil {
		if tok.UserID != "" && tok.UserID != "0" {
			if err := r.Store.UpsertByUser(ctx, tok.UserID, tok); err != nil {
				return Token{}, fmt.Errorf("persist refreshed credential: %w", err)
			}
		} else {
			if err := r.Store.UpdateByRefreshToken(ctx, refreshToken, tok); err != nil {
				return Token{}, fmt.Errorf("persist refreshed credential: %w", err)
			}
			log.Printf("[oauth] refresh response had no user_id, updated by old refresh token")
		}
	}

	return tok, nil
}
