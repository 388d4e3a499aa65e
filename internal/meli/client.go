// Package meli talks to the MercadoLibre open platform: site category
// search, seller-scoped item search and the OAuth token endpoint.
package meli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// State classifies a search response so the retry-once policy upstream is a
// single explicit transition instead of inline status checks.
type State int

const (
	StateOK State = iota
	StateUnauthorized
	StateHTTPError
)

type Result struct {
	State  State
	Status int
	Body   []byte
}

type Client struct {
	base      string
	userAgent string
	hc        *http.Client
	limiter   *rate.Limiter
}

func NewClient(base, userAgent string, rps float64, burst int) *Client {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		base:      base,
		userAgent: userAgent,
		hc:        &http.Client{Timeout: 20 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// CategorySearchURL builds the public site search for one category.
func (c *Client) CategorySearchURL(siteID, categoryID string, limit int) string {
	return fmt.Sprintf("%s/sites/%s/search?category=%s&limit=%d",
		c.base, url.PathEscape(siteID), url.QueryEscape(categoryID), limit)
}

// SellerItemsURL builds the seller items search. The endpoint answers a bare
// id list and usually wants an authorized caller.
func (c *Client) SellerItemsURL(sellerID string, limit int) string {
	return fmt.Sprintf("%s/users/%s/items/search?limit=%d",
		c.base, url.PathEscape(sellerID), limit)
}

func (c *Client) TokenURL() string { return c.base + "/oauth/token" }

// FetchPublic issues an anonymous GET.
func (c *Client) FetchPublic(ctx context.Context, rawURL string) (Result, error) {
	return c.get(ctx, rawURL, "")
}

// FetchPrivate issues a GET with a bearer authorization header.
func (c *Client) FetchPrivate(ctx context.Context, rawURL, accessToken string) (Result, error) {
	return c.get(ctx, rawURL, accessToken)
}

func (c *Client) get(ctx context.Context, rawURL, accessToken string) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	res := Result{Status: resp.StatusCode, Body: body}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.State = StateOK
	case resp.StatusCode == http.StatusUnauthorized:
		res.State = StateUnauthorized
	default:
		res.State = StateHTTPError
	}
	return res, nil
}

// ErrorMessage renders a non-success result the way job last_error stores
// it: status first so "500" style greps keep working.
func (r Result) ErrorMessage() string {
	return "status " + strconv.Itoa(r.Status) + ": " + string(r.Body)
}
