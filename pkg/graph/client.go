package graph

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samvad-hq/graph-harvester/internal/domain"
)

// Parameter keys used when sending or receiving token values.
const (
	TokenKey   = "access_token"
	ExpiresKey = "expires_in"
)

// Default Graph endpoints.
const (
	DefaultOAuthEndpoint = "https://graph.facebook.com/oauth/authorize"
	DefaultGraphBaseURL  = "https://graph.facebook.com/"
)

// Options configures the endpoints a Client talks to. Empty fields fall back to the
// package defaults.
type Options struct {
	GraphBaseURL  string
	OAuthEndpoint string
	// Clock is used to compute absolute expiry times. Defaults to the real clock.
	Clock clockwork.Clock
}

// Client issues requests against the Graph API, attaching the stored access token
// when one is present.
//
// Requests block for the whole network round trip; callers that must stay
// responsive should run them on their own goroutine.
type Client struct {
	fetcher       URLFetcher
	graphBaseURL  string
	oauthEndpoint string
	clock         clockwork.Clock

	mu            sync.RWMutex
	accessToken   string
	accessExpires int64
}

// New creates a Client with no session.
func New(fetcher URLFetcher, opts Options) *Client {
	c := &Client{
		fetcher:       fetcher,
		graphBaseURL:  opts.GraphBaseURL,
		oauthEndpoint: opts.OAuthEndpoint,
		clock:         opts.Clock,
	}
	if strings.TrimSpace(c.graphBaseURL) == "" {
		c.graphBaseURL = DefaultGraphBaseURL
	}
	if strings.TrimSpace(c.oauthEndpoint) == "" {
		c.oauthEndpoint = DefaultOAuthEndpoint
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	return c
}

// NewWithToken creates a Client holding the given access token.
func NewWithToken(fetcher URLFetcher, token string, opts Options) *Client {
	c := New(fetcher, opts)
	c.accessToken = token
	return c
}

// GraphBaseURL returns the prefix every request path is appended to.
func (c *Client) GraphBaseURL() string { return c.graphBaseURL }

// OAuthEndpoint returns the authorization endpoint used by external OAuth flows.
func (c *Client) OAuthEndpoint() string { return c.oauthEndpoint }

// Get requests path with no parameters using GET.
//
// To fetch the authenticated user, pass "me".
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	return c.Request(ctx, path, nil, http.MethodGet)
}

// GetWithParams requests path with the given parameters using GET, e.g. path
// "search" with {"q": "facebook"} queries https://graph.facebook.com/search?q=facebook.
func (c *Client) GetWithParams(ctx context.Context, path string, params map[string]string) (string, error) {
	return c.Request(ctx, path, params, http.MethodGet)
}

// Request sends params to graphBaseURL+path with the given HTTP method and returns
// the raw response body. The access token is added to a copy of params when the
// session is valid; params itself is left untouched. method is upper-cased before
// it reaches the fetcher and an empty method means GET. Transport errors are
// returned as-is.
//
// Binary parameters (e.g. picture uploads) are not supported.
func (c *Client) Request(ctx context.Context, path string, params map[string]string, method string) (string, error) {
	if c.fetcher == nil {
		return "", ErrNoFetcher
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	out := BuildParams(params, c.AccessToken())
	return c.fetcher.OpenURL(ctx, c.graphBaseURL+path, method, out)
}

// IsSessionValid reports whether the client holds a non-empty access token.
// The expiry is not checked.
func (c *Client) IsSessionValid() bool {
	return c.AccessToken() != ""
}

// AccessToken returns the current access token, or "" when there is no session.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// SetAccessToken replaces the access token. Treat the value with care.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// AccessExpires returns the session expiry in milliseconds since the Unix epoch,
// or 0 if the session does not expire or does not exist.
func (c *Client) AccessExpires() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessExpires
}

// SetAccessExpires sets the session expiry in milliseconds since the Unix epoch.
func (c *Client) SetAccessExpires(ms int64) {
	c.mu.Lock()
	c.accessExpires = ms
	c.mu.Unlock()
}

// SetAccessExpiresIn sets the expiry from a duration in seconds, as returned in the
// expires_in field of a token response. "0" means the token never expires and
// clears the expiry.
func (c *Client) SetAccessExpiresIn(expiresIn string) error {
	secs, err := strconv.ParseInt(strings.TrimSpace(expiresIn), 10, 64)
	if err != nil || secs < 0 || secs > math.MaxInt64/int64(time.Second) {
		return fmt.Errorf("%w: %q", ErrInvalidExpiresIn, expiresIn)
	}

	var expires int64
	if secs > 0 {
		expires = c.clock.Now().Add(time.Duration(secs) * time.Second).UnixMilli()
	}
	c.SetAccessExpires(expires)
	return nil
}

// Session returns a snapshot of the token and expiry.
func (c *Client) Session() domain.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.Session{AccessToken: c.accessToken, AccessExpires: c.accessExpires}
}

// Restore replaces the token and expiry with the given session.
func (c *Client) Restore(s domain.Session) {
	c.mu.Lock()
	c.accessToken = s.AccessToken
	c.accessExpires = s.AccessExpires
	c.mu.Unlock()
}
