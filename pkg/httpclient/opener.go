package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// StatusError reports a response outside the 2xx range. Body holds the raw,
// unparsed response text.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http response status %d: %s", e.StatusCode, bodySnippet(e.Body))
}

// URLOpener turns a Client into a text-returning URL fetcher.
type URLOpener struct {
	client Client
}

// NewURLOpener wraps client. A nil client gets a resty client with a 30s timeout.
func NewURLOpener(client Client) *URLOpener {
	if client == nil {
		client = NewRestyClient(defaultOpenTimeout)
	}
	return &URLOpener{client: client}
}

const defaultOpenTimeout = 30 * time.Second

// OpenURL sends params to url with method and returns the response body as text.
func (o *URLOpener) OpenURL(ctx context.Context, rawURL, method string, params map[string]string) (string, error) {
	resp, err := o.client.Do(ctx, method, rawURL, params)
	if err != nil {
		// the encoded query may carry the access token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			uerr.URL = redactURL(uerr.URL)
		}
		return "", fmt.Errorf("%s %s: %w", method, redactURL(rawURL), err)
	}
	body := string(resp.Body())
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return "", &StatusError{StatusCode: code, Body: body}
	}
	return body, nil
}

func bodySnippet(body string) string {
	const maxLen = 512
	s := strings.TrimSpace(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// redactURL drops the query string.
func redactURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
