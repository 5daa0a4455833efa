package graph

import "context"

// URLFetcher performs the HTTP round trip for a Graph request. It returns the raw
// response body, or an error for transport failures and non-success statuses.
type URLFetcher interface {
	OpenURL(ctx context.Context, url, method string, params map[string]string) (string, error)
}

// URLFetcherFunc adapts a plain function to URLFetcher.
type URLFetcherFunc func(ctx context.Context, url, method string, params map[string]string) (string, error)

// OpenURL calls f.
func (f URLFetcherFunc) OpenURL(ctx context.Context, url, method string, params map[string]string) (string, error) {
	return f(ctx, url, method, params)
}
