package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	// Do sends params with the given method: as the query string for GET, DELETE
	// and HEAD, as form data otherwise.
	Do(ctx context.Context, method, url string, params map[string]string) (Response, error)
}

// Logger is the logging surface resty reports through. *zap.SugaredLogger satisfies it.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}
