package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultUserAgent is sent when no other user agent is configured.
const DefaultUserAgent = "graph-harvester/1.0"

// Options tunes the underlying resty client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Debug     bool
	Logger    Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient creates a new RestyClient with the specified timeout.
func NewRestyClient(timeout time.Duration) *RestyClient {
	return NewRestyClientWithOptions(Options{Timeout: timeout})
}

// NewRestyClientWithOptions creates a RestyClient from the given options.
func NewRestyClientWithOptions(opts Options) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(opts)}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(Options{Timeout: timeout})
}

// newRestyBaseClient creates a new resty.Client from opts.
func newRestyBaseClient(opts Options) *resty.Client {
	c := resty.New()
	if opts.Timeout > 0 {
		c.SetTimeout(opts.Timeout)
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	c.SetHeader("User-Agent", ua)
	if opts.Logger != nil {
		c.SetLogger(opts.Logger)
	}
	c.SetDebug(opts.Debug)
	return c
}

// Do performs a request with the given method, encoding params by verb.
func (r *RestyClient) Do(ctx context.Context, method, url string, params map[string]string) (Response, error) {
	req := r.client.R().SetContext(ctx)
	if len(params) > 0 {
		if paramsInQuery(method) {
			req.SetQueryParams(params)
		} else {
			req.SetFormData(params)
		}
	}
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	return &restyResponseAdapter{resp: resp}, nil
}

func paramsInQuery(method string) bool {
	switch method {
	case http.MethodGet, http.MethodDelete, http.MethodHead:
		return true
	default:
		return false
	}
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte    { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
