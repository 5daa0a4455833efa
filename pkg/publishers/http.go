package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/graph-harvester/pkg/httpclient"
)

// Headers attached to every webhook delivery so receivers can route and dedupe
// without decoding the body.
const (
	HeaderQueryID     = "X-Graph-Query-Id"
	HeaderFingerprint = "X-Graph-Fingerprint"
)

// webhookPublisher posts Graph events as JSON to an HTTP endpoint.
type webhookPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	return &webhookPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (w *webhookPublisher) ID() string   { return w.id }
func (w *webhookPublisher) Type() string { return TypeHTTP }

// Publish delivers evt. A non-2xx reply is returned as *httpclient.StatusError.
func (w *webhookPublisher) Publish(ctx context.Context, evt Event) error {
	req := w.client.R().
		SetContext(ctx).
		SetHeaders(w.headers).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderQueryID, evt.QueryID).
		SetHeader(HeaderFingerprint, evt.Fingerprint).
		SetBody(evt)

	resp, err := req.Execute(w.method, w.url)
	if err != nil {
		return fmt.Errorf("webhook %s %s: %w", w.method, w.url, err)
	}
	if !resp.IsSuccess() {
		return &httpclient.StatusError{StatusCode: resp.StatusCode(), Body: string(resp.Body())}
	}

	w.log.DebugObj("webhook publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": w.id,
		"query_id":     evt.QueryID,
		"status":       resp.StatusCode(),
	})
	return nil
}
