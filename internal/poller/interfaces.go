package poller

import (
	"context"

	"github.com/samvad-hq/graph-harvester/pkg/publishers"
)

// GraphRequester issues a single Graph request and returns the raw body.
type GraphRequester interface {
	Request(ctx context.Context, path string, params map[string]string, method string) (string, error)
}

// EventPublisher publishes responses downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Deduper remembers which responses were already published.
type Deduper interface {
	SeenResponse(key string) (bool, error)
	MarkResponse(key string) error
}
