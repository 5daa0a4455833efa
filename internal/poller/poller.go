package poller

import (
	"context"
	"errors"
	"fmt"

	"github.com/samvad-hq/graph-harvester/internal/domain"
	"github.com/samvad-hq/graph-harvester/internal/logger"
	"github.com/samvad-hq/graph-harvester/pkg/publishers"
)

// Service runs configured Graph queries and publishes changed responses.
type Service struct {
	client    GraphRequester
	publisher EventPublisher
	dedupe    Deduper
	log       logger.Logger
}

// NewService wires a poller. dedupe may be nil, in which case every response is published.
func NewService(client GraphRequester, publisher EventPublisher, log logger.Logger, dedupe Deduper) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		client:    client,
		publisher: publisher,
		dedupe:    dedupe,
		log:       log,
	}
}

// Run executes every query once. Failures are collected per query; one failing
// query does not stop the others.
func (s *Service) Run(ctx context.Context, queries []domain.Query) error {
	if s == nil || s.client == nil || s.publisher == nil {
		return fmt.Errorf("poller service is not initialized")
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries configured for polling")
	}

	var errs []error
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.runQuery(ctx, q); err != nil {
			errs = append(errs, err)
			s.log.ErrorObj("graph query failed", "query_error", map[string]any{
				"query_id": q.ID,
				"error":    err.Error(),
			})
		}
	}
	return errors.Join(errs...)
}

func (s *Service) runQuery(ctx context.Context, q domain.Query) error {
	body, err := s.client.Request(ctx, q.Path, q.Params, q.Method)
	if err != nil {
		return fmt.Errorf("request query %s: %w", q.ID, err)
	}

	evt := publishers.NewEvent(q, body)
	key := q.ID + ":" + evt.Fingerprint

	if s.dedupe != nil {
		seen, err := s.dedupe.SeenResponse(key)
		if err != nil {
			return fmt.Errorf("dedupe lookup for query %s: %w", q.ID, err)
		}
		if seen {
			s.log.DebugObj("graph response unchanged", "query_result", map[string]any{
				"query_id":    q.ID,
				"fingerprint": evt.Fingerprint,
			})
			return nil
		}
	}

	delivered, err := s.publisher.Publish(ctx, evt)
	if err != nil && delivered == 0 {
		return fmt.Errorf("publish query %s: %w", q.ID, err)
	}
	if err != nil {
		s.log.WarnObj("graph response partially published", "publish_error", map[string]any{
			"query_id":  q.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
	}

	if s.dedupe != nil {
		if err := s.dedupe.MarkResponse(key); err != nil {
			return fmt.Errorf("mark query %s response: %w", q.ID, err)
		}
	}

	s.log.InfoObj("graph query completed", "query_result", map[string]any{
		"query_id":   q.ID,
		"bytes":      len(body),
		"publishers": delivered,
	})
	return nil
}
