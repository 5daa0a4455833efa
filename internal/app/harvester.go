package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samvad-hq/graph-harvester/internal/config"
	"github.com/samvad-hq/graph-harvester/internal/domain"
	"github.com/samvad-hq/graph-harvester/internal/logger"
	"github.com/samvad-hq/graph-harvester/internal/poller"
	"github.com/samvad-hq/graph-harvester/internal/storage"
	"github.com/samvad-hq/graph-harvester/pkg/graph"
	"github.com/samvad-hq/graph-harvester/pkg/httpclient"
	"github.com/samvad-hq/graph-harvester/pkg/publishers"
	"github.com/samvad-hq/graph-harvester/pkg/queries"
)

// Harvester represents the graph harvester runtime. It manages the poll loop,
// coordinating between the query registry, the Graph client and publishers. It
// also handles storage initialization and cleanup.
type Harvester struct {
	cfg          *config.Config
	queries      []domain.Query
	client       *graph.Client
	fanout       *publishers.Fanout
	pollService  *poller.Service
	pollInterval time.Duration
	log          logger.Logger
	store        storage.Store
	closeOnce    sync.Once
}

// NewHarvester builds a harvester runtime from config files.
func NewHarvester(ctx context.Context, cfg *config.Config, log logger.Logger) (*Harvester, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	queryReg, err := queries.LoadRegistry(cfg.QueriesFile)
	if err != nil {
		return nil, fmt.Errorf("load queries registry: %w", err)
	}
	enabledQueries := queryReg.Enabled()
	queryIDs := make([]string, 0, len(enabledQueries))
	for _, q := range enabledQueries {
		queryIDs = append(queryIDs, q.ID)
	}
	log.InfoObj("queries registry loaded", "queries_meta", map[string]any{
		"count": len(queryIDs),
		"ids":   queryIDs,
	})

	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubClients)
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	store, err := OpenStore(cfg, log)
	if err != nil {
		_ = fanout.Close()
		return nil, err
	}

	client, err := NewGraphClient(cfg, store, log, restyLogger(log))
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init graph client: %w", err)
	}

	return &Harvester{
		cfg:          cfg,
		queries:      enabledQueries,
		client:       client,
		fanout:       fanout,
		pollService:  poller.NewService(client, fanout, log, store),
		pollInterval: cfg.PollInterval,
		log:          log,
		store:        store,
	}, nil
}

// OpenStore opens the configured storage backend.
func OpenStore(cfg *config.Config, log logger.Logger) (storage.Store, error) {
	storeOpts := storage.Options{
		ResponseTTL:     cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.DebugObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"response_ttl_seconds":     int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})
	return store, nil
}

// Run starts the poll loop until the context is cancelled.
func (h *Harvester) Run(ctx context.Context) error {
	if h == nil || h.pollService == nil {
		return fmt.Errorf("harvester is not initialized")
	}
	defer h.close()

	if len(h.queries) == 0 {
		h.log.WarnObj("no queries enabled; harvester idle", "queries_file", h.cfg.QueriesFile)
		<-ctx.Done()
		return ctx.Err()
	}

	h.log.InfoObj("harvester loop starting", "harvester_state", map[string]any{
		"queries_count":    len(h.queries),
		"publishers_count": h.fanout.Size(),
		"poll_interval":    h.pollInterval.String(),
	})

	if err := h.RunOnce(ctx); err != nil {
		h.log.ErrorObj("initial poll failed", "error", err)
	}

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.InfoObj("harvester loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := h.RunOnce(ctx); err != nil {
				h.log.ErrorObj("scheduled poll failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single poll across all enabled queries.
func (h *Harvester) RunOnce(ctx context.Context) error {
	start := time.Now()
	h.log.InfoObj("poll started", "poll_meta", map[string]any{
		"queries_count": len(h.queries),
		"started_at":    start.UTC(),
	})
	if err := h.pollService.Run(ctx, h.queries); err != nil {
		return err
	}
	h.log.InfoObj("poll completed", "poll_meta", map[string]any{
		"queries_count": len(h.queries),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// Close releases publishers and storage without running the loop.
func (h *Harvester) Close() {
	h.close()
}

// close safely closes publishers and the storage backend, logging any errors encountered.
func (h *Harvester) close() {
	if h == nil {
		return
	}
	h.closeOnce.Do(func() {
		var errs []error
		if h.fanout != nil {
			errs = append(errs, h.fanout.Close())
		}
		if h.store != nil {
			errs = append(errs, h.store.Close())
		}
		if err := errors.Join(errs...); err != nil {
			h.log.ErrorObj("harvester close failed", "error", err)
		}
	})
}

// restyLogger returns the sugared zap logger when log is zap-backed.
func restyLogger(log logger.Logger) httpclient.Logger {
	if z, ok := log.(*logger.ZapLogger); ok && z.S != nil {
		return z.Sugared()
	}
	return nil
}

// Client returns the Graph client the harvester polls with.
func (h *Harvester) Client() *graph.Client { return h.client }
