package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/graph-harvester/internal/domain"
)

// Package storage persists the client session and fingerprints of published responses.

// Store tracks the persisted session and published response fingerprints.
type Store interface {
	Close() error

	LoadSession() (domain.Session, bool, error)
	SaveSession(s domain.Session) error
	ClearSession() error

	SeenResponse(key string) (bool, error)
	MarkResponse(key string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	ResponseTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultResponseTTL     = 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.ResponseTTL <= 0 {
		opts.ResponseTTL = defaultResponseTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                               { return nil }
func (noopStore) LoadSession() (domain.Session, bool, error) { return domain.Session{}, false, nil }
func (noopStore) SaveSession(domain.Session) error           { return nil }
func (noopStore) ClearSession() error                        { return nil }
func (noopStore) SeenResponse(string) (bool, error)          { return false, nil }
func (noopStore) MarkResponse(string) error                  { return nil }
