package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samvad-hq/graph-harvester/internal/domain"
	"gopkg.in/yaml.v3"
)

// Package queries loads named Graph request presets from YAML/JSON files.

// Query is a single preset as declared in the queries file.
type Query struct {
	ID      string            `json:"id" yaml:"id"`
	Path    string            `json:"path" yaml:"path"`
	Method  string            `json:"method" yaml:"method"`
	Params  map[string]string `json:"params" yaml:"params"`
	Enabled *bool             `json:"enabled" yaml:"enabled"`
}

type fileRegistry struct {
	Queries []Query `json:"queries" yaml:"queries"`
}

// Registry holds the loaded queries in file order.
type Registry struct {
	mu      sync.RWMutex
	queries []Query
	idx     map[string]Query
}

// LoadRegistry loads the queries registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("queries file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open queries file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read queries file: %w", err)
	}

	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry decodes and validates queries from raw file content. ext selects the
// decoder (".yaml", ".yml", ".json"); an empty ext tries each in turn.
func ParseRegistry(data []byte, ext string) (*Registry, error) {
	fileReg, err := parseRegistry(data, ext)
	if err != nil {
		return nil, err
	}
	if len(fileReg.Queries) == 0 {
		return nil, errors.New("queries file contains no queries entries")
	}

	reg := &Registry{
		queries: make([]Query, len(fileReg.Queries)),
		idx:     make(map[string]Query, len(fileReg.Queries)),
	}
	for i := range fileReg.Queries {
		q := sanitizeQuery(fileReg.Queries[i])
		if err := validateQuery(q); err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		if _, exists := reg.idx[q.ID]; exists {
			return nil, fmt.Errorf("duplicate query id %q", q.ID)
		}
		reg.queries[i] = q
		reg.idx[q.ID] = q
	}
	return reg, nil
}

type unmarshalFn func([]byte, any) error

func parseRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg fileRegistry
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return fileRegistry{}, errors.New("queries file format not recognized (expected YAML or JSON)")
}

func sanitizeQuery(q Query) Query {
	q.ID = strings.TrimSpace(q.ID)
	q.Path = strings.TrimSpace(q.Path)
	q.Method = strings.ToUpper(strings.TrimSpace(q.Method))
	if q.Method == "" {
		q.Method = http.MethodGet
	}
	if q.Enabled == nil {
		def := true
		q.Enabled = &def
	}
	if len(q.Params) > 0 {
		params := make(map[string]string, len(q.Params))
		for k, v := range q.Params {
			if k = strings.TrimSpace(k); k != "" {
				params[k] = v
			}
		}
		q.Params = params
	}
	return q
}

func validateQuery(q Query) error {
	if q.ID == "" {
		return errors.New("id is required")
	}
	if q.Path == "" {
		return fmt.Errorf("path is required for query %q", q.ID)
	}
	if _, ok := q.Params["access_token"]; ok {
		return fmt.Errorf("query %q must not declare access_token; it is injected from the session", q.ID)
	}
	return nil
}

// ByID returns the query with the given id.
func (r *Registry) ByID(id string) (Query, bool) {
	if r == nil {
		return Query{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Query{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.idx[id]
	return q, ok
}

// All returns every configured query.
func (r *Registry) All() []Query {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Query, len(r.queries))
	copy(out, r.queries)
	return out
}

// Enabled returns the enabled queries as domain values.
func (r *Registry) Enabled() []domain.Query {
	all := r.All()
	out := make([]domain.Query, 0, len(all))
	for _, q := range all {
		if q.EnabledValue() {
			out = append(out, q.Domain())
		}
	}
	return out
}

// EnabledValue returns the enabled flag defaulting to true.
func (q Query) EnabledValue() bool {
	if q.Enabled == nil {
		return true
	}
	return *q.Enabled
}

// Domain converts the file entry into a domain.Query.
func (q Query) Domain() domain.Query {
	return domain.Query{
		ID:     q.ID,
		Path:   q.Path,
		Method: q.Method,
		Params: q.Params,
	}
}
