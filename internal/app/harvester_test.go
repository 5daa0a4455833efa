package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/samvad-hq/graph-harvester/internal/config"
	"github.com/samvad-hq/graph-harvester/internal/storage"
	"github.com/samvad-hq/graph-harvester/pkg/publishers"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T, graphURL, sinkURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppName:         "graph-harvester-test",
		GraphBaseURL:    graphURL + "/",
		AccessToken:     "tok-123",
		AccessExpiresIn: "3600",
		HTTPTimeout:     2 * time.Second,
		QueriesFile: writeFile(t, dir, "queries.yaml", `
queries:
  - id: me
    path: me
    params:
      fields: id,name
`),
		PublishersFile: writeFile(t, dir, "publishers.yaml", `
publishers:
  - id: sink
    type: http
    http:
      url: `+sinkURL+`
  - id: stdout
    type: log
`),
		PollInterval:           time.Minute,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "data", "graph.db"),
		StorageTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestHarvesterRunOncePublishesAndDedupes(t *testing.T) {
	var (
		mu       sync.Mutex
		gotToken string
		gotField string
		events   []publishers.Event
	)
	graphSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotToken = r.URL.Query().Get("access_token")
		gotField = r.URL.Query().Get("fields")
		mu.Unlock()
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"4","name":"Mark"}`))
	}))
	defer graphSrv.Close()

	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt publishers.Event
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode event: %v", err)
		}
		mu.Lock()
		events = append(events, evt)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer sink.Close()

	h, err := NewHarvester(context.Background(), testConfig(t, graphSrv.URL, sink.URL), nil)
	if err != nil {
		t.Fatalf("NewHarvester: %v", err)
	}
	defer h.Close()

	for i := 0; i < 2; i++ {
		if err := h.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if gotToken != "tok-123" {
		t.Fatalf("expected token to be sent, got %q", gotToken)
	}
	if gotField != "id,name" {
		t.Fatalf("expected fields param, got %q", gotField)
	}
	if len(events) != 1 {
		t.Fatalf("expected unchanged response published once, got %d", len(events))
	}
	if events[0].QueryID != "me" || events[0].Body != `{"id":"4","name":"Mark"}` {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if h.Client().AccessExpires() == 0 {
		t.Fatalf("expected expiry to be set from access_expires_in")
	}
}

func TestNewGraphClientPersistsAndRestoresSession(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewStore("bbolt", filepath.Join(dir, "graph.db"), storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	cfg := &config.Config{GraphBaseURL: "https://graph.facebook.com/", AccessToken: "tok", HTTPTimeout: time.Second}
	first, err := NewGraphClient(cfg, store, nil, nil)
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	if !first.IsSessionValid() {
		t.Fatalf("expected session from config")
	}

	cfg.AccessToken = ""
	second, err := NewGraphClient(cfg, store, nil, nil)
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	if second.AccessToken() != "tok" {
		t.Fatalf("expected restored token, got %q", second.AccessToken())
	}
}

func TestNewGraphClientRejectsBadExpiresIn(t *testing.T) {
	store, _ := storage.NewStore("none", "", storage.Options{})
	cfg := &config.Config{GraphBaseURL: "https://graph.facebook.com/", AccessToken: "tok", AccessExpiresIn: "soon"}
	if _, err := NewGraphClient(cfg, store, nil, nil); err == nil {
		t.Fatalf("expected error for invalid access_expires_in")
	}
}
