package queries

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "queries.yaml")
	content := `
queries:
  - id: me
    path: me
    params:
      fields: id,name
  - id: page-feed
    path: "20531316728/feed"
    method: post
  - id: disabled
    path: search
    enabled: false
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write queries file: %v", err)
	}

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if len(reg.All()) != 3 {
		t.Fatalf("expected 3 queries, got %d", len(reg.All()))
	}

	me, ok := reg.ByID("me")
	if !ok {
		t.Fatalf("expected query me")
	}
	if me.Method != http.MethodGet {
		t.Fatalf("expected default GET, got %s", me.Method)
	}
	if me.Params["fields"] != "id,name" {
		t.Fatalf("unexpected params %v", me.Params)
	}

	feed, _ := reg.ByID("page-feed")
	if feed.Method != http.MethodPost {
		t.Fatalf("expected POST, got %s", feed.Method)
	}

	enabled := reg.Enabled()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled queries, got %d", len(enabled))
	}
	if enabled[0].ID != "me" || enabled[1].ID != "page-feed" {
		t.Fatalf("unexpected order %+v", enabled)
	}
}

func TestParseRegistryJSON(t *testing.T) {
	reg, err := ParseRegistry([]byte(`{"queries":[{"id":"me","path":"me"}]}`), ".json")
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	if _, ok := reg.ByID("me"); !ok {
		t.Fatalf("expected query me")
	}
}

func TestParseRegistryValidation(t *testing.T) {
	cases := map[string]string{
		"missing id":     `{"queries":[{"path":"me"}]}`,
		"missing path":   `{"queries":[{"id":"me"}]}`,
		"duplicate id":   `{"queries":[{"id":"me","path":"me"},{"id":"me","path":"search"}]}`,
		"token in param": `{"queries":[{"id":"me","path":"me","params":{"access_token":"x"}}]}`,
		"empty":          `{"queries":[]}`,
		"garbage":        `not json`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRegistry([]byte(raw), ".json"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
