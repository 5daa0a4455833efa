package graph

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/samvad-hq/graph-harvester/internal/domain"
)

// fakeFetcher records the last call and returns a canned body or error.
type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	url    string
	method string
	params map[string]string
	body   string
	err    error
}

func (f *fakeFetcher) OpenURL(_ context.Context, url, method string, params map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.url = url
	f.method = method
	f.params = params
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

func TestIsSessionValid(t *testing.T) {
	c := New(&fakeFetcher{}, Options{})
	if c.IsSessionValid() {
		t.Fatalf("expected empty client to have no session")
	}

	for _, tok := range []string{"a", "EAAB123", " "} {
		c.SetAccessToken(tok)
		if !c.IsSessionValid() {
			t.Fatalf("expected session valid for token %q", tok)
		}
	}

	c.SetAccessToken("")
	if c.IsSessionValid() {
		t.Fatalf("expected session invalid after clearing token")
	}
}

func TestGetBuildsURLByConcatenation(t *testing.T) {
	f := &fakeFetcher{body: `{"id":"4"}`}
	c := New(f, Options{})

	body, err := c.Get(context.Background(), "me")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if body != `{"id":"4"}` {
		t.Fatalf("unexpected body %q", body)
	}
	if f.url != "https://graph.facebook.com/me" {
		t.Fatalf("unexpected url %q", f.url)
	}
	if f.method != http.MethodGet {
		t.Fatalf("expected GET, got %s", f.method)
	}
	if len(f.params) != 0 {
		t.Fatalf("expected no params without a session, got %v", f.params)
	}
}

func TestGetWithParamsWithoutSession(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f, Options{})
	params := map[string]string{"q": "facebook"}

	if _, err := c.GetWithParams(context.Background(), "search", params); err != nil {
		t.Fatalf("GetWithParams: %v", err)
	}
	if f.url != "https://graph.facebook.com/search" {
		t.Fatalf("unexpected url %q", f.url)
	}
	if f.method != http.MethodGet {
		t.Fatalf("expected GET, got %s", f.method)
	}
	if len(f.params) != 1 || f.params["q"] != "facebook" {
		t.Fatalf("unexpected params %v", f.params)
	}
	if _, ok := f.params[TokenKey]; ok {
		t.Fatalf("token must not be sent without a session")
	}
}

func TestRequestInjectsTokenWithoutMutatingCaller(t *testing.T) {
	f := &fakeFetcher{}
	c := NewWithToken(f, "tok-1", Options{})
	params := map[string]string{"q": "facebook"}

	if _, err := c.Request(context.Background(), "search", params, "post"); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if f.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", f.method)
	}
	if f.params[TokenKey] != "tok-1" || f.params["q"] != "facebook" {
		t.Fatalf("unexpected params %v", f.params)
	}
	if _, ok := params[TokenKey]; ok {
		t.Fatalf("caller params were mutated: %v", params)
	}
}

func TestRequestNilParamsWithSession(t *testing.T) {
	f := &fakeFetcher{}
	c := NewWithToken(f, "tok-1", Options{})

	if _, err := c.Request(context.Background(), "me/feed", nil, http.MethodDelete); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(f.params) != 1 || f.params[TokenKey] != "tok-1" {
		t.Fatalf("expected token-only params, got %v", f.params)
	}
	if f.method != http.MethodDelete {
		t.Fatalf("expected DELETE, got %s", f.method)
	}
}

func TestRequestEmptyMethodDefaultsToGet(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f, Options{})
	if _, err := c.Request(context.Background(), "me", nil, ""); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if f.method != http.MethodGet {
		t.Fatalf("expected GET, got %q", f.method)
	}
}

func TestRequestUsesConfiguredBaseURL(t *testing.T) {
	f := &fakeFetcher{}
	c := New(f, Options{GraphBaseURL: "http://127.0.0.1:9999/v1/"})
	if _, err := c.Get(context.Background(), "me"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if f.url != "http://127.0.0.1:9999/v1/me" {
		t.Fatalf("unexpected url %q", f.url)
	}
	if c.OAuthEndpoint() != DefaultOAuthEndpoint {
		t.Fatalf("unexpected oauth endpoint %q", c.OAuthEndpoint())
	}
}

func TestRequestPropagatesTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	c := New(&fakeFetcher{err: boom}, Options{})
	if _, err := c.Get(context.Background(), "me"); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestRequestWithoutFetcher(t *testing.T) {
	c := New(nil, Options{})
	if _, err := c.Get(context.Background(), "me"); !errors.Is(err, ErrNoFetcher) {
		t.Fatalf("expected ErrNoFetcher, got %v", err)
	}
}

func TestSetAccessExpiresIn(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	c := New(&fakeFetcher{}, Options{Clock: clock})

	if err := c.SetAccessExpiresIn("3600"); err != nil {
		t.Fatalf("SetAccessExpiresIn: %v", err)
	}
	want := clock.Now().UnixMilli() + 3_600_000
	if got := c.AccessExpires(); got != want {
		t.Fatalf("AccessExpires = %d, want %d", got, want)
	}

	if err := c.SetAccessExpiresIn("0"); err != nil {
		t.Fatalf("SetAccessExpiresIn(0): %v", err)
	}
	if got := c.AccessExpires(); got != 0 {
		t.Fatalf("expected expiry cleared, got %d", got)
	}
}

func TestSetAccessExpiresInRejectsInvalid(t *testing.T) {
	c := New(&fakeFetcher{}, Options{})
	c.SetAccessExpires(42)

	for _, in := range []string{"", "soon", "-5", "1.5", "99999999999999999999"} {
		if err := c.SetAccessExpiresIn(in); !errors.Is(err, ErrInvalidExpiresIn) {
			t.Fatalf("input %q: expected ErrInvalidExpiresIn, got %v", in, err)
		}
	}
	if c.AccessExpires() != 42 {
		t.Fatalf("expiry changed on invalid input: %d", c.AccessExpires())
	}
}

func TestSessionRoundTrip(t *testing.T) {
	c := New(&fakeFetcher{}, Options{})
	c.Restore(domain.Session{AccessToken: "tok", AccessExpires: 99})
	got := c.Session()
	if got.AccessToken != "tok" || got.AccessExpires != 99 {
		t.Fatalf("unexpected session %+v", got)
	}
	if !c.IsSessionValid() {
		t.Fatalf("restored session should be valid")
	}
}

func TestConcurrentRequestsShareParams(t *testing.T) {
	f := &fakeFetcher{}
	c := NewWithToken(f, "tok", Options{})
	shared := map[string]string{"fields": "id,name"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetWithParams(context.Background(), "me", shared); err != nil {
				t.Errorf("GetWithParams: %v", err)
			}
		}()
	}
	wg.Wait()

	if f.calls != 16 {
		t.Fatalf("expected 16 calls, got %d", f.calls)
	}
	if len(shared) != 1 {
		t.Fatalf("shared params mutated: %v", shared)
	}
}

func TestURLFetcherFuncUpperCasesMethod(t *testing.T) {
	var gotMethod, gotURL string
	fetch := URLFetcherFunc(func(_ context.Context, url, method string, _ map[string]string) (string, error) {
		gotURL, gotMethod = url, method
		return `{"success":true}`, nil
	})

	c := NewWithToken(fetch, "tok", Options{})
	body, err := c.Request(context.Background(), "10150146071831729", nil, " delete ")
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if body != `{"success":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if gotMethod != http.MethodDelete {
		t.Fatalf("method = %q, want DELETE", gotMethod)
	}
	if gotURL != DefaultGraphBaseURL+"10150146071831729" {
		t.Fatalf("unexpected url %q", gotURL)
	}
}
