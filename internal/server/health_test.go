package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger is a test double for the Pinger interface.
type fakePinger struct {
	// name is returned by Name().
	name string
	// err is returned by Ping(); nil means healthy.
	err error
}

func (f *fakePinger) Name() string                 { return f.name }
func (f *fakePinger) Ping(_ context.Context) error { return f.err }

// TestHandleHealth_OK verifies that GET /api/health returns 200 with a JSON
// body containing {"status":"ok"}.
func TestHandleHealth_OK(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/health", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d — body: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: expected application/json, got %q", ct)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status: expected ok, got %q", body["status"])
	}
}

// TestHandleReady_NoPingers verifies the liveness-only mode: with no probes
// registered /api/ready returns 200 with ready=true.
func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/ready", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready {
		t.Error("expected ready=true with no pingers")
	}
}

// TestHandleReady_AllHealthy verifies 200 with per-dependency checks when
// every probe succeeds.
func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	s.pingers = []Pinger{
		&fakePinger{name: "ollama"},
		&fakePinger{name: "qdrant"},
	}

	w := do(t, s, http.MethodGet, "/api/ready", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready || len(resp.Checks) != 2 {
		t.Errorf("response = %+v", resp)
	}
	for _, c := range resp.Checks {
		if !c.OK || c.Error != "" {
			t.Errorf("check %s: %+v", c.Name, c)
		}
	}
}

// TestHandleReady_OneFailing verifies 503 when any probe fails, with the
// failure reason reported for that dependency only.
func TestHandleReady_OneFailing(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	s.pingers = []Pinger{
		&fakePinger{name: "ollama"},
		&fakePinger{name: "qdrant", err: errors.New("connection refused")},
	}

	w := do(t, s, http.MethodGet, "/api/ready", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var resp readyResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ready {
		t.Error("expected ready=false")
	}
	if resp.Checks[0].OK != true || resp.Checks[1].OK != false {
		t.Errorf("checks = %+v", resp.Checks)
	}
	if resp.Checks[1].Error == "" {
		t.Error("expected an error message on the failing check")
	}
}

// TestMultiPinger verifies sequential probing and first-error semantics.
func TestMultiPinger(t *testing.T) {
	t.Parallel()

	healthy := NewMultiPinger(&fakePinger{name: "a"}, &fakePinger{name: "b"})
	if err := healthy.Ping(context.Background()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	failing := NewMultiPinger(
		&fakePinger{name: "a"},
		&fakePinger{name: "b", err: errors.New("down")},
	)
	err := failing.Ping(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got != "b: down" {
		t.Errorf("error = %q, want prefix with dependency name", got)
	}
}

// TestOllamaPinger verifies the HTTP probe against a fake Ollama endpoint.
func TestOllamaPinger(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"version":"0.5.0"}`))
	}))
	t.Cleanup(srv.Close)

	p := NewOllamaPinger(srv.URL)
	if p.Name() != "ollama" {
		t.Errorf("name = %q", p.Name())
	}
	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("expected healthy, got %v", err)
	}

	srv.Close()
	if err := p.Ping(context.Background()); err == nil {
		t.Error("expected an error after server close")
	}
}
