package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/54b3r/ragviz/internal/rag"
)

func Test_DefaultDimensions(t *testing.T) {
	cases := []struct {
		backend string
		want    int
	}{
		{BackendLocal, 384},
		{BackendCloud, 1536},
		{"", 384},
	}
	for _, tc := range cases {
		if got := DefaultDimensions(tc.backend); got != tc.want {
			t.Errorf("DefaultDimensions(%q) = %d, want %d", tc.backend, got, tc.want)
		}
	}
}

func Test_DefaultDimensions_EnvOverride(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSIONS", "768")
	if got := DefaultDimensions(BackendLocal); got != 768 {
		t.Errorf("want override 768, got %d", got)
	}
}

func Test_New_CloudWithoutCredentialFails(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	_, err := New(BackendCloud)
	if err == nil {
		t.Fatal("want error for cloud backend without credential")
	}
}

func Test_New_UnknownBackendFails(t *testing.T) {
	t.Parallel()
	if _, err := New("mystery"); err == nil {
		t.Fatal("want error for unknown backend")
	}
}

func Test_ValidateBackend(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")
	if err := ValidateBackend(BackendCloud, log); err == nil {
		t.Error("want error for cloud backend without credential")
	}
	if err := ValidateBackend(BackendLocal, log); err != nil {
		t.Errorf("local backend must validate without credential: %v", err)
	}

	t.Setenv("EMBEDDING_API_KEY", "sk-test")
	if err := ValidateBackend(BackendCloud, log); err != nil {
		t.Errorf("cloud backend with credential must validate: %v", err)
	}
}

func Test_OllamaEmbedder_Embed(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := ollamaEmbedResponse{Embeddings: make([][]float32, len(req.Input))}
		for i := range req.Input {
			resp.Embeddings[i] = []float32{float32(i), 1, 2}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "all-minilm"})
	got, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 embeddings, got %d", len(got))
	}
	if got[1][0] != 1 {
		t.Errorf("order not preserved: got[1][0] = %f", got[1][0])
	}
}

func Test_OllamaEmbedder_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Error: "model not found"})
	}))
	t.Cleanup(srv.Close)

	e := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nope"})
	if _, err := e.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("want error from failing backend")
	}
}

func Test_OpenAIEmbedder_ReordersByIndex(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("want bearer auth, got %q", got)
		}
		// Return data out of order; the adapter must place by index.
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[1,1]},
			{"index":0,"embedding":[0,0]}
		]}`))
	}))
	t.Cleanup(srv.Close)

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "sk-test", Model: "text-embedding-3-small"})
	got, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if got[0][0] != 0 || got[1][0] != 1 {
		t.Errorf("embeddings not reordered by index: %v", got)
	}
}

func Test_Cached_BuildsOnceAndSticksErrors(t *testing.T) {
	t.Parallel()

	builds := 0
	c := NewCached(func() (rag.Embedder, error) {
		builds++
		return nil, errors.New("load failed")
	})

	for range 3 {
		if _, err := c.Embed(context.Background(), []string{"x"}); err == nil {
			t.Fatal("want sticky construction error")
		}
	}
	if builds != 1 {
		t.Errorf("want exactly 1 build attempt, got %d", builds)
	}
}
