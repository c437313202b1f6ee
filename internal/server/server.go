// Package server implements the HTTP server that exposes the RAG pipeline
// via a REST API and serves the web UI. Each endpoint maps to one pipeline
// stage so the UI can run and visualize them independently.
// The server is started by the `ragviz serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/ragviz/internal/chunker"
	"github.com/54b3r/ragviz/internal/embedder"
	"github.com/54b3r/ragviz/internal/generate"
	"github.com/54b3r/ragviz/internal/logging"
	"github.com/54b3r/ragviz/internal/session"
)

// New constructs a Server from the provided config.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("server: vector store must not be nil")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("server: embedder must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Indexing a large document against a cloud embedder can be slow.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.GraphK == 0 {
		cfg.GraphK = 3
	}
	if cfg.GraphThreshold == 0 {
		cfg.GraphThreshold = 0.3
	}
	if cfg.EmbedBackend == "" {
		cfg.EmbedBackend = embedder.BackendLocal
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "ui/static"
	}

	s := &Server{
		cfg:     cfg,
		store:   cfg.Store,
		embed:   cfg.Embedder,
		state:   &session.State{},
		history: cfg.History,
		log:     cfg.Logger,
		metrics: newServerMetrics(cfg.Registry),
		pingers: cfg.Pingers,
	}
	s.newGenerator = func(ctx context.Context) (generator, error) {
		if cfg.Generation == nil {
			return nil, fmt.Errorf("server: no generation backend configured: %w", generate.ErrService)
		}
		return generate.NewClient(ctx, cfg.Generation, cfg.Pricing, s.log)
	}

	if cfg.APIKey == "" {
		s.log.Warn("server: API key not set — authentication is disabled")
	}

	rps := cfg.RateLimit
	if rps == 0 {
		rps = defaultRateLimit
	}
	burst := cfg.RateBurst
	if burst == 0 {
		burst = defaultRateBurst
	}
	rl, stopRL := newRateLimiter(rps, burst, s.log)
	s.stopRL = stopRL

	// protect wraps a pipeline handler with rate limiting and auth, then
	// instruments it for metrics.
	protect := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, rl.middleware(authMiddleware(cfg.APIKey, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/index", protect("index", s.handleIndex))
	mux.Handle("POST /api/query", protect("query", s.handleQuery))
	mux.Handle("POST /api/graph", protect("graph", s.handleGraph))
	mux.Handle("POST /api/projection", protect("projection", s.handleProjection))
	mux.Handle("POST /api/generate", protect("generate", s.handleGenerate))
	mux.Handle("GET /api/records", protect("records", s.handleRecords))
	mux.Handle("POST /api/reset", protect("reset", s.handleReset))
	mux.Handle("GET /api/collection", protect("collection", s.handleCollection))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("ragviz server listening", "addr", "http://"+s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// Handler returns the server's root HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
