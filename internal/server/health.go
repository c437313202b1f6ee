package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/54b3r/ragviz/internal/logging"
)

// probeTimeout bounds each dependency probe during a readiness check so
// /api/ready answers quickly even when a dependency hangs instead of
// refusing the connection.
const probeTimeout = 5 * time.Second

// Pinger is implemented by dependencies that can report their own
// reachability: nil means healthy, a descriptive error means not.
// Implementations must be safe for concurrent use.
type Pinger interface {
	// Ping checks reachability within the given context.
	Ping(ctx context.Context) error

	// Name is the short label shown in readiness responses
	// (e.g. "ollama", "qdrant").
	Name() string
}

// MultiPinger reports the combined readiness of several dependencies.
type MultiPinger struct {
	pingers []Pinger
}

// NewMultiPinger constructs a MultiPinger over the given probes.
func NewMultiPinger(pingers ...Pinger) *MultiPinger {
	return &MultiPinger{pingers: pingers}
}

// Ping probes each dependency in order and returns the first failure,
// prefixed with the dependency's name, or nil when all succeed.
func (m *MultiPinger) Ping(ctx context.Context) error {
	for _, p := range m.pingers {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", p.Name(), err)
		}
	}
	return nil
}

// Name returns a combined label for logging purposes.
func (m *MultiPinger) Name() string { return "multi" }

// readyCheck is the per-dependency result in a readiness response.
type readyCheck struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
	// Error is the failure reason; empty on success.
	Error string `json:"error,omitempty"`
}

// readyResponse is the JSON body returned by GET /api/ready.
type readyResponse struct {
	Ready  bool         `json:"ready"`
	Checks []readyCheck `json:"checks"`
}

// handleReady handles GET /api/ready. Unlike /api/health (pure liveness), it
// probes every registered dependency and returns 503 when any is down. With
// no pingers registered it degrades to a liveness check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Ready: true}
	for _, p := range s.pingers {
		resp.Checks = append(resp.Checks, s.probe(r.Context(), p))
	}
	for _, c := range resp.Checks {
		if !c.OK {
			resp.Ready = false
			break
		}
	}

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// probe runs one dependency check under the probe timeout.
func (s *Server) probe(ctx context.Context, p Pinger) readyCheck {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	check := readyCheck{Name: p.Name(), OK: true}
	if err := p.Ping(probeCtx); err != nil {
		check.OK = false
		check.Error = err.Error()
		logging.FromContext(ctx).Warn("readiness probe failed",
			slog.String("dependency", p.Name()),
			slog.Any("error", err),
		)
	}
	return check
}
