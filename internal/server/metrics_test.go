package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Test_Metrics_EndpointReturns200(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	newServerMetrics(reg)

	srv := httptest.NewServer(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	t.Cleanup(srv.Close)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, srv.URL+"/metrics", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("want 200, got %d", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
}

func Test_Metrics_GenerateCounterIncremented(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.generateRequestsTotal.WithLabelValues("ok").Inc()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, mf := range mfs {
		if mf.GetName() == "ragviz_generate_requests_total" {
			for _, metric := range mf.GetMetric() {
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == "outcome" && lp.GetValue() == "ok" {
						if metric.GetCounter().GetValue() != 1 {
							t.Errorf("want counter=1, got %v", metric.GetCounter().GetValue())
						}
						found = true
					}
				}
			}
		}
	}
	if !found {
		t.Error("ragviz_generate_requests_total{outcome=\"ok\"} not found in gathered metrics")
	}
}

func Test_Metrics_ChunksIndexedGauge(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := newServerMetrics(reg)

	m.chunksIndexed.Set(13)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, mf := range mfs {
		if mf.GetName() == "ragviz_pipeline_chunks_indexed" {
			v := mf.GetMetric()[0].GetGauge().GetValue()
			if v != 13 {
				t.Errorf("want chunks_indexed=13, got %v", v)
			}
			return
		}
	}
	t.Error("ragviz_pipeline_chunks_indexed not found in gathered metrics")
}

func Test_Metrics_HTTPRequestsViaHandler(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	do(t, s, http.MethodGet, "/api/health", nil)

	mfs, err := s.cfg.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == "ragviz_http_requests_total" {
			if len(mf.GetMetric()) == 0 {
				t.Error("expected at least one http request sample")
			}
			return
		}
	}
	t.Error("ragviz_http_requests_total not found after a request")
}
