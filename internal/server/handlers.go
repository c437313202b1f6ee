package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/54b3r/ragviz/internal/chunker"
	"github.com/54b3r/ragviz/internal/generate"
	"github.com/54b3r/ragviz/internal/graph"
	"github.com/54b3r/ragviz/internal/logging"
	"github.com/54b3r/ragviz/internal/prompt"
	"github.com/54b3r/ragviz/internal/rag"
	"github.com/54b3r/ragviz/internal/reduce"
	"github.com/54b3r/ragviz/internal/session"
)

// maxBodyBytes caps request bodies. Documents are pasted text, not uploads,
// so 1 MiB is plenty.
const maxBodyBytes = 1 << 20

// queryNodeID is the node ID used for the query in graph and projection
// responses.
const queryNodeID = "query"

// decodeJSON reads a JSON request body into dst, enforcing the body size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON encodes v as the JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encode error", slog.Any("error", err))
	}
}

// writeError maps err to an HTTP status and writes a JSON error body. The
// mapping is the contract the UI depends on to render stage-specific
// remediation hints.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chunker.ErrInvalidConfig), errors.Is(err, graph.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, generate.ErrAuth):
		status = http.StatusUnauthorized
	case errors.Is(err, rag.ErrDimensionMismatch):
		status = http.StatusConflict
	case errors.Is(err, reduce.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, generate.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, generate.ErrService), errors.Is(err, errUpstream):
		status = http.StatusBadGateway
	}

	if status >= 500 {
		logging.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// errBadRequest marks request validation failures that do not come from a
// pipeline package.
var errBadRequest = errors.New("bad request")

// errUpstream marks failures of the embedding backend.
var errUpstream = errors.New("embedding backend unavailable")

// handleIndex handles POST /api/index. It chunks the document, embeds every
// chunk, and replaces the store contents with the result.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Text == "" {
		writeError(w, r, fmt.Errorf("%w: text is required", errBadRequest))
		return
	}

	opts := chunker.Options{
		Size:          req.ChunkSize,
		Overlap:       req.ChunkOverlap,
		CleanMarkdown: s.cfg.CleanMarkdown,
	}
	if opts.Size == 0 {
		opts.Size = s.cfg.ChunkSize
	}
	if req.ChunkSize == 0 && req.ChunkOverlap == 0 {
		opts.Overlap = s.cfg.ChunkOverlap
	}
	if req.CleanMarkdown != nil {
		opts.CleanMarkdown = *req.CleanMarkdown
	}

	start := time.Now()
	chunks, err := chunker.Split(req.Text, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(chunks) == 0 {
		writeError(w, r, fmt.Errorf("%w: document is empty after cleaning", errBadRequest))
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embed.Embed(r.Context(), texts)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errUpstream, err))
		return
	}

	stored := make([]rag.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = rag.Chunk{ID: c.ID, Text: c.Text, SourceOffset: c.SourceOffset, Vector: vectors[i]}
	}

	// Indexing replaces the collection: old chunks would be unreachable from
	// the new document anyway.
	if err := s.store.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.Upsert(r.Context(), stored); err != nil {
		writeError(w, r, err)
		return
	}

	dims := 0
	if len(vectors) > 0 {
		dims = len(vectors[0])
	}
	s.state.SetCollection(session.Collection{
		Backend:      s.cfg.EmbedBackend,
		Model:        s.cfg.EmbedModel,
		Dimensions:   dims,
		ChunkSize:    opts.Size,
		ChunkOverlap: opts.Overlap,
		Count:        len(stored),
		IndexedAt:    time.Now().UTC(),
	})
	elapsed := time.Since(start)
	s.metrics.chunksIndexed.Set(float64(len(stored)))
	s.log.Info("indexed document",
		slog.Int("chunks", len(stored)),
		slog.Int("dimensions", dims),
		slog.Duration("duration", elapsed),
	)

	resp := indexResponse{
		Chunks:     make([]chunkInfo, len(stored)),
		Count:      len(stored),
		Dimensions: dims,
		Backend:    s.cfg.EmbedBackend,
		Model:      s.cfg.EmbedModel,
		DurationMS: elapsed.Milliseconds(),
	}
	for i, c := range stored {
		resp.Chunks[i] = chunkInfo{ID: c.ID, Text: c.Text, SourceOffset: c.SourceOffset}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQuery handles POST /api/query. It embeds the query and runs a
// similarity search against the store, recording the outcome in the session
// for the graph, projection, and generate endpoints.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Query == "" {
		writeError(w, r, fmt.Errorf("%w: query is required", errBadRequest))
		return
	}

	results, vector, err := s.retrieve(r, req.Query, req.TopK)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Query:      req.Query,
		Results:    toResultInfos(results),
		Dimensions: len(vector),
	})
}

// retrieve embeds query, searches the store, and records the retrieval in
// the session.
func (s *Server) retrieve(r *http.Request, query string, topK int) ([]rag.Result, []float32, error) {
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	retriever, err := rag.NewRetriever(s.embed, s.store, s.cfg.TopK)
	if err != nil {
		return nil, nil, err
	}
	results, vector, err := retriever.Retrieve(r.Context(), query, topK)
	if err != nil {
		if errors.Is(err, rag.ErrDimensionMismatch) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", errUpstream, err)
	}

	s.state.SetQuery(session.Query{
		Text:    query,
		Vector:  vector,
		Results: results,
		At:      time.Now().UTC(),
	})
	return results, vector, nil
}

// handleGraph handles POST /api/graph. It builds the pairwise similarity
// graph over all stored chunks and lays it out for rendering.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var req graphRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.K == 0 {
		req.K = s.cfg.GraphK
	} else if req.K < 2 || req.K > 10 {
		writeError(w, r, fmt.Errorf("%w: k must be between 2 and 10", errBadRequest))
		return
	}
	threshold := s.cfg.GraphThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if req.Layout == "" {
		req.Layout = graph.LayoutSpring
	}

	chunks, err := s.store.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(chunks) == 0 {
		writeError(w, r, fmt.Errorf("%w: nothing indexed yet", errBadRequest))
		return
	}

	opts := graph.Options{K: req.K, Threshold: threshold}
	if req.IncludeQuery {
		if q, ok := s.state.Query(); ok {
			opts.Query = &graph.QueryNode{ID: queryNodeID, Vector: q.Vector}
		}
	}

	g, err := graph.Build(chunks, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	positions, err := graph.ComputeLayout(g, req.Layout)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	resp := graphResponse{
		Nodes:  make([]graphNode, len(g.Nodes)),
		Edges:  make([]graphEdge, len(g.Edges)),
		Layout: req.Layout,
	}
	for i, n := range g.Nodes {
		pos := positions[n.ID]
		resp.Nodes[i] = graphNode{ID: n.ID, Query: n.Query, X: pos.X, Y: pos.Y}
	}
	for i, e := range g.Edges {
		resp.Edges[i] = graphEdge{Source: e.A, Target: e.B, Weight: e.Weight}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleProjection handles POST /api/projection. It reduces the stored
// vectors (and optionally the last query vector) to 2 or 3 dimensions.
func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Dimensions == 0 {
		req.Dimensions = 2
	}
	if req.Method == "" {
		req.Method = reduce.MethodPCA
	}

	chunks, err := s.store.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	ids := make([]string, 0, len(chunks)+1)
	vectors := make([][]float32, 0, len(chunks)+1)
	for _, c := range chunks {
		ids = append(ids, c.ID)
		vectors = append(vectors, c.Vector)
	}
	queryIncluded := false
	if req.IncludeQuery {
		if q, ok := s.state.Query(); ok && len(q.Vector) > 0 {
			ids = append(ids, queryNodeID)
			vectors = append(vectors, q.Vector)
			queryIncluded = true
		}
	}

	coords, err := reduce.Reduce(vectors, req.Dimensions, req.Method)
	if err != nil {
		if errors.Is(err, reduce.ErrInsufficientData) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	resp := projectionResponse{
		Method:     req.Method,
		Dimensions: req.Dimensions,
		Points:     make([]projectionPoint, len(coords)),
	}
	for i, c := range coords {
		resp.Points[i] = projectionPoint{
			ID:     ids[i],
			Query:  queryIncluded && i == len(coords)-1,
			Coords: c,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleGenerate handles POST /api/generate. It composes the augmented
// prompt from the retrieved context and sends it to the configured LLM.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var results []rag.Result
	query := req.Query
	if query != "" {
		var err error
		results, _, err = s.retrieve(r, query, req.TopK)
		if err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		q, ok := s.state.Query()
		if !ok {
			writeError(w, r, fmt.Errorf("%w: query is required (no previous retrieval to reuse)", errBadRequest))
			return
		}
		query = q.Text
		results = q.Results
	}

	pc := prompt.Compose(req.SystemPrompt, results, query)

	client, err := s.newGenerator(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	temperature := float32(0)
	if s.cfg.Generation != nil {
		temperature = s.cfg.Generation.Temperature
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	start := time.Now()
	rec, err := client.Generate(r.Context(), pc, temperature)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.generateRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.generateDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.metrics.tokensTotal.WithLabelValues("prompt").Add(float64(rec.PromptTokens))
	s.metrics.tokensTotal.WithLabelValues("completion").Add(float64(rec.CompletionTokens))

	if s.history != nil {
		saved, err := s.history.Append(r.Context(), rec)
		if err != nil {
			// History is an audit trail, not the answer path. Log and continue.
			s.log.Error("history append failed", slog.Any("error", err))
		} else {
			rec = saved
		}
	}

	writeJSON(w, http.StatusOK, generateResponse{
		Record:               rec,
		Prompt:               pc.Render(),
		PromptTokensEstimate: prompt.EstimateTokens(pc),
		Results:              toResultInfos(results),
	})
}

// handleRecords handles GET /api/records. It returns recent generation
// records and cumulative totals from the history store.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, recordsResponse{Records: []generate.Record{}})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}

	records, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.history.Totals(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if records == nil {
		records = []generate.Record{}
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: records, Totals: totals})
}

// handleReset handles POST /api/reset. It clears the vector store and the
// session state so a fresh walkthrough can start.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	s.state.Reset()
	s.metrics.chunksIndexed.Set(0)
	s.log.Info("pipeline reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCollection handles GET /api/collection for the UI status bar.
func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	c, ok := s.state.Collection()
	writeJSON(w, http.StatusOK, collectionResponse{Collection: c, Indexed: ok})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toResultInfos converts retrieval results to their response form.
func toResultInfos(results []rag.Result) []resultInfo {
	out := make([]resultInfo, len(results))
	for i, res := range results {
		out[i] = resultInfo{
			chunkInfo: chunkInfo{ID: res.Chunk.ID, Text: res.Chunk.Text, SourceOffset: res.Chunk.SourceOffset},
			Score:     res.Score,
		}
	}
	return out
}
