package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/ragviz/internal/generate"
	"github.com/54b3r/ragviz/internal/history"
	"github.com/54b3r/ragviz/internal/prompt"
	"github.com/54b3r/ragviz/internal/rag"
	"github.com/54b3r/ragviz/internal/session"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. Cloud
	// embedding plus generation can take a while, so the default is generous.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [slog.Default] is used.
	Logger *slog.Logger

	// Store is the vector store backing the pipeline. Required.
	Store rag.VectorStore
	// Embedder converts chunk and query text to vectors. Required.
	Embedder rag.Embedder
	// History persists generation records. If nil, history is disabled and
	// GET /api/records returns empty.
	History history.Store
	// Generation configures the LLM backend used by POST /api/generate.
	Generation *generate.Config
	// Pricing overrides the built-in per-model price table.
	Pricing map[string]generate.ModelPricing

	// EmbedBackend, EmbedModel, and EmbedDimensions describe the embedder
	// for collection metadata and responses.
	EmbedBackend    string
	EmbedModel      string
	EmbedDimensions int

	// ChunkSize, ChunkOverlap, and CleanMarkdown are the default chunking
	// parameters applied when an index request omits them.
	ChunkSize     int
	ChunkOverlap  int
	CleanMarkdown bool
	// TopK is the default retrieval result count.
	TopK int
	// GraphK and GraphThreshold are the default similarity graph parameters.
	GraphK         int
	GraphThreshold float32

	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs the
	// /metrics endpoint. If nil a private registry is created.
	Registry *prometheus.Registry
	// StaticDir is the directory the web UI is served from. Defaults to
	// ui/static, which ships a placeholder index page; point it at a built
	// UI bundle for the full front end.
	StaticDir string
}

// generator is the interface handleGenerate calls to produce an answer.
// *generate.Client satisfies it; tests inject a fake.
type generator interface {
	Generate(ctx context.Context, pc *prompt.Context, temperature float32) (*generate.Record, error)
}

// Server is the HTTP server exposing the RAG pipeline API and web UI.
type Server struct {
	// cfg holds the resolved server configuration.
	cfg *Config
	// store is the vector store backing upsert and search.
	store rag.VectorStore
	// embed converts text to vectors.
	embed rag.Embedder
	// state is the shared session state read by graph/projection/generate.
	state *session.State
	// history persists generation records; nil when disabled.
	history history.Store
	// newGenerator constructs the generation client; overridden in tests.
	newGenerator func(ctx context.Context) (generator, error)
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// metrics holds this server's Prometheus instruments.
	metrics *serverMetrics
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// indexRequest is the JSON body for POST /api/index.
type indexRequest struct {
	// Text is the raw document text to chunk and embed.
	Text string `json:"text"`
	// ChunkSize is the chunk window in characters. Zero uses the server default.
	ChunkSize int `json:"chunkSize"`
	// ChunkOverlap is the overlap between adjacent chunks in characters.
	ChunkOverlap int `json:"chunkOverlap"`
	// CleanMarkdown strips markdown syntax before chunking. Nil uses the
	// server default.
	CleanMarkdown *bool `json:"cleanMarkdown"`
}

// chunkInfo is one chunk in index and query responses.
type chunkInfo struct {
	// ID is the stable chunk identifier.
	ID string `json:"id"`
	// Text is the chunk content.
	Text string `json:"text"`
	// SourceOffset is the chunk's character offset in the source document.
	SourceOffset int `json:"sourceOffset"`
}

// indexResponse is the JSON response for POST /api/index.
type indexResponse struct {
	// Chunks lists the indexed chunks in document order.
	Chunks []chunkInfo `json:"chunks"`
	// Count is the number of chunks indexed.
	Count int `json:"count"`
	// Dimensions is the embedding width.
	Dimensions int `json:"dimensions"`
	// Backend and Model identify the embedder used.
	Backend string `json:"backend"`
	Model   string `json:"model"`
	// DurationMS is the total indexing time in milliseconds.
	DurationMS int64 `json:"durationMs"`
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the search text.
	Query string `json:"query"`
	// TopK is the number of results to return. Zero uses the server default.
	TopK int `json:"topK"`
}

// resultInfo is one scored chunk in query and generate responses.
type resultInfo struct {
	chunkInfo
	// Score is the cosine similarity to the query, clamped to [0, 1].
	Score float32 `json:"score"`
}

// queryResponse is the JSON response for POST /api/query.
type queryResponse struct {
	// Query echoes the search text.
	Query string `json:"query"`
	// Results are the ranked matches, best first.
	Results []resultInfo `json:"results"`
	// Dimensions is the query embedding width.
	Dimensions int `json:"dimensions"`
}

// graphRequest is the JSON body for POST /api/graph.
type graphRequest struct {
	// K is the neighbor count per node. Zero uses the server default.
	K int `json:"k"`
	// Threshold is the minimum similarity for an edge. Nil uses the server
	// default; an explicit 0 disables score filtering (pure top-k).
	Threshold *float32 `json:"threshold"`
	// IncludeQuery adds the last query as an extra node with edges to its
	// own top-k chunks.
	IncludeQuery bool `json:"includeQuery"`
	// Layout selects the node layout algorithm: spring, circular, layered.
	// Empty means spring.
	Layout string `json:"layout"`
}

// graphNode is one positioned node in the graph response.
type graphNode struct {
	// ID is the chunk ID, or the query node ID.
	ID string `json:"id"`
	// Query marks the query node.
	Query bool `json:"query,omitempty"`
	// X and Y are the layout coordinates.
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// graphEdge is one weighted edge in the graph response.
type graphEdge struct {
	// Source and Target are node IDs. For query edges Source is always the
	// query node.
	Source string `json:"source"`
	Target string `json:"target"`
	// Weight is the cosine similarity between the endpoints.
	Weight float32 `json:"weight"`
}

// graphResponse is the JSON response for POST /api/graph.
type graphResponse struct {
	// Nodes are the positioned graph nodes.
	Nodes []graphNode `json:"nodes"`
	// Edges are the similarity edges.
	Edges []graphEdge `json:"edges"`
	// Layout echoes the layout algorithm used.
	Layout string `json:"layout"`
}

// projectionRequest is the JSON body for POST /api/projection.
type projectionRequest struct {
	// Dimensions is the target dimensionality: 2 or 3. Zero means 2.
	Dimensions int `json:"dimensions"`
	// Method selects the reducer: pca or embedding. Empty means pca.
	Method string `json:"method"`
	// IncludeQuery projects the last query vector alongside the chunks.
	IncludeQuery bool `json:"includeQuery"`
}

// projectionPoint is one projected vector in the projection response.
type projectionPoint struct {
	// ID is the chunk ID, or the query node ID.
	ID string `json:"id"`
	// Query marks the query point.
	Query bool `json:"query,omitempty"`
	// Coords holds the projected coordinates, length 2 or 3.
	Coords []float64 `json:"coords"`
}

// projectionResponse is the JSON response for POST /api/projection.
type projectionResponse struct {
	// Method echoes the reducer used.
	Method string `json:"method"`
	// Dimensions echoes the target dimensionality.
	Dimensions int `json:"dimensions"`
	// Points are the projected vectors in store order.
	Points []projectionPoint `json:"points"`
}

// generateRequest is the JSON body for POST /api/generate.
type generateRequest struct {
	// Query is the question. Empty reuses the last retrieval's query.
	Query string `json:"query"`
	// SystemPrompt overrides the default system instructions.
	SystemPrompt string `json:"systemPrompt"`
	// Temperature overrides the configured sampling temperature.
	Temperature *float32 `json:"temperature"`
	// TopK is the number of chunks to retrieve when Query is set.
	TopK int `json:"topK"`
}

// generateResponse is the JSON response for POST /api/generate.
type generateResponse struct {
	// Record is the generation outcome with token and cost accounting.
	Record *generate.Record `json:"record"`
	// Prompt is the full rendered prompt sent to the model.
	Prompt string `json:"prompt"`
	// PromptTokensEstimate is the local pre-call token estimate.
	PromptTokensEstimate int `json:"promptTokensEstimate"`
	// Results are the context chunks the prompt was built from.
	Results []resultInfo `json:"results"`
}

// recordsResponse is the JSON response for GET /api/records.
type recordsResponse struct {
	// Records are the most recent generation records, newest first.
	Records []generate.Record `json:"records"`
	// Totals are the cumulative counters across all records.
	Totals history.Totals `json:"totals"`
}

// collectionResponse describes the indexed collection in status responses.
type collectionResponse struct {
	session.Collection
	// Indexed is false when nothing has been indexed yet.
	Indexed bool `json:"indexed"`
}
