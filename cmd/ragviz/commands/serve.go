package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/54b3r/ragviz/internal/embedder"
	"github.com/54b3r/ragviz/internal/generate"
	"github.com/54b3r/ragviz/internal/history"
	"github.com/54b3r/ragviz/internal/logging"
	"github.com/54b3r/ragviz/internal/rag"
	"github.com/54b3r/ragviz/internal/server"
	"github.com/54b3r/ragviz/internal/tracing"
)

// NewServeCmd constructs the `ragviz serve` command, which starts the HTTP
// server and serves the web UI for interactive use.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var staticDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RAGViz HTTP server and web UI",
		Long: `Start the RAGViz HTTP server on localhost.

The server exposes a REST API and serves the web UI for interactive pipeline
inspection: index a document, search it, view the similarity graph and
2D/3D projections, and generate grounded answers with token and cost
accounting.

The vector store is in-memory by default. Set QDRANT_ENABLED=true to back
the collection with a Qdrant instance that survives restarts.

Examples:
  ragviz serve
  ragviz serve --port 9090
  EMBEDDING_BACKEND=cloud MODEL_PROVIDER=openai ragviz serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting",
				slog.String("embedding_backend", getEnvOrDefault("EMBEDDING_BACKEND", embedder.BackendLocal)),
				slog.String("model_provider", getEnvOrDefault("MODEL_PROVIDER", "ollama")),
			)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			emb, embBackend, embModel, embDims, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("embedder initialised",
				slog.String("backend", embBackend),
				slog.String("model", embModel),
				slog.Int("dimensions", embDims),
			)

			var pingers []server.Pinger

			// Vector store: in-memory by default, Qdrant when enabled.
			var store rag.VectorStore
			if os.Getenv("QDRANT_ENABLED") == "true" {
				qs, qsErr := qdrantStoreFromEnv(ctx, embDims)
				if qsErr != nil {
					return fmt.Errorf("serve: %w", qsErr)
				}
				defer qs.Close()
				store = qs
				pingers = append(pingers, server.NewQdrantPinger(qs.Client()))
				log.Info("vector store: qdrant",
					slog.String("host", getEnvOrDefault("QDRANT_HOST", "localhost")),
					slog.String("collection", getEnvOrDefault("QDRANT_COLLECTION", "ragviz")),
				)
			} else {
				store = rag.NewMemoryStore()
				log.Info("vector store: in-memory")
			}

			// Probe Ollama when either the embedder or the generator depends on it.
			generation := generate.ConfigFromEnv()
			if embBackend == embedder.BackendLocal || generation.Backend == generate.BackendOllama {
				pingers = append(pingers, server.NewOllamaPinger(os.Getenv("OLLAMA_HOST")))
			}

			// Open generation history store. RAGVIZ_HISTORY_DB overrides the
			// default path (~/.ragviz/history.db). Set to "disabled" to disable.
			var historyStore history.Store
			dbPath := os.Getenv("RAGVIZ_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = history.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := history.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer hs.Close()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via RAGVIZ_HISTORY_DB=disabled")
			}

			srv, err := server.New(&server.Config{
				Host:   host,
				Port:   port,
				Logger: log,

				Store:      store,
				Embedder:   emb,
				History:    historyStore,
				Generation: generation,
				Pricing:    loadedConfig.Pricing,

				EmbedBackend:    embBackend,
				EmbedModel:      embModel,
				EmbedDimensions: embDims,

				ChunkSize:      getEnvInt("CHUNK_SIZE", 0),
				ChunkOverlap:   getEnvInt("CHUNK_OVERLAP", 0),
				CleanMarkdown:  os.Getenv("CHUNK_CLEAN_MARKDOWN") == "true",
				TopK:           getEnvInt("RETRIEVAL_TOP_K", 0),
				GraphK:         getEnvInt("GRAPH_TOP_K", 0),
				GraphThreshold: getEnvFloat32("GRAPH_THRESHOLD", 0),

				Pingers:   pingers,
				APIKey:    os.Getenv("RAGVIZ_API_KEY"),
				StaticDir: staticDir,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().StringVar(&staticDir, "static-dir", "", "Directory to serve the web UI from; ui/static ships a placeholder index (default: ui/static)")

	return cmd
}
