package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragviz/internal/chunker"
	"github.com/54b3r/ragviz/internal/rag"
)

// NewIndexCmd constructs the `ragviz index` command, which chunks and embeds
// a document file into the Qdrant vector store for later querying.
func NewIndexCmd() *cobra.Command {
	var chunkSize int
	var chunkOverlap int
	var cleanMarkdown bool

	cmd := &cobra.Command{
		Use:   "index [file]",
		Short: "Chunk and embed a document into the Qdrant vector store",
		Long: `Read a text or markdown file, split it into overlapping chunks, embed each
chunk, and upsert the result into Qdrant. Indexing replaces the collection
contents.

The one-shot CLI path always targets Qdrant — an in-memory collection would
not outlive the command. Use 'ragviz serve' for in-memory sessions.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: ragviz)
  EMBEDDING_BACKEND    local (Ollama) or cloud (OpenAI), default: local
  EMBEDDING_*          Backend-specific overrides (see README)

Examples:
  ragviz index notes.md
  ragviz index --chunk-size 300 --chunk-overlap 30 docs/guide.md
  EMBEDDING_BACKEND=cloud ragviz index paper.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("index: failed to read %s: %w", args[0], err)
			}

			emb, backend, model, dims, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			log.Info("embedder initialised", slog.String("backend", backend), slog.String("model", model))

			store, err := qdrantStoreFromEnv(ctx, dims)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer store.Close()

			start := time.Now()
			chunks, err := chunker.Split(string(data), chunker.Options{
				Size:          chunkSize,
				Overlap:       chunkOverlap,
				CleanMarkdown: cleanMarkdown,
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			if len(chunks) == 0 {
				return fmt.Errorf("index: %s is empty after cleaning", args[0])
			}

			texts := make([]string, len(chunks))
			for i, c := range chunks {
				texts[i] = c.Text
			}
			vectors, err := emb.Embed(ctx, texts)
			if err != nil {
				return fmt.Errorf("index: embedding failed: %w", err)
			}

			stored := make([]rag.Chunk, len(chunks))
			for i, c := range chunks {
				stored[i] = rag.Chunk{ID: c.ID, Text: c.Text, SourceOffset: c.SourceOffset, Vector: vectors[i]}
			}

			if err := store.Reset(ctx); err != nil {
				return fmt.Errorf("index: %w", err)
			}
			if err := store.Upsert(ctx, stored); err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Printf("indexed %s: %d chunks, %d dimensions (%s/%s) in %s\n",
				args[0], len(stored), len(vectors[0]), backend, model,
				time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&chunkSize, "chunk-size", chunker.DefaultSize, "Chunk window in characters")
	cmd.Flags().IntVar(&chunkOverlap, "chunk-overlap", chunker.DefaultOverlap, "Overlap between adjacent chunks in characters")
	cmd.Flags().BoolVar(&cleanMarkdown, "clean-markdown", false, "Strip markdown syntax before chunking")

	return cmd
}
