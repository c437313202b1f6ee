package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragviz/internal/rag"
)

// NewQueryCmd constructs the `ragviz query` command, which runs a similarity
// search against the Qdrant collection and prints the ranked matches.
func NewQueryCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the indexed collection by similarity",
		Long: `Embed the query text and retrieve the most similar chunks from the Qdrant
collection, printed best match first with cosine similarity scores.

Examples:
  ragviz query "what is the capital of france?"
  ragviz query --top-k 5 "chunk overlap trade-offs"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			emb, _, _, dims, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			store, err := qdrantStoreFromEnv(ctx, dims)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer store.Close()

			retriever, err := rag.NewRetriever(emb, store, topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			query := strings.Join(args, " ")
			results, _, err := retriever.Retrieve(ctx, query, topK)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("no results — index a document first with 'ragviz index'")
				return nil
			}
			for i, res := range results {
				fmt.Printf("%d. [%.3f] %s (offset %d)\n", i+1, res.Score, res.Chunk.ID, res.Chunk.SourceOffset)
				fmt.Printf("   %s\n", truncate(res.Chunk.Text, 200))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "Number of results to return")

	return cmd
}

// truncate shortens s to max runes, appending an ellipsis when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
