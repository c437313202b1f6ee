package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/ragviz/internal/generate"
	"github.com/54b3r/ragviz/internal/history"
	"github.com/54b3r/ragviz/internal/prompt"
	"github.com/54b3r/ragviz/internal/rag"
)

// NewAskCmd constructs the `ragviz ask` command, which runs the full pipeline
// once: retrieve context from the indexed collection, compose the grounded
// prompt, and generate an answer.
func NewAskCmd() *cobra.Command {
	var topK int
	var systemPrompt string
	var showPrompt bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question grounded in the indexed collection",
		Long: `Embed the question, retrieve the most similar chunks from the Qdrant
collection, compose a grounded prompt, and send it to the configured LLM.

The answer is printed to stdout followed by a token and cost summary. Each
call is appended to the generation history (~/.ragviz/history.db) unless
RAGVIZ_HISTORY_DB=disabled.

Model provider is selected via MODEL_PROVIDER (default: ollama).

Examples:
  ragviz ask "what is the capital of france?"
  ragviz ask --top-k 5 --show-prompt "how does chunk overlap work?"
  MODEL_PROVIDER=openai ragviz ask "summarise the indexed document"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := slog.Default()

			emb, _, _, dims, err := buildEmbedder(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			store, err := qdrantStoreFromEnv(ctx, dims)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer store.Close()

			retriever, err := rag.NewRetriever(emb, store, topK)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			question := strings.Join(args, " ")
			results, _, err := retriever.Retrieve(ctx, question, topK)
			if err != nil {
				return fmt.Errorf("ask: retrieval failed: %w", err)
			}
			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "warning: collection is empty — answering without context")
			}

			pc := prompt.Compose(systemPrompt, results, question)
			if showPrompt {
				fmt.Fprintf(os.Stderr, "--- prompt (%d tokens estimated) ---\n%s\n---\n",
					prompt.EstimateTokens(pc), pc.Render())
			}

			genCfg := generate.ConfigFromEnv()
			client, err := generate.NewClient(ctx, genCfg, loadedConfig.Pricing, log)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise model provider: %w", err)
			}

			rec, err := client.Generate(ctx, pc, genCfg.Temperature)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(rec.Answer)
			estimated := ""
			if rec.TokensEstimated {
				estimated = " (estimated)"
			}
			fmt.Fprintf(os.Stderr, "\n[%s/%s] %d prompt + %d completion = %d tokens%s, $%.6f, %dms\n",
				rec.Backend, rec.Model, rec.PromptTokens, rec.CompletionTokens,
				rec.TotalTokens, estimated, rec.CostUSD, rec.DurationMS)

			appendHistory(ctx, log, rec)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "Number of chunks to retrieve as context")
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "Override the default system instructions")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "Print the composed prompt to stderr before generating")

	return cmd
}

// appendHistory persists the generation record, best-effort: a history
// failure never loses the answer that was already produced.
func appendHistory(ctx context.Context, log *slog.Logger, rec *generate.Record) {
	dbPath := os.Getenv("RAGVIZ_HISTORY_DB")
	if dbPath == "disabled" {
		return
	}
	if dbPath == "" {
		var err error
		dbPath, err = history.DefaultDBPath()
		if err != nil {
			log.Warn("history: could not resolve default DB path", slog.Any("error", err))
			return
		}
	}
	hs, err := history.Open(dbPath)
	if err != nil {
		log.Warn("history: failed to open store", slog.Any("error", err))
		return
	}
	defer hs.Close()
	if _, err := hs.Append(ctx, rec); err != nil {
		log.Warn("history: failed to append record", slog.Any("error", err))
	}
}
