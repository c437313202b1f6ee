// Package commands defines all Cobra CLI commands for the ragviz binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/ragviz/internal/audit"
	"github.com/54b3r/ragviz/internal/config"
	"github.com/54b3r/ragviz/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfig holds the parsed YAML config. Structured values that have no
// env representation (the pricing table) are read from here.
var loadedConfig *config.Config

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragviz",
		Short: "RAGViz — an inspectable retrieval-augmented generation pipeline",
		Long: `RAGViz is a local-first RAG pipeline you can see into.

It chunks documents, embeds them locally (Ollama) or via the OpenAI API,
searches by cosine similarity, and answers questions grounded in the
retrieved chunks — exposing every intermediate stage (chunks, vectors,
similarity graphs, 2D/3D projections, the composed prompt, and token/cost
accounting) over an HTTP API and web UI.

Embedding backend is selected via the EMBEDDING_BACKEND environment
variable or a YAML config file (~/.ragviz/config.yaml).
See 'ragviz --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			cfg, path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfig = cfg
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragviz/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewIndexCmd(),
		NewQueryCmd(),
		NewAskCmd(),
		NewVersionCmd(),
	)

	return root
}
