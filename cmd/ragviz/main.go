// Command ragviz is the entry point for the RAG pipeline visualizer.
// It provides a CLI interface (via Cobra) and an HTTP server with a web UI
// that exposes every stage of the pipeline for inspection.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/ragviz/cmd/ragviz/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
