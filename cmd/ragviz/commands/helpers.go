package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/54b3r/ragviz/internal/embedder"
	"github.com/54b3r/ragviz/internal/rag"
)

// buildEmbedder validates the embedding backend configuration and returns a
// lazily constructed embedder: the underlying client is only dialed on the
// first Embed call, so startup stays fast and commands that never embed pay
// nothing. Returns the embedder together with the backend name, model, and
// dimensionality for status reporting.
func buildEmbedder(log *slog.Logger) (rag.Embedder, string, string, int, error) {
	backend := getEnvOrDefault("EMBEDDING_BACKEND", embedder.BackendLocal)

	if err := embedder.ValidateBackend(backend, log); err != nil {
		return nil, "", "", 0, err
	}

	emb := embedder.NewCached(func() (rag.Embedder, error) {
		return embedder.New(backend)
	})

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		if backend == embedder.BackendCloud {
			model = "text-embedding-3-small"
		} else {
			model = "all-minilm"
		}
	}

	return emb, backend, model, embedder.DefaultDimensions(backend), nil
}

// qdrantStoreFromEnv connects to Qdrant using QDRANT_* env vars, ensuring the
// collection exists with the given dimensionality.
func qdrantStoreFromEnv(ctx context.Context, dimensions int) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "ragviz"),
		VectorSize: uint64(dimensions), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return store, nil
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
