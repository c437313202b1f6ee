package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/ragviz/internal/rag"
)

// Backend names accepted by NewFromEnv and the HTTP API.
const (
	// BackendLocal embeds via a local Ollama instance.
	BackendLocal = "local"
	// BackendCloud embeds via the OpenAI embeddings API.
	BackendCloud = "cloud"
)

// Default embedding models and dimensionalities per backend.
const (
	defaultLocalModel = "all-minilm"
	defaultCloudModel = "text-embedding-3-small"

	// defaultLocalDimensions is the output dimension of all-minilm.
	// Other Ollama models may differ — override with EMBEDDING_DIMENSIONS.
	defaultLocalDimensions = 384
	// defaultCloudDimensions is the output dimension of text-embedding-3-small.
	defaultCloudDimensions = 1536
)

// DefaultDimensions returns the embedding vector size for the given backend
// name. Callers that pre-configure a vector store (e.g. Qdrant collection
// creation) should use this rather than hardcoding a value.
// EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case BackendCloud:
		return defaultCloudDimensions
	default:
		return defaultLocalDimensions
	}
}

// New constructs a rag.Embedder for the named backend, resolving model,
// endpoint, and credential from the environment.
//
// Environment variables:
//
//	EMBEDDING_MODEL       overrides the default model for the backend
//	EMBEDDING_ENDPOINT    overrides the API endpoint
//	EMBEDDING_DIMENSIONS  overrides the vector size (local: 384, cloud: 1536)
//	EMBEDDING_API_KEY     cloud credential (falls back to OPENAI_API_KEY)
//	OLLAMA_HOST           local endpoint (default: http://localhost:11434)
//
// The cloud backend fails here — before any network call — when no
// credential is configured, so misconfiguration surfaces as an actionable
// startup error rather than a failed embed.
func New(backend string) (rag.Embedder, error) {
	switch backend {
	case BackendLocal, "":
		host := os.Getenv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: getEnvOrDefault("EMBEDDING_MODEL", defaultLocalModel),
		}), nil

	case BackendCloud:
		apiKey := os.Getenv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: cloud backend requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    os.Getenv("EMBEDDING_ENDPOINT"),
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultCloudModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", defaultCloudDimensions),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q — valid values: local, cloud", backend)
	}
}

// NewFromEnv constructs a rag.Embedder for the backend named by
// EMBEDDING_BACKEND (default: local).
func NewFromEnv() (rag.Embedder, error) {
	return New(getEnvOrDefault("EMBEDDING_BACKEND", BackendLocal))
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
