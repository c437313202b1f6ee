// Package rag defines the interfaces for the retrieval pipeline: embedding,
// vector storage, and similarity search. Concrete implementations (in-memory,
// Qdrant) satisfy these interfaces so the server and CLI layers never depend
// on a specific backend.
package rag

import (
	"context"
)

// Chunk is a unit of stored knowledge: a slice of the source text together
// with its embedding vector.
type Chunk struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Text is the raw text content of the chunk.
	Text string

	// SourceOffset is the character offset of the chunk in the source text.
	SourceOffset int

	// Vector is the embedding for this chunk. Must be populated before Upsert.
	Vector []float32
}

// Result is a single similarity search hit.
type Result struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the cosine similarity to the query vector, clamped to [0,1].
	Score float32
}

// VectorStore persists chunks with their embeddings and answers
// nearest-neighbor queries. Implementations must be safe to call from
// multiple goroutines.
type VectorStore interface {
	// Upsert stores a batch of chunks, replacing any existing chunk that
	// shares the same ID. Every chunk's vector length must equal the
	// collection dimensionality; a disagreement fails with
	// ErrDimensionMismatch and leaves the store unchanged.
	Upsert(ctx context.Context, chunks []Chunk) error

	// Query returns the n chunks nearest to vector by cosine similarity,
	// sorted descending by score with equal scores broken by insertion
	// order (earlier-inserted wins). Returns fewer than n results when the
	// collection holds fewer chunks, and an empty result — never an error —
	// on an empty collection.
	Query(ctx context.Context, vector []float32, n int) ([]Result, error)

	// All returns every stored chunk in insertion order. Used by the
	// visualization layer, which needs the full collection rather than a
	// neighborhood.
	All(ctx context.Context) ([]Chunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Reset discards all chunks. Called on re-indexing, including when the
	// embedding backend (and therefore the dimensionality) changes.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever fetches the chunks most relevant to a query. It combines
// embedding and vector search.
type Retriever interface {
	// Retrieve embeds query and returns the top-k most similar chunks
	// together with the query's own embedding vector.
	Retrieve(ctx context.Context, query string, topK int) ([]Result, []float32, error)
}
