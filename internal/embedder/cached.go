package embedder

import (
	"context"
	"sync"

	"github.com/54b3r/ragviz/internal/rag"
)

// Cached wraps a lazily-constructed rag.Embedder so the construction cost —
// for the local backend, the first call that makes the Ollama server load
// the model — is paid once and the resulting handle is reused for the
// owner's lifetime. The handle is owned by whoever created the Cached value
// (typically the server), not by ambient package state.
type Cached struct {
	// build constructs the underlying embedder on first use.
	build func() (rag.Embedder, error)

	// once guards the single initialization of inner/err.
	once sync.Once

	// inner is the constructed embedder; valid only when err is nil.
	inner rag.Embedder

	// err is the construction error, sticky across calls so a broken
	// backend reports the same actionable failure every time.
	err error
}

// NewCached returns a Cached embedder that invokes build on first Embed.
func NewCached(build func() (rag.Embedder, error)) *Cached {
	return &Cached{build: build}
}

// Embed initializes the underlying embedder on first call, then delegates.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.once.Do(func() {
		c.inner, c.err = c.build()
	})
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Embed(ctx, texts)
}
