// Package reduce projects high-dimensional embedding vectors down to 2 or 3
// dimensions for plotting. Two methods are provided: PCA, which is fully
// deterministic given the input order, and a seeded neighborhood embedding,
// whose stochastic steps are driven by a fixed seed so repeated runs over
// the same collection render identically.
package reduce

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when fewer than targetDim+1 vectors are
// supplied — the projection is degenerate below that, so the caller should
// skip the visualization with an explanation instead of plotting garbage.
var ErrInsufficientData = errors.New("reduce: insufficient data")

// Method names accepted by Reduce.
const (
	// MethodPCA projects onto the top principal components.
	MethodPCA = "pca"
	// MethodEmbedding is a seeded nonlinear neighborhood embedding.
	MethodEmbedding = "embedding"
)

// DefaultSeed fixes the embedding method's randomness for reproducibility.
const DefaultSeed = 42

// Reduce projects vectors to targetDim (2 or 3) dimensions using the named
// method. The result is index-aligned with the input.
func Reduce(vectors [][]float32, targetDim int, method string) ([][]float64, error) {
	if targetDim != 2 && targetDim != 3 {
		return nil, fmt.Errorf("reduce: target dimensionality must be 2 or 3, got %d", targetDim)
	}
	if len(vectors) < targetDim+1 {
		return nil, fmt.Errorf("%w: need at least %d vectors for a %dD projection, got %d",
			ErrInsufficientData, targetDim+1, targetDim, len(vectors))
	}
	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("reduce: vector %d has %d dimensions, vector 0 has %d", i, len(v), len(vectors[0]))
		}
	}

	switch method {
	case MethodPCA, "":
		return pca(vectors, targetDim)
	case MethodEmbedding:
		return neighborhoodEmbedding(vectors, targetDim, DefaultSeed)
	default:
		return nil, fmt.Errorf("reduce: unknown method %q — valid values: pca, embedding", method)
	}
}
