package reduce

import (
	"math"
	"math/rand"
	"sort"

	"github.com/54b3r/ragviz/internal/rag"
)

// Refinement parameters for the neighborhood embedding. The iteration count
// and learning rate are tuned for collections of tens to hundreds of chunks,
// the scale this visualizer works at.
const (
	embedIterations   = 200
	embedNeighbors    = 8
	embedLearningRate = 0.05
)

// neighborhoodEmbedding is the seeded nonlinear projection: positions start
// from PCA, then are refined so that each point is pulled toward its nearest
// neighbors in the original space and pushed away from a random sample of
// non-neighbors. All randomness comes from the provided seed, so the result
// is reproducible.
func neighborhoodEmbedding(vectors [][]float32, targetDim int, seed int64) ([][]float64, error) {
	n := len(vectors)

	// PCA initialization keeps the global shape; refinement sharpens local
	// neighborhoods.
	pos, err := pca(vectors, targetDim)
	if err != nil {
		return nil, err
	}
	rescale(pos)

	k := embedNeighbors
	if k > n-1 {
		k = n - 1
	}
	neighbors := nearestNeighbors(vectors, k)

	rng := rand.New(rand.NewSource(seed))
	step := embedLearningRate

	for it := 0; it < embedIterations; it++ {
		for i := 0; i < n; i++ {
			// Attract toward high-dimensional neighbors, weighted by similarity.
			for _, nb := range neighbors[i] {
				moveToward(pos[i], pos[nb.index], step*float64(nb.sim))
			}
			// Repel from one random non-neighbor to spread unrelated points.
			j := rng.Intn(n)
			if j != i && !isNeighbor(neighbors[i], j) {
				moveApart(pos[i], pos[j], step)
			}
		}
		// Linear cooldown.
		step = embedLearningRate * (1 - float64(it)/float64(embedIterations))
	}

	return pos, nil
}

// simIndex pairs a neighbor's index with its similarity to the owner.
type simIndex struct {
	index int
	sim   float32
}

// nearestNeighbors returns each vector's k most similar peers.
func nearestNeighbors(vectors [][]float32, k int) [][]simIndex {
	n := len(vectors)
	out := make([][]simIndex, n)
	for i := 0; i < n; i++ {
		sims := make([]simIndex, 0, n-1)
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sims = append(sims, simIndex{j, rag.ClampScore(rag.CosineSimilarity(vectors[i], vectors[j]))})
		}
		sort.SliceStable(sims, func(a, b int) bool { return sims[a].sim > sims[b].sim })
		out[i] = sims[:k]
	}
	return out
}

// isNeighbor reports whether j appears in the neighbor list.
func isNeighbor(list []simIndex, j int) bool {
	for _, nb := range list {
		if nb.index == j {
			return true
		}
	}
	return false
}

// moveToward shifts p a fraction of the way to q.
func moveToward(p, q []float64, amount float64) {
	for d := range p {
		p[d] += (q[d] - p[d]) * amount
	}
}

// moveApart pushes p away from q with force decaying by distance.
func moveApart(p, q []float64, amount float64) {
	var dist2 float64
	for d := range p {
		diff := p[d] - q[d]
		dist2 += diff * diff
	}
	dist := math.Sqrt(dist2)
	if dist < 1e-9 {
		// Coincident points: nudge along the first axis.
		p[0] += amount
		return
	}
	f := amount / (1 + dist)
	for d := range p {
		p[d] += (p[d] - q[d]) / dist * f
	}
}

// rescale normalizes positions so the widest axis spans [-1, 1]. Keeps the
// refinement forces in a predictable numeric range regardless of the PCA
// output scale.
func rescale(pos [][]float64) {
	if len(pos) == 0 {
		return
	}
	var span float64
	dims := len(pos[0])
	for d := 0; d < dims; d++ {
		lo, hi := pos[0][d], pos[0][d]
		for _, p := range pos[1:] {
			lo = math.Min(lo, p[d])
			hi = math.Max(hi, p[d])
		}
		span = math.Max(span, hi-lo)
	}
	if span < 1e-9 {
		return
	}
	for _, p := range pos {
		for d := range p {
			p[d] = p[d] / span * 2
		}
	}
}
