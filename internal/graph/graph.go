// Package graph derives a sparse semantic-neighbor graph from a set of
// embedded chunks for visualization: nodes are chunks, edges connect each
// chunk to its most similar peers. The construction is deterministic —
// identical inputs always produce the identical graph.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/54b3r/ragviz/internal/rag"
)

// ErrInvalidConfig is returned for out-of-range neighbor count or threshold.
var ErrInvalidConfig = errors.New("graph: invalid configuration")

// Node is a vertex in the neighbor graph.
type Node struct {
	// ID is the chunk ID, or the query node's ID.
	ID string

	// Query marks the optional query node.
	Query bool
}

// Edge is an undirected weighted edge between two nodes. A belongs to the
// chunk with the lower input index so symmetric duplicates merge cleanly,
// except for query edges where A is always the query node.
type Edge struct {
	// A and B are the endpoint node IDs.
	A, B string

	// Weight is the cosine similarity between the endpoints, in [0,1].
	Weight float32
}

// Graph is a sparse neighbor graph over a chunk collection.
type Graph struct {
	// Nodes lists every vertex, chunks in input order, query node (if any) last.
	Nodes []Node

	// Edges lists the deduplicated undirected edges.
	Edges []Edge
}

// QueryNode describes the optional query vertex. The query connects to its
// own top-k neighbors among the chunks, but never appears in a chunk's
// top-k list — retrieval is asymmetric.
type QueryNode struct {
	// ID is the node ID used for the query vertex (e.g. "query").
	ID string

	// Vector is the query embedding.
	Vector []float32
}

// Options configures graph construction.
type Options struct {
	// K is the number of neighbors considered per node. Must be >= 1.
	K int

	// Threshold is the minimum similarity for an edge to be kept, in [0,1].
	// Zero disables score filtering (pure top-k).
	Threshold float32

	// Query, when non-nil, adds a query vertex.
	Query *QueryNode
}

// Build computes the full pairwise cosine-similarity matrix over chunks
// (O(n²·dim)), selects each chunk's top-K most similar peers, and keeps an
// edge iff it appears in at least one endpoint's top-K list AND its
// similarity meets the threshold. Symmetric duplicates merge into a single
// weighted edge. K >= n-1 admits every pair subject to the threshold.
func Build(chunks []rag.Chunk, opts Options) (*Graph, error) {
	if opts.K < 1 {
		return nil, fmt.Errorf("%w: neighbor count must be >= 1, got %d", ErrInvalidConfig, opts.K)
	}
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("%w: threshold must be in [0,1], got %f", ErrInvalidConfig, opts.Threshold)
	}

	g := &Graph{}
	for _, c := range chunks {
		g.Nodes = append(g.Nodes, Node{ID: c.ID})
	}

	n := len(chunks)
	if n >= 2 {
		// Upper-triangular similarity matrix; sim(i,i) is never needed.
		sim := make([][]float32, n)
		for i := range sim {
			sim[i] = make([]float32, n)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				s := rag.ClampScore(rag.CosineSimilarity(chunks[i].Vector, chunks[j].Vector))
				sim[i][j] = s
				sim[j][i] = s
			}
		}

		// An edge survives if either endpoint lists the other in its top-K.
		type pair struct{ a, b int }
		keep := make(map[pair]float32)
		for i := 0; i < n; i++ {
			for _, j := range topKIndices(sim[i], i, opts.K) {
				if sim[i][j] < opts.Threshold {
					continue
				}
				p := pair{i, j}
				if j < i {
					p = pair{j, i}
				}
				keep[p] = sim[i][j]
			}
		}

		for p, w := range keep {
			g.Edges = append(g.Edges, Edge{A: chunks[p.a].ID, B: chunks[p.b].ID, Weight: w})
		}
	}

	if q := opts.Query; q != nil {
		g.Nodes = append(g.Nodes, Node{ID: q.ID, Query: true})

		qsim := make([]float32, n)
		for i, c := range chunks {
			qsim[i] = rag.ClampScore(rag.CosineSimilarity(q.Vector, c.Vector))
		}
		for _, j := range topKIndices(qsim, -1, opts.K) {
			if qsim[j] < opts.Threshold {
				continue
			}
			g.Edges = append(g.Edges, Edge{A: q.ID, B: chunks[j].ID, Weight: qsim[j]})
		}
	}

	// Map iteration order is random; sort for a deterministic result.
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].A != g.Edges[j].A {
			return g.Edges[i].A < g.Edges[j].A
		}
		return g.Edges[i].B < g.Edges[j].B
	})

	return g, nil
}

// topKIndices returns the indices of the k largest values in sim, excluding
// self, ordered by descending value with index order breaking ties.
func topKIndices(sim []float32, self, k int) []int {
	idx := make([]int, 0, len(sim))
	for i := range sim {
		if i != self {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return sim[idx[a]] > sim[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// Neighbors returns, for each node ID, the IDs of nodes it shares an edge
// with, ordered by descending edge weight. Used by the UI's hover details.
func (g *Graph) Neighbors() map[string][]string {
	type weighted struct {
		id string
		w  float32
	}
	adj := make(map[string][]weighted)
	for _, e := range g.Edges {
		adj[e.A] = append(adj[e.A], weighted{e.B, e.Weight})
		adj[e.B] = append(adj[e.B], weighted{e.A, e.Weight})
	}

	out := make(map[string][]string, len(adj))
	for id, ns := range adj {
		sort.SliceStable(ns, func(i, j int) bool { return ns[i].w > ns[j].w })
		ids := make([]string, len(ns))
		for i, n := range ns {
			ids[i] = n.id
		}
		out[id] = ids
	}
	return out
}
