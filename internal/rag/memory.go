package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a VectorStore holding the collection in process memory.
// It is the default session store: the visualizer's collection only needs to
// outlive the process, and exact brute-force cosine search over a few hundred
// chunks is faster than a round-trip to an external engine.
//
// Chunks are kept in insertion order, which doubles as the tie-break order
// for equal similarity scores.
type MemoryStore struct {
	mu sync.RWMutex

	// chunks holds the collection in insertion order.
	chunks []Chunk

	// index maps chunk ID to its position in chunks for upsert-by-ID.
	index map[string]int

	// dims is the collection dimensionality, fixed by the first upsert
	// after construction or Reset. Zero means the collection is empty.
	dims int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

// Upsert stores chunks, replacing entries that share an ID. The whole batch
// is validated before any mutation so a dimension mismatch leaves the store
// untouched.
func (s *MemoryStore) Upsert(_ context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dims := s.dims
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("rag: chunk %s has no vector", c.ID)
		}
		if dims == 0 {
			dims = len(c.Vector)
			continue
		}
		if len(c.Vector) != dims {
			return fmt.Errorf("%w: chunk %s has %d dimensions, collection has %d — re-index required",
				ErrDimensionMismatch, c.ID, len(c.Vector), dims)
		}
	}

	for _, c := range chunks {
		if pos, ok := s.index[c.ID]; ok {
			s.chunks[pos] = c
			continue
		}
		s.index[c.ID] = len(s.chunks)
		s.chunks = append(s.chunks, c)
	}
	s.dims = dims
	return nil
}

// Query scores every stored chunk against vector and returns the top n.
// Sorting is stable over insertion order, so equal scores resolve to the
// earlier-inserted chunk.
func (s *MemoryStore) Query(_ context.Context, vector []float32, n int) ([]Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("rag: result count must be positive, got %d", n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, Result{
			Chunk: c,
			Score: ClampScore(CosineSimilarity(vector, c.Vector)),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if n < len(results) {
		results = results[:n]
	}
	return results, nil
}

// All returns a copy of the collection in insertion order.
func (s *MemoryStore) All(_ context.Context) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

// Count returns the number of stored chunks.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Reset discards all chunks and releases the dimensionality constraint so
// the next upsert may use a different embedding backend.
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = nil
	s.index = make(map[string]int)
	s.dims = 0
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
