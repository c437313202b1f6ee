package rag

import (
	"context"
	"errors"
	"math"
	"testing"
)

func Test_MemoryStore_QueryEmptyCollection(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()

	results, err := s.Query(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("query on empty collection must not error, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("want empty results, got %d", len(results))
	}
}

func Test_MemoryStore_UpsertDimensionMismatch(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, []Chunk{{ID: "chunk-0", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	err := s.Upsert(ctx, []Chunk{{ID: "chunk-1", Vector: []float32{1, 0}}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}

	// The failed batch must not have mutated the store.
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("want 1 chunk after failed upsert, got %d", n)
	}
}

func Test_MemoryStore_UpsertReplacesByID(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, []Chunk{{ID: "chunk-0", Text: "old", Vector: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []Chunk{{ID: "chunk-0", Text: "new", Vector: []float32{0, 1}}}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("want 1 chunk, got %d", len(all))
	}
	if all[0].Text != "new" {
		t.Errorf("want replaced text, got %q", all[0].Text)
	}
}

func Test_MemoryStore_QuerySortedDescending(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	chunks := []Chunk{
		{ID: "chunk-0", Vector: []float32{1, 0, 0}},
		{ID: "chunk-1", Vector: []float32{0.9, 0.1, 0}},
		{ID: "chunk-2", Vector: []float32{0, 1, 0}},
		{ID: "chunk-3", Vector: []float32{0, 0, 1}},
	}
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := s.Query(ctx, []float32{1, 0, 0}, 4)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("want 4 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not descending at %d: %f > %f", i, results[i].Score, results[i-1].Score)
		}
	}
	if results[0].Chunk.ID != "chunk-0" {
		t.Errorf("want chunk-0 first, got %s", results[0].Chunk.ID)
	}
}

func Test_MemoryStore_SelfQueryScoresOne(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	vecs := [][]float32{
		{0.2, 0.5, 0.1},
		{0.9, 0.1, 0.3},
		{0.4, 0.4, 0.4},
		{0.1, 0.9, 0.2},
		{0.7, 0.2, 0.6},
		{0.3, 0.3, 0.9},
	}
	chunks := make([]Chunk, len(vecs))
	for i, v := range vecs {
		chunks[i] = Chunk{ID: "chunk-" + string(rune('0'+i)), Vector: v}
	}
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Query with chunk 5's own vector: it must come back first with
	// similarity 1.0 within floating-point tolerance.
	results, err := s.Query(ctx, vecs[5], 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("want 1 result, got %d", len(results))
	}
	if results[0].Chunk.ID != "chunk-5" {
		t.Errorf("want chunk-5, got %s", results[0].Chunk.ID)
	}
	if math.Abs(float64(results[0].Score)-1.0) > 1e-6 {
		t.Errorf("want score 1.0 ± 1e-6, got %f", results[0].Score)
	}
}

func Test_MemoryStore_TieBreakByInsertionOrder(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	// Two chunks with identical vectors: same score against any query.
	chunks := []Chunk{
		{ID: "first", Vector: []float32{1, 1, 0}},
		{ID: "second", Vector: []float32{1, 1, 0}},
	}
	if err := s.Upsert(ctx, chunks); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	results, err := s.Query(ctx, []float32{1, 1, 0}, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if results[0].Chunk.ID != "first" || results[1].Chunk.ID != "second" {
		t.Errorf("tie must resolve to insertion order, got %s then %s",
			results[0].Chunk.ID, results[1].Chunk.ID)
	}
}

func Test_MemoryStore_FewerResultsThanRequested(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, []Chunk{{ID: "chunk-0", Vector: []float32{1, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	results, err := s.Query(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("want 1 result, got %d", len(results))
	}
}

func Test_MemoryStore_ResetAllowsNewDimensionality(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Upsert(ctx, []Chunk{{ID: "chunk-0", Vector: []float32{1, 0, 0}}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("want empty store after reset, got %d", n)
	}
	// A different dimensionality is valid after reset (re-index semantics).
	if err := s.Upsert(ctx, []Chunk{{ID: "chunk-0", Vector: []float32{1, 0}}}); err != nil {
		t.Errorf("upsert after reset with new dims: %v", err)
	}
}

func Test_CosineSimilarity(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := float64(CosineSimilarity(tc.a, tc.b))
			if math.Abs(got-tc.want) > 1e-6 {
				t.Errorf("CosineSimilarity = %f, want %f", got, tc.want)
			}
		})
	}
}
