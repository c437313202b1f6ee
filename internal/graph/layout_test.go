package graph

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/54b3r/ragviz/internal/rag"
)

func layoutTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Build(testChunks(), Options{K: 2, Threshold: 0})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return g
}

func Test_ComputeLayout_UnknownAlgorithm(t *testing.T) {
	t.Parallel()
	_, err := ComputeLayout(layoutTestGraph(t), "hexagonal")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("want ErrInvalidConfig, got %v", err)
	}
}

func Test_ComputeLayout_CoversAllNodes(t *testing.T) {
	t.Parallel()
	g := layoutTestGraph(t)
	for _, algo := range []string{LayoutSpring, LayoutCircular, LayoutLayered} {
		pos, err := ComputeLayout(g, algo)
		if err != nil {
			t.Fatalf("%s: %v", algo, err)
		}
		if len(pos) != len(g.Nodes) {
			t.Errorf("%s: want %d positions, got %d", algo, len(g.Nodes), len(pos))
		}
		for _, node := range g.Nodes {
			if _, ok := pos[node.ID]; !ok {
				t.Errorf("%s: missing position for %s", algo, node.ID)
			}
		}
	}
}

func Test_SpringLayout_Deterministic(t *testing.T) {
	t.Parallel()
	g := layoutTestGraph(t)
	a, err := ComputeLayout(g, LayoutSpring)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	b, err := ComputeLayout(g, LayoutSpring)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("seeded spring layout must be reproducible")
	}
}

func Test_CircularLayout_NodesOnCircle(t *testing.T) {
	t.Parallel()
	pos, err := ComputeLayout(layoutTestGraph(t), LayoutCircular)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	for id, p := range pos {
		r := math.Hypot(p.X, p.Y)
		if math.Abs(r-layoutScale) > 1e-6 {
			t.Errorf("%s: want radius %f, got %f", id, layoutScale, r)
		}
	}
}

func Test_LayeredLayout_RootOnTopLayer(t *testing.T) {
	t.Parallel()
	// Star graph: hub connects to three leaves; hub has the highest degree
	// and must sit alone on the top layer.
	chunks := []rag.Chunk{
		{ID: "hub", Vector: []float32{1, 1, 1}},
		{ID: "leaf-a", Vector: []float32{1, 0, 0}},
		{ID: "leaf-b", Vector: []float32{0, 1, 0}},
		{ID: "leaf-c", Vector: []float32{0, 0, 1}},
	}
	g, err := Build(chunks, Options{K: 1, Threshold: 0})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	pos, err := ComputeLayout(g, LayoutLayered)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	hubY := pos["hub"].Y
	for id, p := range pos {
		if id != "hub" && p.Y >= hubY {
			t.Errorf("%s must be below the hub: %f >= %f", id, p.Y, hubY)
		}
	}
}

func Test_SpringLayout_SingleNode(t *testing.T) {
	t.Parallel()
	g, err := Build([]rag.Chunk{{ID: "only", Vector: []float32{1}}}, Options{K: 1})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	pos, err := ComputeLayout(g, LayoutSpring)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if p := pos["only"]; p.X != 0 || p.Y != 0 {
		t.Errorf("single node belongs at the origin, got %+v", p)
	}
}
