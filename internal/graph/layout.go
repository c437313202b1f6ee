package graph

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Layout algorithm names accepted by ComputeLayout.
const (
	// LayoutSpring is a seeded force-directed (Fruchterman–Reingold) layout.
	LayoutSpring = "spring"
	// LayoutCircular places nodes evenly on a circle in node order.
	LayoutCircular = "circular"
	// LayoutLayered arranges nodes in horizontal layers by graph distance
	// from the highest-degree node. Fully deterministic, no randomness.
	LayoutLayered = "layered"
)

// layoutSeed fixes the spring layout's initial placement so repeated renders
// of the same graph are identical.
const layoutSeed = 42

// Position is a 2D node coordinate, scaled to roughly [-scale, scale].
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// layoutScale is the coordinate range positions are normalized to.
const layoutScale = 500.0

// ComputeLayout returns a position for every node in g using the named
// algorithm. The result maps node ID to position.
func ComputeLayout(g *Graph, algorithm string) (map[string]Position, error) {
	switch algorithm {
	case LayoutSpring, "":
		return springLayout(g), nil
	case LayoutCircular:
		return circularLayout(g), nil
	case LayoutLayered:
		return layeredLayout(g), nil
	default:
		return nil, fmt.Errorf("%w: unknown layout %q — valid values: spring, circular, layered", ErrInvalidConfig, algorithm)
	}
}

// circularLayout places the nodes evenly spaced on a circle, in node order.
func circularLayout(g *Graph) map[string]Position {
	pos := make(map[string]Position, len(g.Nodes))
	n := len(g.Nodes)
	for i, node := range g.Nodes {
		angle := 2 * math.Pi * float64(i) / float64(max(n, 1))
		pos[node.ID] = Position{
			X: layoutScale * math.Cos(angle),
			Y: layoutScale * math.Sin(angle),
		}
	}
	return pos
}

// springLayout runs a seeded Fruchterman–Reingold simulation: all node pairs
// repel with force k²/d, edge endpoints attract with force d²/k weighted by
// similarity, and a cooling schedule caps per-step displacement. The fixed
// seed makes the result reproducible for identical graphs.
func springLayout(g *Graph) map[string]Position {
	n := len(g.Nodes)
	pos := make(map[string]Position, n)
	if n == 0 {
		return pos
	}
	if n == 1 {
		pos[g.Nodes[0].ID] = Position{}
		return pos
	}

	rng := rand.New(rand.NewSource(layoutSeed))

	idx := make(map[string]int, n)
	x := make([]float64, n)
	y := make([]float64, n)
	for i, node := range g.Nodes {
		idx[node.ID] = i
		x[i] = rng.Float64()*2 - 1
		y[i] = rng.Float64()*2 - 1
	}

	const iterations = 50
	area := 4.0 // initial placement spans [-1,1]²
	k := math.Sqrt(area / float64(n))
	temp := 0.2

	dx := make([]float64, n)
	dy := make([]float64, n)
	for it := 0; it < iterations; it++ {
		for i := range dx {
			dx[i], dy[i] = 0, 0
		}

		// Repulsion between all pairs.
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				vx, vy := x[i]-x[j], y[i]-y[j]
				d := math.Hypot(vx, vy)
				if d < 1e-9 {
					// Coincident nodes: nudge apart deterministically.
					vx, vy, d = 1e-4, 1e-4, 1e-4*math.Sqrt2
				}
				f := k * k / d
				dx[i] += vx / d * f
				dy[i] += vy / d * f
				dx[j] -= vx / d * f
				dy[j] -= vy / d * f
			}
		}

		// Attraction along edges, scaled by similarity so tightly related
		// chunks pull closer.
		for _, e := range g.Edges {
			i, j := idx[e.A], idx[e.B]
			vx, vy := x[i]-x[j], y[i]-y[j]
			d := math.Hypot(vx, vy)
			if d < 1e-9 {
				continue
			}
			f := d * d / k * float64(e.Weight)
			dx[i] -= vx / d * f
			dy[i] -= vy / d * f
			dx[j] += vx / d * f
			dy[j] += vy / d * f
		}

		// Apply displacement, capped by the current temperature.
		for i := 0; i < n; i++ {
			d := math.Hypot(dx[i], dy[i])
			if d < 1e-9 {
				continue
			}
			step := math.Min(d, temp)
			x[i] += dx[i] / d * step
			y[i] += dy[i] / d * step
		}
		temp *= 0.95
	}

	normalize(x, y)
	for i, node := range g.Nodes {
		pos[node.ID] = Position{X: x[i], Y: y[i]}
	}
	return pos
}

// layeredLayout does a breadth-first traversal from the highest-degree node
// (ties to the earlier node) and arranges each BFS depth as a horizontal
// layer, nodes evenly spaced left to right. Disconnected components start
// new root layers below the previous component.
func layeredLayout(g *Graph) map[string]Position {
	n := len(g.Nodes)
	pos := make(map[string]Position, n)
	if n == 0 {
		return pos
	}

	adj := make(map[string][]string, n)
	degree := make(map[string]int, n)
	for _, e := range g.Edges {
		adj[e.A] = append(adj[e.A], e.B)
		adj[e.B] = append(adj[e.B], e.A)
		degree[e.A]++
		degree[e.B]++
	}
	// Deterministic neighbor order.
	for _, ns := range adj {
		sort.Strings(ns)
	}

	visited := make(map[string]bool, n)
	var layers [][]string

	// Components in order of their best root: highest degree, then node order.
	order := make([]Node, len(g.Nodes))
	copy(order, g.Nodes)
	sort.SliceStable(order, func(i, j int) bool {
		return degree[order[i].ID] > degree[order[j].ID]
	})

	for _, root := range order {
		if visited[root.ID] {
			continue
		}
		frontier := []string{root.ID}
		visited[root.ID] = true
		for len(frontier) > 0 {
			layers = append(layers, frontier)
			var next []string
			for _, id := range frontier {
				for _, nb := range adj[id] {
					if !visited[nb] {
						visited[nb] = true
						next = append(next, nb)
					}
				}
			}
			frontier = next
		}
	}

	rows := len(layers)
	for row, layer := range layers {
		var yCoord float64
		if rows > 1 {
			yCoord = layoutScale - 2*layoutScale*float64(row)/float64(rows-1)
		}
		for col, id := range layer {
			var xCoord float64
			if len(layer) > 1 {
				xCoord = -layoutScale + 2*layoutScale*float64(col)/float64(len(layer)-1)
			}
			pos[id] = Position{X: xCoord, Y: yCoord}
		}
	}
	return pos
}

// normalize rescales coordinates so the widest axis spans [-layoutScale,
// layoutScale], centered on the origin.
func normalize(x, y []float64) {
	minX, maxX := minMax(x)
	minY, maxY := minMax(y)
	span := math.Max(maxX-minX, maxY-minY)
	if span < 1e-9 {
		return
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	for i := range x {
		x[i] = (x[i] - cx) / span * 2 * layoutScale
		y[i] = (y[i] - cy) / span * 2 * layoutScale
	}
}

// minMax returns the smallest and largest values in v.
func minMax(v []float64) (lo, hi float64) {
	lo, hi = v[0], v[0]
	for _, f := range v[1:] {
		lo = math.Min(lo, f)
		hi = math.Max(hi, f)
	}
	return lo, hi
}
