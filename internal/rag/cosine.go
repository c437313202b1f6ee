package rag

import "math"

// CosineSimilarity returns the cosine similarity of a and b: their dot
// product divided by the product of their magnitudes. Returns 0 when the
// lengths differ or either vector is all-zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// ClampScore maps a raw cosine similarity into [0,1]. Negative similarity
// (opposing vectors) clamps to 0 so UI thresholds and edge weights share one
// range; values marginally above 1 from floating-point error clamp to 1.
func ClampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
