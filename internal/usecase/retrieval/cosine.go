package retrieval

import "math"

// norm returns the Euclidean length of v, accumulated in float64.
func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		f := float64(x)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// cosine returns the cosine similarity of q and v given q's precomputed norm.
// A zero-length vector on either side scores 0.
func cosine(q []float32, qNorm float64, v []float32) float64 {
	if qNorm == 0 {
		return 0
	}
	var dot, vv float64
	for i, x := range v {
		f := float64(x)
		dot += float64(q[i]) * f
		vv += f * f
	}
	if vv == 0 {
		return 0
	}
	return dot / (qNorm * math.Sqrt(vv))
}
