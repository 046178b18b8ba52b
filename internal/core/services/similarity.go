package services

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
//
// When either vector has zero magnitude the divisor is clamped to 1, which
// yields 0. Vectors of different length are compared over their common
// prefix; callers that need strict dimensionality check it themselves.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	divisor := math.Sqrt(normA) * math.Sqrt(normB)
	if divisor == 0 {
		divisor = 1
	}

	sim := dot / divisor
	// Rounding can push parallel vectors a hair past the bounds.
	return math.Max(-1, math.Min(1, sim))
}
