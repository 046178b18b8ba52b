package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{1, 1}, []float32{5, 5}, 1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"empty", nil, nil, 0},
		{"length mismatch uses prefix", []float32{1, 0, 9}, []float32{1, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	randomVector := func() []float32 {
		v := make([]float32, 16)
		for i := range v {
			v[i] = rng.Float32()*2 - 1
		}
		return v
	}

	for i := 0; i < 50; i++ {
		a, b := randomVector(), randomVector()

		ab := CosineSimilarity(a, b)
		ba := CosineSimilarity(b, a)

		assert.InDelta(t, ab, ba, 1e-12, "symmetry")
		assert.GreaterOrEqual(t, ab, -1.0)
		assert.LessOrEqual(t, ab, 1.0)
		assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-6, "self similarity")
	}
}
