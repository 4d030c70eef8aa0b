package vectorstore

import (
	"math"
	"testing"
)

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 14,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0, 0},
			b:        []float32{0, 1, 0},
			expected: 0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{-1, -2, -3},
			expected: -14,
		},
		{
			name:     "length mismatch returns zero",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DotProduct(tt.a, tt.b)
			if result != tt.expected {
				t.Errorf("DotProduct() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{
			name:     "identical vectors have zero distance",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 0,
		},
		{
			name:     "orthogonal vectors have distance one",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 1,
		},
		{
			name:     "opposite vectors have distance two",
			a:        []float32{1, 0},
			b:        []float32{-1, 0},
			expected: 2,
		},
		{
			name:     "zero vector is maximally distant",
			a:        []float32{0, 0},
			b:        []float32{1, 1},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CosineDistanceVectors(tt.a, tt.b)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("CosineDistanceVectors() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDistanceSimilarityConsistency(t *testing.T) {
	a := []float32{0.3, 0.8, 0.1}
	b := []float32{0.5, 0.2, 0.9}
	magA, magB := Magnitude(a), Magnitude(b)

	dist := CosineDistance(a, b, magA, magB)
	sim := CosineSimilarity(a, b, magA, magB)
	if math.Abs(dist-(1.0-sim)) > 1e-12 {
		t.Errorf("distance %v should equal 1 - similarity %v", dist, sim)
	}
}
