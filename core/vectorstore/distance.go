package vectorstore

import "math"

// DotProduct computes the dot product of two vectors.
// Returns 0 if vectors have different lengths.
func DotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Magnitude computes the L2 norm of a vector.
func Magnitude(v []float32) float64 {
	return math.Sqrt(float64(DotProduct(v, v)))
}

// CosineSimilarity computes cosine similarity using pre-computed magnitudes.
// Returns 0 if either magnitude is zero.
func CosineSimilarity(a, b []float32, magA, magB float64) float64 {
	if magA == 0 || magB == 0 {
		return 0
	}
	return float64(DotProduct(a, b)) / (magA * magB)
}

// CosineDistance computes cosine distance, 1 - similarity, in [0, 2].
// Zero-magnitude vectors are maximally distant.
func CosineDistance(a, b []float32, magA, magB float64) float64 {
	if magA == 0 || magB == 0 {
		return 2.0
	}
	return 1.0 - CosineSimilarity(a, b, magA, magB)
}

// CosineDistanceVectors computes cosine distance, computing magnitudes.
func CosineDistanceVectors(a, b []float32) float64 {
	return CosineDistance(a, b, Magnitude(a), Magnitude(b))
}
