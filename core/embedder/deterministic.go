package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultDeterministicDim is the vector width used when no dimension is
// configured for the local embedder.
const DefaultDeterministicDim = 256

// Deterministic is a local, dependency-free embedder. Each token is hashed
// into a fixed number of buckets and the resulting bag-of-words vector is
// L2-normalized, so texts sharing vocabulary land close under cosine
// distance. Used by tests and as the offline fallback; the mapping from text
// to vector is stable across runs.
type Deterministic struct {
	dimension int
}

// NewDeterministic creates a local embedder with the given dimension.
func NewDeterministic(dimension int) *Deterministic {
	if dimension <= 0 {
		dimension = DefaultDeterministicDim
	}
	return &Deterministic{dimension: dimension}
}

func (d *Deterministic) Dimension() int {
	return d.dimension
}

func (d *Deterministic) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	return d.embed(text), nil
}

func (d *Deterministic) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := d.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

func (d *Deterministic) embed(text string) []float32 {
	vec := make([]float32, d.dimension)

	for _, token := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		bucket := int(sum % uint64(d.dimension))
		// Sign bit from the hash spreads tokens over both hemispheres.
		if sum&(1<<63) != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}

	var mag float64
	for _, v := range vec {
		mag += float64(v * v)
	}
	if mag == 0 {
		return vec
	}
	invMag := float32(1.0 / math.Sqrt(mag))
	for i := range vec {
		vec[i] *= invMag
	}
	return vec
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
