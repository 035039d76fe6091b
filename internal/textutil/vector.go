package textutil

import (
	"hash/fnv"
	"math"
)

// DefaultVectorDims caps the dimensionality of term vectors. Hashed term
// features above this fold back into existing buckets.
const DefaultVectorDims = 256

// Vector builds a fixed-dimensional term-frequency vector for text.
// Tokens are analyzed, hashed with fnv into one of dims buckets, and
// weights are log-scaled so a single repeated word cannot dominate.
func Vector(text string, dims int) []float32 {
	if dims <= 0 {
		dims = DefaultVectorDims
	}

	vec := make([]float32, dims)
	tokens := Tokens(text)
	if len(tokens) == 0 {
		return vec
	}

	counts := make(map[uint32]float64, len(tokens))
	for _, token := range tokens {
		counts[hashToken(token)%uint32(dims)]++
	}

	for idx, tf := range counts {
		vec[idx] = float32(1 + math.Log(tf))
	}

	return vec
}

// IsZero reports whether the vector has no non-zero component, which
// happens when the analyzer dropped every token.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}
