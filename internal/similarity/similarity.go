// Package similarity holds the vector math and the match policy applied to
// face embeddings.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

// MatchThreshold is the cosine similarity two embeddings must exceed to be
// reported as the same person. Tuned for ArcFace embeddings.
const MatchThreshold = 0.30

// ErrZeroVector is returned when a vector has no direction.
var ErrZeroVector = errors.New("zero-length vector")

// Vector is an embedding in float64 precision.
type Vector []float64

// FromFloat32 widens a detector embedding.
func FromFloat32(values []float32) Vector {
	v := make(Vector, len(values))
	for i, x := range values {
		v[i] = float64(x)
	}
	return v
}

// Norm returns the Euclidean length of v.
func Norm(v Vector) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit length. It always divides, even when v
// is already normalized.
func Normalize(v Vector) (Vector, error) {
	norm := Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, ErrZeroVector
	}
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out, nil
}

// Cosine returns dot(a, b) / (|a| * |b|).
func Cosine(a, b Vector) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ (%d vs %d)", len(a), len(b))
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	denom := Norm(a) * Norm(b)
	if denom == 0 {
		return 0, ErrZeroVector
	}
	return dot / denom, nil
}

// IsMatch applies the strict threshold.
func IsMatch(score float64) bool {
	return score > MatchThreshold
}
