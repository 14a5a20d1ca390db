// Package embeddings provides utilities for embedding vectors (L2 normalization, cosine similarity).
package embeddings

import (
	"errors"
	"math"
)

// Float is the element type of an embedding vector.
type Float interface {
	~float32 | ~float64
}

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("embeddings must have the same dimensions")

// ErrNoCandidates is returned by MostSimilar when the candidate list is empty.
var ErrNoCandidates = errors.New("no candidate embeddings")

// NormalizeL2 scales vector to unit length in place.
// A zero vector is left unchanged.
func NormalizeL2[T Float](vector []T) {
	magnitude := math.Sqrt(sumSquares(vector))
	if magnitude == 0 {
		return
	}

	for i := range vector {
		vector[i] = T(float64(vector[i]) / magnitude)
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It returns 0 when either vector has zero magnitude.
func CosineSimilarity[T Float](a, b []T) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	normA := math.Sqrt(sumSquares(a))
	normB := math.Sqrt(sumSquares(b))

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (normA * normB), nil
}

// MostSimilar returns the index and similarity of the candidate closest to query.
// Ties resolve to the lowest index.
func MostSimilar[T Float](query []T, candidates [][]T) (int, float64, error) {
	if len(candidates) == 0 {
		return -1, 0, ErrNoCandidates
	}

	best, bestScore := 0, math.Inf(-1)

	for i, candidate := range candidates {
		score, err := CosineSimilarity(query, candidate)
		if err != nil {
			return -1, 0, err
		}

		if score > bestScore {
			best, bestScore = i, score
		}
	}

	return best, bestScore, nil
}

func sumSquares[T Float](vector []T) float64 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}

	return sum
}
