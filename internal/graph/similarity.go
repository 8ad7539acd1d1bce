package graph

import (
	"math"
	"sort"
)

// Candidate is a stored vector considered by TopK.
type Candidate struct {
	ID        string
	Embedding []float32
}

// Scored is a candidate id with its similarity to the query.
type Scored struct {
	ID    string
	Score float64
}

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanSimilarity maps euclidean distance into (0, 1] the way Neo4j
// vector indexes do: 1 / (1 + d²).
func EuclideanSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	var d2 float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		d2 += d * d
	}
	return 1.0 / (1.0 + d2)
}

// TopK scores every candidate against target and returns the k best, highest
// first. Candidates whose dimension differs from target are skipped. Ties are
// broken by id so results are deterministic.
func TopK(target []float32, candidates []Candidate, k int, sim Similarity) []Scored {
	if k <= 0 || len(target) == 0 {
		return nil
	}
	score := CosineSimilarity
	if sim == SimilarityEuclidean {
		score = EuclideanSimilarity
	}

	results := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) != len(target) {
			continue
		}
		results = append(results, Scored{ID: c.ID, Score: score(target, c.Embedding)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}
