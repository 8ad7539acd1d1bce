package graph

import (
	"math"
	"testing"
)

func TestCosineSimilarity_Identical(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{1, 2, 3}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim-1.0) > 0.0001 {
		t.Errorf("expected ~1.0, got %f", sim)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim) > 0.0001 {
		t.Errorf("expected ~0.0, got %f", sim)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}
	sim := CosineSimilarity(a, b)
	if math.Abs(sim+1.0) > 0.0001 {
		t.Errorf("expected ~-1.0, got %f", sim)
	}
}

func TestCosineSimilarity_ZeroNorm(t *testing.T) {
	a := []float32{0, 0, 0}
	b := []float32{1, 0, 0}
	if sim := CosineSimilarity(a, b); sim != 0.0 {
		t.Errorf("expected 0.0, got %f", sim)
	}
}

func TestCosineSimilarity_MismatchedLength(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0, 0}
	if sim := CosineSimilarity(a, b); sim != 0.0 {
		t.Errorf("expected 0.0 for mismatched lengths, got %f", sim)
	}
}

func TestEuclideanSimilarity(t *testing.T) {
	if sim := EuclideanSimilarity([]float32{1, 1}, []float32{1, 1}); sim != 1.0 {
		t.Errorf("identical vectors should score 1.0, got %f", sim)
	}
	// d² = 4 -> 1/5
	if sim := EuclideanSimilarity([]float32{0, 0}, []float32{2, 0}); math.Abs(sim-0.2) > 1e-9 {
		t.Errorf("expected 0.2, got %f", sim)
	}
}

func TestTopK_Basic(t *testing.T) {
	target := []float32{1, 0, 0}
	candidates := []Candidate{
		{ID: "a", Embedding: []float32{1, 0, 0}},
		{ID: "b", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "c", Embedding: []float32{0, 1, 0}},
		{ID: "d", Embedding: []float32{-1, 0, 0}},
	}
	results := TopK(target, candidates, 2, SimilarityCosine)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("expected 'a' first, got '%s'", results[0].ID)
	}
	if results[1].ID != "b" {
		t.Errorf("expected 'b' second, got '%s'", results[1].ID)
	}
}

func TestTopK_SkipsWrongDimension(t *testing.T) {
	target := []float32{1, 0}
	candidates := []Candidate{
		{ID: "short", Embedding: []float32{1}},
		{ID: "ok", Embedding: []float32{0.5, 0.5}},
		{ID: "empty"},
	}
	results := TopK(target, candidates, 5, SimilarityCosine)
	if len(results) != 1 || results[0].ID != "ok" {
		t.Fatalf("expected only 'ok', got %+v", results)
	}
}

func TestTopK_TiesBrokenByID(t *testing.T) {
	target := []float32{1, 0}
	candidates := []Candidate{
		{ID: "z", Embedding: []float32{2, 0}},
		{ID: "m", Embedding: []float32{1, 0}},
	}
	results := TopK(target, candidates, 2, SimilarityCosine)
	if results[0].ID != "m" || results[1].ID != "z" {
		t.Errorf("expected tie order m,z got %s,%s", results[0].ID, results[1].ID)
	}
}

func TestTopK_NonPositiveK(t *testing.T) {
	if got := TopK([]float32{1}, []Candidate{{ID: "a", Embedding: []float32{1}}}, 0, SimilarityCosine); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}
