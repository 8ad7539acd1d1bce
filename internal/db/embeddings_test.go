package db

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medikacom/kgrag/internal/graph"
)

func TestBytesToEmbedding_KnownValues(t *testing.T) {
	// float32(1.0) in LE = 0x3F800000 = [0x00, 0x00, 0x80, 0x3F]
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(1.0))
	binary.LittleEndian.PutUint32(data[4:8], math.Float32bits(-0.5))

	result := bytesToEmbedding(data)
	if len(result) != 2 {
		t.Fatalf("expected 2 floats, got %d", len(result))
	}
	if result[0] != 1.0 || result[1] != -0.5 {
		t.Errorf("expected [1 -0.5], got %v", result)
	}
}

func TestBytesToEmbedding_ShortChunk(t *testing.T) {
	data := make([]byte, 5)
	binary.LittleEndian.PutUint32(data[0:4], math.Float32bits(2.5))
	data[4] = 0xFF

	result := bytesToEmbedding(data)
	if len(result) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(result))
	}
	if result[1] != 0.0 {
		t.Errorf("trailing chunk should be 0.0, got %f", result[1])
	}
}

func TestEmbeddingToBytes(t *testing.T) {
	if embeddingToBytes(nil) != nil {
		t.Error("nil embedding should encode to nil")
	}
	in := make([]float32, 1024)
	for i := range in {
		in[i] = float32(i) * 0.001
	}
	out := bytesToEmbedding(embeddingToBytes(in))
	if len(out) != 1024 {
		t.Fatalf("expected 1024 dims, got %d", len(out))
	}
	if out[500] != in[500] {
		t.Errorf("expected %f, got %f", in[500], out[500])
	}
}

func testIndex(dims int) graph.VectorIndex {
	return graph.VectorIndex{
		Name:       "vector_school_content_chunks_index",
		Label:      graph.LabelChunk,
		Property:   "embedding",
		Dimensions: dims,
		Similarity: graph.SimilarityCosine,
	}
}

func TestEnsureVectorIndex(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.EnsureVectorIndex(ctx, testIndex(3)))
	require.NoError(t, d.EnsureVectorIndex(ctx, testIndex(3)), "same definition is a no-op")

	err := d.EnsureVectorIndex(ctx, testIndex(4))
	assert.True(t, errors.Is(err, graph.ErrIndexMismatch), "got %v", err)

	bad := testIndex(3)
	bad.Name = "bad name"
	assert.ErrorIs(t, d.EnsureVectorIndex(ctx, bad), graph.ErrInvalidIdentifier)
}

func TestVectorSearch(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, d.EnsureVectorIndex(ctx, testIndex(3)))

	ids := map[string]string{}
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		for _, c := range []graph.NewChunk{
			{Text: "x axis", Embedding: []float32{1, 0, 0}, Category: "A", Sequence: 1},
			{Text: "near x", Embedding: []float32{0.9, 0.1, 0}, Category: "A", Sequence: 2},
			{Text: "y axis", Embedding: []float32{0, 1, 0}, Category: "B", Sequence: 1},
			{Text: "no vector", Category: "B", Sequence: 2},
		} {
			id, err := w.CreateNode(ctx, graph.LabelChunk, c)
			if err != nil {
				return err
			}
			ids[c.Text] = id
		}
		return nil
	}))

	hits, err := d.VectorSearch(ctx, "vector_school_content_chunks_index", 2, []float32{1, 0, 0})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, ids["x axis"], hits[0].ID)
	assert.Equal(t, "x axis", hits[0].Text)
	assert.Equal(t, "A", hits[0].Category)
	assert.Equal(t, 1, hits[0].Sequence)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, ids["near x"], hits[1].ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	_, err = d.VectorSearch(ctx, "missing_index", 2, []float32{1, 0, 0})
	assert.ErrorIs(t, err, graph.ErrNotFound)

	_, err = d.VectorSearch(ctx, "vector_school_content_chunks_index", 2, []float32{1, 0})
	assert.Error(t, err, "dimension mismatch")

	hits, err = d.VectorSearch(ctx, "vector_school_content_chunks_index", 2, nil)
	assert.NoError(t, err)
	assert.Empty(t, hits)
}
