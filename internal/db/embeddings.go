package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medikacom/kgrag/internal/graph"
)

// EnsureVectorIndex records idx. An existing index with the same name must
// match it exactly.
func (d *DB) EnsureVectorIndex(ctx context.Context, idx graph.VectorIndex) error {
	if err := idx.Validate(); err != nil {
		return err
	}
	existing, err := d.vectorIndex(ctx, idx.Name)
	switch {
	case errors.Is(err, graph.ErrNotFound):
		_, err := d.conn.ExecContext(ctx, `
			INSERT INTO vector_indexes (name, label, property, dimensions, similarity, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, idx.Name, string(idx.Label), idx.Property, idx.Dimensions, string(idx.Similarity), d.nowMs())
		if err != nil {
			return fmt.Errorf("creating vector index %s: %w", idx.Name, err)
		}
		d.logger.Info("created vector index", "name", idx.Name, "dimensions", idx.Dimensions, "similarity", idx.Similarity)
		return nil
	case err != nil:
		return err
	}
	if existing != idx {
		return fmt.Errorf("%w: %s has %s(%s) dim=%d %s, want %s(%s) dim=%d %s", graph.ErrIndexMismatch,
			idx.Name, existing.Label, existing.Property, existing.Dimensions, existing.Similarity,
			idx.Label, idx.Property, idx.Dimensions, idx.Similarity)
	}
	return nil
}

func (d *DB) vectorIndex(ctx context.Context, name string) (graph.VectorIndex, error) {
	var idx graph.VectorIndex
	var label, sim string
	err := d.conn.QueryRowContext(ctx,
		`SELECT name, label, property, dimensions, similarity FROM vector_indexes WHERE name = ?`, name,
	).Scan(&idx.Name, &label, &idx.Property, &idx.Dimensions, &sim)
	if errors.Is(err, sql.ErrNoRows) {
		return idx, fmt.Errorf("vector index %s: %w", name, graph.ErrNotFound)
	}
	if err != nil {
		return idx, fmt.Errorf("loading vector index %s: %w", name, err)
	}
	idx.Label = graph.Label(label)
	idx.Similarity = graph.Similarity(sim)
	return idx, nil
}

// VectorSearch scores every embedded node under the index's label and
// returns the k nearest.
func (d *DB) VectorSearch(ctx context.Context, index string, k int, vec []float32) ([]graph.VectorHit, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}
	idx, err := d.vectorIndex(ctx, index)
	if err != nil {
		return nil, err
	}
	if len(vec) != idx.Dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index %s expects %d", len(vec), index, idx.Dimensions)
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, COALESCE(text, ''), COALESCE(original_category, ''),
		       COALESCE(chunk_sequence, -1), embedding
		FROM nodes WHERE label = ? AND embedding IS NOT NULL
	`, string(idx.Label))
	if err != nil {
		return nil, fmt.Errorf("scanning embeddings: %w", err)
	}
	defer rows.Close()

	hits := make(map[string]graph.VectorHit)
	var candidates []graph.Candidate
	for rows.Next() {
		var h graph.VectorHit
		var data []byte
		if err := rows.Scan(&h.ID, &h.Text, &h.Category, &h.Sequence, &data); err != nil {
			return nil, err
		}
		hits[h.ID] = h
		candidates = append(candidates, graph.Candidate{ID: h.ID, Embedding: bytesToEmbedding(data)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scored := graph.TopK(vec, candidates, k, idx.Similarity)
	result := make([]graph.VectorHit, 0, len(scored))
	for _, s := range scored {
		h := hits[s.ID]
		h.Score = s.Score
		result = append(result, h)
	}
	return result, nil
}
