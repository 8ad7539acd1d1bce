package db

import (
	"context"
	"fmt"
	"strings"

	"medikacom/kgrag/internal/graph"
)

// txWriter is the graph.Writer handed to Update callbacks.
type txWriter struct {
	db *DB
	q  querier
}

var _ graph.Writer = (*txWriter)(nil)

func (w *txWriter) UpsertNode(ctx context.Context, label graph.Label, keyProperty, keyValue string, props graph.Properties) (string, error) {
	return upsertNode(ctx, w.q, w.db.nowMs(), label, keyProperty, keyValue, props)
}

func (w *txWriter) CreateNode(ctx context.Context, label graph.Label, chunk graph.NewChunk) (string, error) {
	return createChunk(ctx, w.q, w.db.nowMs(), label, chunk)
}

func (w *txWriter) MergeRelationship(ctx context.Context, fromID, toID string, rel graph.RelType) error {
	return mergeRelationship(ctx, w.q, w.db.nowMs(), fromID, toID, rel)
}

func (w *txWriter) Chain(ctx context.Context, parentID string, anchor graph.RelType) ([]graph.Chunk, error) {
	return chain(ctx, w.q, parentID, anchor)
}

// DeleteSubgraph removes ids and every edge touching them.
func (w *txWriter) DeleteSubgraph(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	edgeArgs := append(append([]any{}, args...), args...)
	if _, err := w.q.ExecContext(ctx,
		`DELETE FROM edges WHERE source_id IN (`+placeholders+`) OR target_id IN (`+placeholders+`)`,
		edgeArgs...); err != nil {
		return 0, fmt.Errorf("deleting edges: %w", err)
	}

	res, err := w.q.ExecContext(ctx, `DELETE FROM nodes WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting nodes: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
