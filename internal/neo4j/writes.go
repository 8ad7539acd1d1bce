package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"medikacom/kgrag/internal/graph"
)

// txWriter is the graph.Writer handed to Update callbacks.
type txWriter struct {
	store *Store
	tx    neo4j.ManagedTransaction
}

var _ graph.Writer = (*txWriter)(nil)

func (w *txWriter) single(ctx context.Context, query string, params map[string]any) (*neo4j.Record, error) {
	res, err := w.tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return res.Single(ctx)
}

func (w *txWriter) UpsertNode(ctx context.Context, label graph.Label, keyProperty, keyValue string, props graph.Properties) (string, error) {
	query, err := upsertNodeQuery(label, keyProperty)
	if err != nil {
		return "", err
	}
	merged := props.Clone()
	merged[keyProperty] = keyValue
	rec, err := w.single(ctx, query, map[string]any{"key": keyValue, "props": map[string]any(merged)})
	if err != nil {
		return "", fmt.Errorf("upserting %s %q: %w", label, keyValue, err)
	}
	return str(rec, "id"), nil
}

func (w *txWriter) CreateNode(ctx context.Context, label graph.Label, chunk graph.NewChunk) (string, error) {
	query, err := createNodeQuery(label)
	if err != nil {
		return "", err
	}
	props := chunk.Properties(w.store.embeddingProperty)
	props[w.store.embeddingProperty] = toFloat64s(chunk.Embedding)
	rec, err := w.single(ctx, query, map[string]any{"props": map[string]any(props)})
	if err != nil {
		return "", fmt.Errorf("creating %s node: %w", label, err)
	}
	return str(rec, "id"), nil
}

func (w *txWriter) MergeRelationship(ctx context.Context, fromID, toID string, rel graph.RelType) error {
	query, err := mergeRelationshipQuery(rel)
	if err != nil {
		return err
	}
	res, err := w.tx.Run(ctx, query, map[string]any{"from": fromID, "to": toID})
	if err != nil {
		return fmt.Errorf("merging %s edge: %w", rel, err)
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return fmt.Errorf("merging %s edge: %w", rel, err)
	}
	if len(records) == 0 || integer(records[0], "merged", 0) == 0 {
		return fmt.Errorf("merging %s edge %s -> %s: %w", rel, fromID, toID, graph.ErrNotFound)
	}
	return nil
}

func (w *txWriter) Chain(ctx context.Context, parentID string, anchor graph.RelType) ([]graph.Chunk, error) {
	query, err := chainQuery(anchor)
	if err != nil {
		return nil, err
	}
	return collectChunks(ctx, w.tx, query, map[string]any{"parent": parentID})
}

// DeleteSubgraph detaches and deletes ids.
func (w *txWriter) DeleteSubgraph(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := w.tx.Run(ctx, deleteSubgraphQuery, map[string]any{"ids": ids})
	if err != nil {
		return 0, fmt.Errorf("deleting nodes: %w", err)
	}
	summary, err := res.Consume(ctx)
	if err != nil {
		return 0, fmt.Errorf("deleting nodes: %w", err)
	}
	return summary.Counters().NodesDeleted(), nil
}
