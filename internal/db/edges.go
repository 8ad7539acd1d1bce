package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"medikacom/kgrag/internal/graph"
)

func mergeRelationship(ctx context.Context, q querier, nowMs int64, fromID, toID string, rel graph.RelType) error {
	if err := rel.Validate(); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		INSERT INTO edges (id, source_id, target_id, type, created_at)
		SELECT ?, ?, ?, ?, ?
		WHERE EXISTS (SELECT 1 FROM nodes WHERE id = ?)
		  AND EXISTS (SELECT 1 FROM nodes WHERE id = ?)
		ON CONFLICT(source_id, target_id, type) DO NOTHING
	`, uuid.NewString(), fromID, toID, string(rel), nowMs, fromID, toID)
	if err != nil {
		return fmt.Errorf("merging %s edge: %w", rel, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the edge already exists or an endpoint is missing.
		var endpoints int
		err := q.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM nodes WHERE id IN (?, ?)`, fromID, toID).Scan(&endpoints)
		if err != nil {
			return err
		}
		want := 2
		if fromID == toID {
			want = 1
		}
		if endpoints < want {
			return fmt.Errorf("merging %s edge %s -> %s: %w", rel, fromID, toID, graph.ErrNotFound)
		}
	}
	return nil
}

// allEdgeInfos loads every edge in the lightweight form used for analysis.
func allEdgeInfos(ctx context.Context, q querier) ([]graph.EdgeInfo, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, source_id, target_id, type, created_at FROM edges`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []graph.EdgeInfo
	for rows.Next() {
		var e graph.EdgeInfo
		var rel string
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &rel, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.RelType = graph.RelType(rel)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// Snapshot loads the whole graph for integrity analysis.
func (d *DB) Snapshot(ctx context.Context) (*graph.Snapshot, error) {
	nodes, err := allNodeInfos(ctx, d.conn)
	if err != nil {
		return nil, fmt.Errorf("loading nodes: %w", err)
	}
	edges, err := allEdgeInfos(ctx, d.conn)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	return graph.NewSnapshot(nodes, edges), nil
}

// Stats counts nodes, chunks and edges.
func (d *DB) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := d.conn.QueryRowContext(ctx, `
		SELECT
		  (SELECT COUNT(*) FROM nodes WHERE label != ?),
		  (SELECT COUNT(*) FROM nodes WHERE label = ?),
		  (SELECT COUNT(*) FROM nodes WHERE label = ? AND embedding IS NOT NULL),
		  (SELECT COUNT(*) FROM edges),
		  (SELECT COUNT(*) FROM vector_indexes)
	`, string(graph.LabelChunk), string(graph.LabelChunk), string(graph.LabelChunk)).Scan(
		&s.ConceptNodes, &s.ChunkNodes, &s.EmbeddedChunks, &s.Edges, &s.VectorIndexes)
	return s, err
}
