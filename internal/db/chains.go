package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medikacom/kgrag/internal/graph"
)

// Chain traversal runs as a recursive CTE. The visited path column stops
// cycles from being walked more than once; MaxChainDepth bounds the rest.

const chainQuery = `
	WITH RECURSIVE walk(id, depth, path) AS (
		SELECT e.target_id, 0, ',' || e.target_id || ','
		FROM edges e JOIN nodes n ON n.id = e.target_id
		WHERE e.source_id = ? AND e.type = ? AND n.label = ?
		UNION ALL
		SELECT e.target_id, w.depth + 1, w.path || e.target_id || ','
		FROM walk w
		JOIN edges e ON e.source_id = w.id AND e.type = ?
		JOIN nodes n ON n.id = e.target_id AND n.label = ?
		WHERE w.depth < ? AND instr(w.path, ',' || e.target_id || ',') = 0
	)
	SELECT n.id, COALESCE(n.text, ''), COALESCE(n.original_category, ''),
	       COALESCE(n.chunk_sequence, -1), MIN(w.depth) AS d
	FROM walk w JOIN nodes n ON n.id = w.id
	GROUP BY n.id
	ORDER BY d, n.id
`

const sequenceQuery = `
	WITH RECURSIVE walk(id, depth, path) AS (
		SELECT id, 0, ',' || id || ','
		FROM nodes WHERE id = ? AND label = ? AND original_category = ?
		UNION ALL
		SELECT e.target_id, w.depth + 1, w.path || e.target_id || ','
		FROM walk w
		JOIN edges e ON e.source_id = w.id AND e.type = ?
		JOIN nodes n ON n.id = e.target_id AND n.label = ? AND n.original_category = ?
		WHERE w.depth < ? AND instr(w.path, ',' || e.target_id || ',') = 0
	)
	SELECT n.id, COALESCE(n.text, ''), COALESCE(n.original_category, ''),
	       COALESCE(n.chunk_sequence, -1), MIN(w.depth) AS d
	FROM walk w JOIN nodes n ON n.id = w.id
	GROUP BY n.id
	ORDER BY d, n.id
`

// headQuery walks backwards over NEXT_CHUNK within one category and picks the
// nearest chunk numbered 1 that a non-chunk node anchors.
const headQuery = `
	WITH RECURSIVE back(id, depth, path) AS (
		SELECT id, 0, ',' || id || ','
		FROM nodes WHERE id = ? AND label = ? AND original_category = ?
		UNION ALL
		SELECT e.source_id, b.depth + 1, b.path || e.source_id || ','
		FROM back b
		JOIN edges e ON e.target_id = b.id AND e.type = ?
		JOIN nodes n ON n.id = e.source_id AND n.label = ? AND n.original_category = ?
		WHERE b.depth < ? AND instr(b.path, ',' || e.source_id || ',') = 0
	)
	SELECT b.id
	FROM back b JOIN nodes n ON n.id = b.id
	WHERE n.chunk_sequence = 1
	  AND EXISTS (
		SELECT 1 FROM edges a JOIN nodes p ON p.id = a.source_id
		WHERE a.target_id = b.id AND a.type != ? AND p.label != ?
	  )
	ORDER BY b.depth
	LIMIT 1
`

func queryChunks(ctx context.Context, q querier, query string, args ...any) ([]graph.Chunk, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []graph.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func chain(ctx context.Context, q querier, parentID string, anchor graph.RelType) ([]graph.Chunk, error) {
	if err := anchor.Validate(); err != nil {
		return nil, err
	}
	chunks, err := queryChunks(ctx, q, chainQuery,
		parentID, string(anchor), string(graph.LabelChunk),
		string(graph.RelNextChunk), string(graph.LabelChunk), MaxChainDepth)
	if err != nil {
		return nil, fmt.Errorf("traversing %s chain of %s: %w", anchor, parentID, err)
	}
	return chunks, nil
}

// Chain returns the chunks hanging off parentID via anchor, ordered by depth.
func (d *DB) Chain(ctx context.Context, parentID string, anchor graph.RelType) ([]graph.Chunk, error) {
	return chain(ctx, d.conn, parentID, anchor)
}

// Sequence returns the chunks of category reachable from headID, head first.
func (d *DB) Sequence(ctx context.Context, headID, category string) ([]graph.Chunk, error) {
	chunks, err := queryChunks(ctx, d.conn, sequenceQuery,
		headID, string(graph.LabelChunk), category,
		string(graph.RelNextChunk), string(graph.LabelChunk), category, MaxChainDepth)
	if err != nil {
		return nil, fmt.Errorf("expanding sequence %s: %w", headID, err)
	}
	return chunks, nil
}

// SequenceHead resolves the anchored head of the chain containing chunkID.
func (d *DB) SequenceHead(ctx context.Context, chunkID, category string) (string, error) {
	var headID string
	err := d.conn.QueryRowContext(ctx, headQuery,
		chunkID, string(graph.LabelChunk), category,
		string(graph.RelNextChunk), string(graph.LabelChunk), category, MaxChainDepth,
		string(graph.RelNextChunk), string(graph.LabelChunk),
	).Scan(&headID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("head of %s in %q: %w", chunkID, category, graph.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving head of %s: %w", chunkID, err)
	}
	return headID, nil
}
