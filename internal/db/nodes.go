package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"medikacom/kgrag/internal/graph"
)

// scanNode scans a conceptual node row: id, label, key_property, key_value,
// properties, created_at, updated_at.
func scanNode(scanner interface{ Scan(dest ...any) error }) (graph.Node, error) {
	var (
		n        graph.Node
		label    string
		keyProp  sql.NullString
		keyValue sql.NullString
		props    string
	)
	if err := scanner.Scan(&n.ID, &label, &keyProp, &keyValue, &props, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return n, err
	}
	n.Label = graph.Label(label)
	n.KeyProperty = keyProp.String
	n.KeyValue = keyValue.String
	p, err := decodeProperties(props)
	if err != nil {
		return n, err
	}
	n.Properties = p
	return n, nil
}

const nodeColumns = `id, label, key_property, key_value, properties, created_at, updated_at`

func findNode(ctx context.Context, q querier, label graph.Label, keyProperty, keyValue string) (*graph.Node, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+nodeColumns+`
		FROM nodes WHERE label = ? AND key_property = ? AND key_value = ?
	`, string(label), keyProperty, keyValue)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s{%s: %q}: %w", label, keyProperty, keyValue, graph.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding node: %w", err)
	}
	return &n, nil
}

// FindNode looks a conceptual node up by its key.
func (d *DB) FindNode(ctx context.Context, label graph.Label, keyProperty, keyValue string) (*graph.Node, error) {
	return findNode(ctx, d.conn, label, keyProperty, keyValue)
}

// GetNode returns a single conceptual node by ID.
func (d *DB) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	row := d.conn.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("node %s: %w", id, graph.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func upsertNode(ctx context.Context, q querier, nowMs int64, label graph.Label, keyProperty, keyValue string, props graph.Properties) (string, error) {
	if err := label.Validate(); err != nil {
		return "", err
	}
	if keyProperty == "" {
		return "", fmt.Errorf("upsert %s: empty key property", label)
	}

	existing, err := findNode(ctx, q, label, keyProperty, keyValue)
	if err != nil && !errors.Is(err, graph.ErrNotFound) {
		return "", err
	}

	merged := graph.Properties{}
	if existing != nil {
		merged = existing.Properties.Clone()
	}
	for k, v := range props {
		merged[k] = v
	}
	merged[keyProperty] = keyValue

	encoded, err := encodeProperties(merged)
	if err != nil {
		return "", err
	}

	if existing != nil {
		_, err := q.ExecContext(ctx,
			`UPDATE nodes SET properties = ?, updated_at = ? WHERE id = ?`,
			encoded, nowMs, existing.ID)
		if err != nil {
			return "", fmt.Errorf("updating %s node: %w", label, err)
		}
		return existing.ID, nil
	}

	id := uuid.NewString()
	_, err = q.ExecContext(ctx, `
		INSERT INTO nodes (id, label, key_property, key_value, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, string(label), keyProperty, keyValue, encoded, nowMs, nowMs)
	if err != nil {
		return "", fmt.Errorf("inserting %s node: %w", label, err)
	}
	return id, nil
}

func createChunk(ctx context.Context, q querier, nowMs int64, label graph.Label, chunk graph.NewChunk) (string, error) {
	if err := label.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := q.ExecContext(ctx, `
		INSERT INTO nodes (id, label, text, original_category, chunk_sequence, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, string(label), chunk.Text, chunk.Category, chunk.Sequence, embeddingToBytes(chunk.Embedding), nowMs, nowMs)
	if err != nil {
		return "", fmt.Errorf("inserting chunk: %w", err)
	}
	return id, nil
}

// allNodeInfos loads every node in the lightweight form used for analysis.
func allNodeInfos(ctx context.Context, q querier) ([]*graph.NodeInfo, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, label, COALESCE(key_value, ''), COALESCE(original_category, ''),
		       COALESCE(chunk_sequence, -1), created_at, updated_at
		FROM nodes
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*graph.NodeInfo
	for rows.Next() {
		var n graph.NodeInfo
		var label string
		if err := rows.Scan(&n.ID, &label, &n.KeyValue, &n.Category, &n.Sequence, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.Label = graph.Label(label)
		nodes = append(nodes, &n)
	}
	return nodes, rows.Err()
}
