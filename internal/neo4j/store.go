// Package neo4j implements graph.Store on a Neo4j 5 database using the
// native vector index.
package neo4j

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"medikacom/kgrag/internal/graph"
	"medikacom/kgrag/internal/logger"
)

// Options configures the connection.
type Options struct {
	URI               string
	Username          string
	Password          string
	Database          string // empty selects the server default
	EmbeddingProperty string
}

// Store is a graph.Store backed by Neo4j.
type Store struct {
	driver            neo4j.DriverWithContext
	database          string
	embeddingProperty string
	logger            *slog.Logger
}

var _ graph.Store = (*Store)(nil)

// Open connects and verifies connectivity. The driver is closed again when
// the server cannot be reached.
func Open(ctx context.Context, opts Options, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.EmbeddingProperty == "" {
		opts.EmbeddingProperty = "embedding"
	}
	if err := graph.ValidateProperty(opts.EmbeddingProperty); err != nil {
		return nil, err
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", opts.URI, err)
	}

	log = log.With(logger.Scope("neo4j"))
	log.Info("connected", "uri", opts.URI, "database", opts.Database)
	return &Store{
		driver:            driver,
		database:          opts.Database,
		embeddingProperty: opts.EmbeddingProperty,
		logger:            log,
	}, nil
}

// Close closes the driver.
func (s *Store) Close() error {
	return s.driver.Close(context.Background())
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database, AccessMode: mode})
}

// read runs work in a managed read transaction.
func (s *Store) read(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	return session.ExecuteRead(ctx, work)
}

// Update runs fn inside one managed write transaction. The driver may retry
// fn on transient failures, so fn must be safe to re-run from scratch.
func (s *Store) Update(ctx context.Context, fn func(w graph.Writer) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(&txWriter{store: s, tx: tx})
	})
	return err
}

// VectorSearch queries the native vector index.
func (s *Store) VectorSearch(ctx context.Context, index string, k int, vec []float32) ([]graph.VectorHit, error) {
	if k <= 0 || len(vec) == 0 {
		return nil, nil
	}
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, vectorSearchQuery, map[string]any{
			"index":  index,
			"k":      k,
			"vector": toFloat64s(vec),
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		hits := make([]graph.VectorHit, 0, len(records))
		for _, rec := range records {
			hits = append(hits, graph.VectorHit{
				ID:       str(rec, "id"),
				Score:    float(rec, "score"),
				Text:     str(rec, "text"),
				Category: str(rec, "category"),
				Sequence: integer(rec, "sequence", graph.NoSequence),
			})
		}
		return hits, nil
	})
	if err != nil {
		return nil, fmt.Errorf("vector search on %s: %w", index, err)
	}
	return out.([]graph.VectorHit), nil
}

// SequenceHead resolves the anchored head of the chain containing chunkID.
func (s *Store) SequenceHead(ctx context.Context, chunkID, category string) (string, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, sequenceHeadQuery(), map[string]any{"chunk": chunkID, "category": category})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return "", nil
		}
		return str(records[0], "id"), nil
	})
	if err != nil {
		return "", fmt.Errorf("resolving head of %s: %w", chunkID, err)
	}
	if out.(string) == "" {
		return "", fmt.Errorf("head of %s in %q: %w", chunkID, category, graph.ErrNotFound)
	}
	return out.(string), nil
}

// Sequence returns the chunks of category reachable from headID, head first.
func (s *Store) Sequence(ctx context.Context, headID, category string) ([]graph.Chunk, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return collectChunks(ctx, tx, sequenceQuery(), map[string]any{"head": headID, "category": category})
	})
	if err != nil {
		return nil, fmt.Errorf("expanding sequence %s: %w", headID, err)
	}
	return out.([]graph.Chunk), nil
}

// Chain returns the chunks hanging off parentID via anchor.
func (s *Store) Chain(ctx context.Context, parentID string, anchor graph.RelType) ([]graph.Chunk, error) {
	query, err := chainQuery(anchor)
	if err != nil {
		return nil, err
	}
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return collectChunks(ctx, tx, query, map[string]any{"parent": parentID})
	})
	if err != nil {
		return nil, fmt.Errorf("traversing %s chain of %s: %w", anchor, parentID, err)
	}
	return out.([]graph.Chunk), nil
}

// FindNode looks a conceptual node up by its key.
func (s *Store) FindNode(ctx context.Context, label graph.Label, keyProperty, keyValue string) (*graph.Node, error) {
	query, err := findNodeQuery(label, keyProperty)
	if err != nil {
		return nil, err
	}
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"key": keyValue})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil || len(records) == 0 {
			return (*graph.Node)(nil), err
		}
		rec := records[0]
		props, _ := rec.AsMap()["props"].(map[string]any)
		return &graph.Node{
			ID:          str(rec, "id"),
			Label:       label,
			KeyProperty: keyProperty,
			KeyValue:    keyValue,
			Properties:  graph.Properties(props).Clone(),
			CreatedAt:   int64(integer(rec, "created_at", 0)),
			UpdatedAt:   int64(integer(rec, "updated_at", 0)),
		}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("finding node: %w", err)
	}
	node := out.(*graph.Node)
	if node == nil {
		return nil, fmt.Errorf("%s{%s: %q}: %w", label, keyProperty, keyValue, graph.ErrNotFound)
	}
	return node, nil
}

// EnsureVectorIndex creates idx if absent and verifies its configuration.
func (s *Store) EnsureVectorIndex(ctx context.Context, idx graph.VectorIndex) error {
	create, err := createVectorIndexQuery(idx)
	if err != nil {
		return err
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// Schema commands cannot share a transaction with reads.
	if _, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, create, nil)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	}); err != nil {
		return fmt.Errorf("creating vector index %s: %w", idx.Name, err)
	}

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, showVectorIndexQuery, map[string]any{"name": idx.Name})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return fmt.Errorf("inspecting vector index %s: %w", idx.Name, err)
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return fmt.Errorf("vector index %s missing after creation: %w", idx.Name, graph.ErrNotFound)
	}

	existing := describeIndex(idx.Name, records[0].AsMap())
	if existing != idx {
		return fmt.Errorf("%w: %s has %s(%s) dim=%d %s, want %s(%s) dim=%d %s", graph.ErrIndexMismatch,
			idx.Name, existing.Label, existing.Property, existing.Dimensions, existing.Similarity,
			idx.Label, idx.Property, idx.Dimensions, idx.Similarity)
	}
	s.logger.Info("vector index ready", "name", idx.Name, "dimensions", idx.Dimensions, "similarity", idx.Similarity)
	return nil
}

// describeIndex converts a SHOW VECTOR INDEXES row into a VectorIndex.
func describeIndex(name string, row map[string]any) graph.VectorIndex {
	idx := graph.VectorIndex{Name: name}
	if labels, ok := row["labelsOrTypes"].([]any); ok && len(labels) > 0 {
		l, _ := labels[0].(string)
		idx.Label = graph.Label(l)
	}
	if props, ok := row["properties"].([]any); ok && len(props) > 0 {
		idx.Property, _ = props[0].(string)
	}
	options, _ := row["options"].(map[string]any)
	config, _ := options["indexConfig"].(map[string]any)
	switch dims := config["vector.dimensions"].(type) {
	case int64:
		idx.Dimensions = int(dims)
	case float64:
		idx.Dimensions = int(dims)
	}
	if sim, ok := config["vector.similarity_function"].(string); ok {
		idx.Similarity = graph.Similarity(strings.ToLower(sim))
	}
	return idx
}

// Snapshot loads the whole graph for integrity analysis.
func (s *Store) Snapshot(ctx context.Context) (*graph.Snapshot, error) {
	out, err := s.read(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, snapshotNodesQuery, nil)
		if err != nil {
			return nil, err
		}
		nodeRecs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		res, err = tx.Run(ctx, snapshotEdgesQuery, nil)
		if err != nil {
			return nil, err
		}
		edgeRecs, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		nodes := make([]*graph.NodeInfo, 0, len(nodeRecs))
		for _, rec := range nodeRecs {
			nodes = append(nodes, &graph.NodeInfo{
				ID:        str(rec, "id"),
				Label:     graph.Label(str(rec, "label")),
				KeyValue:  str(rec, "key"),
				Category:  str(rec, "category"),
				Sequence:  integer(rec, "sequence", graph.NoSequence),
				CreatedAt: int64(integer(rec, "created_at", 0)),
				UpdatedAt: int64(integer(rec, "updated_at", 0)),
			})
		}
		edges := make([]graph.EdgeInfo, 0, len(edgeRecs))
		for _, rec := range edgeRecs {
			edges = append(edges, graph.EdgeInfo{
				ID:        str(rec, "id"),
				Source:    str(rec, "source"),
				Target:    str(rec, "target"),
				RelType:   graph.RelType(str(rec, "type")),
				CreatedAt: int64(integer(rec, "created_at", 0)),
			})
		}
		return graph.NewSnapshot(nodes, edges), nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return out.(*graph.Snapshot), nil
}

func collectChunks(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) ([]graph.Chunk, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	chunks := make([]graph.Chunk, 0, len(records))
	for _, rec := range records {
		chunks = append(chunks, graph.Chunk{
			ID:       str(rec, "id"),
			Text:     str(rec, "text"),
			Category: str(rec, "category"),
			Sequence: integer(rec, "sequence", graph.NoSequence),
			Depth:    integer(rec, "depth", 0),
		})
	}
	return chunks, nil
}

func toFloat64s(v []float32) []float64 {
	if v == nil {
		return nil
	}
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func str(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func float(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func integer(rec *neo4j.Record, key string, fallback int) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return fallback
}
