package graph

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates a node or sequence head does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIndexMismatch indicates a vector index already exists with a different configuration.
	ErrIndexMismatch = errors.New("vector index exists with different configuration")

	// ErrInvalidIdentifier indicates a label, relationship type or index name
	// that cannot be used as a query identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// Reader is the read-only capability surface used at query time.
type Reader interface {
	// VectorSearch returns up to k chunk nodes nearest to vec in the named
	// index, ordered by descending score.
	VectorSearch(ctx context.Context, index string, k int, vec []float32) ([]VectorHit, error)

	// SequenceHead resolves the head (chunk_sequence 1) of the chain containing
	// chunkID. The head must be anchored to a conceptual node and chunkID must be
	// reachable from it over zero or more NEXT_CHUNK edges within category.
	// Returns ErrNotFound when no such head exists.
	SequenceHead(ctx context.Context, chunkID, category string) (string, error)

	// Sequence returns every chunk of category reachable from headID over
	// NEXT_CHUNK edges, head included, ordered by traversal depth.
	Sequence(ctx context.Context, headID, category string) ([]Chunk, error)

	// Chain returns the chunks hanging off parentID via anchor, ordered by depth.
	Chain(ctx context.Context, parentID string, anchor RelType) ([]Chunk, error)

	// FindNode looks a conceptual node up by its key. Returns ErrNotFound when absent.
	FindNode(ctx context.Context, label Label, keyProperty, keyValue string) (*Node, error)
}

// Writer is the mutation surface available inside one atomic write unit.
type Writer interface {
	// UpsertNode matches a node by (label, keyProperty=keyValue). A new node
	// gets the key plus props; an existing one has props merged onto it with
	// the key preserved. Returns the node id.
	UpsertNode(ctx context.Context, label Label, keyProperty, keyValue string, props Properties) (string, error)

	// CreateNode creates a chunk node and returns its id.
	CreateNode(ctx context.Context, label Label, chunk NewChunk) (string, error)

	// MergeRelationship creates from-[rel]->to unless it already exists.
	MergeRelationship(ctx context.Context, fromID, toID string, rel RelType) error

	// Chain is Reader.Chain evaluated inside the write unit.
	Chain(ctx context.Context, parentID string, anchor RelType) ([]Chunk, error)

	// DeleteSubgraph removes the given nodes and every edge touching them.
	// Returns the number of nodes deleted.
	DeleteSubgraph(ctx context.Context, ids []string) (int, error)
}

// Store is a property graph with an approximate nearest-neighbour index.
type Store interface {
	Reader

	// Update runs fn inside a single write transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(w Writer) error) error

	// EnsureVectorIndex provisions idx. It is a no-op when an index with the same
	// name and configuration exists and fails with ErrIndexMismatch when the
	// existing configuration differs.
	EnsureVectorIndex(ctx context.Context, idx VectorIndex) error

	Close() error
}
