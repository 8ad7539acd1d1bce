package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medikacom/kgrag/internal/graph"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenDB(":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// buildChain writes a parent and n chunks of category, returning parent and chunk ids.
func buildChain(t *testing.T, d *DB, key, category string, anchor graph.RelType, n int) (string, []string) {
	t.Helper()
	ctx := context.Background()
	var parent string
	var ids []string
	err := d.Update(ctx, func(w graph.Writer) error {
		var err error
		parent, err = w.UpsertNode(ctx, graph.LabelSejarah, "nama", key, nil)
		if err != nil {
			return err
		}
		prev := parent
		for i := 1; i <= n; i++ {
			id, err := w.CreateNode(ctx, graph.LabelChunk, graph.NewChunk{
				Text: fmt.Sprintf("%s part %d", key, i), Category: category, Sequence: i,
			})
			if err != nil {
				return err
			}
			rel := graph.RelNextChunk
			if i == 1 {
				rel = anchor
			}
			if err := w.MergeRelationship(ctx, prev, id, rel); err != nil {
				return err
			}
			ids = append(ids, id)
			prev = id
		}
		return nil
	})
	require.NoError(t, err)
	return parent, ids
}

func TestOpenDB_FileMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kgrag.db")
	d, err := OpenDB(path, nil)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = OpenDB(path, nil)
	require.NoError(t, err)
	defer d.Close()

	var version int
	require.NoError(t, d.Conn().QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestUpsertNode_MergesProperties(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	var first, second string
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		var err error
		first, err = w.UpsertNode(ctx, graph.LabelSekolah, "nama", "SMK Medikacom",
			graph.Properties{"alamat": "Bandung", "npsn": "20200001"})
		return err
	}))
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		var err error
		second, err = w.UpsertNode(ctx, graph.LabelSekolah, "nama", "SMK Medikacom",
			graph.Properties{"alamat": "Bandung Barat", "nama": "ignored"})
		return err
	}))
	assert.Equal(t, first, second)

	n, err := d.FindNode(ctx, graph.LabelSekolah, "nama", "SMK Medikacom")
	require.NoError(t, err)
	assert.Equal(t, "Bandung Barat", n.Properties["alamat"])
	assert.Equal(t, "20200001", n.Properties["npsn"])
	assert.Equal(t, "SMK Medikacom", n.Properties["nama"], "key is preserved")

	_, err = d.FindNode(ctx, graph.LabelSekolah, "nama", "other")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestUpsertNode_InvalidLabel(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	err := d.Update(ctx, func(w graph.Writer) error {
		_, err := w.UpsertNode(ctx, "bad label", "nama", "x", nil)
		return err
	})
	assert.ErrorIs(t, err, graph.ErrInvalidIdentifier)
}

func TestMergeRelationship_Idempotent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	parent, ids := buildChain(t, d, "Sejarah", "Sejarah_Detail", graph.RelHasContentChunk, 1)

	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		return w.MergeRelationship(ctx, parent, ids[0], graph.RelHasContentChunk)
	}))
	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Edges)

	err = d.Update(ctx, func(w graph.Writer) error {
		return w.MergeRelationship(ctx, parent, "missing", graph.RelNextChunk)
	})
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestChain_OrderedByDepth(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	parent, ids := buildChain(t, d, "Sejarah", "Sejarah_Detail", graph.RelHasContentChunk, 4)

	chunks, err := d.Chain(ctx, parent, graph.RelHasContentChunk)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, ids[i], c.ID)
		assert.Equal(t, i, c.Depth)
		assert.Equal(t, i+1, c.Sequence)
	}

	none, err := d.Chain(ctx, parent, graph.RelHasVisiChunk)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSequenceHead_ResolvesFromMiddle(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	_, ids := buildChain(t, d, "Sejarah", "Sejarah_Detail", graph.RelHasContentChunk, 5)
	// A second chain in the same category must not be confused with the first.
	_, other := buildChain(t, d, "Sejarah Lain", "Sejarah_Detail", graph.RelHasContentChunk, 3)

	head, err := d.SequenceHead(ctx, ids[2], "Sejarah_Detail")
	require.NoError(t, err)
	assert.Equal(t, ids[0], head)

	head, err = d.SequenceHead(ctx, other[2], "Sejarah_Detail")
	require.NoError(t, err)
	assert.Equal(t, other[0], head)

	_, err = d.SequenceHead(ctx, ids[2], "Visi_Detail")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestSequenceHead_UnanchoredChainNotFound(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	var tail string
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		a, err := w.CreateNode(ctx, graph.LabelChunk, graph.NewChunk{Text: "a", Category: "X", Sequence: 1})
		if err != nil {
			return err
		}
		tail, err = w.CreateNode(ctx, graph.LabelChunk, graph.NewChunk{Text: "b", Category: "X", Sequence: 2})
		if err != nil {
			return err
		}
		return w.MergeRelationship(ctx, a, tail, graph.RelNextChunk)
	}))

	_, err := d.SequenceHead(ctx, tail, "X")
	assert.True(t, errors.Is(err, graph.ErrNotFound), "got %v", err)
}

func TestSequence_FiltersCategory(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	_, ids := buildChain(t, d, "Sejarah", "Sejarah_Detail", graph.RelHasContentChunk, 3)

	// Append a chunk of another category after the tail.
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		id, err := w.CreateNode(ctx, graph.LabelChunk, graph.NewChunk{Text: "stray", Category: "Other", Sequence: 4})
		if err != nil {
			return err
		}
		return w.MergeRelationship(ctx, ids[2], id, graph.RelNextChunk)
	}))

	seq, err := d.Sequence(ctx, ids[0], "Sejarah_Detail")
	require.NoError(t, err)
	require.Len(t, seq, 3)
	assert.Equal(t, "Sejarah part 1", seq[0].Text)
	assert.Equal(t, "Sejarah part 3", seq[2].Text)
}

func TestSequence_TerminatesOnCycle(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	_, ids := buildChain(t, d, "Sejarah", "X", graph.RelHasContentChunk, 3)
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		return w.MergeRelationship(ctx, ids[2], ids[0], graph.RelNextChunk)
	}))

	seq, err := d.Sequence(ctx, ids[0], "X")
	require.NoError(t, err)
	assert.Len(t, seq, 3)
}

func TestDeleteSubgraph(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	parent, ids := buildChain(t, d, "Sejarah", "X", graph.RelHasContentChunk, 3)

	var deleted int
	require.NoError(t, d.Update(ctx, func(w graph.Writer) error {
		var err error
		deleted, err = w.DeleteSubgraph(ctx, ids)
		return err
	}))
	assert.Equal(t, 3, deleted)

	stats, err := d.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkNodes)
	assert.Equal(t, 0, stats.Edges)
	assert.Equal(t, 1, stats.ConceptNodes)

	_, err = d.GetNode(ctx, parent)
	assert.NoError(t, err)
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := d.Update(ctx, func(w graph.Writer) error {
		if _, err := w.UpsertNode(ctx, graph.LabelSekolah, "nama", "SMK", nil); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = d.FindNode(ctx, graph.LabelSekolah, "nama", "SMK")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestSnapshot(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	parent, ids := buildChain(t, d, "Sejarah", "Sejarah_Detail", graph.RelHasContentChunk, 3)

	snap, err := d.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 4)
	assert.Len(t, snap.Anchors[ids[0]], 1)
	assert.Equal(t, parent, snap.Anchors[ids[0]][0].Source)
	assert.Equal(t, []string{ids[1]}, snap.Next[ids[0]])

	report := graph.AnalyzeChains(snap, nil)
	assert.Equal(t, 1, report.ChainCount)
	assert.Equal(t, 0, report.BrokenCount)
	assert.Equal(t, 3, report.Chains[0].Length)
}
