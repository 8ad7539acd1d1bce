// Package sequence owns the only write path for chunk chains: a chain is
// always purged and rebuilt whole, never patched.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"medikacom/kgrag/internal/embedding"
	"medikacom/kgrag/internal/graph"
	"medikacom/kgrag/internal/logger"
)

// Result reports what one Replace did.
type Result struct {
	Deleted int `json:"deleted"`
	Written int `json:"written"`
	Skipped int `json:"skipped"`
}

// Writer replaces chunk chains and upserts conceptual nodes.
type Writer struct {
	store    graph.Store
	embedder embedding.Provider
	logger   *slog.Logger
}

// NewWriter creates a Writer.
func NewWriter(store graph.Store, embedder embedding.Provider, log *slog.Logger) *Writer {
	if log == nil {
		log = slog.Default()
	}
	return &Writer{store: store, embedder: embedder, logger: log.With(logger.Scope("sequence"))}
}

// EnsureNode upserts a conceptual node by key in its own transaction.
func (w *Writer) EnsureNode(ctx context.Context, label graph.Label, keyProperty, keyValue string, props graph.Properties) (string, error) {
	var id string
	err := w.store.Update(ctx, func(tx graph.Writer) error {
		var err error
		id, err = tx.UpsertNode(ctx, label, keyProperty, keyValue, props)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("ensuring %s %q: %w", label, keyValue, err)
	}
	w.logger.Debug("node ensured", "label", label, "key", keyValue, "id", id)
	return id, nil
}

// Link merges from-[rel]->to in its own transaction.
func (w *Writer) Link(ctx context.Context, fromID, toID string, rel graph.RelType) error {
	return w.store.Update(ctx, func(tx graph.Writer) error {
		return tx.MergeRelationship(ctx, fromID, toID, rel)
	})
}

// Replace swaps the chain hanging off parentID via anchor for texts.
//
// Embeddings are computed first, outside the transaction. Texts whose
// embedding fails are skipped and the survivors are numbered 1..n with no
// gaps. The purge of the old chain and the creation of the new one commit
// together. An empty texts slice leaves the parent with no chain.
func (w *Writer) Replace(ctx context.Context, parentID string, texts []string, category string, anchor graph.RelType) (Result, error) {
	var res Result
	if !anchor.IsAnchor() {
		return res, fmt.Errorf("%w: %s is not a chunk anchor", graph.ErrInvalidIdentifier, anchor)
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = w.embedder.Embed(ctx, texts, embedding.ModePassage)
		if err != nil {
			// The existing chain stays untouched when the provider is down.
			if errors.Is(err, embedding.ErrUnavailable) {
				w.logger.Error("no chunk could be embedded", "category", category, "count", len(texts), "error", err)
			}
			return res, fmt.Errorf("embedding %s chunks: %w", category, err)
		}
	}

	var survivors []graph.NewChunk
	for i, text := range texts {
		if i >= len(vectors) || len(vectors[i]) == 0 {
			res.Skipped++
			w.logger.Warn("skipping chunk with no embedding", "category", category, "text", logger.Preview(text, 60))
			continue
		}
		survivors = append(survivors, graph.NewChunk{
			Text:      text,
			Embedding: vectors[i],
			Category:  category,
			Sequence:  len(survivors) + 1,
		})
	}

	err := w.store.Update(ctx, func(tx graph.Writer) error {
		// The store may re-run this callback, so every count is reset here.
		res.Deleted, res.Written = 0, 0

		existing, err := tx.Chain(ctx, parentID, anchor)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			ids := make([]string, len(existing))
			for i, c := range existing {
				ids[i] = c.ID
			}
			if res.Deleted, err = tx.DeleteSubgraph(ctx, ids); err != nil {
				return err
			}
		}

		prev := ""
		for _, c := range survivors {
			id, err := tx.CreateNode(ctx, graph.LabelChunk, c)
			if err != nil {
				return err
			}
			if prev == "" {
				err = tx.MergeRelationship(ctx, parentID, id, anchor)
			} else {
				err = tx.MergeRelationship(ctx, prev, id, graph.RelNextChunk)
			}
			if err != nil {
				return err
			}
			prev = id
			res.Written++
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("replacing %s chain of %s: %w", category, parentID, err)
	}

	w.logger.Info("sequence replaced",
		"category", category, "anchor", anchor, "deleted", res.Deleted, "written", res.Written, "skipped", res.Skipped)
	return res, nil
}
