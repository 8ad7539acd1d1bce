// Package search turns a question into ranked context blocks: vector search
// over chunks, expansion of sequential hits into their whole chain, and
// deduplication by chain head.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"medikacom/kgrag/internal/embedding"
	"medikacom/kgrag/internal/graph"
	"medikacom/kgrag/internal/logger"
)

// SourceType tells how a ContextBlock's text was produced.
type SourceType string

const (
	SourceExpandedSequence SourceType = "expanded_sequence"
	SourceStandaloneChunk  SourceType = "standalone_chunk"
)

// ContextSeparator sits between blocks in the text handed to the generator.
const ContextSeparator = "\n\n---\n\n"

// ContextBlock is one unit of retrieved evidence.
type ContextBlock struct {
	Text           string     `json:"text"`
	Category       string     `json:"original_category"`
	Score          float64    `json:"score"`
	SourceType     SourceType `json:"source_type"`
	TriggerChunkID string     `json:"retrieved_via_chunk_id"`
	SequenceHeadID string     `json:"sequence_head_id,omitempty"`
}

// Options configures an Engine.
type Options struct {
	Index      string
	Classifier *Classifier
}

// Engine answers Search calls. It only reads from the store and keeps no
// state between queries, so one Engine may serve concurrent searches.
type Engine struct {
	store      graph.Reader
	embedder   embedding.Provider
	index      string
	classifier *Classifier
	logger     *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(store graph.Reader, embedder embedding.Provider, opts Options, log *slog.Logger) *Engine {
	if opts.Classifier == nil {
		opts.Classifier = NewClassifier(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		store:      store,
		embedder:   embedder,
		index:      opts.Index,
		classifier: opts.Classifier,
		logger:     log.With(logger.Scope("search")),
	}
}

// Search returns context blocks for query, highest scoring first, with at
// most one block per chain. A blank query returns nothing without touching
// the embedder or the store. Failures to resolve or expand a single hit drop
// that hit only.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]ContextBlock, error) {
	if strings.TrimSpace(query) == "" || topK <= 0 {
		return nil, nil
	}

	vecs, err := e.embedder.Embed(ctx, []string{query}, embedding.ModeQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		e.logger.Warn("query produced no embedding", "query", logger.Preview(query, 60))
		return nil, nil
	}

	hits, err := e.store.VectorSearch(ctx, e.index, topK, vecs[0])
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	seen := make(map[string]struct{}, len(hits))
	var blocks []ContextBlock
	for _, hit := range hits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block, ok := e.resolve(ctx, hit, seen)
		if ok {
			blocks = append(blocks, block)
		}
	}

	e.logger.Info("retrieval finished",
		"query", logger.Preview(query, 60), "index", e.index, "hits", len(hits), "blocks", len(blocks))
	return blocks, nil
}

// resolve turns one hit into a block, or reports false when the hit is a
// duplicate or cannot be resolved.
func (e *Engine) resolve(ctx context.Context, hit graph.VectorHit, seen map[string]struct{}) (ContextBlock, bool) {
	if !e.classifier.IsSequential(hit.Category) {
		if _, dup := seen[hit.ID]; dup {
			e.logger.Debug("duplicate hit skipped", "chunk", hit.ID)
			return ContextBlock{}, false
		}
		seen[hit.ID] = struct{}{}
		return ContextBlock{
			Text:           hit.Text,
			Category:       hit.Category,
			Score:          hit.Score,
			SourceType:     SourceStandaloneChunk,
			TriggerChunkID: hit.ID,
		}, true
	}

	headID, err := e.store.SequenceHead(ctx, hit.ID, hit.Category)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, graph.ErrNotFound) {
			level = slog.LevelError
		}
		e.logger.Log(ctx, level, "sequence head unresolved, hit dropped",
			"chunk", hit.ID, "category", hit.Category, "error", err)
		return ContextBlock{}, false
	}
	if _, dup := seen[headID]; dup {
		e.logger.Debug("duplicate hit skipped", "chunk", hit.ID, "head", headID)
		return ContextBlock{}, false
	}

	chunks, err := e.store.Sequence(ctx, headID, hit.Category)
	if err != nil || len(chunks) == 0 {
		e.logger.Warn("sequence expansion failed, hit dropped",
			"chunk", hit.ID, "head", headID, "category", hit.Category, "error", err)
		return ContextBlock{}, false
	}
	seen[headID] = struct{}{}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return ContextBlock{
		Text:           strings.Join(texts, " "),
		Category:       hit.Category,
		Score:          hit.Score,
		SourceType:     SourceExpandedSequence,
		TriggerChunkID: hit.ID,
		SequenceHeadID: headID,
	}, true
}

// JoinContext renders blocks as the plain-text context for answer generation.
func JoinContext(blocks []ContextBlock) string {
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if t := strings.TrimSpace(b.Text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, ContextSeparator)
}
