package answer

import (
	"context"
	"log/slog"

	"medikacom/kgrag/internal/logger"
	"medikacom/kgrag/internal/search"
)

// Searcher retrieves context blocks for a question.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]search.ContextBlock, error)
}

// Responder produces an answer from context; Generator is the production one.
type Responder interface {
	Generate(ctx context.Context, contextText, question string) string
}

// Result is one question's answer with the context it was built from.
type Result struct {
	Question string                `json:"question"`
	Answer   string                `json:"answer"`
	Blocks   []search.ContextBlock `json:"context"`
	// RetrievalErr is set when search failed and the answer was produced
	// without context.
	RetrievalErr error `json:"-"`
}

// Pipeline runs retrieval then generation.
type Pipeline struct {
	searcher  Searcher
	responder Responder
	topK      int
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(s Searcher, r Responder, topK int, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{searcher: s, responder: r, topK: topK, logger: log.With(logger.Scope("pipeline"))}
}

// Ask answers question. A retrieval failure is logged and the responder
// gets the empty-context fallback instead.
func (p *Pipeline) Ask(ctx context.Context, question string) Result {
	res := Result{Question: question}
	blocks, err := p.searcher.Search(ctx, question, p.topK)
	if err != nil {
		p.logger.Error("retrieval failed, answering without context", "error", err)
		res.RetrievalErr = err
		blocks = nil
	}
	res.Blocks = blocks
	res.Answer = p.responder.Generate(ctx, search.JoinContext(blocks), question)
	return res
}
