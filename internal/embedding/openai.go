package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"medikacom/kgrag/internal/logger"
)

// OpenAIConfig configures an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	Dimensions        int
	BatchSize         int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// OpenAI is a Provider speaking the OpenAI embeddings API.
type OpenAI struct {
	client    *openai.Client
	model     string
	dim       int
	batchSize int
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates the provider. Dimensions must match the model output.
func NewOpenAI(cfg OpenAIConfig, log *slog.Logger) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model not set")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		dim:       cfg.Dimensions,
		batchSize: cfg.BatchSize,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    log.With(logger.Scope("embedding")),
	}, nil
}

// Dimension returns the configured vector size.
func (e *OpenAI) Dimension() int { return e.dim }

// Embed embeds texts in batches. A failed batch is retried one text at a
// time so a single bad input only loses its own vector.
func (e *OpenAI) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	var lastErr error
	ok := 0

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch := texts[start:end]

		vecs, err := e.request(ctx, batch, mode)
		if err == nil {
			for i, v := range vecs {
				out[start+i] = v
			}
		} else {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("batch embedding failed, retrying per text", "size", len(batch), "error", err)
			lastErr = err
			for i, text := range batch {
				single, err := e.request(ctx, []string{text}, mode)
				if err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					e.logger.Warn("embedding failed", "text", logger.Preview(text, 60), "error", err)
					lastErr = err
					continue
				}
				out[start+i] = single[0]
			}
		}
	}

	for i, v := range out {
		if v == nil {
			continue
		}
		if len(v) != e.dim {
			e.logger.Warn("embedding has wrong dimension", "index", i, "got", len(v), "want", e.dim)
			lastErr = fmt.Errorf("got %d dimensions, want %d", len(v), e.dim)
			out[i] = nil
			continue
		}
		ok++
	}
	if ok == 0 {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return out, nil
}

// request makes one embeddings call and returns vectors in input order.
func (e *OpenAI) request(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	input := make([]string, len(texts))
	for i, t := range texts {
		input[i] = mode.Prefix() + t
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings API error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings API returned out-of-range index %d", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		vecs[d.Index] = v
	}
	return vecs, nil
}
