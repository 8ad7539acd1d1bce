// Package answer produces the final natural-language answer from retrieved
// context through an OpenAI-compatible chat completion endpoint.
package answer

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"medikacom/kgrag/internal/logger"
)

// Config configures the chat completion endpoint.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Generator turns (context, question) into an answer. It never returns an
// error: every failure becomes an apologetic message.
type Generator struct {
	client *openai.Client
	cfg    Config
	logger *slog.Logger
}

// NewGenerator creates a Generator. A missing API key is reported at
// Generate time so the rest of the pipeline keeps working.
func NewGenerator(cfg Config, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Generator{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: log.With(logger.Scope("answer")),
	}
}

// Generate asks the model to answer question using only contextText.
func (g *Generator) Generate(ctx context.Context, contextText, question string) string {
	if strings.TrimSpace(g.cfg.APIKey) == "" {
		g.logger.Error("answer generation unavailable: API key not configured")
		return MsgMissingKey
	}

	g.logger.Debug("requesting completion", "model", g.cfg.Model, "context_len", len(contextText))
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: UserMessage(contextText, question)},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return g.failure(err)
	}
	if len(resp.Choices) == 0 {
		g.logger.Error("completion response has no choices", "id", resp.ID)
		return MsgBadResponse
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		g.logger.Warn("completion returned an empty answer", "id", resp.ID)
		return MsgEmptyAnswer
	}
	g.logger.Info("answer generated", "model", g.cfg.Model, "tokens", resp.Usage.TotalTokens)
	return answer
}

// failure maps a client error to the user-facing message.
func (g *Generator) failure(err error) string {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var netErr net.Error
	var urlErr *url.Error
	switch {
	case errors.As(err, &apiErr):
		g.logger.Error("completion HTTP error", "status", apiErr.HTTPStatusCode, "error", apiErr.Message)
		return MsgHTTP(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		g.logger.Error("completion HTTP error", "status", reqErr.HTTPStatusCode, "error", reqErr.Err)
		return MsgHTTP(reqErr.HTTPStatusCode)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		errors.As(err, &netErr), errors.As(err, &urlErr):
		g.logger.Error("completion connection error", "error", err)
		return MsgConnection
	default:
		g.logger.Error("completion failed", "error", err)
		return MsgUnexpected
	}
}
