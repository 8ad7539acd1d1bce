// Package chunker splits text into overlapping token windows.
package chunker

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"medikacom/kgrag/internal/logger"
	"medikacom/kgrag/internal/tokenizer"
)

// DefaultMaxTokens is the default window size in tokens.
const DefaultMaxTokens = 512

// DefaultOverlap is the default number of tokens shared by neighbouring windows.
const DefaultOverlap = 50

// Chunker cuts prefixed text into windows of at most MaxTokens tokens.
type Chunker struct {
	tokenizer tokenizer.Tokenizer
	maxTokens int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxTokens sets the window size.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithOverlap sets the overlap between windows.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chunker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Chunker. A nil tokenizer is allowed: every text then becomes
// a single chunk with no size guarantee.
func New(tok tokenizer.Tokenizer, opts ...Option) *Chunker {
	c := &Chunker{
		tokenizer: tok,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Scope("chunker"))
	return c
}

// MaxTokens returns the window size.
func (c *Chunker) MaxTokens() int { return c.maxTokens }

// Overlap returns the window overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk returns the windows of "prefix: text". Blank text yields nil.
// Windows never split a character, so they hold at most MaxTokens tokens
// unless a single character alone needs more.
func (c *Chunker) Chunk(text, prefix string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	full := strings.TrimSpace(prefix) + ": " + text

	if c.tokenizer == nil {
		c.logger.Warn("no tokenizer, emitting single chunk", "prefix", prefix)
		return []string{full}
	}

	tokens := c.tokenizer.Encode(full)
	if len(tokens) == 0 {
		return nil
	}

	starts := c.charStarts(tokens)
	var chunks []string
	for start := 0; start < len(tokens); {
		end := min(start+c.maxTokens, len(tokens))
		for end > start && !starts[end] {
			end--
		}
		if end == start {
			// One character needs more tokens than a window holds.
			end++
			for !starts[end] {
				end++
			}
			c.logger.Warn("window widened to keep a character whole", "tokens", end-start, "max_tokens", c.maxTokens)
		}
		chunks = append(chunks, c.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
		next := end - c.overlap
		for next > start && !starts[next] {
			next--
		}
		// No boundary past start would stall; continue from the end of this window.
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// charStarts reports, for each token index and for len(tokens), whether a
// window may begin or end there. Byte-level BPE can split one character over
// several tokens, and only the first of them starts with a rune start byte.
func (c *Chunker) charStarts(tokens []int) []bool {
	starts := make([]bool, len(tokens)+1)
	for i, t := range tokens {
		b := c.tokenizer.Decode([]int{t})
		starts[i] = b == "" || utf8.RuneStart(b[0])
	}
	starts[len(tokens)] = true
	return starts
}
