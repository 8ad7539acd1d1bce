package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medikacom/kgrag/internal/logger"
	"medikacom/kgrag/internal/search"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// chatServer speaks the chat completions wire format.
type chatServer struct {
	mu       sync.Mutex
	requests []chatRequest
	auth     string
	status   int
	body     string
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.auth = r.Header.Get("Authorization")
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if s.status != 0 {
		w.WriteHeader(s.status)
	}
	w.Write([]byte(s.body))
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "llama-3.3-70b-versatile",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func newGenerator(t *testing.T, srv *chatServer, key string) *Generator {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return NewGenerator(Config{
		BaseURL: ts.URL + "/v1", APIKey: key, Model: "llama-3.3-70b-versatile",
		Temperature: 0.1, MaxTokens: 2048,
	}, logger.Discard())
}

func TestGenerate_Success(t *testing.T) {
	srv := &chatServer{body: completion("  Sekolah berdiri tahun 2004.  ")}
	g := newGenerator(t, srv, "gsk_test")

	got := g.Generate(context.Background(), "Sejarah Sekolah: berdiri tahun 2004", "Kapan sekolah berdiri?")
	assert.Equal(t, "Sekolah berdiri tahun 2004.", got)

	require.Len(t, srv.requests, 1)
	req := srv.requests[0]
	assert.Equal(t, "Bearer gsk_test", srv.auth)
	assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
	assert.InDelta(t, 0.1, req.Temperature, 1e-6)
	assert.Equal(t, 2048, req.MaxTokens)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, SystemPrompt, req.Messages[0].Content)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, req.Messages[1].Content, "Sejarah Sekolah: berdiri tahun 2004")
	assert.Contains(t, req.Messages[1].Content, "PERTANYAAN PENGGUNA:\nKapan sekolah berdiri?\n")
}

func TestGenerate_EmptyContextUsesFallback(t *testing.T) {
	srv := &chatServer{body: completion("Maaf.")}
	g := newGenerator(t, srv, "gsk_test")

	g.Generate(context.Background(), "  \n", "apa?")
	require.Len(t, srv.requests, 1)
	assert.Contains(t, srv.requests[0].Messages[1].Content, NoContext)
}

func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name string
		srv  *chatServer
		key  string
		want string
	}{
		{"missing key", &chatServer{body: completion("x")}, "", MsgMissingKey},
		{"empty answer", &chatServer{body: completion("   ")}, "k", MsgEmptyAnswer},
		{"no choices", &chatServer{body: `{"id":"x","object":"chat.completion","choices":[]}`}, "k", MsgBadResponse},
		{"api error", &chatServer{status: http.StatusTooManyRequests,
			body: `{"error":{"message":"rate limited","type":"rate_limit"}}`}, "k", MsgHTTP(429)},
		{"non-json error", &chatServer{status: http.StatusBadGateway, body: `<html>bad gateway</html>`}, "k", MsgHTTP(502)},
		{"malformed body", &chatServer{body: `not json`}, "k", MsgUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(t, tt.srv, tt.key)
			assert.Equal(t, tt.want, g.Generate(context.Background(), "ctx", "q"))
		})
	}
}

func TestGenerate_MissingKeyMakesNoRequest(t *testing.T) {
	srv := &chatServer{body: completion("x")}
	g := newGenerator(t, srv, " ")
	assert.Equal(t, MsgMissingKey, g.Generate(context.Background(), "ctx", "q"))
	assert.Empty(t, srv.requests)
}

func TestGenerate_ConnectionError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	g := NewGenerator(Config{BaseURL: url, APIKey: "k", Model: "m"}, logger.Discard())
	assert.Equal(t, MsgConnection, g.Generate(context.Background(), "ctx", "q"))
}

func TestMsgHTTP(t *testing.T) {
	assert.Equal(t, "Maaf, terjadi kesalahan HTTP (500) saat menghubungi layanan AI.", MsgHTTP(500))
	assert.Equal(t, "Maaf, terjadi kesalahan HTTP (N/A) saat menghubungi layanan AI.", MsgHTTP(0))
}

func TestUserMessage_QuestionUnmodified(t *testing.T) {
	q := "  Berapa biaya   TKJ?\n"
	msg := UserMessage("konteks", q)
	assert.True(t, strings.Contains(msg, "PERTANYAAN PENGGUNA:\n"+q+"\n"))
	assert.Contains(t, msg, "\"\"\"\nkonteks\n\"\"\"")
}

type stubSearcher struct {
	blocks []search.ContextBlock
	err    error
}

func (s stubSearcher) Search(context.Context, string, int) ([]search.ContextBlock, error) {
	return s.blocks, s.err
}

type recordingResponder struct {
	contextText string
}

func (r *recordingResponder) Generate(_ context.Context, contextText, question string) string {
	r.contextText = contextText
	return "jawaban untuk " + question
}

func TestPipeline_Ask(t *testing.T) {
	blocks := []search.ContextBlock{{Text: "satu"}, {Text: "dua"}}
	resp := &recordingResponder{}
	p := NewPipeline(stubSearcher{blocks: blocks}, resp, 10, logger.Discard())

	res := p.Ask(context.Background(), "apa?")
	assert.Equal(t, "jawaban untuk apa?", res.Answer)
	assert.Equal(t, blocks, res.Blocks)
	assert.Equal(t, "satu\n\n---\n\ndua", resp.contextText)
	assert.NoError(t, res.RetrievalErr)
}

func TestPipeline_RetrievalErrorNeverReachesResponder(t *testing.T) {
	resp := &recordingResponder{contextText: "unset"}
	p := NewPipeline(stubSearcher{blocks: []search.ContextBlock{{Text: "x"}}, err: errors.New("store down")}, resp, 10, logger.Discard())

	res := p.Ask(context.Background(), "apa?")
	assert.Equal(t, "jawaban untuk apa?", res.Answer)
	assert.Empty(t, resp.contextText)
	assert.Empty(t, res.Blocks)
	assert.Error(t, res.RetrievalErr)
}
