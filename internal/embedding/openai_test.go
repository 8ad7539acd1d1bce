package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medikacom/kgrag/internal/logger"
)

type embedServer struct {
	mu        sync.Mutex
	inputs    [][]string
	failBatch bool
	dim       int
}

func (s *embedServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.inputs = append(s.inputs, req.Input)
	s.mu.Unlock()

	fail := s.failBatch && len(req.Input) > 1
	for _, in := range req.Input {
		if strings.Contains(in, "bad") {
			fail = true
		}
	}
	if fail {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
		return
	}

	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]item, len(req.Input))
	for i, in := range req.Input {
		vec := make([]float32, s.dim)
		vec[len(in)%s.dim] = 1
		data[i] = item{Object: "embedding", Embedding: vec, Index: i}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
}

func newTestProvider(t *testing.T, srv *embedServer, batch int) *OpenAI {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	p, err := NewOpenAI(OpenAIConfig{
		BaseURL:    ts.URL + "/v1",
		APIKey:     "test",
		Model:      "intfloat/multilingual-e5-large-instruct",
		Dimensions: srv.dim,
		BatchSize:  batch,
	}, logger.Discard())
	require.NoError(t, err)
	return p
}

func TestOpenAI_BatchWithPrefix(t *testing.T) {
	srv := &embedServer{dim: 4}
	p := newTestProvider(t, srv, 8)

	vecs, err := p.Embed(context.Background(), []string{"a", "bb", "ccc"}, ModePassage)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for _, v := range vecs {
		assert.Len(t, v, 4)
	}
	require.Len(t, srv.inputs, 1)
	assert.Equal(t, []string{"passage: a", "passage: bb", "passage: ccc"}, srv.inputs[0])
}

func TestOpenAI_QueryPrefix(t *testing.T) {
	srv := &embedServer{dim: 4}
	p := newTestProvider(t, srv, 8)

	v, err := EmbedOne(context.Background(), p, "berapa biaya?", ModeQuery)
	require.NoError(t, err)
	assert.Len(t, v, 4)
	assert.Equal(t, []string{"query: berapa biaya?"}, srv.inputs[0])
}

func TestOpenAI_PerTextFallback(t *testing.T) {
	srv := &embedServer{dim: 4, failBatch: true}
	p := newTestProvider(t, srv, 8)

	vecs, err := p.Embed(context.Background(), []string{"one", "bad two", "three"}, ModePassage)
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.NotNil(t, vecs[0])
	assert.Nil(t, vecs[1])
	assert.NotNil(t, vecs[2])
	// one failed batch call plus three single calls
	assert.Len(t, srv.inputs, 4)
}

func TestOpenAI_AllFailIsUnavailable(t *testing.T) {
	srv := &embedServer{dim: 4}
	p := newTestProvider(t, srv, 8)

	_, err := p.Embed(context.Background(), []string{"bad"}, ModePassage)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAI_WrongDimensionDropped(t *testing.T) {
	srv := &embedServer{dim: 4}
	p := newTestProvider(t, srv, 8)
	p.dim = 8

	_, err := p.Embed(context.Background(), []string{"x"}, ModePassage)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAI_BatchesSplit(t *testing.T) {
	srv := &embedServer{dim: 4}
	p := newTestProvider(t, srv, 2)

	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c", "d", "e"}, ModePassage)
	require.NoError(t, err)
	assert.Len(t, vecs, 5)
	assert.Len(t, srv.inputs, 3)
}

func TestNewOpenAI_Validation(t *testing.T) {
	_, err := NewOpenAI(OpenAIConfig{Dimensions: 4}, nil)
	assert.Error(t, err)
	_, err = NewOpenAI(OpenAIConfig{Model: "m"}, nil)
	assert.Error(t, err)
}

func TestModePrefix(t *testing.T) {
	assert.Equal(t, "query: ", ModeQuery.Prefix())
	assert.Equal(t, "passage: ", ModePassage.Prefix())
	assert.Equal(t, "query", ModeQuery.String())
}
