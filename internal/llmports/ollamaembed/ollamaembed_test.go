package ollamaembed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, embedDims int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(modelListResponse{
			Models: []struct {
				Name string `json:"name"`
			}{{Name: "test-embed:latest"}},
		})
	})
	mux.HandleFunc("/api/embed", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var texts []string
		switch v := req.Input.(type) {
		case string:
			texts = []string{v}
		case []any:
			for _, t := range v {
				texts = append(texts, t.(string))
			}
		}

		embeddings := make([][]float64, len(texts))
		for i := range texts {
			vec := make([]float64, embedDims)
			vec[0] = 1.0
			embeddings[i] = vec
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: embeddings})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedder_InitResolvesModelAndDimensions(t *testing.T) {
	srv := newTestServer(t, 8)
	e := New(Config{Host: srv.URL, Model: "test-embed"})
	require.NoError(t, e.Init(context.Background()))
	assert.Equal(t, "test-embed:latest", e.ModelName())
	assert.Equal(t, 8, e.Dimensions())
}

func TestEmbedder_EmbedEmptyTextReturnsZeroVector(t *testing.T) {
	srv := newTestServer(t, 8)
	e := New(Config{Host: srv.URL, Model: "test-embed"})
	require.NoError(t, e.Init(context.Background()))

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestEmbedder_EmbedBatchPreservesOrder(t *testing.T) {
	srv := newTestServer(t, 4)
	e := New(Config{Host: srv.URL, Model: "test-embed", BatchSize: 2})
	require.NoError(t, e.Init(context.Background()))

	out, err := e.EmbedBatch(context.Background(), []string{"a", "", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.NotZero(t, out[0][0])
	assert.Zero(t, out[1][0])
	assert.NotZero(t, out[2][0])
	assert.NotZero(t, out[3][0])
}

func TestEmbedder_InitFallsBackWhenPrimaryModelMissing(t *testing.T) {
	srv := newTestServer(t, 4)
	e := New(Config{Host: srv.URL, Model: "missing-model", FallbackModels: []string{"test-embed"}})
	require.NoError(t, e.Init(context.Background()))
	assert.Equal(t, "test-embed:latest", e.ModelName())
}

func TestEmbedder_InitFailsWhenNoModelAvailable(t *testing.T) {
	srv := newTestServer(t, 4)
	e := New(Config{Host: srv.URL, Model: "nope", FallbackModels: []string{"also-nope"}})
	err := e.Init(context.Background())
	require.Error(t, err)
}

func TestEmbedder_AvailableReflectsServerState(t *testing.T) {
	srv := newTestServer(t, 4)
	e := New(Config{Host: srv.URL, Model: "test-embed"})
	require.NoError(t, e.Init(context.Background()))
	assert.True(t, e.Available(context.Background()))
}

func TestEmbedder_DisposeClosesConnections(t *testing.T) {
	srv := newTestServer(t, 4)
	e := New(Config{Host: srv.URL, Model: "test-embed"})
	require.NoError(t, e.Init(context.Background()))
	require.NoError(t, e.Dispose())
	assert.False(t, e.Available(context.Background()))
}
