package httpgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankClient_ScoreReturnsOrderedScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Documents, 2)
		_ = json.NewEncoder(w).Encode(rerankResponse{Scores: []float32{0.9, 0.2}})
	}))
	defer srv.Close()

	c := NewRerankClient(RerankConfig{Host: srv.URL, Model: "rerank-model"})
	scores, err := c.Score(context.Background(), "query", []string{"doc a", "doc b"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.9, 0.2}, scores)
}

func TestRerankClient_ScoreEmptyDocumentsShortCircuits(t *testing.T) {
	c := NewRerankClient(RerankConfig{Host: "http://unused.invalid", Model: "m"})
	scores, err := c.Score(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Nil(t, scores)
}

func TestRerankClient_ScoreMismatchedCountErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rerankResponse{Scores: []float32{0.5}})
	}))
	defer srv.Close()

	c := NewRerankClient(RerankConfig{Host: srv.URL, Model: "rerank-model"})
	_, err := c.Score(context.Background(), "query", []string{"doc a", "doc b"})
	require.Error(t, err)
}

func TestRerankClient_AvailableChecksHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewRerankClient(RerankConfig{Host: srv.URL, Model: "rerank-model"})
	assert.True(t, c.Available(context.Background()))
}
