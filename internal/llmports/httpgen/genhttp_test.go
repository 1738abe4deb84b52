package httpgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/llmports"
)

func TestGenerationClient_CompleteReturnsResponseText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gen-model", req.Model)
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "the answer", Done: true})
	}))
	defer srv.Close()

	c := NewGenerationClient(GenConfig{Host: srv.URL, Model: "gen-model"})
	out, err := c.Complete(context.Background(), "what is it?", llmports.GenerationOptions{MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
}

func TestGenerationClient_CompletePropagatesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	defer srv.Close()

	c := NewGenerationClient(GenConfig{Host: srv.URL, Model: "gen-model"})
	noDelay := errorcode.DefaultRetryConfig()
	noDelay.InitialDelay = 0
	noDelay.MaxDelay = 0
	noDelay.MaxRetries = 0
	c.resilience = llmports.NewResilienceWithRetry("test", noDelay)
	_, err := c.Complete(context.Background(), "prompt", llmports.GenerationOptions{})
	require.Error(t, err)
}

func TestGenerationClient_AvailableChecksTagsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewGenerationClient(GenConfig{Host: srv.URL, Model: "gen-model"})
	assert.True(t, c.Available(context.Background()))
}
