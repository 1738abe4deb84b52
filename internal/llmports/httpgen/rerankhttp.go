package httpgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gnosis-index/gnosis/internal/llmports"
)

// RerankConfig configures RerankClient.
type RerankConfig struct {
	Host    string // e.g. http://localhost:8931 (a local cross-encoder server)
	Model   string
	Timeout time.Duration
}

func (c RerankConfig) withDefaults() RerankConfig {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Scores []float32 `json:"scores"`
}

// RerankClient implements llmports.RerankPort against a thin cross-encoder
// HTTP server: POST {model, query, documents} -> {scores}, one score per
// input document in the same order.
type RerankClient struct {
	client     *http.Client
	cfg        RerankConfig
	resilience *llmports.Resilience
}

var _ llmports.RerankPort = (*RerankClient)(nil)

// NewRerankClient builds a RerankClient. cfg.Host must be set; there is no
// widely-adopted default rerank server the way Ollama is for embeddings.
func NewRerankClient(cfg RerankConfig) *RerankClient {
	cfg = cfg.withDefaults()
	return &RerankClient{
		client:     &http.Client{},
		cfg:        cfg,
		resilience: llmports.NewResilience("httpgen-rerank:" + cfg.Model),
	}
}

// Score re-scores documents against query.
func (c *RerankClient) Score(ctx context.Context, query string, documents []string) ([]float32, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	return llmports.DoResult(ctx, c.resilience, func() ([]float32, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.doScore(timeoutCtx, query, documents)
	})
}

func (c *RerankClient) doScore(ctx context.Context, query string, documents []string) ([]float32, error) {
	body, err := json.Marshal(rerankRequest{Model: c.cfg.Model, Query: query, Documents: documents})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("rerank failed with status %d: %s", resp.StatusCode, respBody)
	}

	var out rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	if len(out.Scores) != len(documents) {
		return nil, fmt.Errorf("rerank server returned %d scores for %d documents", len(out.Scores), len(documents))
	}
	return out.Scores, nil
}

// Available checks the server's health endpoint for reachability.
func (c *RerankClient) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Host+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}
