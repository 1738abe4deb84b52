// Package httpgen provides thin HTTP-client adapters for llmports.GenerationPort
// and llmports.RerankPort, following the same request/retry/circuit-breaker
// shape as ollamaembed.
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

// GenConfig configures GenerationClient.
type GenConfig struct {
	Host    string // e.g. http://localhost:11434
	Model   string
	Timeout time.Duration
}

func (c GenConfig) withDefaults() GenConfig {
	if c.Host == "" {
		c.Host = "http://localhost:11434"
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	return c
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options,omitempty"`
}

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// GenerationClient implements llmports.GenerationPort against an
// Ollama-compatible POST /api/generate endpoint with stream=false.
type GenerationClient struct {
	client     *http.Client
	cfg        GenConfig
	resilience *llmports.Resilience
}

var _ llmports.GenerationPort = (*GenerationClient)(nil)

// NewGenerationClient builds a GenerationClient.
func NewGenerationClient(cfg GenConfig) *GenerationClient {
	cfg = cfg.withDefaults()
	return &GenerationClient{
		client:     &http.Client{},
		cfg:        cfg,
		resilience: llmports.NewResilience("httpgen:" + cfg.Model),
	}
}

// Complete requests a single non-streaming completion.
func (c *GenerationClient) Complete(ctx context.Context, prompt string, opts llmports.GenerationOptions) (string, error) {
	return llmports.DoResult(ctx, c.resilience, func() (string, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
		return c.doComplete(timeoutCtx, prompt, opts)
	})
}

func (c *GenerationClient) doComplete(ctx context.Context, prompt string, opts llmports.GenerationOptions) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: options{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("generate failed with status %d: %s", resp.StatusCode, respBody)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.Response, nil
}

// Available checks the server's /api/tags endpoint for reachability.
func (c *GenerationClient) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Host+"/api/tags", nil)
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
