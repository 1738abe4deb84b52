// Package ollamaembed implements llmports.EmbeddingPort against a local
// Ollama-style HTTP embedding server (POST /api/embed, GET /api/tags).
package ollamaembed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gnosis-index/gnosis/internal/llmports"
)

const (
	DefaultHost       = "http://localhost:11434"
	DefaultBatchSize  = 32
	DefaultTimeout    = 60 * time.Second
	DefaultPoolSize   = 4
	ConnectTimeout    = 5 * time.Second
	DefaultDimensions = 768
)

// Config configures Embedder.
type Config struct {
	Host           string
	Model          string
	FallbackModels []string
	Dimensions     int // 0 = auto-detect from a probe embedding
	BatchSize      int
	Timeout        time.Duration
	PoolSize       int
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	return c
}

type embedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type modelListResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Embedder is an llmports.EmbeddingPort backed by an Ollama-compatible
// embedding endpoint, with retry+circuit-breaker resilience around every
// network call.
type Embedder struct {
	client     *http.Client
	transport  *http.Transport
	cfg        Config
	resilience *llmports.Resilience

	mu        sync.RWMutex
	closed    bool
	modelName string
	dims      int
}

var _ llmports.EmbeddingPort = (*Embedder)(nil)

// New builds an Embedder. Call Init before use.
func New(cfg Config) *Embedder {
	cfg = cfg.withDefaults()
	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}
	return &Embedder{
		client:     &http.Client{Transport: transport},
		transport:  transport,
		cfg:        cfg,
		resilience: llmports.NewResilience("ollamaembed:" + cfg.Model),
		modelName:  cfg.Model,
		dims:       cfg.Dimensions,
	}
}

// Init resolves the configured model against what the server actually has
// installed (falling back down the FallbackModels list), then probes
// embedding dimensions if not explicitly set.
func (e *Embedder) Init(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	resolved, err := e.findAvailableModel(checkCtx)
	if err != nil {
		return fmt.Errorf("resolve ollama embedding model: %w", err)
	}
	e.mu.Lock()
	e.modelName = resolved
	e.mu.Unlock()

	if e.cfg.Dimensions == 0 {
		dims, err := e.detectDimensions(ctx)
		if err != nil {
			return fmt.Errorf("detect ollama embedding dimensions: %w", err)
		}
		e.mu.Lock()
		e.dims = dims
		e.mu.Unlock()
	}
	if e.dims == 0 {
		e.dims = DefaultDimensions
	}
	return nil
}

func (e *Embedder) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.Host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to ollama: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	var out modelListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	names := make([]string, len(out.Models))
	for i, m := range out.Models {
		names[i] = m.Name
	}
	return names, nil
}

func (e *Embedder) findAvailableModel(ctx context.Context) (string, error) {
	models, err := e.listModels(ctx)
	if err != nil {
		return "", err
	}
	available := make(map[string]string, len(models)*2)
	for _, name := range models {
		lower := strings.ToLower(name)
		available[lower] = name
		base := strings.Split(lower, ":")[0]
		if _, ok := available[base]; !ok {
			available[base] = name
		}
	}
	candidates := append([]string{e.cfg.Model}, e.cfg.FallbackModels...)
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate)
		if actual, ok := available[lower]; ok {
			return actual, nil
		}
		base := strings.Split(lower, ":")[0]
		if actual, ok := available[base]; ok {
			return actual, nil
		}
	}
	return "", fmt.Errorf("no embedding model available (tried %s and %v)", e.cfg.Model, e.cfg.FallbackModels)
}

func (e *Embedder) detectDimensions(ctx context.Context) (int, error) {
	embeddings, err := e.doEmbed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return 0, fmt.Errorf("empty probe embedding")
	}
	return len(embeddings[0]), nil
}

// Dimensions returns the resolved embedding width. Only meaningful after Init.
func (e *Embedder) Dimensions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dims
}

// ModelName returns the model name actually in use. Only meaningful after Init.
func (e *Embedder) ModelName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modelName
}

// Embed embeds a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.Dimensions()), nil
	}
	embeddings, err := e.embedWithResilience(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch embeds multiple texts in chunks of cfg.BatchSize, preserving
// input order; empty/whitespace entries short-circuit to a zero vector
// without a network call.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	type indexed struct {
		idx  int
		text string
	}
	var nonEmpty []indexed
	results := make([][]float32, len(texts))
	dims := e.Dimensions()
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = make([]float32, dims)
		} else {
			nonEmpty = append(nonEmpty, indexed{i, text})
		}
	}
	if len(nonEmpty) == 0 {
		return results, nil
	}

	for start := 0; start < len(nonEmpty); start += e.cfg.BatchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		end := min(start+e.cfg.BatchSize, len(nonEmpty))
		batch := nonEmpty[start:end]
		batchTexts := make([]string, len(batch))
		for i, it := range batch {
			batchTexts[i] = it.text
		}
		embeddings, err := e.embedWithResilience(ctx, batchTexts)
		if err != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		for i, emb := range embeddings {
			results[batch[i].idx] = emb
		}
	}
	return results, nil
}

func (e *Embedder) embedWithResilience(ctx context.Context, texts []string) ([][]float32, error) {
	return llmports.DoResult(ctx, e.resilience, func() ([][]float32, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		return e.doEmbed(timeoutCtx, texts)
	})
}

func (e *Embedder) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	var input any = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	body, err := json.Marshal(embedRequest{Model: e.ModelName(), Input: input})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed failed with status %d: %s", resp.StatusCode, respBody)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	embeddings := make([][]float32, len(out.Embeddings))
	for i, emb := range out.Embeddings {
		embeddings[i] = normalize(toFloat32(emb))
	}
	return embeddings, nil
}

// Available probes whether the resolved model is still listed by the
// server, without going through the retry/circuit wrapper (callers use
// this for health checks, not for traffic that should be retried).
func (e *Embedder) Available(ctx context.Context) bool {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return false
	}
	modelName := e.modelName
	e.mu.RUnlock()

	models, err := e.listModels(ctx)
	if err != nil {
		return false
	}
	target := strings.ToLower(modelName)
	for _, m := range models {
		if strings.Contains(strings.ToLower(m), target) {
			return true
		}
	}
	return false
}

// Dispose closes idle connections.
func (e *Embedder) Dispose() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	e.transport.CloseIdleConnections()
	return nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func normalize(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return v
	}
	magnitude := math.Sqrt(sumSquares)
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
