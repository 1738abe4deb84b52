// Package llmports defines the adapter contracts the ingestion and search
// pipelines consume for embedding, reranking, and text generation, plus the
// resilience wrapper (circuit breaker + retry) every default adapter runs
// its network calls through.
package llmports

import "context"

// EmbeddingPort turns text into fixed-dimension vectors. Dimensions are
// fixed once Init has returned; Embed/EmbedBatch are expected to be
// numerically stable for the same input text and model.
type EmbeddingPort interface {
	// Init prepares the port for use (model discovery, dimension probing,
	// warm-up). It must be called once before Embed/EmbedBatch/Dimensions.
	Init(ctx context.Context) error

	// Dimensions returns the embedding width. Only valid after Init.
	Dimensions() int

	// ModelName returns the identifier of the model actually in use.
	ModelName() string

	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds multiple texts, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Available reports whether the port is currently reachable.
	Available(ctx context.Context) bool

	// Dispose releases any held resources (connections, handles).
	Dispose() error
}

// RerankPort re-scores a candidate document pool against a query. Higher
// scores mean more relevant; callers are responsible for stable tie-breaks
// when scores are equal.
type RerankPort interface {
	Score(ctx context.Context, query string, documents []string) ([]float32, error)

	// Available reports whether the port is currently reachable.
	Available(ctx context.Context) bool
}

// GenerationOptions configures a single GenerationPort.Complete call.
type GenerationOptions struct {
	MaxTokens   int
	Temperature float64
}

// GenerationPort produces grounded text completions, used by the Ask
// pipeline to assemble an answer from retrieved context.
type GenerationPort interface {
	Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error)

	// Available reports whether the port is currently reachable.
	Available(ctx context.Context) bool
}
