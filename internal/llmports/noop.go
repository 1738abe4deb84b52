package llmports

import (
	"context"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// NoopRerankPort satisfies RerankPort when no rerank model is configured.
// Score always fails with UNAVAILABLE so callers treat reranking as
// "skipped" rather than silently returning meaningless scores.
type NoopRerankPort struct{}

func (NoopRerankPort) Score(ctx context.Context, query string, documents []string) ([]float32, error) {
	return nil, errorcode.Unavailable("no rerank model configured")
}

func (NoopRerankPort) Available(ctx context.Context) bool { return false }

// NoopGenerationPort satisfies GenerationPort when no generation model is
// configured. Complete always fails with UNAVAILABLE so the Ask pipeline
// can report a clear reason instead of attempting a call that was never
// going to succeed.
type NoopGenerationPort struct{}

func (NoopGenerationPort) Complete(ctx context.Context, prompt string, opts GenerationOptions) (string, error) {
	return "", errorcode.Unavailable("no generation model configured")
}

func (NoopGenerationPort) Available(ctx context.Context) bool { return false }
