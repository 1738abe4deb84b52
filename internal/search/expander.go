package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/gnosis-index/gnosis/internal/llmports"
)

// DefaultMaxParaphrases bounds how many paraphrases Expand requests and
// keeps, per spec: "a small number of paraphrases ... under a controlled
// token budget".
const DefaultMaxParaphrases = 3

// DefaultExpansionMaxTokens caps the generation call's output length.
const DefaultExpansionMaxTokens = 128

const paraphrasePromptTemplate = `Rewrite the following search query as %d short alternative phrasings that preserve its meaning but use different words. Reply with exactly one phrasing per line, no numbering, no commentary.

Query: %s`

// Expander asks a GenerationPort for query paraphrases, used to widen the
// lexical candidate set before fusion (vocabulary mismatch between how a
// note is phrased and how the user remembers it).
type Expander struct {
	gen            llmports.GenerationPort
	maxParaphrases int
	maxTokens      int
}

// NewExpander builds an Expander over gen. A nil gen, or one that reports
// Available()==false at call time, makes Expand a no-op returning only the
// original query.
func NewExpander(gen llmports.GenerationPort) *Expander {
	return &Expander{gen: gen, maxParaphrases: DefaultMaxParaphrases, maxTokens: DefaultExpansionMaxTokens}
}

// Expand returns query plus up to maxParaphrases distinct paraphrases. On
// any generation failure or unavailability it returns just [query]:
// expansion is an enhancement, never a hard requirement for search to run.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	out := []string{query}
	if e.gen == nil || !e.gen.Available(ctx) {
		return out
	}

	prompt := fmt.Sprintf(paraphrasePromptTemplate, e.maxParaphrases, query)
	raw, err := e.gen.Complete(ctx, prompt, llmports.GenerationOptions{MaxTokens: e.maxTokens, Temperature: 0.7})
	if err != nil {
		return out
	}

	seen := map[string]bool{normalizeForDedup(query): true}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. )"))
		if line == "" {
			continue
		}
		key := normalizeForDedup(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, line)
		if len(out) > e.maxParaphrases {
			break
		}
	}
	return out
}

func normalizeForDedup(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
