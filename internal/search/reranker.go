package search

import (
	"context"
	"sort"

	"github.com/gnosis-index/gnosis/internal/llmports"
)

// rerank re-scores candidates against query with port and returns them
// reordered by the new score, descending. texts[i] must be the document
// text for candidates[i]. A stable sort preserves the incoming (fused)
// order among equal rerank scores, satisfying the tie-break requirement
// without needing a second comparison key.
func rerank(ctx context.Context, port llmports.RerankPort, query string, candidates []*fused, texts []string) ([]*fused, []float64, error) {
	scores, err := port.Score(ctx, query, texts)
	if err != nil {
		return nil, nil, err
	}

	type scored struct {
		c     *fused
		score float64
	}
	items := make([]scored, len(candidates))
	for i, c := range candidates {
		s := float64(0)
		if i < len(scores) {
			s = float64(scores[i])
		}
		items[i] = scored{c: c, score: s}
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].score > items[j].score })

	out := make([]*fused, len(items))
	outScores := make([]float64, len(items))
	for i, it := range items {
		out[i] = it.c
		outScores[i] = it.score
	}
	return out, outScores, nil
}
