package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/llmports"
	"github.com/gnosis-index/gnosis/internal/store"
	"github.com/gnosis-index/gnosis/internal/vectorindex"
)

// Engine runs the lexical, hybrid, ask, and similar-document search
// operations over one store, optionally backed by a vector index and
// llmports adapters. Every adapter is optional: a nil or unavailable
// embed/gen/rerank port degrades that stage rather than failing the
// search outright, matching the store's own "downgrade, never lose data"
// posture for the vector extension.
type Engine struct {
	store      *store.Store
	vector     *vectorindex.VectorIndex
	embed      llmports.EmbeddingPort
	gen        llmports.GenerationPort
	rerankPort llmports.RerankPort
	classifier Classifier
	expander   *Expander
	logger     *slog.Logger
}

// New builds an Engine. vector, embed, gen, and rerankPort may be nil; a
// nil logger defaults to slog.Default().
func New(st *store.Store, vector *vectorindex.VectorIndex, embed llmports.EmbeddingPort, gen llmports.GenerationPort, rerankPort llmports.RerankPort, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      st,
		vector:     vector,
		embed:      embed,
		gen:        gen,
		rerankPort: rerankPort,
		classifier: NewPatternClassifier(),
		expander:   NewExpander(gen),
		logger:     logger,
	}
}

// Lexical runs a pure BM25 search via the store's FTS projection.
func (e *Engine) Lexical(ctx context.Context, query string, opts Options) ([]Result, error) {
	hits, err := e.searchFts(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < len(hits) {
		hits = hits[:limit]
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			DocID: h.docID, URI: h.uri, Title: h.title, Collection: h.collection,
			Score: h.score, LexicalScore: h.score, LexicalRank: i + 1, Snippet: h.snippet,
		}
	}
	return results, nil
}

// searchFts runs one FTS query and converts the store's ascending ("lower
// is better") BM25 scores into a descending 0-1 "bigger is better" scale
// lexicalHit and the rest of the pipeline expect.
func (e *Engine) searchFts(ctx context.Context, query string, opts Options) ([]lexicalHit, error) {
	raw, err := e.store.SearchFts(ctx, query, store.FtsSearchOptions{
		Collection: opts.Collection,
		TagsAll:    opts.TagsAll,
		TagsAny:    opts.TagsAny,
		Snippet:    opts.Snippet,
		Limit:      opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	hits := make([]lexicalHit, len(raw))
	for i, r := range raw {
		hits[i] = lexicalHit{
			docID: r.DocID, uri: r.URI, title: r.Title, snippet: r.Snippet,
			score: 1 / (1 + maxFloat(r.Score, 0)),
		}
	}
	return hits, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Hybrid runs the lexical and vector sides of the query concurrently via
// errgroup, fuses the two ranked lists with reciprocal rank fusion,
// optionally widens the lexical side with GenPort paraphrases (each
// paraphrase searched concurrently too), and optionally reranks the fused
// candidate pool with a cross-encoder before truncating to Limit.
func (e *Engine) Hybrid(ctx context.Context, query string, opts Options) ([]Result, AskMeta, error) {
	meta := AskMeta{QueryType: QueryTypeMixed, Weights: DefaultWeights()}
	weights := DefaultWeights()
	if opts.Weights != nil {
		weights = *opts.Weights
	} else {
		meta.QueryType, weights = e.classifier.Classify(ctx, query)
	}
	meta.Weights = weights

	var lexicalHits []lexicalHit
	var vectorHits []VectorHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.searchFts(gctx, query, opts)
		if err != nil {
			return err
		}
		lexicalHits = hits
		return nil
	})
	g.Go(func() error {
		vectorHits = e.searchVector(gctx, query, opts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, meta, err
	}

	if !opts.NoExpand && e.gen != nil {
		paraphrases := e.expander.Expand(ctx, query)
		if len(paraphrases) > 1 {
			meta.Expanded = true
			seen := make(map[string]bool, len(lexicalHits))
			for _, h := range lexicalHits {
				seen[h.uri] = true
			}

			eg, egctx := errgroup.WithContext(ctx)
			extras := make([][]lexicalHit, len(paraphrases)-1)
			for i, p := range paraphrases[1:] {
				i, p := i, p
				eg.Go(func() error {
					extra, err := e.searchFts(egctx, p, opts)
					if err != nil {
						e.logger.Warn("query expansion search failed", "error", err)
						return nil
					}
					extras[i] = extra
					return nil
				})
			}
			_ = eg.Wait()

			for _, extra := range extras {
				for _, h := range extra {
					if seen[h.uri] {
						continue
					}
					seen[h.uri] = true
					lexicalHits = append(lexicalHits, h)
				}
			}
		}
	}

	poolLimit := opts.CandidatePoolLimit
	if poolLimit <= 0 {
		poolLimit = DefaultCandidatePoolLimit
	}
	candidates := newRRFFusion(DefaultRRFConstant).fuse(lexicalHits, vectorHits, weights)
	if len(candidates) > poolLimit {
		candidates = candidates[:poolLimit]
	}
	meta.CandidateCount = len(candidates)

	if !opts.NoRerank && e.rerankPort != nil && e.rerankPort.Available(ctx) && len(candidates) > 0 {
		texts := e.candidateTexts(ctx, candidates)
		reranked, scores, err := rerank(ctx, e.rerankPort, query, candidates, texts)
		if err != nil {
			e.logger.Warn("rerank failed, falling back to fused order", "error", err)
		} else {
			candidates = reranked
			meta.Reranked = true
			maxScore := maxOf(scores)
			for i, c := range candidates {
				s := scores[i]
				if maxScore > 0 {
					s /= maxScore
				}
				c.rrfScore = s
			}
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	return toResults(candidates), meta, nil
}

func maxOf(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

func toResults(candidates []*fused) []Result {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[i] = Result{
			DocID: c.docID, URI: c.uri, Title: c.title, Collection: c.collection,
			Score: c.rrfScore, LexicalScore: c.lexicalScore, LexicalRank: c.lexicalRank,
			VectorScore: c.vecScore, VectorRank: c.vecRank, InBothLists: c.inBoth,
		}
	}
	return out
}

// candidateTexts fetches the canonical body (falling back to the title)
// for each candidate, for the reranker to score against the query.
func (e *Engine) candidateTexts(ctx context.Context, candidates []*fused) []string {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		doc, err := e.store.GetDocumentByURI(ctx, c.uri)
		if err != nil {
			texts[i] = c.title
			continue
		}
		body, err := e.store.GetContent(ctx, doc.MirrorHash)
		if err != nil || body == "" {
			texts[i] = c.title
			continue
		}
		texts[i] = truncateRunes(body, 2000)
	}
	return texts
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// searchVector embeds query and calls the vector index's kNN search,
// resolving mirrorHash hits back to their owning documents. A nil/
// unconfigured embed port, an unavailable embed port, or an unavailable
// vector mirror all degrade to an empty vector side rather than failing
// the whole hybrid search.
func (e *Engine) searchVector(ctx context.Context, query string, opts Options) []VectorHit {
	if e.vector == nil || e.embed == nil || !e.embed.Available(ctx) {
		return nil
	}

	embedding, err := e.embed.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("query embedding failed", "error", err)
		return nil
	}

	k := opts.CandidatePoolLimit
	if k <= 0 {
		k = DefaultCandidatePoolLimit
	}
	nearest, err := e.vector.SearchNearest(ctx, embedding, k, 0)
	if err != nil {
		if errorcode.GetCode(err) != errorcode.CodeVecSearchUnavail {
			e.logger.Warn("vector search failed", "error", err)
		}
		return nil
	}
	if len(nearest) == 0 {
		return nil
	}

	hashes := make([]string, len(nearest))
	for i, n := range nearest {
		hashes[i] = n.MirrorHash
	}
	docs, err := e.store.GetDocumentsByMirrorHashes(ctx, hashes)
	if err != nil {
		e.logger.Warn("vector result resolution failed", "error", err)
		return nil
	}

	seen := make(map[string]bool, len(nearest))
	hits := make([]VectorHit, 0, len(nearest))
	for _, n := range nearest {
		doc, ok := docs[n.MirrorHash]
		if !ok || seen[doc.URI] {
			continue
		}
		if opts.Collection != "" && doc.Collection != opts.Collection {
			continue
		}
		seen[doc.URI] = true
		hits = append(hits, VectorHit{
			DocID: doc.DocID, URI: doc.URI, Title: doc.Title, Collection: doc.Collection,
			Similarity: e.vector.Similarity(n.Distance),
		})
	}
	return hits
}

// DefaultAskMaxTokens bounds a grounded answer's length when the caller
// doesn't specify one.
const DefaultAskMaxTokens = 512

// askPromptHeader introduces the grounding context; each result is listed
// as "[n] title (uri)" followed by a body excerpt.
const askPromptHeader = "Answer the question using only the excerpts below. Cite sources inline as [n]. If the excerpts don't contain the answer, say so.\n\nQuestion: %s\n\n"

// Ask runs Hybrid, then asks the GenerationPort for an answer grounded in
// the top results, extracting citations that reference the result set's
// document URIs. When gen is nil/unavailable, it returns the hybrid
// results with no answer rather than failing.
func (e *Engine) Ask(ctx context.Context, query string, opts Options, maxAnswerTokens int) (*AskResult, error) {
	results, meta, err := e.Hybrid(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	ask := &AskResult{Results: results, Meta: meta}
	if e.gen == nil || !e.gen.Available(ctx) || len(results) == 0 {
		return ask, nil
	}

	if maxAnswerTokens <= 0 {
		maxAnswerTokens = DefaultAskMaxTokens
	}
	prompt := e.buildAskPrompt(ctx, query, results)
	answer, err := e.gen.Complete(ctx, prompt, llmports.GenerationOptions{MaxTokens: maxAnswerTokens, Temperature: 0.3})
	if err != nil {
		e.logger.Warn("ask generation failed", "error", err)
		return ask, nil
	}

	ask.Answer = answer
	ask.Citations = extractCitations(answer, results)
	return ask, nil
}

func (e *Engine) buildAskPrompt(ctx context.Context, query string, results []Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(askPromptHeader, query))
	for i, r := range results {
		excerpt := r.Snippet
		if excerpt == "" {
			if doc, err := e.store.GetDocumentByURI(ctx, r.URI); err == nil {
				if body, err := e.store.GetContent(ctx, doc.MirrorHash); err == nil {
					excerpt = truncateRunes(body, 800)
				}
			}
		}
		sb.WriteString(fmt.Sprintf("[%d] %s (%s)\n%s\n\n", i+1, r.Title, r.URI, excerpt))
	}
	return sb.String()
}

// extractCitations scans answer for "[n]" markers referencing results'
// 1-indexed position, returning the cited documents in first-appearance
// order with duplicates collapsed.
func extractCitations(answer string, results []Result) []Citation {
	type cited struct{ pos, idx int }
	var hits []cited
	for i := range results {
		if pos := strings.Index(answer, fmt.Sprintf("[%d]", i+1)); pos >= 0 {
			hits = append(hits, cited{pos: pos, idx: i})
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })

	var out []Citation
	for _, h := range hits {
		r := results[h.idx]
		out = append(out, Citation{DocID: r.DocID, URI: r.URI, Title: r.Title})
	}
	return out
}

// Similar finds documents whose content resembles sourceURI's, via the
// vector index: fetch the source document's seq-0 (or first available)
// embedding, search for an overshot neighbor pool, drop self/duplicates/
// below-threshold/other-collection hits, then return up to Limit ranked
// by descending similarity.
func (e *Engine) Similar(ctx context.Context, sourceURI string, opts SimilarOptions) ([]Result, error) {
	if e.vector == nil {
		return nil, errorcode.New(errorcode.CodeVecSearchUnavail, "vector index is not configured", nil)
	}

	source, err := e.store.GetDocumentByURI(ctx, sourceURI)
	if err != nil {
		return nil, err
	}

	embedding, err := e.vector.GetEmbedding(ctx, source.MirrorHash)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSimilarLimit
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultSimilarThreshold
	}

	nearest, err := e.vector.SearchNearest(ctx, embedding, limit*similarOvershoot, threshold)
	if err != nil {
		return nil, err
	}
	if len(nearest) == 0 {
		return nil, nil
	}

	hashes := make([]string, len(nearest))
	for i, n := range nearest {
		hashes[i] = n.MirrorHash
	}
	docs, err := e.store.GetDocumentsByMirrorHashes(ctx, hashes)
	if err != nil {
		return nil, err
	}

	best := make(map[string]Result, len(nearest))
	for _, n := range nearest {
		doc, ok := docs[n.MirrorHash]
		if !ok || doc.MirrorHash == source.MirrorHash {
			continue
		}
		if !opts.CrossCollection && doc.Collection != source.Collection {
			continue
		}
		sim := e.vector.Similarity(n.Distance)
		if existing, ok := best[doc.URI]; ok && existing.Score >= sim {
			continue
		}
		best[doc.URI] = Result{DocID: doc.DocID, URI: doc.URI, Title: doc.Title, Collection: doc.Collection, Score: sim}
	}

	out := make([]Result, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].URI < out[j].URI
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
