// Package search implements the hybrid search pipeline: lexical ranking
// delegated to the store's FTS projection, vector kNN over the vector
// index, reciprocal-rank fusion of the two, optional query-paraphrase
// expansion and cross-encoder reranking through the llmports adapter
// contracts, grounded-answer assembly with citations, and single-document
// similarity search.
package search

import "context"

// Weights controls the relative contribution of lexical and semantic
// scores during fusion.
type Weights struct {
	Lexical  float64
	Semantic float64
}

// DefaultWeights returns an even split between lexical and semantic
// signal, the fallback when no classifier or caller-supplied weights
// apply.
func DefaultWeights() Weights {
	return Weights{Lexical: 0.5, Semantic: 0.5}
}

// QueryType is the classification category a Classifier assigns to a
// query, used to pick fusion weights before hybrid search runs.
type QueryType string

const (
	QueryTypeLexical  QueryType = "LEXICAL"
	QueryTypeSemantic QueryType = "SEMANTIC"
	QueryTypeMixed    QueryType = "MIXED"
)

// WeightsForQueryType maps a classification to the weights that favor it.
func WeightsForQueryType(qt QueryType) Weights {
	switch qt {
	case QueryTypeLexical:
		return Weights{Lexical: 0.85, Semantic: 0.15}
	case QueryTypeSemantic:
		return Weights{Lexical: 0.20, Semantic: 0.80}
	default:
		return Weights{Lexical: 0.5, Semantic: 0.5}
	}
}

// Classifier assigns a QueryType and matching Weights to a query.
// Implementations never fail: on any internal error they fall back to
// QueryTypeMixed with its default weights.
type Classifier interface {
	Classify(ctx context.Context, query string) (QueryType, Weights)
}

// Options configures a lexical or hybrid search.
type Options struct {
	Collection string
	TagsAll    []string
	TagsAny    []string
	Limit      int
	Snippet    bool

	// Weights overrides the classifier's choice. Nil defers to the
	// classifier (hybrid/ask) or is ignored (lexical-only).
	Weights *Weights

	// NoExpand suppresses GenPort-driven query paraphrase expansion.
	NoExpand bool

	// NoRerank suppresses the cross-encoder rerank pass.
	NoRerank bool

	// CandidatePoolLimit bounds how many fused candidates are kept before
	// reranking and truncation to Limit. Zero uses DefaultCandidatePoolLimit.
	CandidatePoolLimit int
}

// DefaultCandidatePoolLimit bounds the fused candidate pool considered for
// reranking before the final Limit truncation.
const DefaultCandidatePoolLimit = 50

// DefaultLimit is the result count used when Options.Limit is unset.
const DefaultLimit = 10

// Result is one ranked hit from a lexical or hybrid search.
type Result struct {
	DocID      string
	URI        string
	Title      string
	Collection string

	// Score is the final, normalized (0-1) ranking score: the fused RRF
	// score, or the rerank score when reranking ran.
	Score float64

	LexicalScore float64
	LexicalRank  int // 1-indexed; 0 if absent from the lexical result list
	VectorScore  float64
	VectorRank   int // 1-indexed; 0 if absent from the vector result list
	InBothLists  bool

	Snippet string
}

// Citation references one document an Ask answer drew on.
type Citation struct {
	DocID string
	URI   string
	Title string
}

// AskMeta reports the pipeline decisions behind one Ask call.
type AskMeta struct {
	QueryType      QueryType
	Weights        Weights
	Expanded       bool
	Reranked       bool
	CandidateCount int
}

// AskResult carries a grounded answer assembled from hybrid search
// results, or just the results/meta when generation is unavailable.
type AskResult struct {
	Answer    string
	Citations []Citation
	Results   []Result
	Meta      AskMeta
}

// SimilarOptions configures single-document similarity search.
type SimilarOptions struct {
	Limit           int
	Threshold       float64
	CrossCollection bool
}

// DefaultSimilarThreshold is the minimum cosine similarity a neighbor must
// reach to be returned.
const DefaultSimilarThreshold = 0.6

// DefaultSimilarLimit is the result count used when SimilarOptions.Limit
// is unset.
const DefaultSimilarLimit = 10

// similarOvershoot is the kNN overshoot factor: searchNearest is asked for
// 20x the requested limit so that self/duplicate/below-threshold/other-
// collection hits can be filtered without starving the result set.
const similarOvershoot = 20
