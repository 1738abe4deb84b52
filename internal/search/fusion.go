package search

import "sort"

// DefaultRRFConstant is the standard reciprocal-rank-fusion smoothing
// constant (k=60 is the value popularized by Azure AI Search and
// OpenSearch's hybrid-query implementations).
const DefaultRRFConstant = 60

// lexicalHit is one store.FtsResult normalized to a 0-1 "bigger is better"
// score: FtsResult.Score is a raw BM25 value where smaller is better, so
// the engine converts it to 1/(1+score) before fusion sees it.
type lexicalHit struct {
	docID, uri, title, collection, snippet string
	score                                   float64
}

// VectorHit is one vector kNN result already resolved back to its
// document (searchNearest only knows mirrorHash/seq).
type VectorHit struct {
	DocID      string
	URI        string
	Title      string
	Collection string
	Similarity float64
}

// fused is one candidate after RRF combines its lexical and vector
// contributions, keyed by document URI.
type fused struct {
	docID, uri, title, collection string
	rrfScore                      float64
	lexicalScore                  float64
	lexicalRank                   int
	vecScore                      float64
	vecRank                       int
	inBoth                        bool
}

// rrfFusion combines lexical and vector result lists with Reciprocal Rank
// Fusion: RRF_score(d) = sum(weight_i / (k + rank_i)) over the lists d
// appears in, with the missing list's contribution computed at
// rank = max(len(lexical), len(vector)) + 1 for a document present in only
// one list.
type rrfFusion struct {
	k int
}

func newRRFFusion(k int) *rrfFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &rrfFusion{k: k}
}

// fuse returns candidates sorted by RRFScore desc, ties broken by
// InBothLists (true first), then LexicalScore desc (smaller BM25 rank
// survives as a higher lexicalScore, see engine.go's conversion), then URI
// asc for determinism.
func (f *rrfFusion) fuse(lexical []lexicalHit, vector []VectorHit, weights Weights) []*fused {
	if len(lexical) == 0 && len(vector) == 0 {
		return []*fused{}
	}

	byURI := make(map[string]*fused, len(lexical)+len(vector))
	get := func(uri, docID, title, collection string) *fused {
		if r, ok := byURI[uri]; ok {
			return r
		}
		r := &fused{docID: docID, uri: uri, title: title, collection: collection}
		byURI[uri] = r
		return r
	}

	for rank, h := range lexical {
		r := get(h.uri, h.docID, h.title, h.collection)
		r.lexicalScore = h.score
		r.lexicalRank = rank + 1
		r.rrfScore += weights.Lexical / float64(f.k+rank+1)
	}
	for rank, h := range vector {
		r := get(h.URI, h.DocID, h.Title, h.Collection)
		r.vecScore = h.Similarity
		r.vecRank = rank + 1
		r.rrfScore += weights.Semantic / float64(f.k+rank+1)
		if r.lexicalRank > 0 {
			r.inBoth = true
		}
	}

	missingRank := len(lexical)
	if len(vector) > missingRank {
		missingRank = len(vector)
	}
	missingRank++
	for _, r := range byURI {
		if r.lexicalRank == 0 && r.vecRank > 0 {
			r.rrfScore += weights.Lexical / float64(f.k+missingRank)
		}
		if r.vecRank == 0 && r.lexicalRank > 0 {
			r.rrfScore += weights.Semantic / float64(f.k+missingRank)
		}
	}

	results := make([]*fused, 0, len(byURI))
	for _, r := range byURI {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return less(results[i], results[j]) })
	normalize(results)
	return results
}

func less(a, b *fused) bool {
	if a.rrfScore != b.rrfScore {
		return a.rrfScore > b.rrfScore
	}
	if a.inBoth != b.inBoth {
		return a.inBoth
	}
	if a.lexicalScore != b.lexicalScore {
		return a.lexicalScore > b.lexicalScore
	}
	return a.uri < b.uri
}

func normalize(results []*fused) {
	if len(results) == 0 || results[0].rrfScore == 0 {
		return
	}
	max := results[0].rrfScore
	for _, r := range results {
		r.rrfScore /= max
	}
}
