package vectorindex

import (
	"context"
	"math"

	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/store"
)

// SimilarPairs implements store.SimilarityProvider: for a bounded candidate
// set of document ids, it loads each document's seq-0 embedding for this
// index's model and returns every pair at or above threshold, capped at
// topK neighbors per document. The candidate set is already bounded by the
// graph projector's internal budget, so an exact O(n^2) sweep (rather than
// an ANN search) is cheap and deterministic.
func (vi *VectorIndex) SimilarPairs(ctx context.Context, docIDs []string, topK int, threshold float64) ([]store.SimilarPair, error) {
	if len(docIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(docIDs))
	args := make([]any, 0, len(docIDs)+1)
	args = append(args, vi.model)
	for i, id := range docIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := `
		SELECT d.docid, v.embedding FROM documents d
		JOIN content_vectors v ON v.mirror_hash = d.mirror_hash AND v.seq = 0 AND v.model = ?
		WHERE d.docid IN (` + joinIn(placeholders) + `)`

	rows, err := vi.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeVecSearchFailed, "similarity candidate scan failed", err)
	}
	defer rows.Close()

	type candidate struct {
		docID     string
		embedding []float32
	}
	var candidates []candidate
	for rows.Next() {
		var docID string
		var blob []byte
		if err := rows.Scan(&docID, &blob); err != nil {
			return nil, errorcode.New(errorcode.CodeVecSearchFailed, "similarity candidate row failed", err)
		}
		embedding, err := DecodeEmbedding(blob)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{docID, embedding})
	}
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeVecSearchFailed, "similarity candidate rows error", err)
	}

	neighborCount := make(map[string]int, len(candidates))
	var pairs []store.SimilarPair
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if topK > 0 && (neighborCount[candidates[i].docID] >= topK || neighborCount[candidates[j].docID] >= topK) {
				continue
			}
			sim := cosineSimilarity(candidates[i].embedding, candidates[j].embedding)
			if sim < threshold {
				continue
			}
			pairs = append(pairs, store.SimilarPair{DocA: candidates[i].docID, DocB: candidates[j].docID, Similarity: sim})
			neighborCount[candidates[i].docID]++
			neighborCount[candidates[j].docID]++
		}
	}
	return pairs, nil
}

// GetEmbedding loads the embedding for mirrorHash at the lowest available
// seq (seq 0 when present, otherwise the first seq actually stored) under
// this index's model. Used by the single-document "similar" search, which
// needs one representative vector for the source document rather than the
// pairwise candidate sweep SimilarPairs performs for the graph projector.
func (vi *VectorIndex) GetEmbedding(ctx context.Context, mirrorHash string) ([]float32, error) {
	var blob []byte
	err := vi.db.QueryRowContext(ctx,
		`SELECT embedding FROM content_vectors WHERE mirror_hash = ? AND model = ? ORDER BY seq ASC LIMIT 1`,
		mirrorHash, vi.model).Scan(&blob)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeVecSearchFailed, "embedding lookup failed", err)
	}
	return DecodeEmbedding(blob)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func joinIn(ph []string) string {
	out := ""
	for i, p := range ph {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
