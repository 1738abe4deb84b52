package store

import (
	"context"
	"sort"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// similarityNodeBudget bounds how many nodes are sent to a SimilarityProvider
// in one GetGraph call, independent of limitNodes, to keep a cosine-similarity
// sweep over seq-0 embeddings cheap for large collections.
const similarityNodeBudget = 200

// SimilarPair is one undirected similarity edge candidate between two
// documents, identified by docid.
type SimilarPair struct {
	DocA       string
	DocB       string
	Similarity float64
}

// SimilarityProvider computes similarity edges for a bounded set of
// candidate documents. Implemented by the vector index; GetGraph treats a
// nil provider (or includeSimilar = false) as "similarity unavailable".
type SimilarityProvider interface {
	SimilarPairs(ctx context.Context, docIDs []string, topK int, threshold float64) ([]SimilarPair, error)
}

type graphDocInfo struct {
	id         int64
	docID      string
	uri        string
	title      string
	collection string
}

type edgeKey struct {
	a, b string // docids, lexicographically ordered
	typ  string
}

// GetGraph returns a bounded projection of the link graph: selected nodes
// with their degree, collapsed edges among them, and reporting metadata.
// See package doc and spec text for node selection and similarity-edge rules.
func (s *Store) GetGraph(ctx context.Context, opts GraphOptions, sim SimilarityProvider) (*Graph, error) {
	docs, err := s.loadActiveDocsForGraph(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]graphDocInfo, len(docs))
	for _, d := range docs {
		byID[d.id] = d
	}

	neighbors := make(map[int64]map[int64]bool)
	edgeWeight := make(map[edgeKey]int)
	if err := s.accumulateLinkEdges(ctx, byID, neighbors, edgeWeight); err != nil {
		return nil, err
	}

	degree := make(map[int64]int, len(byID))
	for id := range byID {
		degree[id] = len(neighbors[id])
	}

	linkedOnly := true
	if opts.LinkedOnly != nil {
		linkedOnly = *opts.LinkedOnly
	}

	var candidates []graphDocInfo
	for _, d := range docs {
		if opts.Collection != "" && d.collection != opts.Collection {
			continue
		}
		if linkedOnly && degree[d.id] == 0 {
			continue
		}
		candidates = append(candidates, d)
	}
	sort.Slice(candidates, func(i, j int) bool {
		di, dj := degree[candidates[i].id], degree[candidates[j].id]
		if di != dj {
			return di > dj
		}
		return candidates[i].id < candidates[j].id
	})

	totalNodes := len(candidates)
	truncated := false
	if opts.LimitNodes > 0 && len(candidates) > opts.LimitNodes {
		candidates = candidates[:opts.LimitNodes]
		truncated = true
	}

	selected := make(map[int64]bool, len(candidates))
	nodes := make([]GraphNode, 0, len(candidates))
	for _, d := range candidates {
		selected[d.id] = true
		nodes = append(nodes, GraphNode{DocID: d.docID, URI: d.uri, Title: d.title, Collection: d.collection, Degree: degree[d.id]})
	}

	selectedDocIDs := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		selectedDocIDs[n.DocID] = true
	}

	var links []GraphEdge
	for key, weight := range edgeWeight {
		if !selectedDocIDs[key.a] || !selectedDocIDs[key.b] {
			continue
		}
		links = append(links, GraphEdge{Source: key.a, Target: key.b, Type: key.typ, Weight: float64(weight)})
	}

	meta := GraphMeta{TotalNodes: totalNodes, TotalEdges: len(links), NodesTruncated: truncated}

	if opts.IncludeSimilar {
		simLinks, warn, available := s.computeSimilarEdges(ctx, sim, nodes, opts)
		links = append(links, simLinks...)
		meta.SimilarAvailable = available
		if warn != "" {
			meta.Warnings = append(meta.Warnings, warn)
		}
		meta.TotalEdges = len(links)
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Degree != nodes[j].Degree {
			return nodes[i].Degree > nodes[j].Degree
		}
		return nodes[i].DocID < nodes[j].DocID
	})
	sort.Slice(links, func(i, j int) bool {
		if links[i].Source != links[j].Source {
			return links[i].Source < links[j].Source
		}
		if links[i].Target != links[j].Target {
			return links[i].Target < links[j].Target
		}
		return links[i].Type < links[j].Type
	})

	return &Graph{Nodes: nodes, Links: links, Meta: meta}, nil
}

func (s *Store) loadActiveDocsForGraph(ctx context.Context) ([]graphDocInfo, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `SELECT id, docid, uri, title, collection FROM documents WHERE active = 1`)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeQueryFailed, "graph doc scan failed", err)
	}
	defer rows.Close()

	var out []graphDocInfo
	for rows.Next() {
		var d graphDocInfo
		if err := rows.Scan(&d.id, &d.docID, &d.uri, &d.title, &d.collection); err != nil {
			return nil, errorcode.New(errorcode.CodeQueryFailed, "graph doc row failed", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// accumulateLinkEdges resolves every active outgoing link to a target
// document (when resolvable) and records both the undirected neighbor set
// (for degree) and the collapsed, typed edge weight.
func (s *Store) accumulateLinkEdges(ctx context.Context, byID map[int64]graphDocInfo, neighbors map[int64]map[int64]bool, edgeWeight map[edgeKey]int) error {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT l.source_doc_id, l.link_type, l.target_ref_norm, COALESCE(l.target_collection, ''), d.collection
		FROM links l JOIN documents d ON d.id = l.source_doc_id WHERE d.active = 1`)
	if err != nil {
		return errorcode.New(errorcode.CodeQueryFailed, "graph link scan failed", err)
	}
	defer rows.Close()

	type linkRow struct {
		sourceID         int64
		linkType         string
		targetRefNorm    string
		targetCollection string
		sourceCollection string
	}
	var linkRows []linkRow
	for rows.Next() {
		var lr linkRow
		if err := rows.Scan(&lr.sourceID, &lr.linkType, &lr.targetRefNorm, &lr.targetCollection, &lr.sourceCollection); err != nil {
			return errorcode.New(errorcode.CodeQueryFailed, "graph link row failed", err)
		}
		linkRows = append(linkRows, lr)
	}
	if err := rows.Err(); err != nil {
		return errorcode.New(errorcode.CodeQueryFailed, "graph link rows error", err)
	}
	rows.Close()

	for _, lr := range linkRows {
		collection := lr.targetCollection
		if collection == "" {
			collection = lr.sourceCollection
		}
		var target *ResolvedTarget
		var err error
		if lr.linkType == "markdown" {
			target, err = s.resolveMarkdownTarget(ctx, collection, lr.targetRefNorm)
		} else {
			target, err = s.resolveWikiTarget(ctx, collection, lr.targetRefNorm)
		}
		if err != nil {
			return err
		}
		if target == nil {
			continue
		}
		srcInfo, ok := byID[lr.sourceID]
		if !ok || srcInfo.docID == target.DocID {
			continue
		}

		var targetID int64
		for id, info := range byID {
			if info.docID == target.DocID {
				targetID = id
				break
			}
		}
		if targetID == 0 {
			continue
		}

		if neighbors[lr.sourceID] == nil {
			neighbors[lr.sourceID] = map[int64]bool{}
		}
		if neighbors[targetID] == nil {
			neighbors[targetID] = map[int64]bool{}
		}
		neighbors[lr.sourceID][targetID] = true
		neighbors[targetID][lr.sourceID] = true

		key := canonicalEdgeKey(srcInfo.docID, target.DocID, lr.linkType)
		edgeWeight[key]++
	}
	return nil
}

func canonicalEdgeKey(a, b, typ string) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a: a, b: b, typ: typ}
}

func (s *Store) computeSimilarEdges(ctx context.Context, sim SimilarityProvider, nodes []GraphNode, opts GraphOptions) ([]GraphEdge, string, bool) {
	if sim == nil {
		return nil, "similarity extension unavailable", false
	}

	docIDs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		docIDs = append(docIDs, n.DocID)
		if len(docIDs) >= similarityNodeBudget {
			break
		}
	}
	topK := opts.SimilarTopK
	if topK <= 0 {
		topK = 5
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 0.8
	}

	pairs, err := sim.SimilarPairs(ctx, docIDs, topK, threshold)
	if err != nil {
		return nil, "similarity computation failed: " + err.Error(), false
	}

	best := make(map[edgeKey]float64, len(pairs))
	for _, p := range pairs {
		weight := p.Similarity
		if weight > 1 {
			weight = 1
		}
		if weight < 0 {
			weight = 0
		}
		key := canonicalEdgeKey(p.DocA, p.DocB, "similar")
		if cur, ok := best[key]; !ok || weight > cur {
			best[key] = weight
		}
	}

	edges := make([]GraphEdge, 0, len(best))
	for key, weight := range best {
		edges = append(edges, GraphEdge{Source: key.a, Target: key.b, Type: "similar", Weight: weight})
	}
	return edges, "", true
}
