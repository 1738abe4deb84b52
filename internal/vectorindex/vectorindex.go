package vectorindex

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// mirrorName derives the deterministic mirror identity for a model URI:
// vec_<hash8(modelUri)>. Used for logging/persistence naming; the mirror
// itself is an in-process hnsw.Graph (see package doc), not a second SQL
// table, since this build's ANN index is a pure-Go in-memory structure
// rather than a loadable SQLite extension.
func mirrorName(modelURI string) string {
	sum := sha256.Sum256([]byte(modelURI))
	return "vec_" + hex.EncodeToString(sum[:])[:8]
}

// VectorIndex is the ANN mirror for one (model, dimensions, distanceMetric)
// triple. The canonical content_vectors blob table (owned by internal/store)
// remains the durable source of truth; VectorIndex never loses data when its
// mirror is unavailable, only search capability.
type VectorIndex struct {
	db     *sql.DB
	model  string
	dims   int
	metric string
	name   string
	logger *slog.Logger

	mu              sync.RWMutex
	graph           *hnsw.Graph[uint64]
	idMap           map[string]uint64 // "mirrorHash#seq" -> hnsw key
	keyMap          map[uint64]string
	nextKey         uint64
	searchAvailable bool
}

// New builds a VectorIndex over db's content_vectors table for one model,
// and eagerly loads existing vectors for that model into the in-memory
// mirror. A failure to build the mirror never fails New: it leaves
// searchAvailable false while the canonical table stays fully writable.
func New(ctx context.Context, db *sql.DB, model string, dims int, metric string, logger *slog.Logger) *VectorIndex {
	if logger == nil {
		logger = slog.Default()
	}
	vi := &VectorIndex{
		db:     db,
		model:  model,
		dims:   dims,
		metric: metric,
		name:   mirrorName(model),
		logger: logger,
	}
	if err := vi.rebuildLocked(ctx); err != nil {
		logger.Warn("vector mirror unavailable, falling back to storage-only", "model", model, "error", err)
	}
	return vi
}

func (vi *VectorIndex) newGraph() *hnsw.Graph[uint64] {
	g := hnsw.NewGraph[uint64]()
	switch vi.metric {
	case "l2":
		g.Distance = hnsw.EuclideanDistance
	default:
		g.Distance = hnsw.CosineDistance
	}
	g.M = 16
	g.EfSearch = 20
	g.Ml = 0.25
	return g
}

// UpsertVectors always writes the canonical blob first, inside one
// transaction; a failure there is fatal (VECTOR_WRITE_FAILED). Mirroring
// into the in-memory ANN graph is best-effort: failures are logged, never
// returned.
func (vi *VectorIndex) UpsertVectors(ctx context.Context, rows []Row) error {
	for _, r := range rows {
		if len(r.Embedding) != vi.dims {
			return errorcode.Validation(
				fmt.Sprintf("embedding has %d dims, expected %d", len(r.Embedding), vi.dims), nil)
		}
	}

	tx, err := vi.db.BeginTx(ctx, nil)
	if err != nil {
		return errorcode.New(errorcode.CodeVectorWriteFailed, "cannot begin vector write transaction", err)
	}
	for _, r := range rows {
		blob := EncodeEmbedding(r.Embedding)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_vectors (mirror_hash, seq, model, dims, embedding) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(mirror_hash, seq, model) DO UPDATE SET dims = excluded.dims, embedding = excluded.embedding`,
			r.MirrorHash, r.Seq, vi.model, vi.dims, blob); err != nil {
			_ = tx.Rollback()
			return errorcode.New(errorcode.CodeVectorWriteFailed, "canonical vector write failed", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errorcode.New(errorcode.CodeVectorWriteFailed, "canonical vector commit failed", err)
	}

	vi.mu.Lock()
	defer vi.mu.Unlock()
	for _, r := range rows {
		if err := vi.mirrorUpsertLocked(r.MirrorHash, r.Seq, r.Embedding); err != nil {
			vi.logger.Warn("vector mirror upsert failed", "mirrorHash", r.MirrorHash, "seq", r.Seq, "error", err)
			vi.searchAvailable = false
		}
	}
	return nil
}

func (vi *VectorIndex) mirrorUpsertLocked(mirrorHash string, seq int, embedding []float32) error {
	if vi.graph == nil {
		return fmt.Errorf("mirror graph not initialized")
	}
	id := vectorKey(mirrorHash, seq)
	if existing, ok := vi.idMap[id]; ok {
		delete(vi.keyMap, existing) // lazy delete: coder/hnsw cannot safely delete its last node
		delete(vi.idMap, id)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	if vi.metric != "l2" {
		normalizeInPlace(vec)
	}
	key := vi.nextKey
	vi.nextKey++
	vi.graph.Add(hnsw.MakeNode(key, vec))
	vi.idMap[id] = key
	vi.keyMap[key] = id
	vi.searchAvailable = true
	return nil
}

// DeleteVectorsForMirror deletes every vector of mirrorHash from the
// canonical table, then best-effort from the ANN mirror.
func (vi *VectorIndex) DeleteVectorsForMirror(ctx context.Context, mirrorHash string) error {
	if _, err := vi.db.ExecContext(ctx,
		`DELETE FROM content_vectors WHERE mirror_hash = ? AND model = ?`, mirrorHash, vi.model); err != nil {
		return errorcode.New(errorcode.CodeVectorDeleteFailed, "canonical vector delete failed", err)
	}

	vi.mu.Lock()
	defer vi.mu.Unlock()
	for id, key := range vi.idMap {
		if idMirrorHash(id) == mirrorHash {
			delete(vi.keyMap, key)
			delete(vi.idMap, id)
		}
	}
	return nil
}

// Similarity converts a raw graph distance into this index's similarity
// scale (the same formula SearchNearest applies internally for minScore
// filtering), so callers that need to rank or display NearestResult.Distance
// don't have to apply it themselves. For both metrics similarity is
// 1 - distance; with cosine distance that is the cosine similarity.
func (vi *VectorIndex) Similarity(distance float32) float64 {
	return 1 - float64(distance)
}

// SearchNearest queries the in-memory ANN mirror for the k nearest
// neighbors of queryEmbedding. minScore (similarity = 1 - distance for
// cosine) filters the result set when > 0.
func (vi *VectorIndex) SearchNearest(ctx context.Context, queryEmbedding []float32, k int, minScore float64) ([]NearestResult, error) {
	vi.mu.RLock()
	defer vi.mu.RUnlock()

	if !vi.searchAvailable || vi.graph == nil {
		return nil, errorcode.New(errorcode.CodeVecSearchUnavail, "vector mirror is unavailable", nil)
	}
	if len(queryEmbedding) != vi.dims {
		return nil, errorcode.Validation(
			fmt.Sprintf("query embedding has %d dims, expected %d", len(queryEmbedding), vi.dims), nil)
	}
	if vi.graph.Len() == 0 {
		return nil, nil
	}

	query := make([]float32, len(queryEmbedding))
	copy(query, queryEmbedding)
	if vi.metric != "l2" {
		normalizeInPlace(query)
	}

	nodes := vi.graph.Search(query, k)
	out := make([]NearestResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := vi.keyMap[node.Key]
		if !ok {
			continue // lazily-deleted node still resident in the graph
		}
		distance := vi.graph.Distance(query, node.Value)
		similarity := vi.Similarity(distance)
		if minScore > 0 && similarity < minScore {
			continue
		}
		mirrorHash, seq := splitVectorKey(id)
		out = append(out, NearestResult{MirrorHash: mirrorHash, Seq: seq, Distance: distance})
	}
	return out, nil
}

// RebuildVecIndex drops and recreates the in-memory mirror from the
// canonical content_vectors table for this model.
func (vi *VectorIndex) RebuildVecIndex(ctx context.Context) error {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	if err := vi.rebuildLocked(ctx); err != nil {
		return errorcode.New(errorcode.CodeVecRebuildFailed, "vector mirror rebuild failed", err)
	}
	return nil
}

func (vi *VectorIndex) rebuildLocked(ctx context.Context) error {
	graph := vi.newGraph()
	idMap := make(map[string]uint64)
	keyMap := make(map[uint64]string)
	var nextKey uint64

	rows, err := vi.db.QueryContext(ctx,
		`SELECT mirror_hash, seq, embedding FROM content_vectors WHERE model = ?`, vi.model)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var mirrorHash string
		var seq int
		var blob []byte
		if err := rows.Scan(&mirrorHash, &seq, &blob); err != nil {
			return err
		}
		embedding, err := DecodeEmbedding(blob)
		if err != nil {
			vi.logger.Warn("skipping malformed vector during rebuild", "mirrorHash", mirrorHash, "seq", seq, "error", err)
			continue
		}
		if len(embedding) != vi.dims {
			continue
		}
		vec := make([]float32, len(embedding))
		copy(vec, embedding)
		if vi.metric != "l2" {
			normalizeInPlace(vec)
		}
		key := nextKey
		nextKey++
		graph.Add(hnsw.MakeNode(key, vec))
		id := vectorKey(mirrorHash, seq)
		idMap[id] = key
		keyMap[key] = id
	}
	if err := rows.Err(); err != nil {
		return err
	}

	vi.graph = graph
	vi.idMap = idMap
	vi.keyMap = keyMap
	vi.nextKey = nextKey
	vi.searchAvailable = true
	return nil
}

// SyncVecIndex adds mirror rows for canonical vectors missing from the
// in-memory mirror and prunes mirror rows whose canonical row is gone.
func (vi *VectorIndex) SyncVecIndex(ctx context.Context) (*SyncResult, error) {
	canonical := make(map[string][]float32)
	rows, err := vi.db.QueryContext(ctx,
		`SELECT mirror_hash, seq, embedding FROM content_vectors WHERE model = ?`, vi.model)
	if err != nil {
		return nil, errorcode.New(errorcode.CodeVecSyncFailed, "vector sync scan failed", err)
	}
	for rows.Next() {
		var mirrorHash string
		var seq int
		var blob []byte
		if err := rows.Scan(&mirrorHash, &seq, &blob); err != nil {
			rows.Close()
			return nil, errorcode.New(errorcode.CodeVecSyncFailed, "vector sync row failed", err)
		}
		embedding, err := DecodeEmbedding(blob)
		if err != nil || len(embedding) != vi.dims {
			continue
		}
		canonical[vectorKey(mirrorHash, seq)] = embedding
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errorcode.New(errorcode.CodeVecSyncFailed, "vector sync rows error", err)
	}

	vi.mu.Lock()
	defer vi.mu.Unlock()
	if vi.graph == nil {
		if err := vi.rebuildLocked(ctx); err != nil {
			return nil, errorcode.New(errorcode.CodeVecSyncFailed, "vector sync rebuild failed", err)
		}
		return &SyncResult{Added: len(vi.idMap)}, nil
	}

	var added, removed int
	for id, embedding := range canonical {
		if _, ok := vi.idMap[id]; ok {
			continue
		}
		mirrorHash, seq := splitVectorKey(id)
		if err := vi.mirrorUpsertLocked(mirrorHash, seq, embedding); err == nil {
			added++
		}
	}
	for id, key := range vi.idMap {
		if _, ok := canonical[id]; !ok {
			delete(vi.keyMap, key)
			delete(vi.idMap, id)
			removed++
		}
	}
	return &SyncResult{Added: added, Removed: removed}, nil
}

func vectorKey(mirrorHash string, seq int) string {
	return fmt.Sprintf("%s#%d", mirrorHash, seq)
}

// splitVectorKey reverses vectorKey. mirrorHash values never contain '#',
// so the last separator in id is unambiguous.
func splitVectorKey(id string) (string, int) {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '#' {
			var seq int
			fmt.Sscanf(id[i+1:], "%d", &seq)
			return id[:i], seq
		}
	}
	return id, 0
}

func idMirrorHash(id string) string {
	mirrorHash, _ := splitVectorKey(id)
	return mirrorHash
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
