package vectorindex

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	s, err := store.Open("", "unicode61", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s.DB()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.125}
	b := EncodeEmbedding(v)
	require.Len(t, b, len(v)*4)
	got, err := DecodeEmbedding(b)
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestDecodeEmbeddingRejectsUnaligned(t *testing.T) {
	_, err := DecodeEmbedding([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestEncodeEmbeddingDoesNotAliasCaller(t *testing.T) {
	v := []float32{1, 2, 3}
	b := EncodeEmbedding(v)
	v[0] = 99
	got, err := DecodeEmbedding(b)
	require.NoError(t, err)
	require.Equal(t, float32(1), got[0])
}

func TestUpsertAndSearchNearest(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	vi := New(ctx, db, "test-model", 3, "cos", slog.Default())

	err := vi.UpsertVectors(ctx, []Row{
		{MirrorHash: "m1", Seq: 0, Embedding: []float32{1, 0, 0}},
		{MirrorHash: "m2", Seq: 0, Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)

	results, err := vi.SearchNearest(ctx, []float32{1, 0, 0}, 2, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "m1", results[0].MirrorHash)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	vi := New(ctx, db, "test-model", 3, "cos", slog.Default())
	err := vi.UpsertVectors(ctx, []Row{{MirrorHash: "m1", Seq: 0, Embedding: []float32{1, 0}}})
	require.Error(t, err)
}

func TestDeleteVectorsForMirror(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	vi := New(ctx, db, "test-model", 2, "cos", slog.Default())
	require.NoError(t, vi.UpsertVectors(ctx, []Row{{MirrorHash: "m1", Seq: 0, Embedding: []float32{1, 1}}}))
	require.NoError(t, vi.DeleteVectorsForMirror(ctx, "m1"))

	results, err := vi.SearchNearest(ctx, []float32{1, 1}, 5, 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRebuildVecIndex(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	vi := New(ctx, db, "test-model", 2, "cos", slog.Default())
	require.NoError(t, vi.UpsertVectors(ctx, []Row{{MirrorHash: "m1", Seq: 0, Embedding: []float32{1, 1}}}))

	vi2 := New(ctx, db, "test-model", 2, "cos", slog.Default())
	results, err := vi2.SearchNearest(ctx, []float32{1, 1}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSyncVecIndexPrunesOrphans(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	vi := New(ctx, db, "test-model", 2, "cos", slog.Default())
	require.NoError(t, vi.UpsertVectors(ctx, []Row{{MirrorHash: "m1", Seq: 0, Embedding: []float32{1, 1}}}))

	_, err := db.ExecContext(ctx, `DELETE FROM content_vectors WHERE mirror_hash = 'm1'`)
	require.NoError(t, err)

	result, err := vi.SyncVecIndex(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Removed)
}
