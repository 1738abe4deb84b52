package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetStatusEmpty(t *testing.T) {
	s := openTestStore(t)
	status, err := s.GetStatus(context.Background(), "test-model")
	require.NoError(t, err)
	require.True(t, status.Healthy)
	require.Equal(t, int64(0), status.RecentErrorCount)
	require.Empty(t, status.Collections)
}

func TestGetStatusCountsAndBacklog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := mustUpsertDoc(t, s, "notes", "a.md", "A")
	require.NoError(t, s.UpsertContent(ctx, "m-a.md", "hello world"))
	require.NoError(t, s.UpsertChunks(ctx, "m-a.md", []Chunk{{Seq: 0, Pos: 0, Text: "hello world"}}))

	status, err := s.GetStatus(ctx, "test-model")
	require.NoError(t, err)
	require.Len(t, status.Collections, 1)
	require.Equal(t, int64(1), status.Collections[0].DocumentCount)
	require.Equal(t, int64(1), status.Collections[0].ChunkCount)
	require.Equal(t, int64(1), status.EmbeddingBacklog) // no vector written yet
	_ = id
}

func TestCleanupOrphansRemovesUnreferenced(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertContent(ctx, "orphan-hash", "stale body"))
	require.NoError(t, s.UpsertChunks(ctx, "orphan-hash", []Chunk{{Seq: 0, Text: "stale"}}))

	result, err := s.CleanupOrphans(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), result.ContentRemoved)
	require.Equal(t, int64(1), result.ChunksRemoved)
}
