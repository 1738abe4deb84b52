package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyncCollectionsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cols := []Collection{
		{Name: "notes", Path: "/home/u/notes", Include: []string{"*.md"}},
		{Name: "work", Path: "/home/u/work"},
	}
	require.NoError(t, s.SyncCollections(ctx, cols))
	require.NoError(t, s.SyncCollections(ctx, cols))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM collections`).Scan(&count))
	require.Equal(t, 2, count)

	// Dropping "work" from the config-of-record removes its stored row.
	require.NoError(t, s.SyncCollections(ctx, cols[:1]))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM collections`).Scan(&count))
	require.Equal(t, 1, count)
}

func TestSyncContextsRejectsBadScopeType(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.SyncContexts(ctx, []Context{{ScopeType: "bogus", ScopeKey: "/", Text: "x"}})
	require.Error(t, err)
}

func TestSyncContextsReplacesAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SyncContexts(ctx, []Context{{ScopeType: "global", ScopeKey: "/", Text: "hello"}}))
	require.NoError(t, s.SyncContexts(ctx, []Context{{ScopeType: "collection", ScopeKey: "notes:", Text: "world"}}))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM contexts`).Scan(&count))
	require.Equal(t, 1, count)
}
