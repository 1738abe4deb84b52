package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustUpsertDoc(t *testing.T, s *Store, collection, relPath, title string) int64 {
	t.Helper()
	id, _, err := s.UpsertDocument(context.Background(), UpsertDocumentInput{
		Collection: collection,
		RelPath:    relPath,
		SourceHash: "h-" + relPath,
		MirrorHash: "m-" + relPath,
		Title:      title,
	})
	require.NoError(t, err)
	return id
}

func TestSetAndGetDocLinks(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	src := mustUpsertDoc(t, s, "notes", "a.md", "A")

	links := []Link{
		{TargetRef: "B", TargetRefNorm: "b", LinkType: "wiki", LinkText: "B", StartLine: 1, StartCol: 0, EndLine: 1, EndCol: 5},
		{TargetRef: "c.md", TargetRefNorm: "c.md", LinkType: "markdown", LinkText: "c", StartLine: 2, StartCol: 0, EndLine: 2, EndCol: 8},
	}
	require.NoError(t, s.SetDocLinks(ctx, src, links, "parsed"))

	got, err := s.GetLinksForDoc(ctx, src)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "wiki", got[0].LinkType)
	require.Equal(t, "markdown", got[1].LinkType)

	// Replacing again from the same source clears the old set.
	require.NoError(t, s.SetDocLinks(ctx, src, links[:1], "parsed"))
	got, err = s.GetLinksForDoc(ctx, src)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestResolveLinksWikiTiers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUpsertDoc(t, s, "notes", "deep/target.md", "Target Doc")

	targets := []ResolveTarget{
		{LinkType: "wiki", TargetRefNorm: "target doc", SourceCollection: "notes"},
		{LinkType: "wiki", TargetRefNorm: "target", SourceCollection: "notes"},
		{LinkType: "wiki", TargetRefNorm: "missing", SourceCollection: "notes"},
	}
	resolved, err := s.ResolveLinks(ctx, targets)
	require.NoError(t, err)
	require.Len(t, resolved, 3)
	require.NotNil(t, resolved[0]) // exact title tier
	require.Equal(t, "Target Doc", resolved[0].Title)
	require.NotNil(t, resolved[1]) // basename tier
	require.Nil(t, resolved[2])
}

func TestResolveLinksMarkdownExact(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUpsertDoc(t, s, "notes", "peer/page.md", "Page")

	resolved, err := s.ResolveLinks(ctx, []ResolveTarget{
		{LinkType: "markdown", TargetRefNorm: "peer/page.md", SourceCollection: "notes"},
	})
	require.NoError(t, err)
	require.NotNil(t, resolved[0])
	require.Equal(t, "Page", resolved[0].Title)
}

func TestGetBacklinksForDoc(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	target := mustUpsertDoc(t, s, "notes", "target.md", "Target")
	src := mustUpsertDoc(t, s, "notes", "src.md", "Src")

	require.NoError(t, s.SetDocLinks(ctx, src, []Link{
		{TargetRefNorm: "target", LinkType: "wiki", LinkText: "Target", StartLine: 1, EndLine: 1},
	}, "parsed"))

	backlinks, err := s.GetBacklinksForDoc(ctx, target, "")
	require.NoError(t, err)
	require.Len(t, backlinks, 1)
	require.Equal(t, src, backlinks[0].SourceDocID)
}
