package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetGraphBasicLinkedOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := mustUpsertDoc(t, s, "notes", "a.md", "A")
	b := mustUpsertDoc(t, s, "notes", "b.md", "B")
	_ = mustUpsertDoc(t, s, "notes", "isolated.md", "Isolated")

	require.NoError(t, s.SetDocLinks(ctx, a, []Link{
		{TargetRefNorm: "b", LinkType: "wiki", LinkText: "B", StartLine: 1, EndLine: 1},
	}, "parsed"))

	g, err := s.GetGraph(ctx, GraphOptions{}, nil)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 2) // isolated node excluded by default linkedOnly
	require.Len(t, g.Links, 1)
	require.Equal(t, "wiki", g.Links[0].Type)
	require.Equal(t, float64(1), g.Links[0].Weight)
	_ = b
}

func TestGetGraphIncludeIsolates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	mustUpsertDoc(t, s, "notes", "lonely.md", "Lonely")

	linkedOnly := false
	g, err := s.GetGraph(ctx, GraphOptions{LinkedOnly: &linkedOnly}, nil)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 1)
	require.Equal(t, 0, g.Nodes[0].Degree)
}

type fakeSimilarityProvider struct {
	pairs []SimilarPair
}

func (f *fakeSimilarityProvider) SimilarPairs(ctx context.Context, docIDs []string, topK int, threshold float64) ([]SimilarPair, error) {
	return f.pairs, nil
}

func TestGetGraphIncludeSimilar(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	a := mustUpsertDoc(t, s, "notes", "a.md", "A")
	b := mustUpsertDoc(t, s, "notes", "b.md", "B")
	require.NoError(t, s.SetDocLinks(ctx, a, []Link{{TargetRefNorm: "b", LinkType: "wiki", StartLine: 1, EndLine: 1}}, "parsed"))

	docA, err := s.GetDocumentByID(ctx, a)
	require.NoError(t, err)
	docB, err := s.GetDocumentByID(ctx, b)
	require.NoError(t, err)

	sim := &fakeSimilarityProvider{pairs: []SimilarPair{{DocA: docA.DocID, DocB: docB.DocID, Similarity: 0.95}}}
	g, err := s.GetGraph(ctx, GraphOptions{IncludeSimilar: true}, sim)
	require.NoError(t, err)
	require.True(t, g.Meta.SimilarAvailable)

	var sawSimilar bool
	for _, e := range g.Links {
		if e.Type == "similar" {
			sawSimilar = true
			require.InDelta(t, 0.95, e.Weight, 0.001)
		}
	}
	require.True(t, sawSimilar)
}
