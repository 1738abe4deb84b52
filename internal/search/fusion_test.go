package search

import "testing"

func TestRRFFusion_PrefersDocInBothLists(t *testing.T) {
	lexical := []lexicalHit{
		{uri: "gno://v/a.md", docID: "#aaa", title: "A", score: 0.9},
		{uri: "gno://v/b.md", docID: "#bbb", title: "B", score: 0.5},
	}
	vector := []VectorHit{
		{URI: "gno://v/b.md", DocID: "#bbb", Title: "B", Similarity: 0.95},
	}

	results := newRRFFusion(60).fuse(lexical, vector, DefaultWeights())
	if len(results) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(results))
	}
	if results[0].uri != "gno://v/b.md" {
		t.Fatalf("expected doc present in both lists to rank first, got %s", results[0].uri)
	}
	if !results[0].inBoth {
		t.Fatalf("expected inBoth=true for doc in both lists")
	}
}

func TestRRFFusion_EmptyInputsReturnsEmptySlice(t *testing.T) {
	results := newRRFFusion(60).fuse(nil, nil, DefaultWeights())
	if results == nil {
		t.Fatal("expected non-nil empty slice")
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 results, got %d", len(results))
	}
}

func TestRRFFusion_DeterministicOrder(t *testing.T) {
	lexical := []lexicalHit{
		{uri: "gno://v/z.md", docID: "#zzz", score: 0.5},
		{uri: "gno://v/a.md", docID: "#aaa", score: 0.5},
	}
	results := newRRFFusion(60).fuse(lexical, nil, Weights{Lexical: 1, Semantic: 0})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Both have identical rrfScore contribution pattern except rank order
	// differs (z first, a second) so scores differ by rank; assert at
	// least determinism: same input always yields same order.
	results2 := newRRFFusion(60).fuse(lexical, nil, Weights{Lexical: 1, Semantic: 0})
	if results[0].uri != results2[0].uri {
		t.Fatal("fusion is not deterministic across repeated calls")
	}
}

func TestRRFFusion_Normalizes(t *testing.T) {
	lexical := []lexicalHit{{uri: "gno://v/a.md", docID: "#aaa", score: 1}}
	results := newRRFFusion(60).fuse(lexical, nil, DefaultWeights())
	if results[0].rrfScore != 1 {
		t.Fatalf("expected top result normalized to 1.0, got %f", results[0].rrfScore)
	}
}
