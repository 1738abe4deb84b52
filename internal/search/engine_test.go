package search

import (
	"context"
	"testing"

	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/llmports"
	"github.com/gnosis-index/gnosis/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("", "unicode61", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDoc(t *testing.T, s *store.Store, collection, relPath, title, body string) {
	t.Helper()
	mirrorHash := "mirror-" + relPath
	_, _, err := s.UpsertDocument(context.Background(), store.UpsertDocumentInput{
		Collection: collection,
		RelPath:    relPath,
		SourceHash: "hash-" + relPath,
		MirrorHash: mirrorHash,
		Title:      title,
	})
	if err != nil {
		t.Fatalf("upsert document: %v", err)
	}
	if err := s.UpsertContent(context.Background(), mirrorHash, body); err != nil {
		t.Fatalf("upsert content: %v", err)
	}
	if err := s.SyncDocumentFts(context.Background(), collection, relPath); err != nil {
		t.Fatalf("sync fts: %v", err)
	}
}

func TestEngine_LexicalFindsSeededDocument(t *testing.T) {
	s := newTestStore(t)
	seedDoc(t, s, "notes", "alpha.md", "Alpha Notes", "budget planning for the quarterly offsite")
	seedDoc(t, s, "notes", "beta.md", "Beta Notes", "unrelated grocery list")

	e := New(s, nil, nil, nil, nil, nil)
	results, err := e.Lexical(context.Background(), "quarterly offsite", Options{})
	if err != nil {
		t.Fatalf("lexical: %v", err)
	}
	if len(results) != 1 || results[0].Title != "Alpha Notes" {
		t.Fatalf("expected alpha.md only, got %+v", results)
	}
}

func TestEngine_HybridWithNoVectorPortFallsBackToLexical(t *testing.T) {
	s := newTestStore(t)
	seedDoc(t, s, "notes", "alpha.md", "Alpha Notes", "budget planning for the quarterly offsite")

	e := New(s, nil, nil, nil, nil, nil)
	results, meta, err := e.Hybrid(context.Background(), "quarterly offsite", Options{})
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if meta.Expanded {
		t.Fatalf("expected no expansion without a generation port")
	}
	if meta.Reranked {
		t.Fatalf("expected no rerank without a rerank port")
	}
}

type fakeEmbed struct{}

func (fakeEmbed) Init(ctx context.Context) error                      { return nil }
func (fakeEmbed) Dimensions() int                                     { return 3 }
func (fakeEmbed) ModelName() string                                   { return "fake-embed" }
func (fakeEmbed) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fakeEmbed) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}
func (fakeEmbed) Available(ctx context.Context) bool { return true }
func (fakeEmbed) Dispose() error                     { return nil }

func TestEngine_AskWithoutGenerationPortReturnsResultsOnly(t *testing.T) {
	s := newTestStore(t)
	seedDoc(t, s, "notes", "alpha.md", "Alpha Notes", "budget planning for the quarterly offsite")

	e := New(s, nil, nil, nil, nil, nil)
	ask, err := e.Ask(context.Background(), "quarterly offsite", Options{}, 0)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ask.Answer != "" {
		t.Fatalf("expected no answer without a generation port, got %q", ask.Answer)
	}
	if len(ask.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(ask.Results))
	}
}

func TestEngine_AskExtractsCitationsFromAnswer(t *testing.T) {
	s := newTestStore(t)
	seedDoc(t, s, "notes", "alpha.md", "Alpha Notes", "budget planning for the quarterly offsite")

	gen := &fakeGen{available: true, response: "The offsite is budgeted per [1].\n"}
	e := New(s, nil, nil, gen, nil, nil)
	ask, err := e.Ask(context.Background(), "quarterly offsite", Options{}, 0)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ask.Answer == "" {
		t.Fatalf("expected an answer from the generation port")
	}
	if len(ask.Citations) != 1 || ask.Citations[0].Title != "Alpha Notes" {
		t.Fatalf("expected one citation to Alpha Notes, got %+v", ask.Citations)
	}
}

func TestEngine_SimilarWithoutVectorIndexReturnsUnavailableError(t *testing.T) {
	s := newTestStore(t)
	seedDoc(t, s, "notes", "alpha.md", "Alpha Notes", "budget planning for the quarterly offsite")

	e := New(s, nil, nil, nil, nil, nil)
	_, err := e.Similar(context.Background(), "gno://notes/alpha.md", SimilarOptions{})
	if err == nil {
		t.Fatal("expected an error when no vector index is configured")
	}
	if errorcode.GetCode(err) != errorcode.CodeVecSearchUnavail {
		t.Fatalf("expected CodeVecSearchUnavail, got %s", errorcode.GetCode(err))
	}
}

var _ llmports.EmbeddingPort = fakeEmbed{}
