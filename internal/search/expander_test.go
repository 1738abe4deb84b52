package search

import (
	"context"
	"testing"

	"github.com/gnosis-index/gnosis/internal/llmports"
)

type fakeGen struct {
	response  string
	err       error
	available bool
}

func (f *fakeGen) Complete(ctx context.Context, prompt string, opts llmports.GenerationOptions) (string, error) {
	return f.response, f.err
}

func (f *fakeGen) Available(ctx context.Context) bool { return f.available }

func TestExpander_ParsesParaphraseLines(t *testing.T) {
	gen := &fakeGen{available: true, response: "1. alpha phrasing\n2. beta phrasing\noriginal query\n"}
	e := NewExpander(gen)

	out := e.Expand(context.Background(), "original query")
	if len(out) != 3 {
		t.Fatalf("expected original + 2 paraphrases, got %v", out)
	}
	if out[0] != "original query" {
		t.Fatalf("expected original query first, got %s", out[0])
	}
}

func TestExpander_UnavailablePortReturnsOriginalOnly(t *testing.T) {
	e := NewExpander(&fakeGen{available: false})
	out := e.Expand(context.Background(), "hello world")
	if len(out) != 1 || out[0] != "hello world" {
		t.Fatalf("expected [query] only, got %v", out)
	}
}

func TestExpander_NilPortReturnsOriginalOnly(t *testing.T) {
	e := NewExpander(nil)
	out := e.Expand(context.Background(), "hello world")
	if len(out) != 1 {
		t.Fatalf("expected [query] only, got %v", out)
	}
}

func TestExpander_GenerationErrorReturnsOriginalOnly(t *testing.T) {
	e := NewExpander(&fakeGen{available: true, err: context.DeadlineExceeded})
	out := e.Expand(context.Background(), "hello world")
	if len(out) != 1 {
		t.Fatalf("expected [query] only on generation failure, got %v", out)
	}
}

func TestExpander_DeduplicatesAgainstOriginal(t *testing.T) {
	gen := &fakeGen{available: true, response: "Original Query\nsomething new\n"}
	e := NewExpander(gen)
	out := e.Expand(context.Background(), "original query")
	if len(out) != 2 {
		t.Fatalf("expected original + 1 new phrasing (case-insensitive dedupe), got %v", out)
	}
}
