package search

import (
	"context"
	"testing"
)

func TestPatternClassifier_QuotedPhraseIsLexical(t *testing.T) {
	qt, w := NewPatternClassifier().Classify(context.Background(), `"exact phrase"`)
	if qt != QueryTypeLexical {
		t.Fatalf("expected LEXICAL, got %s", qt)
	}
	if w.Lexical <= w.Semantic {
		t.Fatalf("expected lexical weight to dominate, got %+v", w)
	}
}

func TestPatternClassifier_FilePathIsLexical(t *testing.T) {
	qt, _ := NewPatternClassifier().Classify(context.Background(), "notes/project-plan.md")
	if qt != QueryTypeLexical {
		t.Fatalf("expected LEXICAL, got %s", qt)
	}
}

func TestPatternClassifier_QuestionIsSemantic(t *testing.T) {
	qt, w := NewPatternClassifier().Classify(context.Background(), "how does the fusion algorithm work")
	if qt != QueryTypeSemantic {
		t.Fatalf("expected SEMANTIC, got %s", qt)
	}
	if w.Semantic <= w.Lexical {
		t.Fatalf("expected semantic weight to dominate, got %+v", w)
	}
}

func TestPatternClassifier_ShortAmbiguousQueryIsMixed(t *testing.T) {
	qt, _ := NewPatternClassifier().Classify(context.Background(), "project notes")
	if qt != QueryTypeMixed {
		t.Fatalf("expected MIXED, got %s", qt)
	}
}

func TestPatternClassifier_EmptyQueryIsMixed(t *testing.T) {
	qt, _ := NewPatternClassifier().Classify(context.Background(), "   ")
	if qt != QueryTypeMixed {
		t.Fatalf("expected MIXED for empty query, got %s", qt)
	}
}
