package linkextract

import "testing"

func TestWikiExtraction(t *testing.T) {
	body := "See [[Meeting Notes]] and [[Project Plan]].\n"
	links := Extract(body, "")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %+v", len(links), links)
	}
	seen := map[string]bool{}
	for _, l := range links {
		if l.LinkType != LinkTypeWiki {
			t.Fatalf("expected wiki link, got %s", l.LinkType)
		}
		seen[l.TargetRef] = true
	}
	if !seen["Meeting Notes"] || !seen["Project Plan"] {
		t.Fatalf("missing expected targets: %+v", links)
	}
}

func TestCodeFenceExclusion(t *testing.T) {
	body := "Intro\n```\n[[Wiki Syntax]]\n```\nBody contains [[Real Link]] here.\n"
	links := Extract(body, "")
	if len(links) != 1 {
		t.Fatalf("expected exactly 1 link, got %d: %+v", len(links), links)
	}
	if links[0].TargetRef != "Real Link" {
		t.Fatalf("expected Real Link, got %q", links[0].TargetRef)
	}
}

func TestInlineCodeExclusion(t *testing.T) {
	body := "Use `[[Not A Link]]` inline, but [[Actual Link]] outside.\n"
	links := Extract(body, "")
	if len(links) != 1 || links[0].TargetRef != "Actual Link" {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestMarkdownLinkSkipsAbsoluteURL(t *testing.T) {
	body := "[external](https://example.com/page) and [local](notes/page.md)\n"
	links := Extract(body, "")
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %d: %+v", len(links), links)
	}
	if links[0].LinkType != LinkTypeMarkdown || links[0].TargetRef != "notes/page.md" {
		t.Fatalf("unexpected link: %+v", links[0])
	}
}

func TestMarkdownLinkSkipsCollectionPrefix(t *testing.T) {
	body := "[other](other:Note)\n"
	links := Extract(body, "")
	if len(links) != 0 {
		t.Fatalf("expected collection-prefixed markdown target to be skipped, got %+v", links)
	}
}

func TestWikiLinkCollectionPrefixAndAnchor(t *testing.T) {
	body := "[[other:Deep Note#section|shown text]]\n"
	links := Extract(body, "")
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %+v", links)
	}
	l := links[0]
	if l.TargetCollection != "other" || l.TargetRef != "Deep Note" || l.TargetAnchor != "section" || l.LinkText != "shown text" {
		t.Fatalf("unexpected parse: %+v", l)
	}
}

func TestMarkdownRelativeResolution(t *testing.T) {
	body := "[note](../peer/page.md)\n"
	links := Extract(body, "projects/sub")
	if len(links) != 1 {
		t.Fatalf("expected 1 link, got %+v", links)
	}
	if links[0].TargetRefNorm != "projects/peer/page.md" {
		t.Fatalf("unexpected normalized target: %q", links[0].TargetRefNorm)
	}
}
