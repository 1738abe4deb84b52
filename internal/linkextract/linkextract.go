// Package linkextract parses wiki-style and Markdown link references out of
// a document's canonical text. The grammar is Markdown link syntax rather
// than a general AST, so extraction is a line-oriented scanner with
// explicit code-fence state instead of a tree-sitter visitor.
package linkextract

import (
	"regexp"
	"strings"

	"github.com/gnosis-index/gnosis/internal/idcodec"
)

// LinkType distinguishes the two link grammars.
type LinkType string

const (
	LinkTypeWiki     LinkType = "wiki"
	LinkTypeMarkdown LinkType = "markdown"
)

// Link is one parsed outgoing reference, with enough span information for
// the store to persist startLine/startCol/endLine/endCol exactly.
type Link struct {
	TargetRef      string
	TargetRefNorm  string
	TargetAnchor   string
	TargetCollection string
	LinkType       LinkType
	LinkText       string
	StartLine      int
	StartCol       int
	EndLine        int
	EndCol         int
}

var (
	wikiRe = regexp.MustCompile(`\[\[([^\[\]]+)\]\]`)
	mdRe   = regexp.MustCompile(`\[([^\[\]]*)\]\(([^()]*)\)`)
	fenceRe = regexp.MustCompile("^\\s{0,3}(```|~~~)")
	inlineCodeRe = regexp.MustCompile("`[^`]*`")
	collectionPrefixRe = regexp.MustCompile(`^([a-z0-9][a-z0-9_-]{0,63}):(.+)$`)
)

// Extract parses body (the canonical text of one document) for outgoing
// links, resolving relative Markdown targets against sourceDir (the
// document's directory within its collection, "" for the collection root).
func Extract(body, sourceDir string) []Link {
	lines := strings.Split(body, "\n")
	masked := maskCodeRegions(lines)

	var links []Link
	for lineIdx, line := range masked {
		lineNo := lineIdx + 1

		for _, m := range wikiRe.FindAllStringSubmatchIndex(line, -1) {
			inner := line[m[2]:m[3]]
			if l, ok := parseWikiLink(inner); ok {
				l.StartLine = lineNo
				l.StartCol = m[0]
				l.EndLine = lineNo
				l.EndCol = m[1]
				links = append(links, l)
			}
		}

		for _, m := range mdRe.FindAllStringSubmatchIndex(line, -1) {
			text := line[m[2]:m[3]]
			target := line[m[4]:m[5]]
			if l, ok := parseMarkdownLink(text, target, sourceDir); ok {
				l.StartLine = lineNo
				l.StartCol = m[0]
				l.EndLine = lineNo
				l.EndCol = m[1]
				links = append(links, l)
			}
		}
	}
	return links
}

// maskCodeRegions blanks out fenced code blocks, 4-space-indented code
// blocks, and inline code spans by replacing their bytes with spaces so the
// link regexes never match inside them, while preserving line/column
// offsets for everything outside those regions.
func maskCodeRegions(lines []string) []string {
	out := make([]string, len(lines))
	inFence := false
	var fenceMarker string

	for i, line := range lines {
		if m := fenceRe.FindStringSubmatch(line); m != nil {
			if !inFence {
				inFence = true
				fenceMarker = m[1]
				out[i] = blank(line)
				continue
			} else if strings.Contains(line, fenceMarker) {
				inFence = false
				out[i] = blank(line)
				continue
			}
		}
		if inFence {
			out[i] = blank(line)
			continue
		}
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			out[i] = blank(line)
			continue
		}
		out[i] = inlineCodeRe.ReplaceAllStringFunc(line, blank)
	}
	return out
}

func blank(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for range s {
		sb.WriteByte(' ')
	}
	return sb.String()
}

// parseWikiLink parses the contents of [[ ... ]]: target(#anchor)?(|alias)?,
// where target may carry a leading "collection:" prefix.
func parseWikiLink(inner string) (Link, bool) {
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return Link{}, false
	}

	target := inner
	alias := ""
	if idx := strings.Index(inner, "|"); idx >= 0 {
		target = inner[:idx]
		alias = strings.TrimSpace(inner[idx+1:])
	}

	anchor := ""
	if idx := strings.Index(target, "#"); idx >= 0 {
		anchor = strings.ToLower(strings.TrimSpace(target[idx+1:]))
		target = target[:idx]
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return Link{}, false
	}

	collection := ""
	if m := collectionPrefixRe.FindStringSubmatch(target); m != nil {
		collection = m[1]
		target = m[2]
	}

	return Link{
		TargetRef:        target,
		TargetRefNorm:    idcodec.NormalizeWikiName(target),
		TargetAnchor:     anchor,
		TargetCollection: collection,
		LinkType:         LinkTypeWiki,
		LinkText:         alias,
	}, true
}

// parseMarkdownLink parses [text](target(#anchor)?). Absolute URLs (any
// target carrying a scheme) and collection:-prefixed targets are skipped
// per the Markdown grammar rule.
func parseMarkdownLink(text, target, sourceDir string) (Link, bool) {
	target = strings.TrimSpace(target)
	if target == "" {
		return Link{}, false
	}
	if idx := strings.Index(target, " "); idx >= 0 {
		// drop an optional "title" suffix: [text](target "title")
		target = target[:idx]
	}
	if hasScheme(target) {
		return Link{}, false
	}

	anchor := ""
	if idx := strings.Index(target, "#"); idx >= 0 {
		anchor = strings.ToLower(strings.TrimSpace(target[idx+1:]))
		target = target[:idx]
	}

	resolved := target
	if sourceDir != "" && !strings.HasPrefix(target, "/") {
		resolved = sourceDir + "/" + target
	}

	return Link{
		TargetRef:     target,
		TargetRefNorm: idcodec.NormalizeMarkdownTarget(resolved),
		TargetAnchor:  anchor,
		LinkType:      LinkTypeMarkdown,
		LinkText:      text,
	}, true
}

// hasScheme reports whether target carries a "scheme:" prefix. A bare
// "collection:" prefix has the same shape and is reported too, which is how
// parseMarkdownLink skips both absolute URLs and collection-prefixed targets.
func hasScheme(target string) bool {
	idx := strings.Index(target, ":")
	if idx <= 0 {
		return false
	}
	scheme := target[:idx]
	for _, c := range scheme {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.') {
			return false
		}
	}
	// A single-segment token followed by ":" and no "//" is ambiguous with a
	// collection: prefix; the markdown grammar treats any such prefix as
	// non-local, so it is reported here alongside true URL schemes like
	// http/https/mailto/ftp.
	return true
}
