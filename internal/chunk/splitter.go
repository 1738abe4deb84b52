package chunk

import (
	"strings"
	"unicode/utf8"
)

// Splitter splits a canonical document body into chunks bounded by a token
// budget. Re-running Split on identical input always yields byte-identical
// output; Splitter itself holds no mutable state.
type Splitter struct {
	maxTokens int
}

// NewSplitter builds a Splitter with the given token budget per chunk.
// maxTokens <= 0 uses DefaultMaxTokens.
func NewSplitter(maxTokens int) *Splitter {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Splitter{maxTokens: maxTokens}
}

// Split partitions body into an ordered, non-overlapping sequence of
// chunks. Paragraphs (text separated by one or more blank lines) are the
// natural split points; a paragraph that alone exceeds the budget is
// further split at line boundaries, and a single line that still exceeds
// the budget is split at rune boundaries so multi-byte UTF-8 sequences are
// never torn.
func (s *Splitter) Split(body string) []Chunk {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	paragraphs := splitParagraphs(body)
	var chunks []Chunk
	var buf strings.Builder
	bufStartPos := -1
	bufStartLine := 0
	bufEndLine := 0
	bufTokens := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		text := buf.String()
		chunks = append(chunks, Chunk{
			Seq:        len(chunks),
			Pos:        bufStartPos,
			Text:       text,
			StartLine:  bufStartLine,
			EndLine:    bufEndLine,
			Language:   detectFenceLanguage(text),
			TokenCount: estimateTokens(text),
		})
		buf.Reset()
		bufStartPos = -1
		bufTokens = 0
	}

	for _, p := range paragraphs {
		pTokens := estimateTokens(p.text)
		if pTokens > s.maxTokens {
			flush()
			chunks = append(chunks, s.splitOversizedParagraph(p, len(chunks))...)
			continue
		}
		if bufTokens > 0 && bufTokens+pTokens > s.maxTokens {
			flush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		if bufStartPos < 0 {
			bufStartPos = p.pos
			bufStartLine = p.startLine
		}
		buf.WriteString(p.text)
		bufEndLine = p.endLine
		bufTokens += pTokens
	}
	flush()

	return chunks
}

type paragraph struct {
	text      string
	pos       int
	startLine int
	endLine   int
}

// splitParagraphs splits body on runs of blank lines, tracking each
// paragraph's byte offset and 1-indexed line span.
func splitParagraphs(body string) []paragraph {
	lines := strings.Split(body, "\n")
	var out []paragraph
	var cur strings.Builder
	curStartLine := 0
	curPos := 0
	pos := 0
	inParagraph := false

	flush := func(endLine int) {
		if inParagraph {
			out = append(out, paragraph{
				text:      cur.String(),
				pos:       curPos,
				startLine: curStartLine,
				endLine:   endLine,
			})
			cur.Reset()
			inParagraph = false
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		if strings.TrimSpace(line) == "" {
			flush(lineNo - 1)
		} else {
			if !inParagraph {
				curStartLine = lineNo
				curPos = pos
				inParagraph = true
			} else {
				cur.WriteString("\n")
			}
			cur.WriteString(line)
		}
		pos += len(line) + 1
	}
	flush(len(lines))
	return out
}

// splitOversizedParagraph further splits a too-large paragraph at line
// boundaries, and a too-large single line at rune boundaries.
func (s *Splitter) splitOversizedParagraph(p paragraph, seqBase int) []Chunk {
	lines := strings.Split(p.text, "\n")
	var chunks []Chunk
	var buf strings.Builder
	bufStartLine := p.startLine
	bufPos := p.pos
	pos := p.pos
	bufTokens := 0

	flush := func(endLine int) {
		if buf.Len() == 0 {
			return
		}
		text := buf.String()
		chunks = append(chunks, Chunk{
			Seq:        seqBase + len(chunks),
			Pos:        bufPos,
			Text:       text,
			StartLine:  bufStartLine,
			EndLine:    endLine,
			Language:   detectFenceLanguage(text),
			TokenCount: estimateTokens(text),
		})
		buf.Reset()
		bufTokens = 0
	}

	for i, line := range lines {
		lineNo := p.startLine + i
		lineTokens := estimateTokens(line)
		if lineTokens > s.maxTokens {
			flush(lineNo - 1)
			for _, sub := range splitRunes(line, s.maxTokens*BytesPerToken) {
				chunks = append(chunks, Chunk{
					Seq:        seqBase + len(chunks),
					Pos:        pos,
					Text:       sub,
					StartLine:  lineNo,
					EndLine:    lineNo,
					TokenCount: estimateTokens(sub),
				})
				pos += len(sub)
			}
			bufStartLine = lineNo + 1
			bufPos = pos + 1
			pos += 1
			continue
		}
		if bufTokens > 0 && bufTokens+lineTokens > s.maxTokens {
			flush(lineNo - 1)
			bufStartLine = lineNo
			bufPos = pos
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(line)
		bufTokens += lineTokens
		pos += len(line) + 1
	}
	flush(p.endLine)
	return chunks
}

// splitRunes splits s into pieces of at most maxBytes, never cutting a rune
// in half.
func splitRunes(s string, maxBytes int) []string {
	if maxBytes <= 0 {
		maxBytes = 1
	}
	var out []string
	for len(s) > 0 {
		if len(s) <= maxBytes {
			out = append(out, s)
			break
		}
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxBytes
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return out
}

// detectFenceLanguage returns the info string of a chunk whose first line
// opens a fenced code block (e.g. "go" for a chunk starting with
// "```go"), or "" when its first line is not a fence opener. Only the first
// line is inspected; text after the fenced block does not change the result.
func detectFenceLanguage(text string) string {
	first, _, _ := strings.Cut(text, "\n")
	first = strings.TrimSpace(first)
	for _, marker := range []string{"```", "~~~"} {
		if strings.HasPrefix(first, marker) {
			return strings.TrimSpace(strings.TrimPrefix(first, marker))
		}
	}
	return ""
}

// estimateTokens approximates the token count of s at BytesPerToken bytes
// per token, matching the ratio the chunker budgets against.
func estimateTokens(s string) int {
	n := len(s) / BytesPerToken
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}
