package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConvertedDoc is the canonical form a Converter produces from raw source
// bytes: the text the splitter, link extractor, and FTS projection all
// operate on, plus whatever frontmatter tags were found.
type ConvertedDoc struct {
	Title        string
	Body         string
	LanguageHint string
	Tags         []string
}

// Converter turns one file's raw bytes into a ConvertedDoc. ConverterID and
// ConverterVersion are stamped onto the document row so a bump in either
// forces re-ingestion even when the source bytes are unchanged.
type Converter interface {
	ID() string
	Version() string
	Accepts(ext string) bool
	Convert(raw []byte, relPath string) (ConvertedDoc, error)
}

// Registry resolves the first converter whose Accepts matches, falling
// back to the last registered converter (expected to be a catch-all).
type Registry struct {
	converters []Converter
}

// DefaultRegistry returns a Registry with the built-in Markdown and
// plain-text converters, Markdown preferred for .md/.markdown/.mdx files.
func DefaultRegistry() *Registry {
	return &Registry{converters: []Converter{
		markdownConverter{},
		textConverter{},
	}}
}

// For resolves the converter to use for a file by extension.
func (r *Registry) For(ext string) Converter {
	var fallback Converter
	for _, c := range r.converters {
		if c.Accepts(ext) {
			return c
		}
		fallback = c
	}
	return fallback
}

var frontmatterPattern = regexp.MustCompile(`(?s)^---\r?\n(.+?)\r?\n---\r?\n?`)

type frontmatter struct {
	Title string      `yaml:"title"`
	Tags  interface{} `yaml:"tags"`
}

// splitFrontmatter separates a leading "---\n...\n---" YAML block from the
// rest of the body, returning the parsed frontmatter (zero value if absent
// or malformed) and the remaining body text.
func splitFrontmatter(raw string) (frontmatter, string) {
	m := frontmatterPattern.FindStringSubmatch(raw)
	if m == nil {
		return frontmatter{}, raw
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(m[1]), &fm); err != nil {
		return frontmatter{}, raw
	}
	return fm, raw[len(m[0]):]
}

// tagsFromFrontmatter normalizes the frontmatter "tags" field, which
// Obsidian-style notes write as either a YAML list or a single
// comma/space-separated string.
func tagsFromFrontmatter(fm frontmatter) []string {
	switch v := fm.Tags.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		fields := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
		out := make([]string, 0, len(fields))
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}

// markdownConverter strips YAML frontmatter, lifting title/tags out of it,
// and passes the remaining Markdown body through unchanged except that
// trailing newlines are collapsed to exactly one.
type markdownConverter struct{}

func (markdownConverter) ID() string      { return "markdown" }
func (markdownConverter) Version() string { return "1" }

func (markdownConverter) Accepts(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".mdx":
		return true
	default:
		return false
	}
}

func (markdownConverter) Convert(raw []byte, relPath string) (ConvertedDoc, error) {
	fm, body := splitFrontmatter(string(raw))
	title := fm.Title
	if title == "" {
		title = titleFromBody(body, relPath)
	}
	return ConvertedDoc{
		Title:        title,
		Body:         strings.TrimRight(body, "\n") + "\n",
		LanguageHint: "",
		Tags:         tagsFromFrontmatter(fm),
	}, nil
}

// textConverter is the catch-all: plain text, with no frontmatter handling,
// title derived from the first non-empty line or the filename.
type textConverter struct{}

func (textConverter) ID() string      { return "text" }
func (textConverter) Version() string { return "1" }
func (textConverter) Accepts(string) bool { return true }

func (textConverter) Convert(raw []byte, relPath string) (ConvertedDoc, error) {
	body := string(raw)
	return ConvertedDoc{
		Title: titleFromBody(body, relPath),
		Body:  body,
	}, nil
}

var headingPattern = regexp.MustCompile(`^#{1,6}\s+(.+)$`)

func titleFromBody(body, relPath string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
		return line
	}
	base := filepath.Base(relPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
