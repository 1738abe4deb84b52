package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownConverter_ExtractsFrontmatterTitleAndTags(t *testing.T) {
	raw := "---\ntitle: My Note\ntags: [one, two]\n---\n# Heading\n\nBody text.\n"
	c := markdownConverter{}
	out, err := c.Convert([]byte(raw), "notes/my-note.md")
	require.NoError(t, err)
	assert.Equal(t, "My Note", out.Title)
	assert.Equal(t, []string{"one", "two"}, out.Tags)
	assert.Contains(t, out.Body, "# Heading")
	assert.NotContains(t, out.Body, "title: My Note")
}

func TestMarkdownConverter_TagsAsCommaSeparatedString(t *testing.T) {
	raw := "---\ntags: alpha, beta\n---\nbody\n"
	c := markdownConverter{}
	out, err := c.Convert([]byte(raw), "n.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, out.Tags)
}

func TestMarkdownConverter_NoFrontmatterDerivesTitleFromHeading(t *testing.T) {
	raw := "# Project Notes\n\nSome content.\n"
	c := markdownConverter{}
	out, err := c.Convert([]byte(raw), "x.md")
	require.NoError(t, err)
	assert.Equal(t, "Project Notes", out.Title)
	assert.Nil(t, out.Tags)
}

func TestTextConverter_TitleFromFirstLine(t *testing.T) {
	c := textConverter{}
	out, err := c.Convert([]byte("First line here\nrest"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "First line here", out.Title)
}

func TestTextConverter_EmptyFileTitleFallsBackToFilename(t *testing.T) {
	c := textConverter{}
	out, err := c.Convert([]byte(""), "readme.txt")
	require.NoError(t, err)
	assert.Equal(t, "readme", out.Title)
}

func TestRegistry_PrefersMarkdownThenFallsBackToText(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "markdown", r.For(".md").ID())
	assert.Equal(t, "text", r.For(".csv").ID())
	assert.Equal(t, "text", r.For("").ID())
}
