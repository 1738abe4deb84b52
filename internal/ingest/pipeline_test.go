package ingest

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open("", "unicode61", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPipeline_IngestsNewMarkdownFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.md", "---\ntitle: Hello\ntags: [a, b]\n---\n# Hello\n\nBody with [[other]].\n")

	st := newTestStore(t)
	p, err := New(st, nil, 0)
	require.NoError(t, err)

	col := config.Collection{Name: "vault", Path: root, Pattern: "**/*.md"}
	res, err := p.Run(context.Background(), col, 1, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Ingested)
	require.Equal(t, 0, res.Errors)

	doc, err := st.GetDocumentByURI(context.Background(), "gno://vault/note.md")
	require.NoError(t, err)
	require.Equal(t, "Hello", doc.Title)
	require.True(t, doc.Active)

	tags, err := st.GetTagCounts(context.Background(), "vault", "")
	require.NoError(t, err)
	require.Len(t, tags, 2)
}

func TestPipeline_SecondPassSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.md", "content\n")

	st := newTestStore(t)
	p, err := New(st, nil, 0)
	require.NoError(t, err)
	col := config.Collection{Name: "vault", Path: root, Pattern: "**/*.md"}

	ctx := context.Background()
	_, err = p.Run(ctx, col, 1, false)
	require.NoError(t, err)

	res, err := p.Run(ctx, col, 1, false)
	require.NoError(t, err)
	require.Equal(t, 0, res.Ingested)
	require.Equal(t, 1, res.Skipped)
}

func TestPipeline_ChangedIngestVersionForcesReingest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "note.md", "content\n")

	st := newTestStore(t)
	p, err := New(st, nil, 0)
	require.NoError(t, err)
	col := config.Collection{Name: "vault", Path: root, Pattern: "**/*.md"}

	ctx := context.Background()
	_, err = p.Run(ctx, col, 1, false)
	require.NoError(t, err)

	res, err := p.Run(ctx, col, 2, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Ingested)
}

func TestPipeline_MarksVanishedFilesInactive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", "stays\n")
	writeFile(t, root, "gone.md", "leaves\n")

	st := newTestStore(t)
	p, err := New(st, nil, 0)
	require.NoError(t, err)
	col := config.Collection{Name: "vault", Path: root, Pattern: "**/*.md"}

	ctx := context.Background()
	_, err = p.Run(ctx, col, 1, false)
	require.NoError(t, err)

	require.NoError(t, removeFile(root, "gone.md"))

	res, err := p.Run(ctx, col, 2, false)
	require.NoError(t, err)
	require.Equal(t, 1, res.Inactivated)

	doc, err := st.GetDocumentByURI(ctx, "gno://vault/gone.md")
	require.NoError(t, err)
	require.False(t, doc.Active)
}

func TestNextPipelineVersion_Increases(t *testing.T) {
	v1 := NextPipelineVersion(time.Unix(0, 1))
	v2 := NextPipelineVersion(time.Unix(0, 2))
	require.Less(t, v1, v2)
}
