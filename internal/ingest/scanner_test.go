package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func collectScan(t *testing.T, s *Scanner, opts ScanOptions) []*FileInfo {
	t.Helper()
	ch, err := s.Scan(context.Background(), opts)
	require.NoError(t, err)
	var out []*FileInfo
	for r := range ch {
		require.NoError(t, r.Error)
		out = append(out, r.File)
	}
	return out
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func removeFile(root, relPath string) error {
	return os.Remove(filepath.Join(root, relPath))
}

func TestScan_FiltersByPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "hello")
	writeFile(t, root, "b.txt", "world")

	s, err := NewScanner()
	require.NoError(t, err)

	files := collectScan(t, s, ScanOptions{RootDir: root, Pattern: "**/*.md"})
	require.Len(t, files, 1)
	require.Equal(t, "a.md", files[0].RelPath)
}

func TestScan_ExcludesConfiguredDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.md", "hello")
	writeFile(t, root, "archive/drop.md", "bye")

	s, err := NewScanner()
	require.NoError(t, err)

	files := collectScan(t, s, ScanOptions{RootDir: root, Exclude: []string{"archive/**"}})
	require.Len(t, files, 1)
	require.Equal(t, "keep.md", files[0].RelPath)
}

func TestScan_RespectsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "ignored.md\n")
	writeFile(t, root, "ignored.md", "secret")
	writeFile(t, root, "visible.md", "public")

	s, err := NewScanner()
	require.NoError(t, err)

	files := collectScan(t, s, ScanOptions{RootDir: root, RespectGitignore: true})
	require.Len(t, files, 1)
	require.Equal(t, "visible.md", files[0].RelPath)
}

func TestScan_SkipsSensitiveFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "SECRET=1")
	writeFile(t, root, "notes.md", "fine")

	s, err := NewScanner()
	require.NoError(t, err)

	files := collectScan(t, s, ScanOptions{RootDir: root})
	require.Len(t, files, 1)
	require.Equal(t, "notes.md", files[0].RelPath)
}

func TestScan_MissingRootReturnsError(t *testing.T) {
	s, err := NewScanner()
	require.NoError(t, err)

	_, err = s.Scan(context.Background(), ScanOptions{RootDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}
