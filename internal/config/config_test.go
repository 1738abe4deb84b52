package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsSaneDefaults(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, "unicode61", cfg.FtsTokenizer)
	assert.Equal(t, 0.5, cfg.Search.BM25Weight)
	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.Equal(t, 512, cfg.Search.ChunkMaxTokens)
	assert.Equal(t, 20, cfg.Search.MaxResults)
	assert.Empty(t, cfg.Collections)
	assert.Empty(t, cfg.Contexts)
}

func TestDefault_PassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().FtsTokenizer, cfg.FtsTokenizer)
}

func TestLoad_ParsesYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
version: "1.0"
ftsTokenizer: porter
collections:
  - name: notes
    path: /home/user/notes
contexts:
  - scopeType: global
    scopeKey: "/"
    text: personal notes
search:
  bm25Weight: 0.4
  semanticWeight: 0.6
  rrfConstant: 80
  chunkMaxTokens: 256
  maxResults: 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "porter", cfg.FtsTokenizer)
	require.Len(t, cfg.Collections, 1)
	assert.Equal(t, "notes", cfg.Collections[0].Name)
	require.Len(t, cfg.Contexts, 1)
	assert.Equal(t, "global", cfg.Contexts[0].ScopeType)
	assert.Equal(t, 0.4, cfg.Search.BM25Weight)
	assert.Equal(t, 80, cfg.Search.RRFConstant)
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ftsTokenizer: [broken"), 0o644))

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestApplyEnvOverrides_TakesPrecedence(t *testing.T) {
	cfg := Default()
	t.Setenv("GNOSIS_FTS_TOKENIZER", "trigram")
	t.Setenv("GNOSIS_BM25_WEIGHT", "0.3")
	t.Setenv("GNOSIS_SEMANTIC_WEIGHT", "0.7")

	cfg.ApplyEnvOverrides()

	assert.Equal(t, "trigram", cfg.FtsTokenizer)
	assert.Equal(t, 0.3, cfg.Search.BM25Weight)
	assert.Equal(t, 0.7, cfg.Search.SemanticWeight)
}

func TestValidate_RejectsWeightsNotSummingToOne(t *testing.T) {
	cfg := Default()
	cfg.Search.BM25Weight = 0.9
	cfg.Search.SemanticWeight = 0.9
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadCollectionName(t *testing.T) {
	cfg := Default()
	cfg.Collections = []Collection{{Name: "Bad Name!", Path: "/x"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsDuplicateCollectionName(t *testing.T) {
	cfg := Default()
	cfg.Collections = []Collection{
		{Name: "notes", Path: "/a"},
		{Name: "notes", Path: "/b"},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsMismatchedContextScope(t *testing.T) {
	cfg := Default()
	cfg.Contexts = []Context{{ScopeType: "global", ScopeKey: "not-a-slash", Text: "x"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_AcceptsSnowballTokenizer(t *testing.T) {
	cfg := Default()
	cfg.FtsTokenizer = "snowball-english"
	require.NoError(t, cfg.Validate())
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	customConfig := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", customConfig)

	path := GetUserConfigPath()
	expected := filepath.Join(customConfig, "gnosis", "config.yaml")
	assert.Equal(t, expected, path)
}

func TestWriteYAMLThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := Default()
	cfg.Collections = []Collection{{Name: "notes", Path: "/home/user/notes"}}

	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Collections, 1)
	assert.Equal(t, "notes", loaded.Collections[0].Name)
}
