package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UnreadableConfigFile_ReturnsError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("test requires a non-root user")
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ftsTokenizer: unicode61"), 0o000))
	defer func() { _ = os.Chmod(path, 0o644) }()

	cfg, err := Load(path)
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "read")
}

func TestValidate_RejectsOutOfRangeWeight(t *testing.T) {
	cfg := Default()
	cfg.Search.BM25Weight = 1.5
	cfg.Search.SemanticWeight = -0.5
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bm25Weight")
}

func TestValidate_RejectsUnknownTokenizer(t *testing.T) {
	cfg := Default()
	cfg.FtsTokenizer = "bogus"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftsTokenizer")
}

func TestValidate_RejectsCollectionMissingPath(t *testing.T) {
	cfg := Default()
	cfg.Collections = []Collection{{Name: "notes"}}
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsContextScopeKeyMismatch(t *testing.T) {
	cfg := Default()
	cfg.Contexts = []Context{{ScopeType: "prefix", ScopeKey: "notes:", Text: "x"}}
	require.Error(t, cfg.Validate())
}

func TestConfig_JSONRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Collections = []Collection{{Name: "notes", Path: "/home/user/notes", Pattern: "**/*.md"}}
	cfg.Search.ChunkMaxTokens = 256

	data, err := json.Marshal(cfg)
	require.NoError(t, err)

	var parsed Config
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, 256, parsed.Search.ChunkMaxTokens)
	require.Len(t, parsed.Collections, 1)
	assert.Equal(t, "**/*.md", parsed.Collections[0].Pattern)
}

func TestConfig_UnmarshalJSON_InvalidJSON_ReturnsError(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte("{invalid json"), &cfg)
	require.Error(t, err)
}

func TestDefaultCollectionExclude_ReturnsIndependentCopy(t *testing.T) {
	a := DefaultCollectionExclude()
	a[0] = "mutated"
	b := DefaultCollectionExclude()
	assert.NotEqual(t, "mutated", b[0])
}
