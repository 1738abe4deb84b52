package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration-of-record: the single YAML document
// that names every collection and context, the active FTS tokenizer, and
// named model presets.
type Config struct {
	Version      string       `yaml:"version" json:"version"`
	FtsTokenizer string       `yaml:"ftsTokenizer" json:"ftsTokenizer"`
	DataDir      string       `yaml:"dataDir,omitempty" json:"dataDir,omitempty"`
	IndexName    string       `yaml:"indexName,omitempty" json:"indexName,omitempty"`
	Collections  []Collection `yaml:"collections" json:"collections"`
	Contexts     []Context    `yaml:"contexts" json:"contexts"`
	Models       []Preset     `yaml:"models,omitempty" json:"models,omitempty"`
	Search       SearchConfig `yaml:"search" json:"search"`
	Server       ServerConfig `yaml:"server" json:"server"`
}

// Collection is a user-named root folder registered with the engine.
type Collection struct {
	Name         string   `yaml:"name" json:"name"`
	Path         string   `yaml:"path" json:"path"`
	Pattern      string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Include      []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude      []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	UpdateCmd    string   `yaml:"updateCmd,omitempty" json:"updateCmd,omitempty"`
	LanguageHint string   `yaml:"languageHint,omitempty" json:"languageHint,omitempty"`
}

// Context is scoped free-text metadata attached to a global, collection, or
// URI-prefix scope.
type Context struct {
	ScopeType string `yaml:"scopeType" json:"scopeType"` // global | collection | prefix
	ScopeKey  string `yaml:"scopeKey" json:"scopeKey"`
	Text      string `yaml:"text" json:"text"`
}

// Preset is a named bundle of embed/rerank/generation model references,
// selectable by name from the front-ends without repeating model URIs.
type Preset struct {
	Name        string `yaml:"name" json:"name"`
	EmbedModel  string `yaml:"embedModel,omitempty" json:"embedModel,omitempty"`
	RerankModel string `yaml:"rerankModel,omitempty" json:"rerankModel,omitempty"`
	GenModel    string `yaml:"genModel,omitempty" json:"genModel,omitempty"`
}

// SearchConfig tunes the hybrid search pipeline.
type SearchConfig struct {
	BM25Weight     float64 `yaml:"bm25Weight" json:"bm25Weight"`
	SemanticWeight float64 `yaml:"semanticWeight" json:"semanticWeight"`
	RRFConstant    int     `yaml:"rrfConstant" json:"rrfConstant"`
	ChunkMaxTokens int     `yaml:"chunkMaxTokens" json:"chunkMaxTokens"`
	MaxResults     int     `yaml:"maxResults" json:"maxResults"`
	RerankEnabled  bool    `yaml:"rerankEnabled" json:"rerankEnabled"`
}

// ServerConfig configures the HTTP and JSON-RPC front-ends.
type ServerConfig struct {
	HTTPAddr string `yaml:"httpAddr" json:"httpAddr"`
	LogLevel string `yaml:"logLevel" json:"logLevel"`
}

var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/.obsidian/**",
	"**/.trash/**",
	"**/dist/**",
	"**/build/**",
}

// Default returns a Config with sensible defaults and no registered
// collections.
func Default() *Config {
	return &Config{
		Version:      "1.0",
		FtsTokenizer: "unicode61",
		Collections:  []Collection{},
		Contexts:     []Context{},
		Search: SearchConfig{
			BM25Weight:     0.5,
			SemanticWeight: 0.5,
			RRFConstant:    60,
			ChunkMaxTokens: 512,
			MaxResults:     20,
			RerankEnabled:  false,
		},
		Server: ServerConfig{
			HTTPAddr: "127.0.0.1:7861",
			LogLevel: "info",
		},
	}
}

// DefaultCollectionExclude returns the default exclude-pattern set applied
// to a newly registered collection that specifies none of its own.
func DefaultCollectionExclude() []string {
	out := make([]string, len(defaultExcludePatterns))
	copy(out, defaultExcludePatterns)
	return out
}

// GetUserConfigPath returns the path to the user/global configuration file,
// honoring $XDG_CONFIG_HOME when set.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gnosis", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "gnosis", "config.yaml")
	}
	return filepath.Join(home, ".config", "gnosis", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load reads the configuration of record from path, falling back to
// Default() if the file does not yet exist. It does not apply env
// overrides or validate; callers that need that do it explicitly so
// ConfigMutex can load the raw on-disk state inside its critical section.
func Load(path string) (*Config, error) {
	if !fileExists(path) {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies GNOSIS_* environment variable overrides on top
// of a loaded configuration, highest precedence.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("GNOSIS_FTS_TOKENIZER"); v != "" {
		c.FtsTokenizer = v
	}
	if v := os.Getenv("GNOSIS_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("GNOSIS_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("GNOSIS_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("GNOSIS_BM25_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("GNOSIS_SEMANTIC_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("GNOSIS_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
}

// Validate checks the configuration's structural invariants (spec §3:
// collection name pattern, context scope/key consistency, weight bounds).
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("search.bm25Weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("search.semanticWeight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if sum := c.Search.BM25Weight + c.Search.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.bm25Weight + search.semanticWeight must equal 1.0, got %.2f", sum)
	}

	validTokenizers := map[string]bool{"unicode61": true, "porter": true, "trigram": true}
	if !validTokenizers[c.FtsTokenizer] && !strings.HasPrefix(c.FtsTokenizer, "snowball-") {
		return fmt.Errorf("ftsTokenizer must be unicode61, porter, trigram, or snowball-*, got %s", c.FtsTokenizer)
	}

	seen := make(map[string]bool, len(c.Collections))
	nameRe := collectionNamePattern
	for _, col := range c.Collections {
		if !nameRe.MatchString(col.Name) {
			return fmt.Errorf("collection name %q must match %s", col.Name, nameRe.String())
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate collection name %q", col.Name)
		}
		seen[col.Name] = true
		if col.Path == "" {
			return fmt.Errorf("collection %q: path is required", col.Name)
		}
	}

	for _, ctx := range c.Contexts {
		if err := validateContextScope(ctx); err != nil {
			return err
		}
	}

	return nil
}

func validateContextScope(ctx Context) error {
	switch ctx.ScopeType {
	case "global":
		if ctx.ScopeKey != "/" {
			return fmt.Errorf("context scope global requires scopeKey \"/\", got %q", ctx.ScopeKey)
		}
	case "collection":
		if !strings.HasSuffix(ctx.ScopeKey, ":") {
			return fmt.Errorf("context scope collection requires scopeKey ending in \":\", got %q", ctx.ScopeKey)
		}
	case "prefix":
		if !strings.HasPrefix(ctx.ScopeKey, "gno://") {
			return fmt.Errorf("context scope prefix requires a gno:// scopeKey, got %q", ctx.ScopeKey)
		}
	default:
		return fmt.Errorf("context scopeType must be global, collection, or prefix, got %q", ctx.ScopeType)
	}
	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
