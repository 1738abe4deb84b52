// Package app wires the store, config mutex, vector index, llmports
// adapters, search engine, ingestion pipeline, and job tracker into one
// bootstrapped unit shared by every CLI command and the HTTP/MCP
// front-ends, so none of them has to duplicate construction order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/configmutex"
	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/ingest"
	"github.com/gnosis-index/gnosis/internal/jobtracker"
	"github.com/gnosis-index/gnosis/internal/llmports"
	"github.com/gnosis-index/gnosis/internal/llmports/httpgen"
	"github.com/gnosis-index/gnosis/internal/llmports/ollamaembed"
	"github.com/gnosis-index/gnosis/internal/llmports/staticembed"
	"github.com/gnosis-index/gnosis/internal/search"
	"github.com/gnosis-index/gnosis/internal/store"
	"github.com/gnosis-index/gnosis/internal/vectorindex"
)

// App holds every long-lived component one process needs. Close releases
// the store and embedding port; App is not safe to reuse after Close.
type App struct {
	DataDir string
	Logger  *slog.Logger

	ConfigMutex *configmutex.Mutex
	Store       *store.Store
	Vector      *vectorindex.VectorIndex
	Embed       llmports.EmbeddingPort
	Gen         llmports.GenerationPort
	Rerank      llmports.RerankPort
	Search      *search.Engine
	Ingest      *ingest.Pipeline
	Jobs        *jobtracker.Tracker
}

// Options configures Open. Offline forces the deterministic static
// embedder instead of reaching for a local Ollama-style server.
type Options struct {
	DataDir string
	Offline bool
	Logger  *slog.Logger
}

// Open loads the configuration of record, opens the SQLite store,
// constructs the embedding/generation/rerank ports, and builds the
// vector index and search engine on top of them. The embedding port's
// Init is called eagerly so Dimensions() is valid before the vector
// index is constructed.
func Open(ctx context.Context, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errorcode.New(errorcode.CodeConnectionFailed, "cannot create data directory", err)
	}

	configPath := filepath.Join(dataDir, "config.yaml")
	lockPath := filepath.Join(dataDir, ".config.lock")
	dbPath := filepath.Join(dataDir, "gnosis.db")

	st, err := store.Open(dbPath, "", logger)
	if err != nil {
		return nil, err
	}

	cm, err := configmutex.New(configPath, lockPath, st, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	cfg := cm.Current()
	if cfg.FtsTokenizer == "" {
		cfg.FtsTokenizer = "unicode61"
	}

	embedPort, genPort, rerankPort := buildPorts(cfg, opts.Offline)
	if err := embedPort.Init(ctx); err != nil {
		logger.Warn("embedding port init failed, falling back to static embedder", "error", err)
		embedPort = staticembed.New()
		_ = embedPort.Init(ctx)
	}

	vi := vectorindex.New(ctx, st.DB(), embedPort.ModelName(), embedPort.Dimensions(), "cosine", logger)

	engine := search.New(st, vi, embedPort, genPort, rerankPort, logger)

	ingestPipeline, err := ingest.New(st, logger, cfg.Search.ChunkMaxTokens)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		DataDir:     dataDir,
		Logger:      logger,
		ConfigMutex: cm,
		Store:       st,
		Vector:      vi,
		Embed:       embedPort,
		Gen:         genPort,
		Rerank:      rerankPort,
		Search:      engine,
		Ingest:      ingestPipeline,
		Jobs:        jobtracker.New(),
	}, nil
}

func buildPorts(cfg *config.Config, offline bool) (llmports.EmbeddingPort, llmports.GenerationPort, llmports.RerankPort) {
	if offline {
		return staticembed.New(), httpgen.NewGenerationClient(httpgen.GenConfig{}), httpgen.NewRerankClient(httpgen.RerankConfig{})
	}

	embedModel, genModel, rerankModel := "", "", ""
	for _, p := range cfg.Models {
		if embedModel == "" {
			embedModel = p.EmbedModel
		}
		if genModel == "" {
			genModel = p.GenModel
		}
		if rerankModel == "" {
			rerankModel = p.RerankModel
		}
	}

	return ollamaembed.New(ollamaembed.Config{Model: embedModel}),
		httpgen.NewGenerationClient(httpgen.GenConfig{Model: genModel}),
		httpgen.NewRerankClient(httpgen.RerankConfig{Model: rerankModel})
}

// Close releases the store and disposes the embedding port.
func (a *App) Close() error {
	if a.Embed != nil {
		if err := a.Embed.Dispose(); err != nil {
			a.Logger.Warn("embedding port dispose failed", "error", err)
		}
	}
	return a.Store.Close()
}

// DefaultDataDir returns the default gnosis data directory, honoring
// $GNOSIS_DATA_DIR, falling back to ~/.gnosis.
func DefaultDataDir() string {
	if d := os.Getenv("GNOSIS_DATA_DIR"); d != "" {
		return d
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".gnosis")
	}
	return filepath.Join(home, ".gnosis")
}

// ConfigPath returns the path to the config file this App was opened
// against.
func (a *App) ConfigPath() string {
	return filepath.Join(a.DataDir, "config.yaml")
}

// SyncAll runs the ingestion pipeline over every configured collection,
// in registration order, accumulating per-collection results. gitPull
// mirrors the updateCmd/git-pull step the pipeline runs before scanning.
func (a *App) SyncAll(ctx context.Context, gitPull bool) (map[string]*ingest.Result, error) {
	cfg := a.ConfigMutex.Current()
	out := make(map[string]*ingest.Result, len(cfg.Collections))
	version := ingest.NextPipelineVersion(time.Now())
	for _, col := range cfg.Collections {
		res, err := a.Ingest.Run(ctx, col, version, gitPull)
		if err != nil {
			return out, fmt.Errorf("sync collection %q: %w", col.Name, err)
		}
		out[col.Name] = res
	}
	return out, nil
}
