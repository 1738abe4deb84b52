// Package ingest implements the per-collection scan -> convert -> chunk ->
// upsert -> mark-inactive pipeline that turns a folder of source files
// into the store's documents, content bodies, chunks, tags, links, and FTS
// projection.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gnosis-index/gnosis/internal/chunk"
	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/idcodec"
	"github.com/gnosis-index/gnosis/internal/linkextract"
	"github.com/gnosis-index/gnosis/internal/store"
)

// Result summarizes the outcome of one collection ingestion pass.
type Result struct {
	Scanned     int
	Ingested    int
	Skipped     int
	Errors      int
	Inactivated int
}

// Pipeline runs ingestion passes against one Store.
type Pipeline struct {
	store    *store.Store
	scanner  *Scanner
	registry *Registry
	splitter *chunk.Splitter
	logger   *slog.Logger
}

// New creates a Pipeline with the built-in converter registry and a
// splitter bounded by chunkMaxTokens (0 uses chunk.DefaultMaxTokens).
func New(st *store.Store, logger *slog.Logger, chunkMaxTokens int) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	scanner, err := NewScanner()
	if err != nil {
		return nil, err
	}
	if chunkMaxTokens <= 0 {
		chunkMaxTokens = chunk.DefaultMaxTokens
	}
	return &Pipeline{
		store:    st,
		scanner:  scanner,
		registry: DefaultRegistry(),
		splitter: chunk.NewSplitter(chunkMaxTokens),
		logger:   logger,
	}, nil
}

// Run executes one ingestion pass over col. pipelineVersion is stamped onto
// every document written this pass and is what makes a second pass with an
// unchanged source tree a no-op (the idempotence check in step 2). gitPull
// requests a "git pull --ff-only" in col.Path before col.UpdateCmd runs and
// the scan begins.
func (p *Pipeline) Run(ctx context.Context, col config.Collection, pipelineVersion int64, gitPull bool) (*Result, error) {
	for _, err := range runPreScan(ctx, col.Path, col.UpdateCmd, gitPull) {
		_ = p.store.RecordIngestError(ctx, col.Name, "", errorCode(err), err.Error(), "")
	}

	results, err := p.scanner.Scan(ctx, ScanOptions{
		RootDir:          col.Path,
		Pattern:          col.Pattern,
		Include:          col.Include,
		Exclude:          col.Exclude,
		RespectGitignore: true,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	seen := make(map[string]struct{})

	for item := range results {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		if item.Error != nil {
			res.Errors++
			_ = p.store.RecordIngestError(ctx, col.Name, "", errorCode(item.Error), item.Error.Error(), "")
			continue
		}

		res.Scanned++
		file := item.File
		seen[file.RelPath] = struct{}{}

		if err := p.ingestOne(ctx, col, file, pipelineVersion, res); err != nil {
			res.Errors++
			p.logger.Warn("ingest_file_failed",
				slog.String("collection", col.Name), slog.String("relPath", file.RelPath), slog.String("error", err.Error()))
			_ = p.store.RecordIngestError(ctx, col.Name, file.RelPath, errorCode(err), err.Error(), "")
		}
	}

	active, err := p.store.ListActiveRelPaths(ctx, col.Name)
	if err != nil {
		return res, err
	}
	for _, relPath := range active {
		if _, ok := seen[relPath]; ok {
			continue
		}
		if err := p.store.MarkInactive(ctx, col.Name, relPath); err != nil {
			return res, err
		}
		res.Inactivated++
	}

	return res, nil
}

// ingestOne runs steps 2-4 of the pipeline for one discovered file.
func (p *Pipeline) ingestOne(ctx context.Context, col config.Collection, file *FileInfo, pipelineVersion int64, res *Result) error {
	raw, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return errorcode.New(errorcode.CodePathNotFound, "read source file failed", err)
	}
	sourceHash := hashHex(raw)

	uri := idcodec.BuildURI(col.Name, file.RelPath)
	existing, err := p.store.GetDocumentByURI(ctx, uri)
	if err != nil && errorcode.GetCode(err) != errorcode.CodeNotFound {
		return err
	}
	if existing != nil && existing.Active && existing.SourceHash == sourceHash && existing.IngestVersion == pipelineVersion {
		res.Skipped++
		return nil
	}

	ext := filepath.Ext(file.RelPath)
	converter := p.registry.For(ext)
	converted, err := converter.Convert(raw, file.RelPath)
	if err != nil {
		return errorcode.Wrap(errorcode.CodeInvalidInput, err)
	}

	mirrorHash := hashHex([]byte(converted.Body))
	chunks := p.splitter.Split(converted.Body)
	storeChunks := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		storeChunks[i] = store.Chunk{
			MirrorHash: mirrorHash,
			Seq:        c.Seq,
			Pos:        c.Pos,
			Text:       c.Text,
			StartLine:  c.StartLine,
			EndLine:    c.EndLine,
			Language:   c.Language,
			TokenCount: c.TokenCount,
		}
	}

	sourceDir := filepath.Dir(file.RelPath)
	if sourceDir == "." {
		sourceDir = ""
	}
	extracted := linkextract.Extract(converted.Body, sourceDir)
	storeLinks := make([]store.Link, len(extracted))
	for i, l := range extracted {
		storeLinks[i] = store.Link{
			TargetRef:        l.TargetRef,
			TargetRefNorm:    l.TargetRefNorm,
			TargetAnchor:     l.TargetAnchor,
			TargetCollection: l.TargetCollection,
			LinkType:         string(l.LinkType),
			LinkText:         l.LinkText,
			StartLine:        l.StartLine,
			StartCol:         l.StartCol,
			EndLine:          l.EndLine,
			EndCol:           l.EndCol,
		}
	}

	languageHint := converted.LanguageHint
	if languageHint == "" {
		languageHint = col.LanguageHint
	}

	var documentID int64
	txErr := p.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := p.store.UpsertContent(ctx, mirrorHash, converted.Body); err != nil {
			return err
		}
		id, _, err := p.store.UpsertDocument(ctx, store.UpsertDocumentInput{
			Collection:       col.Name,
			RelPath:          file.RelPath,
			SourceHash:       sourceHash,
			SourceMime:       mimeForExt(ext),
			SourceExt:        ext,
			SourceSize:       file.Size,
			SourceMtime:      file.ModTime,
			Title:            converted.Title,
			MirrorHash:       mirrorHash,
			ConverterID:      converter.ID(),
			ConverterVersion: converter.Version(),
			LanguageHint:     languageHint,
			IngestVersion:    pipelineVersion,
		})
		if err != nil {
			return err
		}
		documentID = id

		if err := p.store.UpsertChunks(ctx, mirrorHash, storeChunks); err != nil {
			return err
		}
		if err := p.store.SetDocTags(ctx, id, converted.Tags, "frontmatter"); err != nil {
			return err
		}
		if err := p.store.SetDocLinks(ctx, id, storeLinks, "parsed"); err != nil {
			return err
		}
		return p.store.SyncDocumentFts(ctx, col.Name, file.RelPath)
	})
	if txErr != nil {
		if documentID > 0 {
			_ = p.store.SetDocumentError(ctx, documentID, errorCode(txErr), txErr.Error())
		}
		return txErr
	}

	res.Ingested++
	return nil
}

func hashHex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

func errorCode(err error) string {
	if code := errorcode.GetCode(err); code != "" {
		return code
	}
	return errorcode.CodeRuntime
}

var mimeByExt = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".txt":      "text/plain",
}

func mimeForExt(ext string) string {
	if m, ok := mimeByExt[strings.ToLower(ext)]; ok {
		return m
	}
	return "text/plain"
}

// NextPipelineVersion derives the pipeline version to stamp for a run
// started at t: a Unix-nanosecond value, monotonically increasing across
// successive runs so idempotence comparisons (step 2) never collide.
func NextPipelineVersion(t time.Time) int64 {
	return t.UnixNano()
}
