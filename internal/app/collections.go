package app

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/idcodec"
	"github.com/gnosis-index/gnosis/internal/ingest"
	"github.com/gnosis-index/gnosis/internal/store"
)

// AddCollection registers a new collection under the config mutex, after
// rejecting a duplicate name. It's the single write path both the HTTP API
// and the MCP tool server use to add a collection.
func (a *App) AddCollection(ctx context.Context, col config.Collection) error {
	if col.Name == "" || col.Path == "" {
		return errorcode.Validation("name and path are required", nil)
	}
	if len(col.Exclude) == 0 {
		col.Exclude = config.DefaultCollectionExclude()
	}
	_, err := a.ConfigMutex.Mutate(ctx, func(cur *config.Config) (*config.Config, error) {
		for _, c := range cur.Collections {
			if c.Name == col.Name {
				return nil, errorcode.Conflict("collection \"" + col.Name + "\" already exists")
			}
		}
		next := *cur
		next.Collections = append(append([]config.Collection{}, cur.Collections...), col)
		return &next, nil
	})
	return err
}

// RemoveCollection drops a collection by name under the config mutex.
func (a *App) RemoveCollection(ctx context.Context, name string) error {
	_, err := a.ConfigMutex.Mutate(ctx, func(cur *config.Config) (*config.Config, error) {
		out := make([]config.Collection, 0, len(cur.Collections))
		found := false
		for _, c := range cur.Collections {
			if c.Name == name {
				found = true
				continue
			}
			out = append(out, c)
		}
		if !found {
			return nil, errorcode.NotFound("collection \"" + name + "\" not found")
		}
		next := *cur
		next.Collections = out
		return &next, nil
	})
	return err
}

// CaptureRequest is the input to CaptureDocument: raw text to write into a
// registered collection's root, then ingest.
type CaptureRequest struct {
	Collection string
	RelPath    string
	Title      string
	Body       string
}

// CaptureDocument writes Body to a file under the named collection's root
// (deriving RelPath from Title when omitted), then re-runs the ingestion
// pipeline for that one collection and returns the resulting document —
// the same path a user gets by editing a file by hand and running `gno
// update`, just taken through one call.
func (a *App) CaptureDocument(ctx context.Context, req CaptureRequest) (*store.Document, error) {
	if req.Collection == "" || req.Body == "" {
		return nil, errorcode.Validation("collection and body are required", nil)
	}

	cfg := a.ConfigMutex.Current()
	var col *config.Collection
	for i := range cfg.Collections {
		if cfg.Collections[i].Name == req.Collection {
			col = &cfg.Collections[i]
			break
		}
	}
	if col == nil {
		return nil, errorcode.NotFound("collection \"" + req.Collection + "\" not found")
	}

	relPath := req.RelPath
	if relPath == "" {
		relPath = slugify(req.Title) + ".md"
	}
	absPath := filepath.Join(col.Path, relPath)
	if !strings.HasPrefix(absPath, filepath.Clean(col.Path)+string(filepath.Separator)) {
		return nil, errorcode.InvalidInput("relPath escapes the collection root", nil)
	}
	if isSensitivePath(relPath) {
		return nil, errorcode.Forbidden("relPath targets a restricted directory")
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, errorcode.New(errorcode.CodeSaveError, "cannot create capture directory", err)
	}
	body := req.Body
	if req.Title != "" && !strings.HasPrefix(strings.TrimSpace(body), "#") {
		body = "# " + req.Title + "\n\n" + body
	}
	if err := os.WriteFile(absPath, []byte(body), 0o644); err != nil {
		return nil, errorcode.New(errorcode.CodeSaveError, "cannot write captured document", err)
	}

	if _, err := a.Ingest.Run(ctx, *col, ingest.NextPipelineVersion(time.Now()), false); err != nil {
		return nil, err
	}

	return a.Store.GetDocumentByURI(ctx, idcodec.BuildURI(req.Collection, relPath))
}

// sensitiveDirs is the short deny-list of path segments a capture request
// may never target, regardless of whether the resolved path still falls
// under the collection root.
var sensitiveDirs = []string{".git", ".ssh", ".gnosis", "node_modules"}

func isSensitivePath(relPath string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
		for _, bad := range sensitiveDirs {
			if seg == bad {
				return true
			}
		}
	}
	return false
}

func slugify(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return "untitled-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	var sb strings.Builder
	lastDash := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}
