package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gnosis-index/gnosis/internal/app"
	"github.com/gnosis-index/gnosis/internal/config"
	"github.com/gnosis-index/gnosis/internal/errorcode"
	"github.com/gnosis-index/gnosis/internal/jobtracker"
	"github.com/gnosis-index/gnosis/internal/search"
	"github.com/gnosis-index/gnosis/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	total, errs := s.metrics.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
		"requestsTotal": total,
		"errorsTotal":   errs,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := s.app.Store.GetStatus(ctx, s.app.Embed.ModelName())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cfg := s.app.ConfigMutex.Current()
	writeJSON(w, http.StatusOK, map[string]any{"collections": cfg.Collections})
}

func (s *Server) handleAddCollection(w http.ResponseWriter, r *http.Request) {
	var in config.Collection
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "collections.add", err)
		return
	}
	if err := s.app.AddCollection(r.Context(), in); err != nil {
		writeError(w, "collections.add", err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (s *Server) handleRemoveCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.app.RemoveCollection(r.Context(), name); err != nil {
		writeError(w, "collections.remove", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var in struct {
		GitPull bool `json:"gitPull"`
	}
	_ = decodeJSON(r, &in) // an empty body is valid: gitPull defaults to false

	id, err := s.app.Jobs.StartJob(jobtracker.JobSync, func(ctx context.Context, progress *jobtracker.ProgressReporter) (any, error) {
		return s.app.SyncAll(ctx, in.GitPull)
	})
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"jobId": id})
}

// captureDocRequest is the body for POST /api/docs: write raw text directly
// into a registered collection's root and ingest just that one file,
// without requiring the caller to have created the file on disk first.
type captureDocRequest struct {
	Collection string `json:"collection"`
	RelPath    string `json:"relPath"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

func (s *Server) handleCaptureDoc(w http.ResponseWriter, r *http.Request) {
	var in captureDocRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "docs.capture", err)
		return
	}
	doc, err := s.app.CaptureDocument(r.Context(), app.CaptureRequest{
		Collection: in.Collection,
		RelPath:    in.RelPath,
		Title:      in.Title,
		Body:       in.Body,
	})
	if err != nil {
		writeError(w, "docs.capture", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	limit := queryInt(r, "limit", 100)
	docs, err := s.app.Store.ListDocuments(r.Context(), collection, limit)
	if err != nil {
		writeError(w, "docs.list", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	uri := r.URL.Query().Get("uri")
	if uri == "" {
		writeError(w, "doc.get", errorcode.Validation("uri query parameter is required", nil))
		return
	}
	doc, err := s.app.Store.GetDocumentByURI(r.Context(), uri)
	if err != nil {
		writeError(w, "doc.get", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeactivateDoc(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, "doc.deactivate", err)
		return
	}
	if err := s.app.Store.DeactivateDocument(r.Context(), id); err != nil {
		writeError(w, "doc.deactivate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"id": id})
}

type searchRequest struct {
	Query      string   `json:"query"`
	Collection string   `json:"collection"`
	TagsAll    []string `json:"tagsAll"`
	TagsAny    []string `json:"tagsAny"`
	Limit      int      `json:"limit"`
	Snippet    *bool    `json:"snippet"`
	NoExpand   bool     `json:"noExpand"`
	NoRerank   bool     `json:"noRerank"`
	MaxTokens  int      `json:"maxTokens"`
}

func (in searchRequest) toOptions() search.Options {
	snippet := true
	if in.Snippet != nil {
		snippet = *in.Snippet
	}
	return search.Options{
		Collection: in.Collection,
		TagsAll:    in.TagsAll,
		TagsAny:    in.TagsAny,
		Limit:      in.Limit,
		Snippet:    snippet,
		NoExpand:   in.NoExpand,
		NoRerank:   in.NoRerank,
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "search", err)
		return
	}
	results, err := s.app.Search.Lexical(r.Context(), in.Query, in.toOptions())
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "query", err)
		return
	}
	results, meta, err := s.app.Search.Hybrid(r.Context(), in.Query, in.toOptions())
	if err != nil {
		writeError(w, "query", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "meta": meta})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var in searchRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "ask", err)
		return
	}
	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = search.DefaultAskMaxTokens
	}
	result, err := s.app.Search.Ask(r.Context(), in.Query, in.toOptions(), maxTokens)
	if err != nil {
		writeError(w, "ask", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) docFromID(r *http.Request) (*store.Document, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	return s.app.Store.GetDocumentByID(r.Context(), id)
}

func (s *Server) handleDocLinks(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docFromID(r)
	if err != nil {
		writeError(w, "doc.links", err)
		return
	}
	links, err := s.app.Store.GetLinksForDoc(r.Context(), doc.ID)
	if err != nil {
		writeError(w, "doc.links", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

func (s *Server) handleDocBacklinks(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docFromID(r)
	if err != nil {
		writeError(w, "doc.backlinks", err)
		return
	}
	collection := r.URL.Query().Get("collection")
	backlinks, err := s.app.Store.GetBacklinksForDoc(r.Context(), doc.ID, collection)
	if err != nil {
		writeError(w, "doc.backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backlinks": backlinks})
}

func (s *Server) handleDocSimilar(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docFromID(r)
	if err != nil {
		writeError(w, "doc.similar", err)
		return
	}
	opts := search.SimilarOptions{
		Limit:           queryInt(r, "limit", search.DefaultSimilarLimit),
		Threshold:       queryFloat(r, "threshold", search.DefaultSimilarThreshold),
		CrossCollection: r.URL.Query().Get("crossCollection") == "true",
	}
	results, err := s.app.Search.Similar(r.Context(), doc.URI, opts)
	if err != nil {
		writeError(w, "doc.similar", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	opts := store.GraphOptions{
		Collection:     r.URL.Query().Get("collection"),
		LimitNodes:     queryInt(r, "limit", 0),
		IncludeSimilar: r.URL.Query().Get("includeSimilar") == "true",
		Threshold:      queryFloat(r, "threshold", search.DefaultSimilarThreshold),
		SimilarTopK:    queryInt(r, "similarTopK", 0),
		Model:          s.app.Embed.ModelName(),
	}
	graph, err := s.app.Store.GetGraph(r.Context(), opts, s.app.Vector)
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, graph)
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	collection := r.URL.Query().Get("collection")
	prefix := r.URL.Query().Get("prefix")
	tags, err := s.app.Store.GetTagCounts(r.Context(), collection, prefix)
	if err != nil {
		writeError(w, "tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	info, ok := s.app.Jobs.GetJobStatus(id)
	if !ok {
		writeError(w, "jobs.status", errorcode.NotFound("job not found"))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	cfg := s.app.ConfigMutex.Current()
	writeJSON(w, http.StatusOK, map[string]any{"presets": cfg.Models})
}

func (s *Server) handleAddPreset(w http.ResponseWriter, r *http.Request) {
	var in config.Preset
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, "presets.add", err)
		return
	}
	if in.Name == "" {
		writeError(w, "presets.add", errorcode.Validation("name is required", nil))
		return
	}
	_, err := s.app.ConfigMutex.Mutate(r.Context(), func(cur *config.Config) (*config.Config, error) {
		next := *cur
		filtered := make([]config.Preset, 0, len(cur.Models)+1)
		for _, p := range cur.Models {
			if p.Name != in.Name {
				filtered = append(filtered, p)
			}
		}
		next.Models = append(filtered, in)
		return &next, nil
	})
	if err != nil {
		writeError(w, "presets.add", err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

// handleModelsStatus reports the availability of each configured LlmPort.
// Pulling or installing models themselves is out of scope for this build.
func (s *Server) handleModelsStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"embed":  map[string]any{"model": s.app.Embed.ModelName(), "available": s.app.Embed.Available(ctx)},
		"gen":    map[string]any{"available": s.app.Gen.Available(ctx)},
		"rerank": map[string]any{"available": s.app.Rerank.Available(ctx)},
	})
}

// handleModelsPull always reports UNAVAILABLE: downloading or installing a
// model is out of scope for this build.
func (s *Server) handleModelsPull(w http.ResponseWriter, r *http.Request) {
	writeError(w, "models.pull", errorcode.Unavailable("model download is not supported by this build"))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryFloat(r *http.Request, key string, def float64) float64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
