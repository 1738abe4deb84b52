// Package httpapi serves the loopback-only HTTP surface: JSON endpoints
// for status, collection management, search, the link graph, and
// background jobs, plus the same-origin write guard a browser UI relies
// on.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gnosis-index/gnosis/internal/app"
	"github.com/gnosis-index/gnosis/internal/errorcode"
)

// Server serves the gnosis HTTP+UI surface on top of a shared *app.App.
type Server struct {
	app     *app.App
	logger  *slog.Logger
	metrics *Metrics
	mux     *http.ServeMux
	started time.Time
}

// New builds a Server and registers every route.
func New(a *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		app:     a,
		logger:  logger,
		metrics: NewMetrics(),
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	s.routes()
	return s
}

// ListenAndServe binds addr (expected to be a loopback address) and serves
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("parse listen address %q: %w", addr, err)
	}
	if !isLoopbackHost(host) {
		return fmt.Errorf("refusing to bind non-loopback address %q", addr)
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: s.withMiddleware(s.mux),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/collections", s.handleListCollections)
	s.mux.HandleFunc("POST /api/collections", s.handleAddCollection)
	s.mux.HandleFunc("DELETE /api/collections/{name}", s.handleRemoveCollection)
	s.mux.HandleFunc("POST /api/sync", s.handleSync)
	s.mux.HandleFunc("GET /api/docs", s.handleListDocs)
	s.mux.HandleFunc("GET /api/doc", s.handleGetDoc)
	s.mux.HandleFunc("POST /api/docs", s.handleCaptureDoc)
	s.mux.HandleFunc("POST /api/docs/{id}/deactivate", s.handleDeactivateDoc)
	s.mux.HandleFunc("POST /api/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/query", s.handleQuery)
	s.mux.HandleFunc("POST /api/ask", s.handleAsk)
	s.mux.HandleFunc("GET /api/doc/{id}/links", s.handleDocLinks)
	s.mux.HandleFunc("GET /api/doc/{id}/backlinks", s.handleDocBacklinks)
	s.mux.HandleFunc("GET /api/doc/{id}/similar", s.handleDocSimilar)
	s.mux.HandleFunc("GET /api/graph", s.handleGraph)
	s.mux.HandleFunc("GET /api/tags", s.handleTags)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleJobStatus)
	s.mux.HandleFunc("GET /api/presets", s.handleListPresets)
	s.mux.HandleFunc("POST /api/presets", s.handleAddPreset)
	s.mux.HandleFunc("GET /api/models/status", s.handleModelsStatus)
	s.mux.HandleFunc("POST /api/models/pull", s.handleModelsPull)
}

// withMiddleware wraps h with the same-origin write guard inside the
// request-metrics recorder, so a blocked write still counts toward
// /api/health's request/error totals.
func (s *Server) withMiddleware(h http.Handler) http.Handler {
	return s.instrument(s.csrfGuard(h))
}

// csrfGuard rejects any non-GET/HEAD request whose Origin header names a
// host other than the server's own loopback address, the browser-facing
// analogue of requiring same-origin for writes.
func (s *Server) csrfGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		origin := r.Header.Get("Origin")
		if origin != "" {
			if u, err := parseOriginHost(origin); err != nil || !isLoopbackHost(u) {
				writeError(w, "same-origin-check", errorcode.Forbidden("cross-origin write requests are not allowed"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func parseOriginHost(origin string) (string, error) {
	origin = strings.TrimPrefix(origin, "http://")
	origin = strings.TrimPrefix(origin, "https://")
	host, _, err := net.SplitHostPort(origin)
	if err != nil {
		return origin, nil // no port present; treat origin itself as the host
	}
	return host, nil
}

// instrument records request counts and latency in Metrics, keyed by the
// matched route pattern rather than the raw path, to avoid an unbounded
// label cardinality from document ids embedded in the URL.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		statusClass := fmt.Sprintf("%dxx", rec.status/100)
		s.metrics.observe(route, statusClass, time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// writeJSON encodes v as the response body with status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorEnvelope is the {error:{code,message}} shape every failed response
// uses.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError renders err as the standard error envelope, deriving an HTTP
// status from its errorcode.Category.
func writeError(w http.ResponseWriter, route string, err error) {
	var env errorEnvelope
	env.Error.Message = err.Error()
	code := errorcode.GetCode(err)
	if code == "" {
		code = errorcode.CodeRuntime
	}
	env.Error.Code = code
	writeJSON(w, statusForCategory(errorcode.GetCategory(err)), env)
}

func statusForCategory(cat errorcode.Category) int {
	switch cat {
	case errorcode.CategoryValidation:
		return http.StatusBadRequest
	case errorcode.CategoryNotFound, errorcode.CategoryPath:
		return http.StatusNotFound
	case errorcode.CategoryConflict:
		return http.StatusConflict
	case errorcode.CategoryAuth:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads and decodes a request body, wrapping decode failures as
// a VALIDATION error.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errorcode.Validation("malformed request body", err)
	}
	return nil
}

// pathID parses the {id} wildcard as an int64 document id.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errorcode.Validation("id must be an integer", err)
	}
	return id, nil
}
