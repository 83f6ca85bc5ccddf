// ABOUTME: HTTP API for submitting research jobs and polling their progress,
// ABOUTME: served behind a chi router with panic recovery and request logging.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/lantern-research/lantern/cache"
	"github.com/lantern-research/lantern/docstore"
	"github.com/lantern-research/lantern/jobs"
	"github.com/lantern-research/lantern/pipeline"
)

// Runner executes one research pipeline run. It always returns a result, even
// on failure; the result's state carries the terminal status.
type Runner interface {
	Run(ctx context.Context, query string, opts pipeline.RunOptions) *pipeline.PipelineResult
}

// ServerConfig carries the server's collaborators and settings.
type ServerConfig struct {
	Addr       string
	Registry   *jobs.Registry
	Runner     Runner
	ReportsDir string
	// Documents, when set, enables the document search endpoint.
	Documents *docstore.Store
	// Cache, when set, enables the cache stats endpoint.
	Cache *cache.Store
	// JobTimeout bounds a single background run. Zero means 10 minutes.
	JobTimeout time.Duration
}

// Server exposes the research job API.
type Server struct {
	addr       string
	registry   *jobs.Registry
	runner     Runner
	reportsDir string
	documents  *docstore.Store
	cache      *cache.Store
	jobTimeout time.Duration
	router     chi.Router
}

// NewServer wires up the router. Registry and Runner are required.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("web: registry must not be nil")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("web: runner must not be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8090"
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Minute
	}
	s := &Server{
		addr:       cfg.Addr,
		registry:   cfg.Registry,
		runner:     cfg.Runner,
		reportsDir: cfg.ReportsDir,
		documents:  cfg.Documents,
		cache:      cfg.Cache,
		jobTimeout: cfg.JobTimeout,
	}
	s.router = s.buildRouter()
	return s, nil
}

// ServeHTTP delegates to the chi router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured address with
// timeouts that protect against slow clients.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
	log.Printf("component=web action=listen addr=%s", s.addr)
	return srv.ListenAndServe()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Post("/research", s.handleSubmit)
	r.Get("/status/{jobID}", s.handleStatus)
	r.Get("/jobs", s.handleListJobs)
	r.Delete("/jobs/{jobID}", s.handleDeleteJob)
	r.Get("/reports/{jobID}", s.handleReport)
	if s.documents != nil {
		r.Get("/documents", s.handleSearchDocuments)
	}
	if s.cache != nil {
		r.Get("/cache/stats", s.handleCacheStats)
	}

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "lantern",
		"submit":  "POST /research",
		"status":  "GET /status/{job_id}",
		"jobs":    "GET /jobs",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitRequest is the POST /research body.
type submitRequest struct {
	Query         string `json:"query"`
	IncludeNews   bool   `json:"include_news"`
	IncludeImages bool   `json:"include_images"`
	IncludeVideos bool   `json:"include_videos"`
	MaxResults    int    `json:"max_results"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// All verticals are on unless the body turns them off explicitly.
	req := submitRequest{
		IncludeNews:   true,
		IncludeImages: true,
		IncludeVideos: true,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	jobID := uuid.NewString()
	if err := s.registry.Create(r.Context(), jobs.Record{JobID: jobID, Query: req.Query}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	opts := pipeline.DefaultRunOptions()
	opts.IncludeNews = req.IncludeNews
	opts.IncludeImages = req.IncludeImages
	opts.IncludeVideos = req.IncludeVideos
	if req.MaxResults > 0 {
		opts.MaxResults = req.MaxResults
	}
	opts.JobID = jobID

	go s.runJob(jobID, req.Query, opts)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID,
		"status": string(jobs.StatusPending),
	})
}

// runJob drives one background pipeline run, recording its lifecycle in the
// registry. The request context is gone by the time this runs, so the run
// gets its own bounded context.
func (s *Server) runJob(jobID, query string, opts pipeline.RunOptions) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	if err := s.registry.Update(ctx, jobID, func(rec *jobs.Record) {
		rec.Status = jobs.StatusRunning
	}); err != nil {
		log.Printf("component=web job=%s action=mark_running err=%v", jobID, err)
	}

	result := s.runner.Run(ctx, query, opts)

	status := jobs.StatusCompleted
	errMsg := ""
	if result.State.Status == pipeline.StatusFailed {
		status = jobs.StatusFailed
		errMsg = result.State.Error
		if errMsg == "" {
			errMsg = "pipeline run failed"
		}
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("component=web job=%s action=marshal_result err=%v", jobID, err)
		status = jobs.StatusFailed
		errMsg = "failed to encode result"
		payload = nil
	}

	if err := s.registry.Update(ctx, jobID, func(rec *jobs.Record) {
		rec.Status = status
		rec.Result = payload
		rec.Error = errMsg
	}); err != nil {
		log.Printf("component=web job=%s action=mark_done err=%v", jobID, err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rec, err := s.registry.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var statusFilter jobs.Status
	if v := r.URL.Query().Get("status"); v != "" {
		statusFilter = jobs.Status(v)
		if !statusFilter.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
	}

	records, err := s.registry.List(r.Context(), limit, statusFilter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	total := s.registry.Count(r.Context(), statusFilter)

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  records,
		"count": len(records),
		"total": total,
	})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rec, err := s.registry.Get(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	if !rec.Status.Terminal() {
		writeError(w, http.StatusBadRequest, "job is still in progress")
		return
	}
	if err := s.registry.Delete(r.Context(), jobID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "deleted"})
}

// handleReport serves the saved HTML report for a completed job.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if s.reportsDir == "" {
		writeError(w, http.StatusNotFound, "reports are not persisted")
		return
	}
	// The job id is validated against the registry so path traversal via the
	// URL parameter cannot reach arbitrary files.
	if _, err := s.registry.Get(r.Context(), jobID); err != nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	path := filepath.Join(s.reportsDir, jobID+".html")
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "report not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, path)
}

// handleSearchDocuments runs a full-text lookup over previously scraped
// documents.
func (s *Server) handleSearchDocuments(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "q must not be empty")
		return
	}
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	docs, err := s.documents.Search(r.Context(), term, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "document search failed")
		return
	}
	total, err := s.documents.Count(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "document count failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"count":     len(docs),
		"total":     total,
	})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("component=web action=encode_response err=%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
