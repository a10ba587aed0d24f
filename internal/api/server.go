// Package api exposes the HTTP interface for the harvest service: health
// probes, Prometheus metrics, and a synchronous crawl endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shopdata/harvest/internal/apify"
	"github.com/shopdata/harvest/internal/config"
	"github.com/shopdata/harvest/internal/crawl"
	"github.com/shopdata/harvest/internal/record"
)

// CrawlRunner executes one harvest run. *crawl.Crawler satisfies it; tests
// substitute fakes.
type CrawlRunner interface {
	Crawl(ctx context.Context, req crawl.Request) ([]record.Page, error)
}

// RunnerFactory builds the runner on demand. Construction is deferred so the
// server can start without a service credential; the factory surfaces the
// missing token per request instead.
type RunnerFactory func() (CrawlRunner, error)

// Deps carries the server's collaborators.
type Deps struct {
	Runner   RunnerFactory
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Defaults config.CrawlConfig
	// Timeout bounds a synchronous crawl request end to end (default 15m).
	Timeout time.Duration
}

// Server wires the HTTP handlers to the crawl pipeline.
type Server struct {
	router   chi.Router
	runner   RunnerFactory
	logger   *zap.Logger
	defaults config.CrawlConfig
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Runner == nil {
		return nil, errors.New("api: runner factory is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 15 * time.Minute
	}

	s := &Server{
		runner:   deps.Runner,
		logger:   deps.Logger,
		defaults: deps.Defaults,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(deps.Logger))
	r.Use(recoverMiddleware(deps.Logger))
	r.Use(timeoutMiddleware(deps.Timeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/crawls", s.submitCrawl)
	})

	s.router = r
	return s, nil
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// The pipeline holds no warm state; readiness equals liveness.
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type crawlRequest struct {
	StartURL      string   `json:"start_url"`
	MaxPages      *int     `json:"max_pages"`
	CrawlerType   string   `json:"crawler_type"`
	IncludeGlobs  []string `json:"include_globs"`
	ExcludeGlobs  []string `json:"exclude_globs"`
	OutputPath    string   `json:"output_path"`
	MaxChunkChars *int     `json:"max_chunk_chars"`
}

type crawlResponse struct {
	Pages      int    `json:"pages"`
	Chunks     int    `json:"chunks"`
	OutputPath string `json:"output_path"`
}

// submitCrawl runs a harvest synchronously and reports the dataset summary.
// The call blocks for the duration of the remote run.
func (s *Server) submitCrawl(w http.ResponseWriter, r *http.Request) {
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	runReq := s.toRunRequest(req)
	if runReq.StartURL == "" {
		writeError(w, http.StatusBadRequest, "start_url is required")
		return
	}

	runner, err := s.runner()
	if err != nil {
		if errors.Is(err, apify.ErrMissingToken) {
			writeError(w, http.StatusServiceUnavailable, "crawl service credential is not configured")
			return
		}
		s.logger.Error("building crawl runner", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	pages, err := runner.Crawl(r.Context(), runReq)
	if err != nil {
		s.writeCrawlError(w, err)
		return
	}

	chunks := 0
	for _, page := range pages {
		chunks += len(page.Chunks)
	}
	writeJSON(w, http.StatusOK, crawlResponse{
		Pages:      len(pages),
		Chunks:     chunks,
		OutputPath: runReq.OutputPath,
	})
}

func (s *Server) toRunRequest(req crawlRequest) crawl.Request {
	out := crawl.Request{
		StartURL:      req.StartURL,
		MaxPages:      valueOrDefault(req.MaxPages, s.defaults.MaxPages),
		CrawlerType:   req.CrawlerType,
		IncludeGlobs:  req.IncludeGlobs,
		ExcludeGlobs:  req.ExcludeGlobs,
		OutputPath:    req.OutputPath,
		MaxChunkChars: valueOrDefault(req.MaxChunkChars, s.defaults.MaxChunkChars),
	}
	if out.StartURL == "" {
		out.StartURL = s.defaults.StartURL
	}
	if out.CrawlerType == "" {
		out.CrawlerType = s.defaults.CrawlerType
	}
	if out.IncludeGlobs == nil {
		out.IncludeGlobs = s.defaults.IncludeGlobs
	}
	if out.ExcludeGlobs == nil {
		out.ExcludeGlobs = s.defaults.ExcludeGlobs
	}
	if out.OutputPath == "" {
		out.OutputPath = s.defaults.OutputPath
	}
	return out
}

// writeCrawlError maps pipeline failures onto HTTP statuses: upstream service
// failures are gateway errors, timeouts are 504, everything else is 500.
func (s *Server) writeCrawlError(w http.ResponseWriter, err error) {
	var apiErr *apify.APIError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "crawl timed out")
	case errors.As(err, &apiErr), errors.Is(err, apify.ErrRunFailed), errors.Is(err, crawl.ErrEmptyDataset):
		s.logger.Warn("crawl service failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("crawl failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func valueOrDefault[T any](ptr *T, def T) T {
	if ptr == nil {
		return def
	}
	return *ptr
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}
