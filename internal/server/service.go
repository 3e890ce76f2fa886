// Package server provides the HTTP service for refinery.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/finprompt/refinery/internal/config"
	"github.com/finprompt/refinery/internal/db/sqlite"
	"github.com/finprompt/refinery/internal/metrics"
	"github.com/finprompt/refinery/internal/packs"
	"github.com/finprompt/refinery/internal/ratelimit"
	"github.com/finprompt/refinery/internal/server/sse"
	"github.com/finprompt/refinery/internal/workflow"
)

// Service owns the HTTP surface and wires it to the stores, limiter, and
// workflow.
type Service struct {
	version string
	config  *config.Config

	store    *sqlite.Store
	sessions *sqlite.SessionStore
	events   *sqlite.EventStore
	records  *sqlite.PromptRecordStore

	workflow    *workflow.Workflow
	catalog     *packs.Catalog
	limiter     ratelimit.Limiter
	broadcaster *sse.Broadcaster
	metrics     *metrics.Recorder

	optimizeQuota ratelimit.Config
	runQuota      ratelimit.Config
	salt          string

	router    chi.Router
	httpSrv   *http.Server
	startTime time.Time
}

// Options collects the collaborators a Service needs.
type Options struct {
	Version  string
	Config   *config.Config
	Store    *sqlite.Store
	Workflow *workflow.Workflow
	Catalog  *packs.Catalog
	Limiter  ratelimit.Limiter
	Metrics  *metrics.Recorder
	Salt     string
}

// NewService assembles the service and its routes.
func NewService(opts Options) *Service {
	window := time.Duration(opts.Config.WindowMinutes) * time.Minute

	svc := &Service{
		version:     opts.Version,
		config:      opts.Config,
		store:       opts.Store,
		sessions:    sqlite.NewSessionStore(opts.Store),
		events:      sqlite.NewEventStore(opts.Store),
		records:     sqlite.NewPromptRecordStore(opts.Store),
		workflow:    opts.Workflow,
		catalog:     opts.Catalog,
		limiter:     opts.Limiter,
		broadcaster: sse.NewBroadcaster(),
		metrics:     opts.Metrics,
		optimizeQuota: ratelimit.Config{
			Window:      window,
			MaxRequests: opts.Config.OptimizeMaxRequests,
		},
		runQuota: ratelimit.Config{
			Window:      window,
			MaxRequests: opts.Config.RunMaxRequests,
		},
		salt:      opts.Salt,
		router:    chi.NewRouter(),
		startTime: time.Now(),
	}
	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analytics", s.handleAnalytics)
		r.Post("/optimize", s.rateLimited(s.optimizeQuota, s.handleOptimize))
		r.Post("/finalize", s.handleFinalize)
		r.Post("/run", s.rateLimited(s.runQuota, s.handleRun))
		r.Get("/packs", s.handlePacks)
		r.Get("/events/stream", s.broadcaster.ServeHTTP)
	})
}

// Router exposes the handler tree, mainly for tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start runs the HTTP listener until Shutdown.
func (s *Service) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", addr).Str("version", s.version).Msg("HTTP server starting")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// requestLogger logs each request with its status and duration, and feeds
// the request counter.
func (s *Service) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("Request handled")
		if s.metrics != nil {
			s.metrics.Request(r.Context(), r.URL.Path, status)
		}
	})
}
