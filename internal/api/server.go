package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/docsect/internal/config"
	"github.com/dgallion1/docsect/internal/pipeline"
	"github.com/dgallion1/docsect/internal/sections"
	"github.com/dgallion1/docsect/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RuleSource serves the active Sectionizer and can rebuild it from its backing file.
type RuleSource interface {
	Current() *sections.Sectionizer
	Reload() error
	Path() string
}

// Server is the HTTP API server for docsect.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	rules        RuleSource
	stats        *stats.SegmentStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, rules RuleSource, st *stats.SegmentStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		rules:        rules,
		stats:        st,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.DocsectAPIKey, s.log))

		r.Post("/api/sectionize", s.handleSectionize)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)

		r.Get("/api/documents/{docID}/sections", s.handleDocumentSections)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)

		r.Get("/api/rules", s.handleListRules)
		r.Post("/api/rules/reload", s.handleReloadRules)
		r.Get("/api/stats/segment", s.handleSegmentStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
