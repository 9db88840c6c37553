package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/docsense/internal/config"
	"github.com/dgallion1/docsense/internal/inference"
	"github.com/dgallion1/docsense/internal/metrics"
	"github.com/dgallion1/docsense/internal/pipeline"
)

// Server is the HTTP API server for docsense.
type Server struct {
	router chi.Router
	svc    *pipeline.Service
	stats  *inference.Registry
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server. stats may be nil.
func NewServer(svc *pipeline.Service, stats *inference.Registry, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc:   svc,
		stats: stats,
		log:   log,
		cfg:   cfg,
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
	r.Use(metrics.Middleware())
	r.Use(CORS(s.cfg.CORSOrigins, s.log))

	// Public endpoints.
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Model endpoints, behind bearer auth when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Route("/qa", func(r chi.Router) {
			r.Post("/ask-pdf", s.handleAskPDF)
			r.Post("/ask-file", s.handleAskFile)
			r.Post("/ask", s.handleAsk)
			r.Post("/extract", s.handleExtract)
		})
		r.Post("/sentiment/analyze", s.handleAnalyze)
		r.Get("/api/stats/models", s.handleModelStats)
	})

	s.router = r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Smart Document Analyzer is working"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
