// Package api exposes the tutor over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Anushka-shukla/phonepe-ai-tutor/internal/auth"
	"github.com/Anushka-shukla/phonepe-ai-tutor/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const DefaultQueryTimeout = 30 * time.Second

// Asker answers a single learner question.
type Asker interface {
	Ask(ctx context.Context, query string) (models.Answer, error)
}

// DocumentLister lists the ingested documents.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	QueryTimeout time.Duration
	Auth         *auth.Authenticator
	Logger       zerolog.Logger
}

// Server is the HTTP API server for the tutor.
type Server struct {
	router       chi.Router
	answers      Asker
	documents    DocumentLister
	db           Pinger
	auth         *auth.Authenticator
	logger       zerolog.Logger
	queryTimeout time.Duration
}

// NewServer creates and configures the HTTP server. A nil Auth disables authentication.
func NewServer(answers Asker, documents DocumentLister, db Pinger, opts Options) *Server {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	s := &Server{
		answers:      answers,
		documents:    documents,
		db:           db,
		auth:         opts.Auth,
		logger:       opts.Logger,
		queryTimeout: opts.QueryTimeout,
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
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("dur", dur).
			Msg("http")
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Post("/api/ask", s.handleAsk)
		r.Get("/api/documents", s.handleListDocuments)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("database ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
