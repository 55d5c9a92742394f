// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api serves the gateway's HTTP surface: the watch page, its JSON
// twin, endpoint list administration and the operational probes.
package api

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/vidgate/internal/api/middleware"
	"github.com/ManuGH/vidgate/internal/endpoints"
	"github.com/ManuGH/vidgate/internal/health"
	"github.com/ManuGH/vidgate/internal/resolver"
)

// Resolver produces one outcome per video id.
type Resolver interface {
	Resolve(ctx context.Context, videoID string) (resolver.Outcome, error)
}

// EndpointProvider is the part of endpoints.Provider the HTTP layer needs.
type EndpointProvider interface {
	Snapshot() endpoints.Snapshot
	Refresh(ctx context.Context) (endpoints.RefreshResult, error)
	TriggerRefresh(ctx context.Context, origin string) bool
}

// Config tunes the HTTP stack.
type Config struct {
	RateLimitRPM   int
	TracingService string
	CSP            string
}

// Deps are the collaborators a Server is wired with.
type Deps struct {
	Resolver  Resolver
	Endpoints EndpointProvider
	Health    *health.Manager
	Version   string
}

// Server owns the router and page templates.
type Server struct {
	cfg    Config
	deps   Deps
	pages  *template.Template
	router chi.Router
}

// New validates deps and builds the router.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Resolver == nil {
		return nil, errors.New("api: resolver is required")
	}
	if deps.Endpoints == nil {
		return nil, errors.New("api: endpoint provider is required")
	}
	if deps.Health == nil {
		deps.Health = health.NewManager(deps.Version)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, deps: deps, pages: pages}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		CSP:                   s.cfg.CSP,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
	})

	// Probes and scrapes are never rate limited.
	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimitRPM > 0 {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimitRPM))
		}

		r.Get("/", s.handleIndex)
		r.Get("/watch", s.handleWatchQuery)
		r.Get("/video/{id}", s.handleWatchPage)

		r.Route("/api", func(r chi.Router) {
			r.Get("/watch/{id}", s.handleWatchJSON)
			r.Get("/endpoints", s.handleEndpoints)
			r.With(middleware.RefreshRateLimit()).Post("/endpoints/refresh", s.handleEndpointsRefresh)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if isAPIPath(r.URL.Path) {
			writeError(w, r, http.StatusNotFound, "not_found", "no such route")
			return
		}
		s.renderError(w, r, http.StatusNotFound, "Page not found.")
	})

	return r
}
