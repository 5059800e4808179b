// Copyright (c) 2026 21st. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It is the composition root for the chi router.
  - Only this package and cmd/api import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ehtisham-afzal/21st/internal/core/component"
	"github.com/ehtisham-afzal/21st/internal/core/install"
	"github.com/ehtisham-afzal/21st/internal/core/publish"
	"github.com/ehtisham-afzal/21st/internal/core/tag"
	"github.com/ehtisham-afzal/21st/internal/platform/config"
	"github.com/ehtisham-afzal/21st/internal/platform/constants"
	"github.com/ehtisham-afzal/21st/internal/platform/metrics"
	"github.com/ehtisham-afzal/21st/internal/platform/middleware"
	"github.com/ehtisham-afzal/21st/internal/preview"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process runs.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 when postgres and redis answer.
	Readiness http.HandlerFunc

	// Component serves the catalogue, demo cards and analytics.
	Component *component.Handler

	// Preview parses and bundles editor input and published components.
	Preview *preview.Handler

	// Live is the websocket preview session.
	Live *preview.LiveHandler

	// Publish handles the publish flow.
	Publish *publish.Handler

	// Install serves install instructions and shadcn registry items.
	Install *install.Handler

	// Tag lists demo tags for the gallery filter.
	Tag *tag.Handler
}

// Mountable is implemented by every domain handler set.
type Mountable interface {
	RegisterRoutes(router chi.Router)
}

// pipeline lists the handler sets that bundle or publish; they share the
// tighter per-caller throttle.
func (handlers Handlers) pipeline() []Mountable {
	var mounted []Mountable
	if handlers.Preview != nil {
		mounted = append(mounted, handlers.Preview)
	}
	if handlers.Publish != nil {
		mounted = append(mounted, handlers.Publish)
	}
	return mounted
}

// catalogue lists the read-mostly handler sets.
func (handlers Handlers) catalogue() []Mountable {
	var mounted []Mountable
	if handlers.Component != nil {
		mounted = append(mounted, handlers.Component)
	}
	if handlers.Install != nil {
		mounted = append(mounted, handlers.Install)
	}
	if handlers.Tag != nil {
		mounted = append(mounted, handlers.Tag)
	}
	return mounted
}

// # Server Initialization

/*
NewServer constructs the chi router with the full middleware chain and
registers all route groups.

Description: The live preview websocket is mounted outside the request
timeout; every other API route runs under [constants.GlobalRequestTimeout].
Preview and publish routes are additionally throttled per caller.

Parameters:
  - context: context.Context (stops background middleware work)
  - cfg: *config.Config
  - log: *slog.Logger
  - registry: *metrics.Registry
  - verifier: middleware.TokenVerifier
  - h: Handlers

Returns:
  - *Server
*/
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, registry *metrics.Registry, verifier middleware.TokenVerifier, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.Metrics(registry))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.Authenticate(verifier))
	r.Use(middleware.RateLimit(context))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Method(http.MethodGet, "/metrics", registry.Handler())

	// shadcn install URLs live at the root
	if h.Install != nil {
		h.Install.RegisterRegistryRoutes(r)
	}

	// # Application API
	r.Route("/api/v1", func(api chi.Router) {
		if h.Live != nil {
			api.Get("/preview/live", h.Live.ServeHTTP)
		}

		api.Group(func(timed chi.Router) {
			timed.Use(chimw.Timeout(constants.GlobalRequestTimeout))
			for _, mounted := range h.catalogue() {
				mounted.RegisterRoutes(timed)
			}

			timed.Group(func(pipeline chi.Router) {
				pipeline.Use(middleware.Throttle(context, constants.PipelineRateLimitRPS, constants.PipelineRateLimitBurst))
				for _, mounted := range h.pipeline() {
					mounted.RegisterRoutes(pipeline)
				}
			})
		})
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server and blocks until it stops.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
