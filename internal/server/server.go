package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/opspilot/internal/api/v1"
	"github.com/gosuda/opspilot/internal/api/ws"
	"github.com/gosuda/opspilot/internal/bus"
	"github.com/gosuda/opspilot/internal/config"
	"github.com/gosuda/opspilot/internal/server/middleware"
)

// Deps are the services the HTTP surface is wired to.
type Deps struct {
	Store        v1.DataStore
	PubSub       bus.Subscriber
	Chat         v1.ChatRunner
	Tools        v1.ToolCatalog
	Signals      v1.SignalReader
	Experience   v1.Experience
	Workflows    v1.WorkflowRunner
	Integrations v1.Integrations
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	wsHub      *ws.Hub
}

// New creates a Server with all routes wired. ctx bounds the background
// cleanup of the rate limiter.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	hub := ws.NewHub(deps.PubSub, ws.WithOriginPatterns(originHosts(cfg.Server.CORSOrigins)...))

	s := &Server{
		router: router,
		wsHub:  hub,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	authenticate := func(next http.Handler) http.Handler { return next }
	if cfg.JWT.Secret != "" {
		authenticate = middleware.Auth(cfg.JWT.Secret)
	} else {
		log.Warn().Msg("server.New: authentication disabled, every request acts with full access")
	}

	// Mount API routes on /api/v1 with two sub-groups:
	// 1. Unauthenticated group for the OAuth provider callback.
	// 2. Authenticated group for all other endpoints.
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			callbackConfig := huma.DefaultConfig("OpsPilot OAuth Callback", "1.0.0")
			callbackConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			// The main API publishes the docs.
			callbackConfig.OpenAPIPath = ""
			callbackConfig.DocsPath = ""
			callbackConfig.SchemasPath = ""
			callbackAPI := humachi.New(r, callbackConfig)
			registerCallbackRoutes(callbackAPI, deps, cfg.Server.FrontendURL)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RateLimit(ctx, float64(cfg.RateLimit.RPS), cfg.RateLimit.Burst))

			apiConfig := huma.DefaultConfig("OpsPilot API", "1.0.0")
			apiConfig.Servers = []*huma.Server{
				{URL: "/api/v1"},
			}
			api := humachi.New(r, apiConfig)
			registerAPIRoutes(api, deps, cfg.Chat.KeepAlive)
		})
	})

	// WebSocket routes.
	router.Route("/ws", func(r chi.Router) {
		r.Use(authenticate)
		registerWSRoutes(r, hub)
	})

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Handle("/metrics", promhttp.Handler())

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("server.Start: listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// originHosts turns CORS origins into websocket origin patterns, which
// match on host only.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		if o != "" {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
