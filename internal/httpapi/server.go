// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package httpapi exposes the user and session API over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"

	"github.com/pitchside/pitchside/internal/auth"
	"github.com/pitchside/pitchside/internal/config"
)

// DefaultVersion is reported by GET / when Config.Version is empty.
const DefaultVersion = "1.0.0"

// Config configures the API router.
type Config struct {
	TokenLocation string // config.TokenInCookie or config.TokenInHeader
	CookieName    string
	CookieSecure  bool
	SessionTTL    time.Duration
	CORSOrigins   []string
	Version       string
	DatabaseURL   string // only the part after '@' is ever shown
}

// ConfigFrom builds the router config from the service configuration.
func ConfigFrom(cfg *config.Config, version string) Config {
	return Config{
		TokenLocation: cfg.Session.TokenLocation,
		CookieName:    cfg.Session.CookieName,
		CookieSecure:  cfg.Session.CookieSecure,
		SessionTTL:    cfg.Session.TTL(),
		CORSOrigins:   cfg.Server.CORSOrigins,
		Version:       version,
		DatabaseURL:   cfg.Database.URL,
	}
}

// RequestObserver records completed requests.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the handlers for the API.
type Server struct {
	auth    *auth.Service
	users   *auth.UserService
	cfg     Config
	logger  *slog.Logger
	metrics RequestObserver
	db      Pinger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRequestObserver reports each request to m.
func WithRequestObserver(m RequestObserver) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPinger makes GET /health check database reachability.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.db = p }
}

// New creates a Server.
func New(authService *auth.Service, users *auth.UserService, cfg Config, opts ...Option) (*Server, error) {
	if authService == nil {
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("auth service is required")
	}
	if users == nil {
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("user service is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = config.DefaultCookieName
	}
	if cfg.TokenLocation == "" {
		cfg.TokenLocation = config.TokenInCookie
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = authService.Sessions().TTL()
	}
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}

	s := &Server{
		auth:   authService,
		users:  users,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.With(s.OptionalAuth).Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.Authenticate)

			r.Get("/me", s.handleMe)
			r.Get("/", s.handleListUsers)
			r.Get("/{id}", s.handleGetUser)
			r.Put("/{id}", s.handleUpdateUser)

			r.Group(func(r chi.Router) {
				r.Use(s.RequireAdmin)

				r.Post("/register", s.handleRegister)
				r.Get("/admin/sessions", s.handleSessions)
				r.Delete("/{id}", s.handleDeleteUser)
				r.Patch("/{id}/status", s.handleSetStatus)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "Method Not Allowed"})
	})

	return r
}

// logRequests logs one line per request and feeds the request metrics.
// Headers are never logged: they carry the session token.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		if route == "" {
			route = "unmatched"
		}

		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", status,
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))

		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, status, elapsed)
		}
	})
}
