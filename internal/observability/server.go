// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Pitchside Contributors

// Package observability serves Prometheus metrics and health probes on a
// listener kept apart from the public API.
package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker reports whether the API is accepting requests.
type ReadinessChecker func() bool

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger for start, stop and serve failures.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBuildInfo publishes pitchside_build_info with the given labels.
func WithBuildInfo(version, commit string) ServerOption {
	return func(s *Server) {
		info := prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "pitchside_build_info",
			Help:        "Build information for the running Pitchside binary.",
			ConstLabels: prometheus.Labels{"version": version, "commit": commit},
		})
		info.Set(1)
		s.registry.MustRegister(info)
	}
}

// Server exposes /metrics, /healthz/liveness and /healthz/readiness.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	isReady  ReadinessChecker
	logger   *slog.Logger

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a server for addr ("127.0.0.1:9464", or ":0" in tests).
// A nil readinessChecker always reports ready.
func NewServer(addr string, readinessChecker ReadinessChecker, opts ...ServerOption) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the session, login and request metrics registered on this
// server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	r.Get("/healthz/liveness", s.handleLiveness)
	r.Get("/healthz/readiness", s.handleReadiness)
	return r
}

// Start listens on the configured address and serves in the background. The
// returned channel carries a serve failure and is closed once serving ends.
func (s *Server) Start() (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return nil, oops.Code("OBSERVABILITY_ALREADY_RUNNING").Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.listener = listener
	s.httpServer = srv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observability server failed", "error", err)
			errCh <- err
		}
	}()

	s.logger.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop shuts the server down. Stopping a server that is not running is a
// no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return oops.Code("OBSERVABILITY_SHUTDOWN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.httpServer = nil

	s.logger.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type probeResponse struct {
	Status string `json:"status"`
}

func writeProbe(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(probeResponse{Status: body}) //nolint:errcheck // client may have gone
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, "alive")
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if s.isReady == nil || s.isReady() {
		writeProbe(w, http.StatusOK, "ready")
		return
	}
	writeProbe(w, http.StatusServiceUnavailable, "not ready")
}
