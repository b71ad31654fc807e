// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/chathub/internal/session"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the API listens when no address is configured.
	DefaultAddr = "127.0.0.1:8080"

	// MaxRequestBodySize caps JSON request bodies.
	MaxRequestBodySize = 1 << 20

	// DefaultRequestsPerMinute is the per-client request budget.
	DefaultRequestsPerMinute = 120

	// WriteTimeout has to cover a full generation round trip.
	WriteTimeout = 3 * time.Minute
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server. Zero values select the defaults.
type Options struct {
	Addr    string
	Version string
	Logger  *slog.Logger

	// Metrics backs /metrics. When nil a fresh registry is created; wrap the
	// session's generator with the same Metrics to get generation samples.
	Metrics *Metrics

	// RequestsPerMinute limits each client IP. Negative disables limiting.
	RequestsPerMinute int

	// CORS enables browser access from the listed origins.
	CORS *CORSConfig

	// Location renders analytics days and export timestamps. Default: time.Local.
	Location *time.Location

	Now func() time.Time
}

// Server exposes a Session over a JSON HTTP API.
type Server struct {
	sess    *session.Session
	router  chi.Router
	logger  *slog.Logger
	metrics *Metrics
	opts    Options

	httpServer *http.Server
}

// New builds the router for sess.
func New(sess *session.Session, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		sess:    sess,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		opts:    opts,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(SecurityHeadersMiddleware)
	r.Use(s.metrics.countRequests)
	if s.opts.CORS != nil {
		r.Use(CORSMiddleware(s.opts.CORS))
	}

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.opts.RequestsPerMinute > 0 {
			r.Use(RateLimitMiddleware(NewRateLimiter(s.opts.RequestsPerMinute, time.Minute), s.logger))
		}
		r.Use(middleware.RequestSize(MaxRequestBodySize))

		r.Get("/state", s.handleState)
		r.Post("/messages", s.handleSend)
		r.Post("/messages/clear", s.handleClear)

		r.Get("/chats", s.handleListChats)
		r.Post("/chats/new", s.handleNewChat)
		r.Get("/chats/{id}", s.handleGetChat)
		r.Patch("/chats/{id}", s.handleRenameChat)
		r.Post("/chats/{id}/load", s.handleLoadChat)
		r.Delete("/chats/{id}", s.handleDeleteChat)

		r.Get("/analytics", s.handleAnalytics)
		r.Get("/export", s.handleExport)
		r.Get("/templates", s.handleTemplates)
	})
	return r
}

// Handler returns the root handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.opts.Addr, "version", s.opts.Version)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
