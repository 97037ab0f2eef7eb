// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the batch converter over HTTP: an upload form,
// zip and merged-text downloads, a JSON preview, and a health check.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pdiddy/pdf2txt/internal/history"
	"github.com/pdiddy/pdf2txt/pkg/types"
)

const shutdownTimeout = 30 * time.Second

// BatchConverter turns an upload set into a Batch.
type BatchConverter interface {
	ConvertAll(ctx context.Context, sources []types.SourceDocument) types.Batch
}

// Recorder persists a completed run. A nil Recorder disables history.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}

// Server serves conversion requests. Every request carries its own upload
// set; no state is shared between requests.
type Server struct {
	cfg      types.ServerConfig
	conv     BatchConverter
	backend  string
	token    string
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires "Authorization: Bearer <token>" on conversion routes.
// An empty token leaves them open.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithRecorder records every conversion to r.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server. backend names the extraction backend for health
// output and history.
func New(cfg types.ServerConfig, conv BatchConverter, backend string, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		conv:    conv,
		backend: backend,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(logRequests(s.logger))
	r.Use(recoverPanics(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)

	r.Route("/convert", func(r chi.Router) {
		r.Use(bearerAuth(s.token, s.logger))
		r.Post("/zip", s.handleArchive)
		r.Post("/merged", s.handleMerged)
		r.Post("/preview", s.handlePreview)
	})
	return r
}

// Run listens on the configured address and serves until ctx is cancelled,
// then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("backend", s.backend),
			zap.Bool("auth", s.token != ""),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
