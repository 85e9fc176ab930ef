// Package server is the browser and JSON front end: upload a leaf photo,
// get a diagnosis page, a JSON document or the text report back.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/crimson-sun/leafdoc/internal/engine"
	"github.com/crimson-sun/leafdoc/internal/engine/ingest"
	"github.com/crimson-sun/leafdoc/internal/metrics"
	"github.com/crimson-sun/leafdoc/internal/output"
)

// Server holds the engine handle and rendering helpers. It keeps no
// per-request state.
type Server struct {
	engine    *engine.Engine
	metrics   *metrics.Metrics
	sink      output.Output
	maxUpload int64
	maxPixels int64

	md     goldmark.Markdown
	policy *bluemonday.Policy
	mux    *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records counters and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithOutput forwards every completed diagnosis to out, e.g. an async
// webhook. Delivery errors are logged and never fail the request.
func WithOutput(out output.Output) Option {
	return func(s *Server) {
		s.sink = out
	}
}

// WithMaxUploadBytes caps the image size accepted per request.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithMaxPixels caps the decoded image size per request.
func WithMaxPixels(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// New creates a Server around eng.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		engine:    eng,
		maxUpload: ingest.DefaultMaxBytes,
		maxPixels: ingest.DefaultMaxPixels,
		md:        goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:    bluemonday.UGCPolicy(),
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /diagnose", s.handleDiagnosePage)
	s.mux.HandleFunc("POST /api/diagnose", s.handleDiagnoseJSON)
	s.mux.HandleFunc("POST /api/report", s.handleReport)
	s.mux.HandleFunc("GET /api/labels", s.handleLabels)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the routed handler wrapped in request-ID, access-log and
// metrics middleware.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

// ListenAndServe listens on addr and serves until ctx is cancelled, then
// shuts down gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	slog.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("server shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
