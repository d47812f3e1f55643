// Package api exposes the agent's local HTTP surface: plan management,
// export control, artifact download, and a live preview frame endpoint.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/framecast/framecast-agent/internal/capture"
	"github.com/framecast/framecast-agent/internal/exporter"
	"github.com/framecast/framecast-agent/internal/library"
	"github.com/framecast/framecast-agent/internal/playback"
	"github.com/framecast/framecast-agent/internal/preview"
)

// ServerConfig wires the HTTP server's collaborators.
type ServerConfig struct {
	Port       int
	Library    library.LibraryService
	Repository library.Repository
	Controller *exporter.Controller
	Preview    *preview.Scheduler
	Surface    *capture.Surface
	Logger     *slog.Logger
	DeviceID   string

	CaptureMode  string
	CanvasWidth  int
	CanvasHeight int
	FrameRate    int
	TotalFrames  int
}

// Server is the agent's HTTP API.
type Server struct {
	cfg       ServerConfig
	playback  *playback.Server
	logger    *slog.Logger
	startTime time.Time
	httpSrv   *http.Server
}

// NewServer creates the API server with its routes mounted.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		cfg:       cfg,
		playback:  playback.NewServer(cfg.Logger),
		logger:    cfg.Logger,
		startTime: time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.Repository, s.logger))

		r.Get("/status", s.handleStatus)

		r.Post("/plans", s.handleGeneratePlan)
		r.Post("/plans/import", s.handleImportPlan)
		r.Get("/plans", s.handleListPlans)
		r.Get("/plans/{id}", s.handleGetPlan)

		r.Post("/export", s.handleStartExport)
		r.Get("/exports", s.handleListExports)
		r.Get("/exports/{id}", s.handleGetExport)
		r.Get("/exports/{id}/artifact", s.handleArtifact)

		r.Get("/preview/frame", s.handlePreviewFrame)
	})

	return r
}

// Start begins serving. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start() error {
	s.logger.Info("api server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
