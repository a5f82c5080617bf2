package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/heimdex/clipmark-agent/internal/clips"
	"github.com/heimdex/clipmark-agent/internal/playback"
	"github.com/heimdex/clipmark-agent/internal/realtime"
)

// Playback is the controller surface the API drives.
type Playback interface {
	Advance(ctx context.Context) error
	Retreat(ctx context.Context) error
	Status() playback.Status
	IsRunning() bool
}

// MediaReporter accepts state reports from a view's media element.
type MediaReporter interface {
	Report(r playback.Report)
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port        int
	Version     string
	Store       *clips.Store
	Playback    Playback
	Media       MediaReporter
	Hub         *realtime.Hub
	MediaServer *playback.MediaServer
	Tokens      TokenSource
	Logger      *slog.Logger
	StartTime   time.Time
	DeviceID    string
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
