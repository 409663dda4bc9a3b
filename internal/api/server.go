package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YannickHerrero/miru/internal/api/handlers"
	"github.com/YannickHerrero/miru/internal/api/middleware"
	"github.com/YannickHerrero/miru/internal/config"
	"github.com/YannickHerrero/miru/internal/controllers"
	"github.com/YannickHerrero/miru/internal/models"
)

// Server represents the HTTP server used in serve mode
type Server struct {
	server   *http.Server
	db       *models.Database
	playback *controllers.PlaybackController
	logger   *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, db *models.Database, playback *controllers.PlaybackController, logger *logrus.Logger) *Server {
	s := &Server{
		db:       db,
		playback: playback,
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Logging(mux, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	healthHandler := handlers.NewHealthHandler(s.logger)
	mux.HandleFunc("/health", healthHandler.ServeHTTP)

	progressHandler := handlers.NewProgressHandler(s.playback, s.logger)
	mux.HandleFunc("/progress", progressHandler.ServeHTTP)

	stopHandler := handlers.NewStopHandler(s.playback, s.logger)
	mux.HandleFunc("/stop", stopHandler.ServeHTTP)

	historyHandler := handlers.NewHistoryHandler(s.db, s.logger)
	mux.HandleFunc("/history", historyHandler.ServeHTTP)
}

// Start starts the HTTP server and blocks until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
