package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/config"
)

// Server represents the API server
type Server struct {
	config   config.ServerConfig
	handler  http.Handler
	handlers *Handlers
	server   *http.Server
}

// NewServer creates a new API server around agg. uploader may be nil when S3
// export is not configured.
func NewServer(cfg config.ServerConfig, agg *aggregator.Aggregator, uploader CSVUploader) *Server {
	handlers := NewHandlers(agg, uploader)
	handler := SetupRoutes(handlers)

	return &Server{
		config:   cfg,
		handler:  handler,
		handlers: handlers,
		server: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.GetHost(), cfg.Port),
			Handler: handler,
			// A search waits on the slowest network, so writes get more room than reads.
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe starts the HTTP server. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
