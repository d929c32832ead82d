package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/blackcoderx/postbox/pkg/api/handlers"
	"github.com/blackcoderx/postbox/pkg/core"
	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// Services are the components the API exposes. History may be nil.
type Services struct {
	Collections    *storage.CollectionStore
	Environments   *storage.EnvironmentStore
	Runner         *core.Runner
	History        handlers.HistoryReader
	RequestTimeout time.Duration
}

func (s Services) requestTimeout() time.Duration {
	if s.RequestTimeout > 0 {
		return s.RequestTimeout
	}
	return defaultRequestTimeout
}

// Server represents the HTTP API server
type Server struct {
	router *chi.Mux
	config core.ServerConfig
	http   *http.Server
}

// NewServer creates a new API server
func NewServer(services Services, config core.ServerConfig) *Server {
	router := NewRouter(services).SetupRoutes()

	s := &Server{
		router: router,
		config: config,
	}
	s.http = &http.Server{
		Addr:         s.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	log.Printf("postbox API listening on http://%s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// GetRouter returns the configured router
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
