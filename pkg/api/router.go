package api

import (
	"time"

	"github.com/blackcoderx/postbox/pkg/api/handlers"
	apimiddleware "github.com/blackcoderx/postbox/pkg/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router represents the HTTP API router
type Router struct {
	services Services
}

// NewRouter creates a new API router
func NewRouter(services Services) *Router {
	return &Router{services: services}
}

// SetupRoutes configures all API routes using modular handlers
func (r *Router) SetupRoutes() *chi.Mux {
	router := chi.NewRouter()

	// Standard middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(r.services.requestTimeout()))

	// Custom middleware
	router.Use(apimiddleware.CORS)

	healthHandler := handlers.NewHealthHandler()
	collectionHandler := handlers.NewCollectionHandler(r.services.Collections)
	environmentHandler := handlers.NewEnvironmentHandler(r.services.Environments)
	runHandler := handlers.NewRunHandler(r.services.Runner)

	router.Get("/health", healthHandler.HealthCheck)

	router.Post("/run", runHandler.Run)
	router.Post("/save", collectionHandler.Save)

	router.Get("/apis", collectionHandler.ListCollections)
	router.Get("/api", collectionHandler.ListCollections)
	router.Get("/collection", collectionHandler.GetCollection)
	router.Get("/collection/{apiName}", collectionHandler.GetCollection)
	router.Get("/collection/{apiName}/endpoints", collectionHandler.ListEndpoints)

	router.Get("/environments", environmentHandler.ListEnvironments)
	router.Get("/environment/{name}", environmentHandler.GetEnvironment)
	router.Post("/environment/{name}", environmentHandler.SaveEnvironment)

	if r.services.History != nil {
		historyHandler := handlers.NewHistoryHandler(r.services.History)
		router.Get("/history", historyHandler.Recent)
	}

	return router
}

// defaultRequestTimeout leaves room for the executor's own timeout.
const defaultRequestTimeout = 60 * time.Second
