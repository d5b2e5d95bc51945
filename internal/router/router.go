package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/wandergrid/go-poi-routes/docs"
	"github.com/wandergrid/go-poi-routes/internal/api/health"
	"github.com/wandergrid/go-poi-routes/internal/api/location"
	"github.com/wandergrid/go-poi-routes/internal/api/routeplan"
	"github.com/wandergrid/go-poi-routes/internal/api/semantic"
)

// Config contains the handlers needed for the router setup.
type Config struct {
	LocationHandler *location.LocationHandler
	SemanticHandler *semantic.SemanticHandler
	RouteHandler    *routeplan.RouteHandler
	HealthHandler   *health.HealthHandler
	// MetricsHandler serves the Prometheus scrape endpoint.
	MetricsHandler http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/", cfg.HealthHandler.Root)
	r.Get("/health", cfg.HealthHandler.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/locations", func(r chi.Router) {
			r.Post("/search", cfg.LocationHandler.SearchNearbyPOIs)
		})

		r.Route("/semantic", func(r chi.Router) {
			r.Post("/search", cfg.SemanticHandler.SearchSemantic)
			r.Post("/combined", cfg.SemanticHandler.SearchCombined)
		})

		r.Route("/route", func(r chi.Router) {
			r.Post("/routes", cfg.RouteHandler.CalculateRoutes)
			r.Post("/replace-poi", cfg.RouteHandler.ReplacePOI)
			r.Post("/confirm-replace-poi", cfg.RouteHandler.ConfirmReplacePOI)
		})
	})

	return r
}
