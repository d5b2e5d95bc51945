package health

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wandergrid/go-poi-routes/internal/api"
)

type HealthHandler struct {
	healthService Service
	logger        *slog.Logger
}

func NewHealthHandler(healthService Service, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		healthService: healthService,
		logger:        logger,
	}
}

// Root serves the API banner with pointers to the docs and health endpoints.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{
		"service": "POI Route Suggestions API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/swagger/index.html",
		"health":  "/health",
	})
}

// HealthCheck godoc
// @Summary      Dependency Health
// @Description  Probes Redis, Postgres and Qdrant and reports healthy or degraded.
// @Tags         Health
// @Produce      json
// @Success      200 {object} types.HealthResponse "Per-dependency status"
// @Router       /health [get]
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("HealthHandler").Start(r.Context(), "HealthCheck", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/health"),
	))
	defer span.End()

	resp := h.healthService.Check(ctx)
	if resp.Status != "healthy" {
		h.logger.WarnContext(ctx, "Service degraded", slog.Any("checks", resp.Checks))
	}

	// Degraded still answers 200: the body carries the verdict, load
	// balancers watch the status field.
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}
