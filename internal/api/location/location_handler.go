package location

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wandergrid/go-poi-routes/internal/api"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

type LocationHandler struct {
	locationService Service
	logger          *slog.Logger
}

func NewLocationHandler(locationService Service, logger *slog.Logger) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
		logger:          logger,
	}
}

// SearchNearbyPOIs godoc
// @Summary      Spatial POI Search
// @Description  Returns POIs around a coordinate within the transport mode's coverage radius, sorted by distance.
// @Tags         Locations
// @Accept       json
// @Produce      json
// @Param        request body types.LocationSearchRequest true "Search parameters"
// @Success      200 {object} types.LocationSearchResponse "Nearby POIs"
// @Failure      400 {object} map[string]interface{} "Invalid input"
// @Failure      500 {object} map[string]interface{} "Internal Server Error"
// @Router       /locations/search [post]
func (h *LocationHandler) SearchNearbyPOIs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("LocationHandler").Start(r.Context(), "SearchNearbyPOIs", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/locations/search"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchNearbyPOIs"))
	l.DebugContext(ctx, "Location search handler invoked")

	var req types.LocationSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		l.ErrorContext(ctx, "Coordinates out of range",
			slog.Float64("latitude", req.Latitude), slog.Float64("longitude", req.Longitude))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid coordinates")
		return
	}

	resp, err := h.locationService.FindNearestLocations(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrInvalidTransportMode) || errors.Is(err, ErrInvalidTimeWindow) {
			l.ErrorContext(ctx, "Invalid search parameters", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Location search failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to search locations: %s", err.Error()))
		return
	}

	l.InfoContext(ctx, "Location search completed", slog.Int("results", resp.Count))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}
