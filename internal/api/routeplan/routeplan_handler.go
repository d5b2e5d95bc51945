package routeplan

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
	"github.com/wandergrid/go-poi-routes/internal/api/semantic"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

type RouteHandler struct {
	routeService Service
	logger       *slog.Logger
}

func NewRouteHandler(routeService Service, logger *slog.Logger) *RouteHandler {
	return &RouteHandler{
		routeService: routeService,
		logger:       logger,
	}
}

// CalculateRoutes godoc
// @Summary      Build Sightseeing Routes
// @Description  Runs the spatial + semantic pipeline and plans up to max_routes itineraries under the time budget. Set replace_route to swap out one route, delete_cache to drop the cached metadata first.
// @Tags         Route
// @Accept       json
// @Produce      json
// @Param        request body types.RouteSearchRequest true "Route parameters"
// @Success      200 {object} types.RouteSearchResponse "Planned routes"
// @Failure      400 {object} map[string]interface{} "Invalid input"
// @Failure      500 {object} map[string]interface{} "Internal Server Error"
// @Router       /route/routes [post]
func (h *RouteHandler) CalculateRoutes(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteHandler").Start(r.Context(), "CalculateRoutes", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/route/routes"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CalculateRoutes"))

	var req types.RouteSearchRequest
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

	resp, err := h.routeService.BuildRoutes(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrInvalidTransportMode) ||
			errors.Is(err, semantic.ErrNoValidQueries) ||
			errors.Is(err, semantic.ErrInvalidDateTime) {
			l.ErrorContext(ctx, "Invalid route parameters", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Route planning failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to build routes: %s", err.Error()))
		return
	}

	l.InfoContext(ctx, "Routes calculated", slog.Int("routes", resp.Count), slog.String("query", req.SemanticQuery))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}

func (h *RouteHandler) ReplacePOI(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteHandler").Start(r.Context(), "ReplacePOI", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/route/replace-poi"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ReplacePOI"))

	var req types.ReplacePOIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.routeService.ReplacePOI(ctx, req)
	if err != nil {
		if isReplaceInputError(err) {
			l.ErrorContext(ctx, "Invalid replace-poi parameters", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "POI replacement failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to replace poi: %s", err.Error()))
		return
	}

	l.InfoContext(ctx, "Replacement candidates returned",
		slog.String("user_id", req.UserID), slog.Int("candidates", len(resp.Candidates)))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}

func (h *RouteHandler) ConfirmReplacePOI(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RouteHandler").Start(r.Context(), "ConfirmReplacePOI", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/route/confirm-replace-poi"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ConfirmReplacePOI"))

	var req types.ConfirmReplacePOIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.routeService.ConfirmReplacePOI(ctx, req)
	if err != nil {
		if isReplaceInputError(err) {
			l.ErrorContext(ctx, "Invalid confirm-replace-poi parameters", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "POI replacement confirmation failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to confirm replacement: %s", err.Error()))
		return
	}

	l.InfoContext(ctx, "POI replacement confirmed",
		slog.String("user_id", req.UserID), slog.Int("route_id", req.RouteID))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}

// isReplaceInputError separates caller mistakes (400) from infrastructure
// failures (500) in the replacement flows.
func isReplaceInputError(err error) bool {
	return errors.Is(err, ErrMissingUserID) ||
		errors.Is(err, ErrNoCachedRoutes) ||
		errors.Is(err, ErrUnknownRouteID) ||
		errors.Is(err, ErrPOINotInRoute) ||
		errors.Is(err, ErrInvalidPOIID) ||
		errors.Is(err, semantic.ErrInvalidDateTime)
}
