package semantic

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

type SemanticHandler struct {
	semanticService Service
	logger          *slog.Logger
}

func NewSemanticHandler(semanticService Service, logger *slog.Logger) *SemanticHandler {
	return &SemanticHandler{
		semanticService: semanticService,
		logger:          logger,
	}
}

// SearchSemantic godoc
// @Summary      Semantic POI Search
// @Description  Returns the top-k POIs by embedding similarity to the query, across the whole collection.
// @Tags         Semantic
// @Accept       json
// @Produce      json
// @Param        request body types.SemanticSearchRequest true "Search parameters"
// @Success      200 {object} types.SemanticSearchResponse "Ranked POIs"
// @Failure      400 {object} map[string]interface{} "Invalid input"
// @Failure      500 {object} map[string]interface{} "Internal Server Error"
// @Router       /semantic/search [post]
func (h *SemanticHandler) SearchSemantic(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SemanticHandler").Start(r.Context(), "SearchSemantic", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/semantic/search"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchSemantic"))

	var req types.SemanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.semanticService.SearchByQuery(ctx, req.Query, req.TopK)
	if err != nil {
		if errors.Is(err, ErrEmptyQuery) {
			l.ErrorContext(ctx, "Empty query", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Semantic search failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to search: %s", err.Error()))
		return
	}

	l.InfoContext(ctx, "Semantic search completed", slog.String("query", req.Query), slog.Int("results", resp.Count))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}

func (h *SemanticHandler) SearchCombined(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SemanticHandler").Start(r.Context(), "SearchCombined", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/semantic/combined"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SearchCombined"))

	var req types.CombinedSearchRequest
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

	resp, err := h.semanticService.SearchCombined(ctx, req)
	if err != nil {
		if errors.Is(err, types.ErrInvalidTransportMode) ||
			errors.Is(err, ErrNoValidQueries) ||
			errors.Is(err, ErrInvalidDateTime) {
			l.ErrorContext(ctx, "Invalid combined search parameters", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l.ErrorContext(ctx, "Combined search failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, fmt.Sprintf("Failed to search: %s", err.Error()))
		return
	}

	l.InfoContext(ctx, "Combined search completed",
		slog.Int("queries", len(resp.Queries)), slog.Int("results", resp.Count))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(http.StatusOK))
}
