package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/wandergrid/go-poi-routes/internal/api/health"
	"github.com/wandergrid/go-poi-routes/internal/api/location"
	"github.com/wandergrid/go-poi-routes/internal/api/routeplan"
	"github.com/wandergrid/go-poi-routes/internal/api/semantic"
	"github.com/wandergrid/go-poi-routes/internal/router"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

// benchmarkEnv wires the real router and handlers over canned service
// responses, so the measurements cover routing, decoding and encoding rather
// than business logic.
type benchmarkEnv struct {
	router http.Handler
}

func setupBenchmarkEnv() *benchmarkEnv {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	locationService := new(mockLocationService)
	semanticService := new(mockSemanticService)
	routeService := new(mockRouteService)

	pois := []types.POI{
		{ID: uuid.New(), Name: "Ben Thanh Market", Latitude: 10.7725, Longitude: 106.6980},
		{ID: uuid.New(), Name: "War Remnants Museum", Latitude: 10.7796, Longitude: 106.6922},
		{ID: uuid.New(), Name: "The Workshop", Latitude: 10.7721, Longitude: 106.7049},
	}

	locationService.On("FindNearestLocations", mock.Anything, mock.Anything).
		Return(&types.LocationSearchResponse{
			Status:           "success",
			Results:          pois,
			Count:            len(pois),
			RadiusUsedMeters: 1600,
		}, nil)

	semanticService.On("SearchByQuery", mock.Anything, mock.Anything, mock.Anything).
		Return(&types.SemanticSearchResponse{
			Status:  "success",
			Query:   "specialty coffee",
			Results: pois,
			Count:   len(pois),
		}, nil)

	routeService.On("BuildRoutes", mock.Anything, mock.Anything).
		Return(&types.RouteSearchResponse{
			Status: "success",
			Routes: []types.Route{{
				RouteID: 1,
				Places: []types.RoutePlace{
					{PlaceID: pois[0].ID.String(), Name: pois[0].Name},
					{PlaceID: pois[1].ID.String(), Name: pois[1].Name},
				},
				TotalTimeMinutes: 120,
			}},
			Count:            1,
			ShortlistCount:   len(pois),
			RadiusUsedMeters: 1600,
		}, nil)

	healthy := func(ctx context.Context) error { return nil }
	healthService := health.NewServiceImpl(healthy, healthy, healthy, logger)

	r := router.SetupRouter(&router.Config{
		LocationHandler: location.NewLocationHandler(locationService, logger),
		SemanticHandler: semantic.NewSemanticHandler(semanticService, logger),
		RouteHandler:    routeplan.NewRouteHandler(routeService, logger),
		HealthHandler:   health.NewHealthHandler(healthService, logger),
	})

	return &benchmarkEnv{router: r}
}

func (env *benchmarkEnv) post(path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func BenchmarkHealthCheck(b *testing.B) {
	env := setupBenchmarkEnv()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
	}
}

func BenchmarkLocationSearch(b *testing.B) {
	env := setupBenchmarkEnv()
	body, _ := json.Marshal(types.LocationSearchRequest{
		Latitude:           10.7769,
		Longitude:          106.7009,
		TransportationMode: "WALKING",
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		env.post("/api/v1/locations/search", body)
	}
}

func BenchmarkSemanticSearch(b *testing.B) {
	env := setupBenchmarkEnv()
	body, _ := json.Marshal(types.SemanticSearchRequest{
		Query: "specialty coffee",
		TopK:  10,
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		env.post("/api/v1/semantic/search", body)
	}
}

func BenchmarkRouteCalculation(b *testing.B) {
	env := setupBenchmarkEnv()
	body, _ := json.Marshal(types.RouteSearchRequest{
		UserID:             uuid.New().String(),
		Latitude:           10.7769,
		Longitude:          106.7009,
		TransportationMode: "WALKING",
		SemanticQuery:      "Cafe & Bakery, Culture & heritage",
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		env.post("/api/v1/route/routes", body)
	}
}
