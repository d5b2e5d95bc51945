package semantic

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wandergrid/go-poi-routes/internal/api/location"
	"github.com/wandergrid/go-poi-routes/internal/api/poiinfo"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

type MockEmbedder struct {
	mock.Mock
}

var _ Embedder = (*MockEmbedder)(nil)

func (m *MockEmbedder) GenerateQueryEmbedding(ctx context.Context, query string) ([]float32, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockVectorStore struct {
	mock.Mock
}

var _ VectorStore = (*MockVectorStore)(nil)

func (m *MockVectorStore) Search(ctx context.Context, vector []float32, topK int) ([]VectorHit, error) {
	args := m.Called(ctx, vector, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VectorHit), args.Error(1)
}

func (m *MockVectorStore) SearchByIDs(ctx context.Context, vector []float32, pointIDs []string, topK int) ([]VectorHit, error) {
	args := m.Called(ctx, vector, pointIDs, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]VectorHit), args.Error(1)
}

func (m *MockVectorStore) EnsureCollection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockVectorStore) UpsertPOIEmbeddings(ctx context.Context, points []POIEmbedding) error {
	args := m.Called(ctx, points)
	return args.Error(0)
}

func (m *MockVectorStore) Healthy(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockLocationService struct {
	mock.Mock
}

var _ location.Service = (*MockLocationService)(nil)

func (m *MockLocationService) SearchNearby(ctx context.Context, lat, lon float64, mode types.TransportMode) ([]types.POI, float64, error) {
	args := m.Called(ctx, lat, lon, mode)
	if args.Get(0) == nil {
		return nil, args.Get(1).(float64), args.Error(2)
	}
	return args.Get(0).([]types.POI), args.Get(1).(float64), args.Error(2)
}

func (m *MockLocationService) FindNearestLocations(ctx context.Context, req types.LocationSearchRequest) (*types.LocationSearchResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LocationSearchResponse), args.Error(1)
}

type MockPoiInfoService struct {
	mock.Mock
}

var _ poiinfo.Service = (*MockPoiInfoService)(nil)

func (m *MockPoiInfoService) GetPOIByID(ctx context.Context, id string) (*types.POI, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.POI), args.Error(1)
}

func (m *MockPoiInfoService) GetPOIsByIDs(ctx context.Context, ids []string) ([]types.POI, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.POI), args.Error(1)
}

func (m *MockPoiInfoService) GetPOIsByUUIDs(ctx context.Context, ids []uuid.UUID) ([]types.POI, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.POI), args.Error(1)
}

func (m *MockPoiInfoService) UpsertPOI(ctx context.Context, poi types.POI) (uuid.UUID, error) {
	args := m.Called(ctx, poi)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockPoiInfoService) ApplyEnrichment(ctx context.Context, poiID uuid.UUID, enrichment poiinfo.Enrichment) error {
	args := m.Called(ctx, poiID, enrichment)
	return args.Error(0)
}

func (m *MockPoiInfoService) NormalizeRatings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPoiInfoService) SoftDeletePOIs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPoiInfoService) GetVisitedPOIIDs(ctx context.Context, userID string) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func setupSemanticServiceTest() (*ServiceImpl, *MockEmbedder, *MockVectorStore, *MockLocationService, *MockPoiInfoService) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)
	locationSvc := new(MockLocationService)
	poiInfoSvc := new(MockPoiInfoService)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	service := NewServiceImpl(embedder, store, locationSvc, poiInfoSvc, logger)
	return service, embedder, store, locationSvc, poiInfoSvc
}

func TestExpandQueries(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		customerLike    bool
		needsRestaurant bool
		want            []string
		wantErr         error
	}{
		{
			name: "single plain query passes through",
			raw:  "Nature & View",
			want: []string{"Nature & View"},
		},
		{
			name: "food intent expands to cafe and restaurant",
			raw:  "Food & Local Flavours",
			want: []string{"Cafe & Bakery", "Restaurant"},
		},
		{
			name: "expansion keeps surrounding queries in place",
			raw:  "Nature & View, Food & Local Flavours, Shopping",
			want: []string{"Nature & View", "Cafe & Bakery", "Restaurant", "Shopping"},
		},
		{
			name:         "customer like adds culture for single food intent",
			raw:          "Food & Local Flavours",
			customerLike: true,
			want:         []string{"Cafe & Bakery", "Restaurant", "Culture & heritage"},
		},
		{
			name:         "customer like ignored when food is not alone",
			raw:          "Food & Local Flavours, Nature & View",
			customerLike: true,
			want:         []string{"Cafe & Bakery", "Restaurant", "Nature & View"},
		},
		{
			name:         "customer like ignored for non food intent",
			raw:          "Nature & View",
			customerLike: true,
			want:         []string{"Nature & View"},
		},
		{
			name:            "meal overlap appends restaurant",
			raw:             "Nature & View",
			needsRestaurant: true,
			want:            []string{"Nature & View", "Restaurant"},
		},
		{
			name:            "meal overlap skipped when user asked for food",
			raw:             "Food & Local Flavours",
			needsRestaurant: true,
			want:            []string{"Cafe & Bakery", "Restaurant"},
		},
		{
			name:            "meal overlap never duplicates restaurant",
			raw:             "Restaurant",
			needsRestaurant: true,
			want:            []string{"Restaurant"},
		},
		{
			name:    "blank input is rejected",
			raw:     "  , ,,  ",
			wantErr: ErrNoValidQueries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandQueries(tt.raw, tt.customerLike, tt.needsRestaurant)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchByQuery(t *testing.T) {
	ctx := context.Background()
	queryVector := []float32{0.1, 0.2, 0.3}

	t.Run("empty query is rejected", func(t *testing.T) {
		service, _, _, _, _ := setupSemanticServiceTest()
		_, err := service.SearchByQuery(ctx, "   ", 10)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})

	t.Run("results follow hit order with similarity attached", func(t *testing.T) {
		service, embedder, store, _, poiInfoSvc := setupSemanticServiceTest()
		poiA := types.POI{ID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Name: "Museum"}
		poiB := types.POI{ID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Name: "Gallery"}
		missingID := "33333333-3333-3333-3333-333333333333"

		embedder.On("GenerateQueryEmbedding", mock.Anything, "Culture & heritage").Return(queryVector, nil).Once()
		store.On("Search", mock.Anything, queryVector, 10).Return([]VectorHit{
			{ID: poiB.ID.String(), Score: 0.93},
			{ID: missingID, Score: 0.91},
			{ID: poiA.ID.String(), Score: 0.88},
		}, nil).Once()
		poiInfoSvc.On("GetPOIsByIDs", mock.Anything, []string{poiB.ID.String(), missingID, poiA.ID.String()}).
			Return([]types.POI{poiB, poiA}, nil).Once()

		resp, err := service.SearchByQuery(ctx, "Culture & heritage", 0)
		require.NoError(t, err)
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "Gallery", resp.Results[0].Name)
		assert.Equal(t, 0.93, resp.Results[0].Similarity)
		assert.Equal(t, "Museum", resp.Results[1].Name)
		assert.Equal(t, 0.88, resp.Results[1].Similarity)
		assert.Equal(t, "success", resp.Status)

		embedder.AssertExpectations(t)
		store.AssertExpectations(t)
		poiInfoSvc.AssertExpectations(t)
	})

	t.Run("embedding failure propagates", func(t *testing.T) {
		service, embedder, _, _, _ := setupSemanticServiceTest()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Nightlife").Return(nil, assert.AnError).Once()

		_, err := service.SearchByQuery(ctx, "Nightlife", 5)
		assert.ErrorIs(t, err, assert.AnError)
		embedder.AssertExpectations(t)
	})
}

func TestBuildShortlist(t *testing.T) {
	ctx := context.Background()
	queryVector := []float32{0.5, 0.5}
	origin := struct{ lat, lon float64 }{10.7769, 106.7009}

	poiA := types.POI{ID: uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"), Name: "The Workshop", Category: ""}
	poiB := types.POI{ID: uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002"), Name: "Quan Bui"}
	poiC := types.POI{ID: uuid.MustParse("cccccccc-0000-0000-0000-000000000003"), Name: "Secret Garden"}
	shortlist := []types.POI{poiA, poiB, poiC}
	idList := []string{poiA.ID.String(), poiB.ID.String(), poiC.ID.String()}

	t.Run("invalid transport mode is rejected", func(t *testing.T) {
		service, _, _, _, _ := setupSemanticServiceTest()
		_, err := service.BuildShortlist(ctx, ShortlistParams{
			TransportationMode: "TELEPORT",
			SemanticQuery:      "Nature & View",
		})
		assert.ErrorIs(t, err, types.ErrInvalidTransportMode)
	})

	t.Run("empty spatial shortlist returns empty success", func(t *testing.T) {
		service, _, _, locationSvc, _ := setupSemanticServiceTest()
		locationSvc.On("SearchNearby", mock.Anything, origin.lat, origin.lon, types.TransportModeWalking).
			Return([]types.POI{}, 1522.46, nil).Once()

		res, err := service.BuildShortlist(ctx, ShortlistParams{
			Latitude:           origin.lat,
			Longitude:          origin.lon,
			TransportationMode: "WALKING",
			SemanticQuery:      "Nature & View",
		})
		require.NoError(t, err)
		assert.Empty(t, res.Shortlist)
		assert.Equal(t, []string{"Nature & View"}, res.Queries)
		assert.InDelta(t, 1522.46, res.RadiusUsedMeters, 0.01)
		locationSvc.AssertExpectations(t)
	})

	t.Run("merge keeps highest similarity category and sorts deterministically", func(t *testing.T) {
		service, embedder, store, locationSvc, _ := setupSemanticServiceTest()
		locationSvc.On("SearchNearby", mock.Anything, origin.lat, origin.lon, types.TransportModeWalking).
			Return(shortlist, 1522.46, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Cafe & Bakery").Return(queryVector, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Restaurant").Return(queryVector, nil).Once()

		// Cafe query sees A strongly and C weakly; Restaurant query sees C
		// strongly and B. C must end up under Restaurant.
		store.On("SearchByIDs", mock.Anything, queryVector, idList, 10).Return([]VectorHit{
			{ID: poiA.ID.String(), Score: 0.90},
			{ID: poiC.ID.String(), Score: 0.50},
		}, nil).Once()
		store.On("SearchByIDs", mock.Anything, queryVector, idList, 10).Return([]VectorHit{
			{ID: poiC.ID.String(), Score: 0.70},
			{ID: poiB.ID.String(), Score: 0.60},
		}, nil).Once()

		res, err := service.BuildShortlist(ctx, ShortlistParams{
			Latitude:           origin.lat,
			Longitude:          origin.lon,
			TransportationMode: "WALKING",
			SemanticQuery:      "Food & Local Flavours",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Cafe & Bakery", "Restaurant"}, res.Queries)
		require.Len(t, res.Shortlist, 3)

		assert.Equal(t, poiA.ID, res.Shortlist[0].ID)
		assert.Equal(t, "Cafe & Bakery", res.Shortlist[0].Category)
		assert.Equal(t, 0, res.Shortlist[0].CategoryIndex)

		assert.Equal(t, poiC.ID, res.Shortlist[1].ID)
		assert.Equal(t, "Restaurant", res.Shortlist[1].Category)
		assert.Equal(t, 1, res.Shortlist[1].CategoryIndex)
		assert.Equal(t, 0.70, res.Shortlist[1].Similarity)

		assert.Equal(t, poiB.ID, res.Shortlist[2].ID)
		store.AssertExpectations(t)
	})

	t.Run("similarity ties keep the earlier query's category", func(t *testing.T) {
		service, embedder, store, locationSvc, _ := setupSemanticServiceTest()
		locationSvc.On("SearchNearby", mock.Anything, origin.lat, origin.lon, types.TransportModeWalking).
			Return(shortlist, 1522.46, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, mock.AnythingOfType("string")).Return(queryVector, nil).Twice()

		store.On("SearchByIDs", mock.Anything, queryVector, idList, 10).Return([]VectorHit{
			{ID: poiC.ID.String(), Score: 0.55},
		}, nil).Once()
		store.On("SearchByIDs", mock.Anything, queryVector, idList, 10).Return([]VectorHit{
			{ID: poiC.ID.String(), Score: 0.55},
		}, nil).Once()

		res, err := service.BuildShortlist(ctx, ShortlistParams{
			Latitude:           origin.lat,
			Longitude:          origin.lon,
			TransportationMode: "WALKING",
			SemanticQuery:      "Food & Local Flavours",
		})
		require.NoError(t, err)
		require.Len(t, res.Shortlist, 1)
		assert.Equal(t, "Cafe & Bakery", res.Shortlist[0].Category)
		assert.Equal(t, 0, res.Shortlist[0].CategoryIndex)
	})

	t.Run("visited POIs are excluded before the semantic pass", func(t *testing.T) {
		service, embedder, store, locationSvc, poiInfoSvc := setupSemanticServiceTest()
		locationSvc.On("SearchNearby", mock.Anything, origin.lat, origin.lon, types.TransportModeWalking).
			Return(shortlist, 1522.46, nil).Once()
		poiInfoSvc.On("GetVisitedPOIIDs", mock.Anything, "traveler-7").
			Return([]uuid.UUID{poiB.ID}, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Nature & View").Return(queryVector, nil).Once()

		remaining := []string{poiA.ID.String(), poiC.ID.String()}
		store.On("SearchByIDs", mock.Anything, queryVector, remaining, 10).Return([]VectorHit{
			{ID: poiA.ID.String(), Score: 0.8},
		}, nil).Once()

		res, err := service.BuildShortlist(ctx, ShortlistParams{
			Latitude:           origin.lat,
			Longitude:          origin.lon,
			TransportationMode: "WALKING",
			SemanticQuery:      "Nature & View",
			UserID:             "traveler-7",
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.SpatialCount)
		require.Len(t, res.Shortlist, 1)
		assert.Equal(t, poiA.ID, res.Shortlist[0].ID)
		store.AssertExpectations(t)
		poiInfoSvc.AssertExpectations(t)
	})

	t.Run("meal overlap appends a restaurant query", func(t *testing.T) {
		service, embedder, store, locationSvc, _ := setupSemanticServiceTest()
		locationSvc.On("SearchNearby", mock.Anything, origin.lat, origin.lon, types.TransportModeWalking).
			Return(shortlist, 1522.46, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, mock.AnythingOfType("string")).Return(queryVector, nil).Twice()
		store.On("SearchByIDs", mock.Anything, queryVector, mock.AnythingOfType("[]string"), 10).
			Return([]VectorHit{}, nil).Twice()

		start := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
		res, err := service.BuildShortlist(ctx, ShortlistParams{
			Latitude:           origin.lat,
			Longitude:          origin.lon,
			TransportationMode: "WALKING",
			SemanticQuery:      "Nature & View",
			CurrentTime:        &start,
			MaxTimeMinutes:     240,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Nature & View", "Restaurant"}, res.Queries)
		store.AssertExpectations(t)
	})

	t.Run("a failing query degrades instead of failing the request", func(t *testing.T) {
		service, embedder, store, locationSvc, _ := setupSemanticServiceTest()
		locationSvc.On("SearchNearby", mock.Anything, origin.lat, origin.lon, types.TransportModeWalking).
			Return(shortlist, 1522.46, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Cafe & Bakery").Return(nil, assert.AnError).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Restaurant").Return(queryVector, nil).Once()
		store.On("SearchByIDs", mock.Anything, queryVector, idList, 10).Return([]VectorHit{
			{ID: poiB.ID.String(), Score: 0.61},
		}, nil).Once()

		res, err := service.BuildShortlist(ctx, ShortlistParams{
			Latitude:           origin.lat,
			Longitude:          origin.lon,
			TransportationMode: "WALKING",
			SemanticQuery:      "Food & Local Flavours",
		})
		require.NoError(t, err)
		require.Len(t, res.Shortlist, 1)
		assert.Equal(t, "Restaurant", res.Shortlist[0].Category)
		embedder.AssertExpectations(t)
	})
}

func TestSearchCombined(t *testing.T) {
	ctx := context.Background()

	t.Run("malformed current_time is rejected", func(t *testing.T) {
		service, _, _, _, _ := setupSemanticServiceTest()
		_, err := service.SearchCombined(ctx, types.CombinedSearchRequest{
			Latitude:           10.7769,
			Longitude:          106.7009,
			TransportationMode: "WALKING",
			SemanticQuery:      "Nature & View",
			CurrentTime:        "noonish",
		})
		assert.ErrorIs(t, err, ErrInvalidDateTime)
	})

	t.Run("maps shortlist result onto the response", func(t *testing.T) {
		service, embedder, store, locationSvc, _ := setupSemanticServiceTest()
		poi := types.POI{ID: uuid.New(), Name: "Saigon River Walk"}
		locationSvc.On("SearchNearby", mock.Anything, 10.7769, 106.7009, types.TransportModeWalking).
			Return([]types.POI{poi}, 1522.46, nil).Once()
		embedder.On("GenerateQueryEmbedding", mock.Anything, "Nature & View").Return([]float32{0.1}, nil).Once()
		store.On("SearchByIDs", mock.Anything, []float32{0.1}, []string{poi.ID.String()}, 10).
			Return([]VectorHit{{ID: poi.ID.String(), Score: 0.77}}, nil).Once()

		resp, err := service.SearchCombined(ctx, types.CombinedSearchRequest{
			Latitude:           10.7769,
			Longitude:          106.7009,
			TransportationMode: "WALKING",
			SemanticQuery:      "Nature & View",
		})
		require.NoError(t, err)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, 1522, resp.RadiusUsedMeters)
		assert.Equal(t, []string{"Nature & View"}, resp.Queries)
	})
}
