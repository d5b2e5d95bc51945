package semantic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/wandergrid/go-poi-routes/app/observability/metrics"
	"github.com/wandergrid/go-poi-routes/internal/api/location"
	"github.com/wandergrid/go-poi-routes/internal/api/poiinfo"
	"github.com/wandergrid/go-poi-routes/internal/planner"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

// Category names the orchestrator rewrites. These are data values from the
// enrichment pass, not display strings.
const (
	categoryFoodLocalFlavours = "Food & Local Flavours"
	categoryCafeBakery        = "Cafe & Bakery"
	categoryRestaurant        = "Restaurant"
	categoryCultureHeritage   = "Culture & heritage"
)

var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrNoValidQueries  = errors.New("no valid queries provided")
	ErrInvalidDateTime = errors.New("invalid current_time")
)

// ShortlistParams is the input to the multi-query orchestration: one spatial
// pass plus one ID-filtered semantic search per expanded category.
type ShortlistParams struct {
	Latitude           float64
	Longitude          float64
	TransportationMode string
	SemanticQuery      string
	TopK               int
	UserID             string
	CustomerLike       bool
	CurrentTime        *time.Time
	MaxTimeMinutes     float64
}

// ShortlistResult carries the merged shortlist sorted by (-similarity, id),
// ready for the planner.
type ShortlistResult struct {
	Queries          []string
	Shortlist        []types.POI
	SpatialCount     int
	RadiusUsedMeters float64
	Timing           types.TimingBreakdown
}

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	SearchByQuery(ctx context.Context, query string, topK int) (*types.SemanticSearchResponse, error)
	SearchCombined(ctx context.Context, req types.CombinedSearchRequest) (*types.CombinedSearchResponse, error)
	BuildShortlist(ctx context.Context, params ShortlistParams) (*ShortlistResult, error)
}

type ServiceImpl struct {
	logger          *slog.Logger
	embedder        Embedder
	store           VectorStore
	locationService location.Service
	poiInfoService  poiinfo.Service
}

func NewServiceImpl(embedder Embedder, store VectorStore, locationService location.Service, poiInfoService poiinfo.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:          logger,
		embedder:        embedder,
		store:           store,
		locationService: locationService,
		poiInfoService:  poiInfoService,
	}
}

// SearchByQuery is the unfiltered entry point: embed, top-k search over the
// whole collection, hydrate from the POI store.
func (s *ServiceImpl) SearchByQuery(ctx context.Context, query string, topK int) (*types.SemanticSearchResponse, error) {
	ctx, span := otel.Tracer("SemanticService").Start(ctx, "SearchByQuery", trace.WithAttributes(
		attribute.String("query", query),
		attribute.Int("top_k", topK),
	))
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		span.RecordError(ErrEmptyQuery)
		return nil, ErrEmptyQuery
	}
	if topK <= 0 {
		topK = types.DefaultTopK
	}

	totalStart := time.Now()

	embedStart := time.Now()
	vector, err := s.embedder.GenerateQueryEmbedding(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to embed query", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	embedSeconds := types.Seconds(time.Since(embedStart))

	searchStart := time.Now()
	hits, err := s.store.Search(ctx, vector, topK)
	if err != nil {
		s.logger.ErrorContext(ctx, "Vector search failed", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	searchSeconds := types.Seconds(time.Since(searchStart))
	metrics.Get().VectorSearchDurationSeconds.Record(ctx, searchSeconds)

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
	}

	dbStart := time.Now()
	pois, err := s.poiInfoService.GetPOIsByIDs(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	dbSeconds := types.Seconds(time.Since(dbStart))

	byID := make(map[string]types.POI, len(pois))
	for _, poi := range pois {
		byID[poi.ID.String()] = poi
	}

	results := make([]types.POI, 0, len(hits))
	for _, hit := range hits {
		poi, ok := byID[hit.ID]
		if !ok {
			s.logger.WarnContext(ctx, "Vector hit has no POI record", slog.String("poiID", hit.ID))
			continue
		}
		poi.Similarity = hit.Score
		results = append(results, poi)
	}

	span.SetAttributes(attribute.Int("results.count", len(results)))
	span.SetStatus(codes.Ok, "Semantic search completed")
	return &types.SemanticSearchResponse{
		Status:  "success",
		Query:   query,
		Results: results,
		Count:   len(results),
		Timing: types.TimingBreakdown{
			EmbeddingSeconds:    embedSeconds,
			VectorSearchSeconds: searchSeconds,
			DBHydrationSeconds:  dbSeconds,
			TotalSeconds:        types.Seconds(time.Since(totalStart)),
		},
	}, nil
}

// ExpandQueries turns the comma-separated intent string into the list of
// category queries to run. "Food & Local Flavours" always expands to Cafe &
// Bakery plus Restaurant. customerLike adds Culture & heritage only when the
// input was exactly that single food intent. needsRestaurant appends
// Restaurant for meal-window coverage unless the user already asked for food.
func ExpandQueries(raw string, customerLike, needsRestaurant bool) ([]string, error) {
	var original []string
	for _, part := range strings.Split(raw, ",") {
		if q := strings.TrimSpace(part); q != "" {
			original = append(original, q)
		}
	}

	queries := make([]string, 0, len(original)+2)
	requestedFood := false
	for _, q := range original {
		if q == categoryFoodLocalFlavours {
			requestedFood = true
			queries = append(queries, categoryCafeBakery, categoryRestaurant)
			continue
		}
		queries = append(queries, q)
	}

	if customerLike && len(original) == 1 && requestedFood && !slices.Contains(queries, categoryCultureHeritage) {
		queries = append(queries, categoryCultureHeritage)
	}
	if needsRestaurant && !requestedFood && !slices.Contains(queries, categoryRestaurant) {
		queries = append(queries, categoryRestaurant)
	}

	if len(queries) == 0 {
		return nil, ErrNoValidQueries
	}
	return queries, nil
}

// BuildShortlist runs the full orchestration: expand queries, one spatial
// pass, one ID-filtered semantic search per query, then merge keeping each
// POI under its highest-similarity category.
func (s *ServiceImpl) BuildShortlist(ctx context.Context, p ShortlistParams) (*ShortlistResult, error) {
	ctx, span := otel.Tracer("SemanticService").Start(ctx, "BuildShortlist", trace.WithAttributes(
		attribute.String("semantic.query", p.SemanticQuery),
		attribute.String("transport.mode", p.TransportationMode),
	))
	defer span.End()

	mode, err := types.ParseTransportMode(p.TransportationMode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	needsRestaurant := false
	if p.CurrentTime != nil && p.MaxTimeMinutes > 0 {
		overlap := planner.CheckMealOverlap(*p.CurrentTime, p.MaxTimeMinutes)
		needsRestaurant = overlap.NeedsRestaurant
	}

	queries, err := ExpandQueries(p.SemanticQuery, p.CustomerLike, needsRestaurant)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.StringSlice("semantic.queries", queries))

	topK := p.TopK
	if topK <= 0 {
		topK = types.DefaultTopK
	}

	totalStart := time.Now()

	spatialStart := time.Now()
	shortlist, radius, err := s.locationService.SearchNearby(ctx, p.Latitude, p.Longitude, mode)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("spatial search failed: %w", err)
	}
	if p.CurrentTime != nil && p.MaxTimeMinutes > 0 {
		windowEnd := p.CurrentTime.Add(time.Duration(p.MaxTimeMinutes * float64(time.Minute)))
		shortlist = planner.FilterOpenPOIs(shortlist, *p.CurrentTime, windowEnd)
	}
	spatialSeconds := types.Seconds(time.Since(spatialStart))

	result := &ShortlistResult{
		Queries:          queries,
		Shortlist:        []types.POI{},
		RadiusUsedMeters: radius,
	}

	if p.UserID != "" && len(shortlist) > 0 {
		visited, err := s.poiInfoService.GetVisitedPOIIDs(ctx, p.UserID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to load visited POIs: %w", err)
		}
		if len(visited) > 0 {
			visitedSet := make(map[uuid.UUID]struct{}, len(visited))
			for _, id := range visited {
				visitedSet[id] = struct{}{}
			}
			kept := shortlist[:0]
			for _, poi := range shortlist {
				if _, ok := visitedSet[poi.ID]; !ok {
					kept = append(kept, poi)
				}
			}
			shortlist = kept
			span.SetAttributes(attribute.Int("shortlist.visited_removed", len(visited)))
		}
	}

	result.SpatialCount = len(shortlist)
	if len(shortlist) == 0 {
		result.Timing = types.TimingBreakdown{
			SpatialSeconds: spatialSeconds,
			TotalSeconds:   types.Seconds(time.Since(totalStart)),
		}
		span.SetStatus(codes.Ok, "Empty spatial shortlist")
		return result, nil
	}

	byID := make(map[string]types.POI, len(shortlist))
	idList := make([]string, len(shortlist))
	for i, poi := range shortlist {
		id := poi.ID.String()
		idList[i] = id
		byID[id] = poi
	}

	// Queries run sequentially so the winning-category assignment is
	// deterministic for POIs that surface under several categories.
	best := make(map[string]types.POI)
	var embedSeconds, searchSeconds float64
	for idx, query := range queries {
		hits, embedS, searchS, err := s.searchFiltered(ctx, query, idList, topK)
		embedSeconds += embedS
		searchSeconds += searchS
		if err != nil {
			s.logger.WarnContext(ctx, "Semantic query failed, skipping",
				slog.String("query", query), slog.Any("error", err))
			continue
		}
		for _, hit := range hits {
			poi, ok := byID[hit.ID]
			if !ok {
				s.logger.WarnContext(ctx, "Vector hit missing from spatial shortlist", slog.String("poiID", hit.ID))
				continue
			}
			if existing, seen := best[hit.ID]; seen && existing.Similarity >= hit.Score {
				continue
			}
			poi.Similarity = hit.Score
			poi.Category = query
			poi.CategoryIndex = idx
			best[hit.ID] = poi
		}
	}

	merged := make([]types.POI, 0, len(best))
	for _, poi := range best {
		merged = append(merged, poi)
	}
	slices.SortFunc(merged, func(a, b types.POI) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	result.Shortlist = merged
	result.Timing = types.TimingBreakdown{
		SpatialSeconds:      spatialSeconds,
		EmbeddingSeconds:    math.Round(embedSeconds*1000) / 1000,
		VectorSearchSeconds: math.Round(searchSeconds*1000) / 1000,
		TotalSeconds:        types.Seconds(time.Since(totalStart)),
	}
	metrics.Get().VectorSearchDurationSeconds.Record(ctx, result.Timing.VectorSearchSeconds)

	span.SetAttributes(
		attribute.Int("shortlist.spatial", result.SpatialCount),
		attribute.Int("shortlist.merged", len(merged)),
	)
	span.SetStatus(codes.Ok, "Shortlist built")
	return result, nil
}

func (s *ServiceImpl) searchFiltered(ctx context.Context, query string, idList []string, topK int) ([]VectorHit, float64, float64, error) {
	embedStart := time.Now()
	vector, err := s.embedder.GenerateQueryEmbedding(ctx, query)
	embedSeconds := types.Seconds(time.Since(embedStart))
	if err != nil {
		return nil, embedSeconds, 0, err
	}

	searchStart := time.Now()
	hits, err := s.store.SearchByIDs(ctx, vector, idList, topK)
	searchSeconds := types.Seconds(time.Since(searchStart))
	if err != nil {
		return nil, embedSeconds, searchSeconds, err
	}
	return hits, embedSeconds, searchSeconds, nil
}

// SearchCombined answers POST /api/v1/semantic/combined.
func (s *ServiceImpl) SearchCombined(ctx context.Context, req types.CombinedSearchRequest) (*types.CombinedSearchResponse, error) {
	params := ShortlistParams{
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		TransportationMode: req.TransportationMode,
		SemanticQuery:      req.SemanticQuery,
		TopK:               req.TopK,
		UserID:             req.UserID,
		CustomerLike:       req.CustomerLike,
		MaxTimeMinutes:     req.MaxTimeMinutes,
	}
	if req.CurrentTime != "" {
		t, err := types.ParseDateTime(req.CurrentTime)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDateTime, err)
		}
		params.CurrentTime = &t
	}

	res, err := s.BuildShortlist(ctx, params)
	if err != nil {
		return nil, err
	}
	return &types.CombinedSearchResponse{
		Status:           "success",
		Queries:          res.Queries,
		Results:          res.Shortlist,
		Count:            len(res.Shortlist),
		RadiusUsedMeters: int(math.Round(res.RadiusUsedMeters)),
		Timing:           res.Timing,
	}, nil
}
