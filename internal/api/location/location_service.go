package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wandergrid/go-poi-routes/app/observability/metrics"
	"github.com/wandergrid/go-poi-routes/internal/planner"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

// Coverage and padding factors of the spatial stage. The coverage radius
// over-approximates the k-ring footprint so border POIs survive the distance
// filter; the bbox pad converts one hex edge to degrees with 5% slack.
const (
	coverageRingFactor  = 1.5
	coverageSlackFactor = 1.1
	bboxPadSlackFactor  = 1.05
	metersPerDegree     = 111_000.0
)

// ErrInvalidTimeWindow marks unusable time_window_start/time_window_end pairs.
var ErrInvalidTimeWindow = errors.New("invalid time window")

var _ Service = (*ServiceImpl)(nil)

// Service is the spatial shortlist stage: H3 k-ring lookup through the cell
// cache with a bounding-box database fallback.
type Service interface {
	// SearchNearby returns POIs around (lat, lon) sorted by ascending
	// distance, plus the coverage radius in meters. Every returned POI has
	// DistanceMeters set and lies within the coverage radius.
	SearchNearby(ctx context.Context, lat, lon float64, mode types.TransportMode) ([]types.POI, float64, error)

	// FindNearestLocations wraps SearchNearby in the response envelope,
	// applying the optional opening-hours window filter.
	FindNearestLocations(ctx context.Context, req types.LocationSearchRequest) (*types.LocationSearchResponse, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repo       Repository
	cache      CellCache
	resolution int
}

func NewServiceImpl(repo Repository, cache CellCache, resolution int, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		cache:      cache,
		resolution: resolution,
	}
}

func (s *ServiceImpl) SearchNearby(ctx context.Context, lat, lon float64, mode types.TransportMode) ([]types.POI, float64, error) {
	ctx, span := otel.Tracer("LocationService").Start(ctx, "SearchNearby", trace.WithAttributes(
		attribute.Float64("location.lat", lat),
		attribute.Float64("location.lon", lon),
		attribute.String("transport.mode", string(mode)),
	))
	defer span.End()

	center, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, s.resolution)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to index location: %w", err)
	}
	cells, err := center.GridDisk(mode.KRing())
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to expand k-ring: %w", err)
	}
	edgeMeters, err := h3.HexagonEdgeLengthAvgM(s.resolution)
	if err != nil {
		span.RecordError(err)
		return nil, 0, fmt.Errorf("failed to read hexagon edge length: %w", err)
	}
	coverageMeters := edgeMeters * float64(mode.KRing()) * coverageRingFactor * coverageSlackFactor

	hits, missing := s.cache.MGetCells(ctx, cells)
	span.SetAttributes(
		attribute.Int("spatial.cells", len(cells)),
		attribute.Int("spatial.cache_hits", len(hits)),
		attribute.Int("spatial.cache_misses", len(missing)),
	)
	metrics.Get().SpatialCacheHitsTotal.Add(ctx, int64(len(hits)))
	metrics.Get().SpatialCacheMissesTotal.Add(ctx, int64(len(missing)))

	filled := map[h3.Cell][]types.POI{}
	if len(missing) > 0 {
		metrics.Get().SpatialDBFallbackTotal.Add(ctx, 1)
		filled, err = s.fillCells(ctx, missing, edgeMeters)
		if err != nil {
			span.RecordError(err)
			return nil, 0, err
		}
		s.cache.SetCells(ctx, filled)
	}

	origin := orb.Point{lon, lat}
	seen := make(map[uuid.UUID]struct{})
	merged := make([]types.POI, 0, 64)
	keep := func(poi types.POI) {
		if _, dup := seen[poi.ID]; dup {
			return
		}
		seen[poi.ID] = struct{}{}
		meters := planner.Haversine(origin, orb.Point{poi.Longitude, poi.Latitude}) * 1000
		if meters > coverageMeters {
			return
		}
		poi.DistanceMeters = &meters
		merged = append(merged, poi)
	}
	for _, cell := range cells {
		for _, poi := range hits[cell] {
			keep(poi)
		}
		for _, poi := range filled[cell] {
			keep(poi)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if *merged[i].DistanceMeters != *merged[j].DistanceMeters {
			return *merged[i].DistanceMeters < *merged[j].DistanceMeters
		}
		return merged[i].ID.String() < merged[j].ID.String()
	})

	s.logger.DebugContext(ctx, "spatial search finished",
		slog.Int("cells", len(cells)),
		slog.Int("cache_misses", len(missing)),
		slog.Int("results", len(merged)),
		slog.Float64("coverage_meters", coverageMeters))
	span.SetAttributes(attribute.Int("spatial.results", len(merged)))
	span.SetStatus(codes.Ok, "Spatial search completed")
	return merged, coverageMeters, nil
}

// fillCells runs the single bounding-box query for the miss set and
// re-partitions the rows into their exact cells. Every miss cell appears in
// the result, empty if nothing landed in it, so negative entries get cached.
func (s *ServiceImpl) fillCells(ctx context.Context, missing []h3.Cell, edgeMeters float64) (map[h3.Cell][]types.POI, error) {
	centroids := make(orb.MultiPoint, 0, len(missing))
	for _, cell := range missing {
		ll, err := cell.LatLng()
		if err != nil {
			return nil, fmt.Errorf("failed to read centroid of cell %s: %w", cell, err)
		}
		centroids = append(centroids, orb.Point{ll.Lng, ll.Lat})
	}
	padDegrees := edgeMeters * bboxPadSlackFactor / metersPerDegree
	bound := centroids.Bound().Pad(padDegrees)

	rows, err := s.repo.FindPOIsInBoundingBox(ctx, bound)
	if err != nil {
		return nil, err
	}

	buckets := make(map[h3.Cell][]types.POI, len(missing))
	for _, cell := range missing {
		buckets[cell] = []types.POI{}
	}
	for _, poi := range rows {
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: poi.Latitude, Lng: poi.Longitude}, s.resolution)
		if err != nil {
			continue
		}
		if _, wanted := buckets[cell]; !wanted {
			// The padded box picked up a row belonging to a cell we did
			// not miss; the cached copy of that cell stays authoritative.
			continue
		}
		buckets[cell] = append(buckets[cell], poi)
	}
	return buckets, nil
}

func (s *ServiceImpl) FindNearestLocations(ctx context.Context, req types.LocationSearchRequest) (*types.LocationSearchResponse, error) {
	start := time.Now()

	mode, err := types.ParseTransportMode(req.TransportationMode)
	if err != nil {
		return nil, err
	}

	var windowStart, windowEnd time.Time
	filterByTime := req.TimeWindowStart != "" || req.TimeWindowEnd != ""
	if filterByTime {
		if req.TimeWindowStart == "" || req.TimeWindowEnd == "" {
			return nil, fmt.Errorf("%w: both time_window_start and time_window_end are required", ErrInvalidTimeWindow)
		}
		windowStart, err = types.ParseDateTime(req.TimeWindowStart)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTimeWindow, err)
		}
		windowEnd, err = types.ParseDateTime(req.TimeWindowEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTimeWindow, err)
		}
		if !windowEnd.After(windowStart) {
			return nil, fmt.Errorf("%w: time_window_end must be after time_window_start", ErrInvalidTimeWindow)
		}
	}

	pois, coverageMeters, err := s.SearchNearby(ctx, req.Latitude, req.Longitude, mode)
	if err != nil {
		return nil, err
	}
	spatialSeconds := types.Seconds(time.Since(start))

	resp := &types.LocationSearchResponse{
		Status:           "success",
		RadiusUsedMeters: int(math.Round(coverageMeters)),
	}
	if filterByTime {
		resp.OriginalResultsCount = len(pois)
		pois = planner.FilterOpenPOIs(pois, windowStart, windowEnd)
		resp.FilteredByTime = true
		resp.TimeWindow = req.TimeWindowStart + " - " + req.TimeWindowEnd
	}
	resp.Results = pois
	resp.Count = len(pois)
	resp.Timing = types.TimingBreakdown{
		SpatialSeconds: spatialSeconds,
		TotalSeconds:   types.Seconds(time.Since(start)),
	}
	return resp, nil
}
