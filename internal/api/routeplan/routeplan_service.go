// Package routeplan turns the semantic shortlist into cached, mutable
// itineraries: it runs the greedy planner on a worker pool, snapshots the
// result per user, and serves the replace-poi and confirm-replace-poi flows
// against that snapshot.
package routeplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wandergrid/go-poi-routes/app/observability/metrics"
	"github.com/wandergrid/go-poi-routes/internal/api/poiinfo"
	"github.com/wandergrid/go-poi-routes/internal/api/semantic"
	"github.com/wandergrid/go-poi-routes/internal/planner"
	"github.com/wandergrid/go-poi-routes/internal/types"
)

// maxReplacementCandidates caps how many alternatives one replace-poi call
// offers.
const maxReplacementCandidates = 3

var (
	ErrMissingUserID  = errors.New("user_id is required")
	ErrNoCachedRoutes = errors.New("no cached routes found for user")
	ErrUnknownRouteID = errors.New("route not found in cache")
	ErrPOINotInRoute  = errors.New("poi not found in route")
	ErrInvalidPOIID   = errors.New("invalid poi id")
)

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// BuildRoutes answers POST /api/v1/route/routes, including the
	// replace_route and delete_cache variants.
	BuildRoutes(ctx context.Context, req types.RouteSearchRequest) (*types.RouteSearchResponse, error)

	// ReplacePOI offers up to three same-category alternatives for one
	// slot of a cached route and remembers what it offered.
	ReplacePOI(ctx context.Context, req types.ReplacePOIRequest) (*types.ReplacePOIResponse, error)

	// ConfirmReplacePOI rewrites the slot to the chosen POI and returns
	// the route's updated slot list.
	ConfirmReplacePOI(ctx context.Context, req types.ConfirmReplacePOIRequest) (*types.ConfirmReplacePOIResponse, error)
}

type ServiceImpl struct {
	logger          *slog.Logger
	semanticService semantic.Service
	poiInfoService  poiinfo.Service
	cache           RouteCache
	pool            *planner.Pool

	// circularRouting switches the planner's bearing preference from
	// straight-line continuation to 90-degree turns. Off by default.
	circularRouting bool
}

func NewServiceImpl(semanticService semantic.Service, poiInfoService poiinfo.Service, cache RouteCache, pool *planner.Pool, circularRouting bool, logger *slog.Logger) *ServiceImpl {
	if pool == nil {
		pool = planner.NewPool(0)
	}
	return &ServiceImpl{
		logger:          logger,
		semanticService: semanticService,
		poiInfoService:  poiInfoService,
		cache:           cache,
		pool:            pool,
		circularRouting: circularRouting,
	}
}

// BuildRoutes runs the full pipeline: shortlist, plan on the worker pool,
// snapshot the result into the route cache. With replace_route set it keeps
// only the route standing in for route_id_to_replace; when that alternate
// cannot be built the fallback stores a single fresh route under route_id 1,
// restarting the id space the client sees.
func (s *ServiceImpl) BuildRoutes(ctx context.Context, req types.RouteSearchRequest) (*types.RouteSearchResponse, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "BuildRoutes", trace.WithAttributes(
		attribute.Float64("request.latitude", req.Latitude),
		attribute.Float64("request.longitude", req.Longitude),
		attribute.String("request.semantic_query", req.SemanticQuery),
		attribute.Bool("request.replace_route", req.ReplaceRoute),
	))
	defer span.End()

	var start *time.Time
	if strings.TrimSpace(req.CurrentTime) != "" {
		t, err := types.ParseDateTime(req.CurrentTime)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", semantic.ErrInvalidDateTime, err)
		}
		start = &t
	}

	if req.DeleteCache && req.UserID != "" {
		if err := s.cache.Delete(ctx, req.UserID); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete route cache before rebuild",
				slog.String("user_id", req.UserID), slog.Any("error", err))
		}
	}

	shortlist, err := s.semanticService.BuildShortlist(ctx, semantic.ShortlistParams{
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		TransportationMode: req.TransportationMode,
		SemanticQuery:      req.SemanticQuery,
		TopK:               req.TopKSemantic,
		UserID:             req.UserID,
		CustomerLike:       req.CustomerLike,
		CurrentTime:        start,
		MaxTimeMinutes:     req.MaxTimeMinutes,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp := &types.RouteSearchResponse{
		Status:           "success",
		Routes:           []types.Route{},
		Queries:          shortlist.Queries,
		ShortlistCount:   len(shortlist.Shortlist),
		RadiusUsedMeters: int(math.Round(shortlist.RadiusUsedMeters)),
		Timing:           shortlist.Timing,
	}
	if len(shortlist.Shortlist) == 0 {
		s.logger.InfoContext(ctx, "No places to plan routes from", slog.String("query", req.SemanticQuery))
		span.SetStatus(codes.Ok, "empty shortlist")
		return resp, nil
	}

	mode, err := types.ParseTransportMode(req.TransportationMode)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	opts := planner.Options{
		Mode:            mode,
		MaxTimeMinutes:  req.MaxTimeMinutes,
		TargetPlaces:    req.TargetPlaces,
		MaxRoutes:       req.MaxRoutes,
		Start:           start,
		DurationMode:    req.Duration,
		CircularRouting: s.circularRouting,
		CafeSequencing:  hasCafeCategory(shortlist.Shortlist),
	}
	user := orb.Point{req.Longitude, req.Latitude}

	planStart := time.Now()
	var routes []types.Route
	if req.ReplaceRoute && req.RouteIDToReplace > 0 {
		routes, err = s.planReplacementRoute(ctx, opts, user, shortlist.Shortlist, req.RouteIDToReplace)
	} else {
		routes, err = s.plan(ctx, opts, user, shortlist.Shortlist)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to plan routes: %w", err)
	}

	resp.Routes = routes
	resp.Count = len(routes)
	resp.Timing.RouteBuildSeconds = types.Seconds(time.Since(planStart))
	resp.Timing.TotalSeconds = math.Round((shortlist.Timing.TotalSeconds+resp.Timing.RouteBuildSeconds)*1000) / 1000
	metrics.Get().RouteBuildDurationSeconds.Record(ctx, resp.Timing.RouteBuildSeconds)

	if req.UserID != "" && len(routes) > 0 {
		entry := buildCacheEntry(req.UserID, string(mode), routes, shortlist.Shortlist)
		if err := s.cache.Save(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "Failed to cache route metadata",
				slog.String("user_id", req.UserID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "Route planning completed",
		slog.Int("routes", len(routes)),
		slog.Int("shortlist", len(shortlist.Shortlist)),
		slog.Float64("route_build_seconds", resp.Timing.RouteBuildSeconds))
	span.SetAttributes(attribute.Int("routes.count", len(routes)))
	span.SetStatus(codes.Ok, "routes planned")
	return resp, nil
}

func (s *ServiceImpl) plan(ctx context.Context, opts planner.Options, user orb.Point, places []types.POI) ([]types.Route, error) {
	return s.pool.Do(ctx, func() []types.Route {
		return planner.New(opts, s.logger).BuildRoutes(user, places)
	})
}

// planReplacementRoute asks for routeID+1 distinct routes and keeps only the
// last, so the replacement does not repeat any route the user has already
// seen. When the planner cannot reach that many, it rebuilds from the
// runner-up seed and the kept route restarts at id 1.
func (s *ServiceImpl) planReplacementRoute(ctx context.Context, opts planner.Options, user orb.Point, places []types.POI, routeID int) ([]types.Route, error) {
	requested := routeID + 1
	opts.MaxRoutes = requested
	routes, err := s.plan(ctx, opts, user, places)
	if err != nil {
		return nil, err
	}
	if len(routes) >= requested {
		return routes[requested-1 : requested], nil
	}

	s.logger.InfoContext(ctx, "Not enough distinct routes for replacement, rebuilding from alternate seed",
		slog.Int("requested", requested), slog.Int("built", len(routes)))
	opts.MaxRoutes = 2
	routes, err = s.plan(ctx, opts, user, places)
	if err != nil || len(routes) == 0 {
		return routes, err
	}
	kept := routes[len(routes)-1]
	kept.RouteID = 1
	return []types.Route{kept}, nil
}

// buildCacheEntry snapshots the planned routes plus the whole shortlist
// grouped by category. The full shortlist is stored, not just the unused
// POIs: replacement pools subtract the target route's own POIs at read time,
// so a POI used by route 1 stays available as a replacement within route 2.
func buildCacheEntry(userID, mode string, routes []types.Route, shortlist []types.POI) *types.RouteCacheEntry {
	available := make(map[string][]string)
	for _, p := range shortlist {
		if p.Category == "" {
			continue
		}
		available[p.Category] = append(available[p.Category], p.ID.String())
	}

	cached := make(map[string]types.CachedRoute, len(routes))
	for _, route := range routes {
		pois := make([]types.CachedRoutePOI, 0, len(route.Places))
		for _, place := range route.Places {
			pois = append(pois, types.CachedRoutePOI{PoiID: place.PlaceID, Category: place.Category})
		}
		cached[strconv.Itoa(route.RouteID)] = types.CachedRoute{Pois: pois}
	}

	return &types.RouteCacheEntry{
		UserID:                  userID,
		TransportationMode:      mode,
		Routes:                  cached,
		AvailablePOIsByCategory: available,
		ReplacedPOIsByCategory:  make(map[string][]string),
	}
}

func hasCafeCategory(places []types.POI) bool {
	for _, p := range places {
		if p.Category == "Cafe" {
			return true
		}
	}
	return false
}

// ReplacePOI computes the candidate pool for the slot's category, hydrates
// and annotates up to three candidates, and records them as offered so the
// next call proposes fresh alternatives. An exhausted pool recycles the
// offered set once; if nothing remains even then, the candidate list is
// empty but the call still succeeds.
func (s *ServiceImpl) ReplacePOI(ctx context.Context, req types.ReplacePOIRequest) (*types.ReplacePOIResponse, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "ReplacePOI", trace.WithAttributes(
		attribute.String("request.user_id", req.UserID),
		attribute.Int("request.route_id", req.RouteID),
		attribute.String("request.poi_id", req.PoiIDToReplace),
	))
	defer span.End()
	metrics.Get().ReplacementRequestsTotal.Add(ctx, 1)

	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrMissingUserID
	}
	var at *time.Time
	if strings.TrimSpace(req.CurrentTime) != "" {
		t, err := types.ParseDateTime(req.CurrentTime)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%w: %v", semantic.ErrInvalidDateTime, err)
		}
		at = &t
	}

	entry, route, slot, err := s.loadRouteSlot(ctx, req.UserID, req.RouteID, req.PoiIDToReplace)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	category := route.Pois[slot].Category

	inRoute := make(map[string]struct{}, len(route.Pois))
	for _, p := range route.Pois {
		inRoute[p.PoiID] = struct{}{}
	}

	pool := candidatePool(entry.AvailablePOIsByCategory[category], inRoute, entry.ReplacedPOIsByCategory[category])
	if len(pool) == 0 {
		// Every alternative has been offered before; recycle the
		// offered set so the user can cycle through them again.
		s.logger.InfoContext(ctx, "Replacement pool exhausted, recycling offered set",
			slog.String("user_id", req.UserID), slog.String("category", category))
		delete(entry.ReplacedPOIsByCategory, category)
		pool = candidatePool(entry.AvailablePOIsByCategory[category], inRoute, nil)
	}

	resp := &types.ReplacePOIResponse{
		Status:     "success",
		RouteID:    req.RouteID,
		Category:   category,
		Candidates: []types.ReplacementCandidate{},
	}
	if len(pool) == 0 {
		if err := s.cache.Save(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "Failed to persist route cache entry",
				slog.String("user_id", req.UserID), slog.Any("error", err))
		}
		span.SetStatus(codes.Ok, "no candidates")
		return resp, nil
	}

	// Pool order inherits the shortlist's (-similarity, id) order, so
	// taking the first acceptable candidates keeps the best matches.
	candidates, err := s.poiInfoService.GetPOIsByIDs(ctx, pool)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to hydrate replacement candidates: %w", err)
	}

	anchors, err := s.slotNeighbors(ctx, route, slot)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	mode := types.TransportMode(entry.TransportationMode)

	for _, candidate := range candidates {
		if at != nil && !planner.IsOpenAt(candidate.Hours, *at) {
			continue
		}
		resp.Candidates = append(resp.Candidates, annotateCandidate(candidate, anchors, mode, at))
		if len(resp.Candidates) == maxReplacementCandidates {
			break
		}
	}

	if len(resp.Candidates) > 0 {
		if entry.ReplacedPOIsByCategory == nil {
			entry.ReplacedPOIsByCategory = make(map[string][]string)
		}
		for _, c := range resp.Candidates {
			entry.ReplacedPOIsByCategory[category] = append(entry.ReplacedPOIsByCategory[category], c.ID.String())
		}
	}
	if err := s.cache.Save(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist route cache entry",
			slog.String("user_id", req.UserID), slog.Any("error", err))
	}

	s.logger.InfoContext(ctx, "Replacement candidates offered",
		slog.String("user_id", req.UserID),
		slog.String("category", category),
		slog.Int("candidates", len(resp.Candidates)))
	span.SetStatus(codes.Ok, "candidates offered")
	return resp, nil
}

// ConfirmReplacePOI rewrites the slot holding old_poi_id to new_poi_id under
// the slot's original category and blocks the new POI from being offered
// again.
func (s *ServiceImpl) ConfirmReplacePOI(ctx context.Context, req types.ConfirmReplacePOIRequest) (*types.ConfirmReplacePOIResponse, error) {
	ctx, span := otel.Tracer("RouteService").Start(ctx, "ConfirmReplacePOI", trace.WithAttributes(
		attribute.String("request.user_id", req.UserID),
		attribute.Int("request.route_id", req.RouteID),
	))
	defer span.End()

	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrMissingUserID
	}
	if _, err := uuid.Parse(req.NewPoiID); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPOIID, req.NewPoiID)
	}

	entry, route, slot, err := s.loadRouteSlot(ctx, req.UserID, req.RouteID, req.OldPoiID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	category := route.Pois[slot].Category
	route.Pois[slot] = types.CachedRoutePOI{PoiID: req.NewPoiID, Category: category}
	entry.Routes[strconv.Itoa(req.RouteID)] = route
	if entry.ReplacedPOIsByCategory == nil {
		entry.ReplacedPOIsByCategory = make(map[string][]string)
	}
	entry.ReplacedPOIsByCategory[category] = append(entry.ReplacedPOIsByCategory[category], req.NewPoiID)

	if err := s.cache.Save(ctx, entry); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "POI replacement confirmed",
		slog.String("user_id", req.UserID),
		slog.Int("route_id", req.RouteID),
		slog.String("old_poi_id", req.OldPoiID),
		slog.String("new_poi_id", req.NewPoiID))
	span.SetStatus(codes.Ok, "replacement confirmed")
	return &types.ConfirmReplacePOIResponse{
		Status:  "success",
		RouteID: req.RouteID,
		Pois:    route.Pois,
	}, nil
}

// loadRouteSlot resolves the cached entry, the route and the slot index of
// poiID within it.
func (s *ServiceImpl) loadRouteSlot(ctx context.Context, userID string, routeID int, poiID string) (*types.RouteCacheEntry, types.CachedRoute, int, error) {
	entry, err := s.cache.Get(ctx, userID)
	if err != nil {
		return nil, types.CachedRoute{}, 0, err
	}
	if entry == nil {
		return nil, types.CachedRoute{}, 0, fmt.Errorf("%w: %s", ErrNoCachedRoutes, userID)
	}
	route, ok := entry.Routes[strconv.Itoa(routeID)]
	if !ok {
		return nil, types.CachedRoute{}, 0, fmt.Errorf("%w: %d", ErrUnknownRouteID, routeID)
	}
	for i, p := range route.Pois {
		if p.PoiID == poiID {
			return entry, route, i, nil
		}
	}
	return nil, types.CachedRoute{}, 0, fmt.Errorf("%w: %s", ErrPOINotInRoute, poiID)
}

// slotAnchors carries the hydrated POIs surrounding a replacement slot. The
// anchor is the preceding neighbor, or the following one when the slot is
// first in the route.
type slotAnchors struct {
	replaced *types.POI
	prev     *types.POI
	next     *types.POI
}

func (a slotAnchors) anchor() *types.POI {
	if a.prev != nil {
		return a.prev
	}
	return a.next
}

func (s *ServiceImpl) slotNeighbors(ctx context.Context, route types.CachedRoute, slot int) (slotAnchors, error) {
	ids := []string{route.Pois[slot].PoiID}
	if slot > 0 {
		ids = append(ids, route.Pois[slot-1].PoiID)
	}
	if slot < len(route.Pois)-1 {
		ids = append(ids, route.Pois[slot+1].PoiID)
	}

	pois, err := s.poiInfoService.GetPOIsByIDs(ctx, ids)
	if err != nil {
		return slotAnchors{}, fmt.Errorf("failed to hydrate route neighbors: %w", err)
	}
	byID := make(map[string]*types.POI, len(pois))
	for i := range pois {
		byID[pois[i].ID.String()] = &pois[i]
	}

	anchors := slotAnchors{replaced: byID[route.Pois[slot].PoiID]}
	if slot > 0 {
		anchors.prev = byID[route.Pois[slot-1].PoiID]
	}
	if slot < len(route.Pois)-1 {
		anchors.next = byID[route.Pois[slot+1].PoiID]
	}
	return anchors, nil
}

// annotateCandidate attaches the travel and distance deltas of swapping the
// candidate into the slot, plus the projected arrival and that day's hours
// when the caller supplied a clock.
func annotateCandidate(candidate types.POI, anchors slotAnchors, mode types.TransportMode, at *time.Time) types.ReplacementCandidate {
	rc := types.ReplacementCandidate{POI: candidate}

	anchor := anchors.anchor()
	if anchor != nil && anchors.replaced != nil {
		oldLeg := travelMinutes(*anchor, *anchors.replaced, mode)
		newLeg := travelMinutes(*anchor, candidate, mode)
		rc.TravelTimeDeltaMinutes = math.Round((newLeg-oldLeg)*10) / 10
	}

	if anchors.replaced != nil {
		var delta float64
		for _, n := range []*types.POI{anchors.prev, anchors.next} {
			if n == nil {
				continue
			}
			delta += distanceKm(candidate, *n) - distanceKm(*anchors.replaced, *n)
		}
		rc.DistanceDeltaKm = math.Round(delta*100) / 100
	}

	if at != nil {
		arrival := *at
		if anchor != nil {
			arrival = at.Add(time.Duration(travelMinutes(*anchor, candidate, mode) * float64(time.Minute)))
		}
		rc.ProjectedArrival = arrival.Format("2006-01-02 15:04:05")
		rc.OpenHoursToday = planner.HoursForDay(candidate.Hours, arrival)
	}
	return rc
}

// candidatePool filters the category's available ids down to those neither
// in the route nor already offered, preserving order.
func candidatePool(available []string, inRoute map[string]struct{}, replaced []string) []string {
	offered := make(map[string]struct{}, len(replaced))
	for _, id := range replaced {
		offered[id] = struct{}{}
	}

	pool := make([]string, 0, len(available))
	for _, id := range available {
		if _, ok := inRoute[id]; ok {
			continue
		}
		if _, ok := offered[id]; ok {
			continue
		}
		pool = append(pool, id)
	}
	return pool
}

func distanceKm(a, b types.POI) float64 {
	return planner.Haversine(orb.Point{a.Longitude, a.Latitude}, orb.Point{b.Longitude, b.Latitude})
}

func travelMinutes(a, b types.POI, mode types.TransportMode) float64 {
	return distanceKm(a, b) / mode.SpeedKmh() * 60
}
