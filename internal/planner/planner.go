// Package planner builds greedy sightseeing routes over a semantically
// scored POI shortlist. Selection runs in three stages (first stop, middle
// stops, final stop near the user) under a shared time budget, with
// restaurant stops forced into overlapping meal windows and opening hours
// validated at every projected arrival.
//
// The planner is pure CPU work over in-memory inputs; callers that need to
// keep request latency flat should run it on a worker pool.
package planner

import (
	"log/slog"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// Planner plans one request's routes. Construct with New per request since
// Options carry per-request parameters.
type Planner struct {
	opts   Options
	logger *slog.Logger
}

func New(opts Options, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{opts: opts, logger: logger}
}

// BuildRoutes plans up to MaxRoutes distinct routes. The first route seeds
// from the best-scoring first stop; alternates re-run the build from the
// next-ranked seeds and are kept only when at least two of their POIs do not
// appear in any already-accepted route. Routes after the first are ordered
// by total score. The shortlist order is significant: it is the planner's
// final tie-breaker, so callers must pass it sorted by (-similarity, id).
func (p *Planner) BuildRoutes(user orb.Point, places []types.POI) []types.Route {
	if len(places) == 0 {
		return []types.Route{}
	}

	b := &builder{
		opts:   p.opts,
		logger: p.logger,
		user:   user,
		places: places,
		budget: p.opts.budget(),
	}
	b.matrix = DistanceMatrix(user, places)
	b.maxDistance = matrixMax(b.matrix)
	b.maxRadius = userMaxRadius(b.matrix)

	routes := make([]types.Route, 0, p.opts.maxRoutes())
	var orders [][]int

	first, firstOrder, ok := b.buildOne(-1)
	if !ok {
		p.logger.Debug("no feasible route for shortlist",
			slog.Int("shortlist_size", len(places)),
			slog.Float64("budget_minutes", b.budget))
		return []types.Route{}
	}
	routes = append(routes, first)
	orders = append(orders, firstOrder)

	maxRoutes := p.opts.maxRoutes()
	if maxRoutes > 1 {
		seeds := b.rankFirstCandidates()
		tryN := min(len(seeds), max(10, maxRoutes*3))

		for _, seed := range seeds[:tryN] {
			if len(routes) >= maxRoutes {
				break
			}
			if seed == firstOrder[0] {
				continue
			}
			route, order, ok := b.buildOne(seed)
			if !ok {
				continue
			}
			if !distinctEnough(order, orders) {
				continue
			}
			routes = append(routes, route)
			orders = append(orders, order)
		}
	}

	if len(routes) > 1 {
		rest := routes[1:]
		sort.SliceStable(rest, func(i, j int) bool {
			return rest[i].TotalScore > rest[j].TotalScore
		})
	}
	for i := range routes {
		routes[i].RouteID = i + 1
	}

	if p.opts.Start != nil {
		for i := range routes {
			attachArrivals(&routes[i], *p.opts.Start)
		}
	}

	p.logger.Debug("route planning finished",
		slog.Int("routes", len(routes)),
		slog.Int("shortlist_size", len(places)))
	return routes
}

// rankFirstCandidates orders every shortlist index by its first-stop score
// from the user's position, best first.
func (b *builder) rankFirstCandidates() []int {
	scored := make([]scoredCandidate, len(b.places))
	for i := range b.places {
		scored[i] = scoredCandidate{index: i, score: b.combinedScore(i, 0, true, false, nil)}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})

	out := make([]int, len(scored))
	for i, s := range scored {
		out[i] = s.index
	}
	return out
}

// distinctEnough requires the candidate order to contribute at least two
// POIs absent from each accepted route, so near-duplicate routes are not
// returned.
func distinctEnough(order []int, accepted [][]int) bool {
	candidate := make(map[int]struct{}, len(order))
	for _, idx := range order {
		candidate[idx] = struct{}{}
	}
	for _, prev := range accepted {
		prevSet := make(map[int]struct{}, len(prev))
		for _, idx := range prev {
			prevSet[idx] = struct{}{}
		}
		fresh := 0
		for idx := range candidate {
			if _, ok := prevSet[idx]; !ok {
				fresh++
			}
		}
		if fresh < 2 {
			return false
		}
	}
	return true
}

// attachArrivals rolls the clock through the route and stamps each stop with
// its arrival time and that day's opening hours.
func attachArrivals(route *types.Route, start time.Time) {
	cursor := start
	for i := range route.Places {
		place := &route.Places[i]
		arrival := addMinutes(cursor, place.TravelTimeMinutes)
		place.ArrivalTime = arrival.Format("2006-01-02 15:04:05")
		place.OpenHoursToday = HoursForDay(place.OpenHours, arrival)
		cursor = addMinutes(arrival, place.StayTimeMinutes)
	}
}
