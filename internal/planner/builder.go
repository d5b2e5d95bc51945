package planner

import (
	"log/slog"
	"math"

	"github.com/paulmach/orb"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// builder carries the shared inputs of one planning request: the shortlist,
// its distance matrix and the derived normalization bounds. One builder
// serves every seed attempt of a multi-route request.
type builder struct {
	opts        Options
	logger      *slog.Logger
	user        orb.Point
	places      []types.POI
	matrix      [][]float64
	maxDistance float64
	maxRadius   float64
	budget      float64
}

// routeState is the mutable state of a single route under construction.
// currentPos is a matrix position: 0 is the user, i+1 is places[i].
type routeState struct {
	meal        mealPlan
	order       []int
	visited     []bool
	categorySeq []string
	currentPos  int
	totalTravel float64
	totalStay   float64
	prevBearing float64
	lunchDone   bool
	dinnerDone  bool
	cafeCounter int
}

func (b *builder) travelTime(distanceKm float64) float64 {
	return distanceKm / b.opts.Mode.SpeedKmh() * 60
}

// buildOne constructs a single route. seed forces the first stop; pass -1 to
// select it automatically. The returned order holds shortlist indices for
// distinctness checks across seeds.
func (b *builder) buildOne(seed int) (types.Route, []int, bool) {
	if len(b.places) == 0 {
		return types.Route{}, nil, false
	}
	target := b.opts.targetPlaces()
	if !b.opts.DurationMode && target > len(b.places) {
		return types.Route{}, nil, false
	}
	if !hasCategoryDepth(b.places) {
		b.logger.Debug("shortlist too thin per category to alternate")
		return types.Route{}, nil, false
	}

	meal := analyzeMealRequirements(b.places, b.opts.Start, b.budget)
	if meal.insertRestaurant {
		b.logger.Debug("meal window overlap detected",
			slog.Bool("lunch", meal.needLunch),
			slog.Bool("dinner", meal.needDinner))
	}

	first, ok := b.selectFirst(seed, meal)
	if !ok {
		return types.Route{}, nil, false
	}

	st := &routeState{
		meal:       meal,
		order:      []int{first},
		visited:    make([]bool, len(b.places)),
		currentPos: first + 1,
	}
	st.visited[first] = true
	st.totalTravel = b.travelTime(b.matrix[0][first+1])
	st.totalStay = stayTime(b.places[first])
	st.prevBearing = Bearing(b.user, pointOf(b.places[first]))
	if cat := b.places[first].Category; cat != "" {
		st.categorySeq = append(st.categorySeq, cat)
	}
	b.firstMealStatus(st, first)

	if b.opts.DurationMode {
		b.extendByDuration(st)
	} else {
		b.extendToTarget(st, target)
	}

	if last, ok := b.selectLast(st); ok {
		st.order = append(st.order, last)
		st.visited[last] = true
		st.totalTravel += b.travelTime(b.matrix[st.currentPos][last+1])
		st.totalStay += stayTime(b.places[last])
		st.currentPos = last + 1
	}

	st.totalTravel += b.travelTime(b.matrix[st.currentPos][0])
	if st.totalTravel+st.totalStay > b.budget {
		return types.Route{}, nil, false
	}
	return b.formatRoute(st), st.order, true
}

// hasCategoryDepth requires at least one category with two or more POIs, the
// minimum for alternation to produce movement. Shortlists without any
// category labels are exempt.
func hasCategoryDepth(places []types.POI) bool {
	counts := make(map[string]int)
	for _, p := range places {
		if p.Category != "" {
			counts[p.Category]++
		}
	}
	if len(counts) == 0 {
		return true
	}
	for _, n := range counts {
		if n > 1 {
			return true
		}
	}
	return false
}

// selectFirst scores every candidate from the user's position. While a meal
// window is already open at departure only restaurants qualify; when one
// merely lies ahead restaurants are held back for it.
func (b *builder) selectFirst(seed int, meal mealPlan) (int, bool) {
	if seed >= 0 {
		return seed, true
	}

	forceRestaurant := false
	if meal.insertRestaurant && b.opts.Start != nil {
		forceRestaurant = meal.pendingMealAt(*b.opts.Start, false, false) != mealNone
	}

	best := -1
	bestScore := math.Inf(-1)
	for i, place := range b.places {
		if b.opts.Start != nil {
			arrival := addMinutes(*b.opts.Start, b.travelTime(b.matrix[0][i+1]))
			if !availableAt(place, &arrival) {
				continue
			}
		}
		if meal.insertRestaurant {
			if forceRestaurant != (place.Category == categoryRestaurant) {
				continue
			}
		}
		score := b.combinedScore(i, 0, true, false, nil)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best, best >= 0
}

// firstMealStatus credits the first stop against the meal accounting when it
// is a restaurant reached inside a needed window, and arms the cafe counter.
func (b *builder) firstMealStatus(st *routeState, first int) {
	cat := b.places[first].Category
	if cat != categoryRestaurant && cat != categoryCafe {
		st.cafeCounter = 1
	}
	if !st.meal.insertRestaurant || cat != categoryRestaurant || b.opts.Start == nil {
		return
	}
	arrival := addMinutes(*b.opts.Start, b.travelTime(b.matrix[0][first+1]))
	st.lunchDone, st.dinnerDone = st.meal.windowsContaining(arrival)
}

// extendToTarget fills the middle slots of a fixed-size route, leaving one
// slot for the final stop.
func (b *builder) extendToTarget(st *routeState, target int) {
	for step := 0; step < target-2; step++ {
		pick, ok := b.selectMiddle(st)
		if !ok {
			break
		}
		b.applyPick(st, pick)
	}
}

// extendByDuration keeps adding stops until less than 30% of the budget
// remains, then hands over to last-stop selection. The iteration cap guards
// against a stall when every pick is rejected.
func (b *builder) extendByDuration(st *routeState) {
	for iteration := 0; iteration < len(b.places); iteration++ {
		remaining := b.budget - (st.totalTravel + st.totalStay)
		if remaining < b.budget*lastPOIBudgetFraction {
			break
		}
		pick, ok := b.selectMiddle(st)
		if !ok {
			break
		}
		b.applyPick(st, pick)
	}
}

// applyPick commits a middle selection: meal accounting, visit order, the
// category sequence driving alternation, the cafe counter, timing totals and
// the bearing of the new leg.
func (b *builder) applyPick(st *routeState, pick middlePick) {
	place := b.places[pick.index]

	switch pick.meal {
	case mealLunch:
		st.lunchDone = true
		b.logger.Debug("restaurant slotted for lunch", slog.String("poi", place.Name))
	case mealDinner:
		st.dinnerDone = true
		b.logger.Debug("restaurant slotted for dinner", slog.String("poi", place.Name))
	}

	prev := st.order[len(st.order)-1]
	st.order = append(st.order, pick.index)
	st.visited[pick.index] = true

	if place.Category != "" {
		st.categorySeq = append(st.categorySeq, place.Category)
		if b.opts.CafeSequencing {
			if pick.resetCafe {
				st.cafeCounter = 0
			} else {
				st.cafeCounter++
			}
		}
	}

	st.totalTravel += b.travelTime(b.matrix[st.currentPos][pick.index+1])
	st.totalStay += stayTime(place)
	st.prevBearing = Bearing(pointOf(b.places[prev]), pointOf(place))
	st.currentPos = pick.index + 1
}

// selectLast hunts for a final stop close to the user, widening the search
// radius stepwise. Restaurants are only admitted when they land inside an
// unfilled needed meal window.
func (b *builder) selectLast(st *routeState) (int, bool) {
	for _, frac := range lastPOIRadiusSteps {
		threshold := frac * b.maxRadius

		best := -1
		bestScore := math.Inf(-1)
		for i, place := range b.places {
			if st.visited[i] {
				continue
			}

			if st.meal.insertRestaurant && place.Category == categoryRestaurant && b.opts.Start != nil {
				arrival := addMinutes(*b.opts.Start,
					st.totalTravel+st.totalStay+b.travelTime(b.matrix[st.currentPos][i+1]))
				inLunch, inDinner := st.meal.windowsContaining(arrival)
				if (inLunch && st.lunchDone) || (inDinner && st.dinnerDone) {
					continue
				}
				if !inLunch && !inDinner {
					continue
				}
			}

			distToUser := b.matrix[i+1][0]
			if distToUser > threshold {
				continue
			}

			if b.opts.Start != nil {
				arrival := addMinutes(*b.opts.Start,
					st.totalTravel+st.totalStay+b.travelTime(b.matrix[st.currentPos][i+1]))
				if !availableAt(place, &arrival) {
					continue
				}
			}

			tempTravel := st.totalTravel + b.travelTime(b.matrix[st.currentPos][i+1])
			tempStay := st.totalStay + stayTime(place)
			returnTime := b.travelTime(distToUser)
			if tempTravel+tempStay+returnTime > b.budget {
				continue
			}

			score := b.combinedScore(i, st.currentPos, false, true, nil)
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best >= 0 {
			return best, true
		}
	}
	return -1, false
}

// formatRoute renders the finished visit order into the response shape. The
// totals already include the return leg; per-stop combined scores are
// recomputed with the stop's final position in the route.
func (b *builder) formatRoute(st *routeState) types.Route {
	routePlaces := make([]types.RoutePlace, 0, len(st.order))
	prevPos := 0
	rawScore := 0.0

	for i, idx := range st.order {
		place := b.places[idx]
		travel := b.travelTime(b.matrix[prevPos][idx+1])
		isFirst := i == 0
		isLast := i == len(st.order)-1
		combined := b.combinedScore(idx, prevPos, isFirst, isLast, nil)
		rawScore += place.Similarity

		routePlaces = append(routePlaces, types.RoutePlace{
			PlaceID:           place.ID.String(),
			Name:              place.Name,
			Category:          place.Category,
			PoiType:           place.PoiType,
			PoiTypeClean:      strOrEmpty(place.PoiTypeClean),
			MainSubcategory:   strOrEmpty(place.MainSubcategory),
			Specialization:    strOrEmpty(place.Specialization),
			Address:           place.Address,
			Latitude:          place.Latitude,
			Longitude:         place.Longitude,
			Similarity:        round3(place.Similarity),
			Rating:            round3(ratingOf(place)),
			CombinedScore:     round3(combined),
			TravelTimeMinutes: round1(travel),
			StayTimeMinutes:   stayTime(place),
			OpenHours:         place.Hours,
		})
		prevPos = idx + 1
	}

	totalTime := st.totalTravel + st.totalStay
	route := types.Route{
		Places:            routePlaces,
		TotalTimeMinutes:  round1(totalTime),
		TravelTimeMinutes: round1(st.totalTravel),
		StayTimeMinutes:   round1(st.totalStay),
		TotalScore:        round2(rawScore),
		AvgScore:          round2(rawScore / float64(len(st.order))),
	}
	if totalTime > 0 {
		route.Efficiency = round2(rawScore / totalTime * 100)
	}
	return route
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
