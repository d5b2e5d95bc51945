package planner

import (
	"sort"
	"time"
)

// middlePick is the outcome of one middle-slot selection. meal names the
// window the pick satisfies; resetCafe tells the caller the stop counts as a
// break in the cafe sequence.
type middlePick struct {
	index     int
	meal      mealType
	resetCafe bool
}

// selectMiddle picks the next middle stop. Priority order: an unfilled meal
// window forces a Restaurant, then the cafe sequence forces a Cafe, then
// category alternation applies. Candidates must clear the food-duplicate
// rule, opening hours at the projected arrival, and the remaining budget
// including an estimated return leg. When no candidate matches the required
// category, a fallback pass drops that constraint.
func (b *builder) selectMiddle(st *routeState) (middlePick, bool) {
	var arrivalAtNext *time.Time
	if b.opts.Start != nil {
		t := addMinutes(*b.opts.Start, st.totalTravel+st.totalStay)
		arrivalAtNext = &t
	}

	targetMeal := mealNone
	if arrivalAtNext != nil {
		targetMeal = st.meal.pendingMealAt(*arrivalAtNext, st.lunchDone, st.dinnerDone)
	}

	requiredCategory := ""
	excludeRestaurant := st.meal.insertRestaurant

	if targetMeal != mealNone {
		if b.hasUnvisitedRestaurant(st) {
			requiredCategory = categoryRestaurant
			excludeRestaurant = false
		}
	} else if st.meal.insertRestaurant && st.lunchDone && st.dinnerDone {
		excludeRestaurant = true
	}

	// Cafe sequencing yields to an open meal window.
	if b.opts.CafeSequencing && requiredCategory == "" {
		inMealWindow := targetMeal != mealNone
		if !inMealWindow && st.cafeCounter >= 2 {
			requiredCategory = categoryCafe
			excludeRestaurant = false
		}
	}

	alternation := st.meal.categories
	if b.opts.CafeSequencing {
		alternation = withoutCafe(alternation)
	}

	if requiredCategory == "" && len(st.categorySeq) > 0 && len(alternation) > 0 {
		requiredCategory = nextCategory(alternation, st.categorySeq[len(st.categorySeq)-1])
	}

	candidates := b.middleCandidates(st, requiredCategory, excludeRestaurant, false)
	if len(candidates) == 0 && requiredCategory != "" {
		candidates = b.middleCandidates(st, "", excludeRestaurant, true)
		targetMeal = mealNone
	}
	if len(candidates) == 0 {
		return middlePick{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].index < candidates[j].index
	})

	best := candidates[0].index
	cat := b.places[best].Category
	return middlePick{
		index:     best,
		meal:      targetMeal,
		resetCafe: cat == categoryRestaurant || cat == categoryCafe,
	}, true
}

type scoredCandidate struct {
	index int
	score float64
}

// middleCandidates filters and scores the unvisited places for a middle
// slot. fallback relaxes the category requirement but still keeps Cafe stops
// out of turn while the cafe sequence is armed.
func (b *builder) middleCandidates(st *routeState, requiredCategory string, excludeRestaurant, fallback bool) []scoredCandidate {
	lastAdded := b.places[st.order[len(st.order)-1]]

	var candidates []scoredCandidate
	for i, place := range b.places {
		if st.visited[i] {
			continue
		}
		if excludeRestaurant && place.Category == categoryRestaurant {
			continue
		}
		if requiredCategory != "" {
			if requiredCategory == categoryCafe {
				if place.Category != categoryCafe {
					continue
				}
			} else if place.Category != requiredCategory {
				continue
			}
		}
		if fallback && b.opts.CafeSequencing && place.Category == categoryCafe && st.cafeCounter < 2 {
			continue
		}
		if sameFoodType(lastAdded, place) {
			continue
		}

		travelTo := b.travelTime(b.matrix[st.currentPos][i+1])
		if b.opts.Start != nil {
			arrival := addMinutes(*b.opts.Start, st.totalTravel+st.totalStay+travelTo)
			if !availableAt(place, &arrival) {
				continue
			}
		}

		tempTravel := st.totalTravel + travelTo
		tempStay := st.totalStay + stayTime(place)
		estimatedReturn := b.travelTime(b.matrix[i+1][0])
		if tempTravel+tempStay+estimatedReturn > b.budget {
			continue
		}

		score := b.combinedScore(i, st.currentPos, false, false, &st.prevBearing)
		candidates = append(candidates, scoredCandidate{index: i, score: score})
	}
	return candidates
}

func (b *builder) hasUnvisitedRestaurant(st *routeState) bool {
	for i, place := range b.places {
		if !st.visited[i] && place.Category == categoryRestaurant {
			return true
		}
	}
	return false
}

// nextCategory returns the entry after last in the cyclic alternation list,
// or the first entry when last is not present.
func nextCategory(alternation []string, last string) string {
	for i, c := range alternation {
		if c == last {
			return alternation[(i+1)%len(alternation)]
		}
	}
	return alternation[0]
}

func withoutCafe(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		if c != categoryCafe {
			out = append(out, c)
		}
	}
	return out
}
