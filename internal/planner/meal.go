package planner

import (
	"time"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// Meal windows are anchored to the outing's start date.
const (
	lunchStartHour  = 11
	lunchEndHour    = 14
	dinnerStartHour = 17
	dinnerEndHour   = 20
)

type mealType string

const (
	mealNone   mealType = ""
	mealLunch  mealType = "lunch"
	mealDinner mealType = "dinner"
)

// timeWindow is a closed interval of wall-clock time.
type timeWindow struct {
	start time.Time
	end   time.Time
}

func (w timeWindow) contains(t time.Time) bool {
	return !t.Before(w.start) && !t.After(w.end)
}

// overlapMinutes returns how many minutes of [start, end] fall inside the
// window.
func (w timeWindow) overlapMinutes(start, end time.Time) float64 {
	overlapStart := start
	if w.start.After(overlapStart) {
		overlapStart = w.start
	}
	overlapEnd := end
	if w.end.Before(overlapEnd) {
		overlapEnd = w.end
	}
	if !overlapStart.Before(overlapEnd) {
		return 0
	}
	return overlapEnd.Sub(overlapStart).Minutes()
}

func lunchWindowOn(day time.Time) timeWindow {
	base := startOfDay(day)
	return timeWindow{
		start: addMinutes(base, lunchStartHour*60),
		end:   addMinutes(base, lunchEndHour*60),
	}
}

func dinnerWindowOn(day time.Time) timeWindow {
	base := startOfDay(day)
	return timeWindow{
		start: addMinutes(base, dinnerStartHour*60),
		end:   addMinutes(base, dinnerEndHour*60),
	}
}

// MealOverlap describes how an outing window intersects the lunch and dinner
// windows of its starting day.
type MealOverlap struct {
	LunchOverlapMinutes  float64
	DinnerOverlapMinutes float64
	NeedsRestaurant      bool
}

// CheckMealOverlap measures the outing [start, start+budget] against the
// lunch (11:00-14:00) and dinner (17:00-20:00) windows. A restaurant stop is
// needed once either overlap reaches a full hour.
func CheckMealOverlap(start time.Time, budgetMinutes float64) MealOverlap {
	end := addMinutes(start, budgetMinutes)
	lunch := lunchWindowOn(start).overlapMinutes(start, end)
	dinner := dinnerWindowOn(start).overlapMinutes(start, end)
	return MealOverlap{
		LunchOverlapMinutes:  lunch,
		DinnerOverlapMinutes: dinner,
		NeedsRestaurant:      lunch >= minMealOverlapMinutes || dinner >= minMealOverlapMinutes,
	}
}

// mealPlan is the per-build meal state derived from the shortlist and the
// outing window.
type mealPlan struct {
	categories []string

	insertRestaurant bool
	needLunch        bool
	needDinner       bool
	lunchWindow      *timeWindow
	dinnerWindow     *timeWindow
}

// analyzeMealRequirements derives the ordered unique category list and
// decides whether restaurant stops must be forced into meal windows. The
// forcing only engages when the shortlist offers restaurants but no
// Cafe & Bakery picks, which would otherwise cover the meal.
func analyzeMealRequirements(places []types.POI, start *time.Time, budgetMinutes float64) mealPlan {
	plan := mealPlan{}

	seen := make(map[string]struct{})
	hasCafeBakery := false
	hasRestaurant := false
	for _, p := range places {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			plan.categories = append(plan.categories, p.Category)
		}
		switch p.Category {
		case categoryCafeBakery:
			hasCafeBakery = true
		case categoryRestaurant:
			hasRestaurant = true
		}
	}

	if hasCafeBakery || !hasRestaurant || start == nil || budgetMinutes <= 0 {
		return plan
	}

	overlap := CheckMealOverlap(*start, budgetMinutes)
	if !overlap.NeedsRestaurant {
		return plan
	}

	plan.insertRestaurant = true
	plan.needLunch = overlap.LunchOverlapMinutes >= minMealOverlapMinutes
	plan.needDinner = overlap.DinnerOverlapMinutes >= minMealOverlapMinutes
	if plan.needLunch {
		w := lunchWindowOn(*start)
		plan.lunchWindow = &w
	}
	if plan.needDinner {
		w := dinnerWindowOn(*start)
		plan.dinnerWindow = &w
	}
	return plan
}

// pendingMealAt returns which unfilled meal window contains the instant, with
// lunch taking precedence.
func (m mealPlan) pendingMealAt(t time.Time, lunchDone, dinnerDone bool) mealType {
	if m.needLunch && !lunchDone && m.lunchWindow != nil && m.lunchWindow.contains(t) {
		return mealLunch
	}
	if m.needDinner && !dinnerDone && m.dinnerWindow != nil && m.dinnerWindow.contains(t) {
		return mealDinner
	}
	return mealNone
}

// windowsContaining reports which meal windows contain the instant,
// regardless of fill state.
func (m mealPlan) windowsContaining(t time.Time) (inLunch, inDinner bool) {
	if m.lunchWindow != nil && m.lunchWindow.contains(t) {
		inLunch = true
	}
	if m.dinnerWindow != nil && m.dinnerWindow.contains(t) {
		inDinner = true
	}
	return inLunch, inDinner
}
