package planner

import (
	"time"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

const (
	// DefaultStayTimeMinutes is assumed for POIs without a curated stay time.
	DefaultStayTimeMinutes = 30.0

	// DefaultRating substitutes for POIs with no normalized popularity score.
	DefaultRating = 0.5

	// defaultBearingScore is the neutral bearing contribution used when
	// there is no previous leg to compare against.
	defaultBearingScore = 0.5

	// lastPOIBudgetFraction stops duration-mode middle selection once the
	// remaining budget falls under this share of the total.
	lastPOIBudgetFraction = 0.3

	// minMealOverlapMinutes is how much of a meal window the outing must
	// cover before a restaurant stop is forced into the route.
	minMealOverlapMinutes = 60.0
)

// Category labels fixed by the shortlist vocabulary. "Cafe" and
// "Cafe & Bakery" are distinct: the former only enters routes through the
// cafe sequence, the latter counts as a meal substitute.
const (
	categoryRestaurant = "Restaurant"
	categoryCafe       = "Cafe"
	categoryCafeBakery = "Cafe & Bakery"
)

// scoreWeights are the combined-score coefficients for one selection stage.
type scoreWeights struct {
	distance   float64
	similarity float64
	rating     float64
	bearing    float64
}

var (
	firstPOIWeights = scoreWeights{distance: 0.5, similarity: 0.1, rating: 0.4}
	lastPOIWeights  = scoreWeights{distance: 0.6, similarity: 0.1, rating: 0.3}

	// middlePOIWeights applies in straight-line (zigzag) mode, where a small
	// bearing change scores best. middlePOICircularWeights applies when
	// circular routing is enabled and shifts weight onto the bearing term,
	// which then peaks at 90-degree turns.
	middlePOIWeights         = scoreWeights{distance: 0.4, similarity: 0.1, rating: 0.25, bearing: 0.25}
	middlePOICircularWeights = scoreWeights{distance: 0.3, similarity: 0.1, rating: 0.2, bearing: 0.4}
)

// lastPOIRadiusSteps are the fractions of the user's max radius tried in
// order when hunting for a final stop close to the return point.
var lastPOIRadiusSteps = []float64{0.2, 0.4, 0.6, 0.8, 1.0}

// foodCleanTypes are the cleaned POI types subject to the consecutive
// food-duplicate rule.
var foodCleanTypes = map[string]struct{}{
	"Restaurant":    {},
	"Bar":           {},
	"Cafe & Bakery": {},
}

// Options configures one planning request.
type Options struct {
	// Mode determines the travel speed used for every leg.
	Mode types.TransportMode

	// MaxTimeMinutes is the total outing budget, including the return leg.
	MaxTimeMinutes float64

	// TargetPlaces fixes the number of stops in target mode. Ignored when
	// DurationMode is set.
	TargetPlaces int

	// MaxRoutes caps how many distinct routes are returned.
	MaxRoutes int

	// Start anchors opening-hours checks and meal windows. When nil, hours
	// and meals are not considered.
	Start *time.Time

	// DurationMode keeps adding stops until 30% of the budget remains,
	// instead of targeting a fixed count.
	DurationMode bool

	// CircularRouting prefers 90-degree turns between legs over straight
	// continuation.
	CircularRouting bool

	// CafeSequencing forces a Cafe stop after every two non-break stops.
	// Meal insertion takes precedence while a meal window is open.
	CafeSequencing bool
}

func (o Options) targetPlaces() int {
	if o.TargetPlaces > 0 {
		return o.TargetPlaces
	}
	return types.DefaultTargetPlaces
}

func (o Options) maxRoutes() int {
	if o.MaxRoutes > 0 {
		return o.MaxRoutes
	}
	return types.DefaultMaxRoutes
}

func (o Options) budget() float64 {
	if o.MaxTimeMinutes > 0 {
		return o.MaxTimeMinutes
	}
	return types.DefaultMaxTimeMinutes
}

func (o Options) middleWeights() scoreWeights {
	if o.CircularRouting {
		return middlePOICircularWeights
	}
	return middlePOIWeights
}
