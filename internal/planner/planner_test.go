package planner

import (
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

var testUser = orb.Point{105.8542, 21.0285}

func testPOI(name, category string, lat, lon, similarity, rating float64) types.POI {
	return types.POI{
		ID:         uuid.New(),
		Name:       name,
		Latitude:   lat,
		Longitude:  lon,
		Category:   category,
		Similarity: similarity,
		Rating:     rating,
		StayTime:   30,
	}
}

// mixedShortlist spreads two categories around the user within a couple of
// kilometers.
func mixedShortlist() []types.POI {
	return []types.POI{
		testPOI("temple", "Culture & heritage", 21.0300, 105.8550, 0.90, 0.8),
		testPOI("lake park", "Nature & Parks", 21.0310, 105.8520, 0.85, 0.7),
		testPOI("old quarter house", "Culture & heritage", 21.0330, 105.8500, 0.80, 0.9),
		testPOI("botanic garden", "Nature & Parks", 21.0270, 105.8580, 0.78, 0.6),
		testPOI("citadel", "Culture & heritage", 21.0350, 105.8460, 0.75, 0.8),
		testPOI("river walk", "Nature & Parks", 21.0250, 105.8600, 0.70, 0.5),
	}
}

func poiIDs(route types.Route) map[string]struct{} {
	ids := make(map[string]struct{}, len(route.Places))
	for _, p := range route.Places {
		ids[p.PlaceID] = struct{}{}
	}
	return ids
}

func TestPlannerBuildRoutes_TargetMode(t *testing.T) {
	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 300,
		TargetPlaces:   4,
		MaxRoutes:      1,
	}, slog.Default())

	routes := p.BuildRoutes(testUser, mixedShortlist())
	require.Len(t, routes, 1)
	route := routes[0]

	assert.Equal(t, 1, route.RouteID)
	require.Len(t, route.Places, 4)

	t.Run("no repeated stops", func(t *testing.T) {
		assert.Len(t, poiIDs(route), 4)
	})

	t.Run("respects the budget including the return leg", func(t *testing.T) {
		assert.LessOrEqual(t, route.TotalTimeMinutes, 300.0)
		assert.InDelta(t, route.TravelTimeMinutes+route.StayTimeMinutes, route.TotalTimeMinutes, 0.2)
	})

	t.Run("per stop fields populated", func(t *testing.T) {
		for _, place := range route.Places {
			assert.NotEmpty(t, place.PlaceID)
			assert.NotEmpty(t, place.Name)
			assert.Greater(t, place.TravelTimeMinutes, 0.0)
			assert.Equal(t, 30.0, place.StayTimeMinutes)
			assert.Greater(t, place.CombinedScore, 0.0)
			// No starting datetime, so no arrival metadata.
			assert.Empty(t, place.ArrivalTime)
			assert.Nil(t, place.OpenHoursToday)
		}
	})

	t.Run("totals derive from similarities", func(t *testing.T) {
		raw := 0.0
		for _, place := range route.Places {
			raw += place.Similarity
		}
		assert.InDelta(t, raw, route.TotalScore, 0.05)
		assert.InDelta(t, route.TotalScore/4, route.AvgScore, 0.05)
		assert.Greater(t, route.Efficiency, 0.0)
	})
}

func TestPlannerBuildRoutes_Guards(t *testing.T) {
	t.Run("empty shortlist", func(t *testing.T) {
		p := New(Options{Mode: types.TransportModeWalking}, nil)
		assert.Empty(t, p.BuildRoutes(testUser, nil))
	})

	t.Run("target larger than shortlist", func(t *testing.T) {
		p := New(Options{
			Mode:           types.TransportModeDriving,
			MaxTimeMinutes: 300,
			TargetPlaces:   10,
			MaxRoutes:      1,
		}, nil)
		assert.Empty(t, p.BuildRoutes(testUser, mixedShortlist()))
	})

	t.Run("one poi per category cannot alternate", func(t *testing.T) {
		thin := []types.POI{
			testPOI("a", "Culture & heritage", 21.0300, 105.8550, 0.9, 0.8),
			testPOI("b", "Nature & Parks", 21.0310, 105.8520, 0.8, 0.7),
			testPOI("c", "Restaurant", 21.0320, 105.8510, 0.7, 0.6),
		}
		p := New(Options{
			Mode:           types.TransportModeDriving,
			MaxTimeMinutes: 300,
			TargetPlaces:   3,
			MaxRoutes:      1,
		}, nil)
		assert.Empty(t, p.BuildRoutes(testUser, thin))
	})

	t.Run("budget too small for a single stop", func(t *testing.T) {
		p := New(Options{
			Mode:           types.TransportModeWalking,
			MaxTimeMinutes: 10,
			TargetPlaces:   4,
			MaxRoutes:      1,
		}, nil)
		assert.Empty(t, p.BuildRoutes(testUser, mixedShortlist()))
	})
}

func TestPlannerBuildRoutes_CategoryAlternation(t *testing.T) {
	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 300,
		TargetPlaces:   4,
		MaxRoutes:      1,
	}, nil)

	routes := p.BuildRoutes(testUser, mixedShortlist())
	require.Len(t, routes, 1)
	places := routes[0].Places
	require.Len(t, places, 4)

	// The first three stops follow the alternation cycle; the final stop is
	// picked by proximity to the user instead.
	assert.NotEqual(t, places[0].Category, places[1].Category)
	assert.NotEqual(t, places[1].Category, places[2].Category)
}

func TestPlannerBuildRoutes_MealWindows(t *testing.T) {
	shortlist := []types.POI{
		testPOI("pho corner", "Restaurant", 21.0300, 105.8550, 0.90, 0.8),
		testPOI("bun cha lane", "Restaurant", 21.0310, 105.8530, 0.85, 0.7),
		testPOI("temple", "Culture & heritage", 21.0320, 105.8510, 0.80, 0.9),
		testPOI("museum", "Culture & heritage", 21.0280, 105.8570, 0.78, 0.8),
		testPOI("lake park", "Nature & Parks", 21.0270, 105.8590, 0.75, 0.6),
		testPOI("garden", "Nature & Parks", 21.0340, 105.8480, 0.70, 0.5),
	}

	t.Run("departure inside lunch window forces a restaurant first", func(t *testing.T) {
		start := time.Date(2026, time.June, 15, 11, 30, 0, 0, time.UTC)
		p := New(Options{
			Mode:           types.TransportModeDriving,
			MaxTimeMinutes: 180,
			TargetPlaces:   4,
			MaxRoutes:      1,
			Start:          &start,
		}, nil)

		routes := p.BuildRoutes(testUser, shortlist)
		require.NotEmpty(t, routes)
		assert.Equal(t, "Restaurant", routes[0].Places[0].Category)
	})

	t.Run("lunch ahead keeps restaurants out of the first slot", func(t *testing.T) {
		start := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)
		p := New(Options{
			Mode:           types.TransportModeDriving,
			MaxTimeMinutes: 300,
			TargetPlaces:   4,
			MaxRoutes:      1,
			Start:          &start,
		}, nil)

		routes := p.BuildRoutes(testUser, shortlist)
		require.NotEmpty(t, routes)
		assert.NotEqual(t, "Restaurant", routes[0].Places[0].Category)
	})

	t.Run("arrival metadata attached when a start is given", func(t *testing.T) {
		start := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)
		p := New(Options{
			Mode:           types.TransportModeDriving,
			MaxTimeMinutes: 300,
			TargetPlaces:   4,
			MaxRoutes:      1,
			Start:          &start,
		}, nil)

		routes := p.BuildRoutes(testUser, shortlist)
		require.NotEmpty(t, routes)

		prevArrival := start
		for _, place := range routes[0].Places {
			require.NotEmpty(t, place.ArrivalTime)
			arrival, err := time.Parse("2006-01-02 15:04:05", place.ArrivalTime)
			require.NoError(t, err)
			assert.True(t, arrival.After(prevArrival))
			require.NotNil(t, place.OpenHoursToday)
			assert.True(t, place.OpenHoursToday.IsOpen)
			prevArrival = arrival
		}
	})
}

func TestPlannerBuildRoutes_OpeningHours(t *testing.T) {
	start := time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC) // Monday

	closedMonday := testPOI("closed monday", "Culture & heritage", 21.0295, 105.8545, 0.99, 0.99)
	closedMonday.Hours = types.OpenHours{{Day: "Tuesday", Hours: []types.HourRange{{Start: "08:00", End: "18:00"}}}}

	openAll := mixedShortlist()
	shortlist := append([]types.POI{closedMonday}, openAll...)

	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 300,
		TargetPlaces:   4,
		MaxRoutes:      1,
		Start:          &start,
	}, nil)

	routes := p.BuildRoutes(testUser, shortlist)
	require.NotEmpty(t, routes)
	for _, place := range routes[0].Places {
		assert.NotEqual(t, closedMonday.ID.String(), place.PlaceID,
			"a poi closed on the start day must not be routed")
	}
}

func TestPlannerBuildRoutes_MultipleRoutes(t *testing.T) {
	// Two clusters so alternate seeds produce genuinely different routes.
	shortlist := []types.POI{
		testPOI("ne temple", "Culture & heritage", 21.0310, 105.8560, 0.90, 0.8),
		testPOI("ne park", "Nature & Parks", 21.0320, 105.8570, 0.88, 0.7),
		testPOI("ne museum", "Culture & heritage", 21.0330, 105.8580, 0.86, 0.9),
		testPOI("ne garden", "Nature & Parks", 21.0340, 105.8590, 0.84, 0.6),
		testPOI("ne citadel", "Culture & heritage", 21.0350, 105.8600, 0.82, 0.8),
		testPOI("sw pagoda", "Culture & heritage", 21.0260, 105.8520, 0.80, 0.8),
		testPOI("sw lake", "Nature & Parks", 21.0250, 105.8510, 0.78, 0.7),
		testPOI("sw gallery", "Culture & heritage", 21.0240, 105.8500, 0.76, 0.9),
		testPOI("sw walk", "Nature & Parks", 21.0230, 105.8490, 0.74, 0.6),
		testPOI("sw tower", "Culture & heritage", 21.0220, 105.8480, 0.72, 0.8),
	}

	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 400,
		TargetPlaces:   4,
		MaxRoutes:      3,
	}, nil)

	routes := p.BuildRoutes(testUser, shortlist)
	require.NotEmpty(t, routes)
	assert.LessOrEqual(t, len(routes), 3)

	t.Run("sequential ids", func(t *testing.T) {
		for i, route := range routes {
			assert.Equal(t, i+1, route.RouteID)
		}
	})

	t.Run("each pair differs by at least two stops", func(t *testing.T) {
		for i := 0; i < len(routes); i++ {
			for j := i + 1; j < len(routes); j++ {
				a, b := poiIDs(routes[i]), poiIDs(routes[j])
				fresh := 0
				for id := range b {
					if _, ok := a[id]; !ok {
						fresh++
					}
				}
				assert.GreaterOrEqual(t, fresh, 2)
			}
		}
	})

	t.Run("alternates sorted by total score", func(t *testing.T) {
		for i := 2; i < len(routes); i++ {
			assert.GreaterOrEqual(t, routes[i-1].TotalScore, routes[i].TotalScore)
		}
	})
}

func TestPlannerBuildRoutes_Deterministic(t *testing.T) {
	shortlist := mixedShortlist()
	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 300,
		TargetPlaces:   4,
		MaxRoutes:      3,
	}, nil)

	first := p.BuildRoutes(testUser, shortlist)
	second := p.BuildRoutes(testUser, shortlist)
	assert.Equal(t, first, second)
}

func TestPlannerBuildRoutes_DurationMode(t *testing.T) {
	shortlist := mixedShortlist()
	for i := range shortlist {
		shortlist[i].StayTime = 20
	}

	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 100,
		MaxRoutes:      1,
		DurationMode:   true,
	}, nil)

	routes := p.BuildRoutes(testUser, shortlist)
	require.Len(t, routes, 1)
	route := routes[0]

	assert.GreaterOrEqual(t, len(route.Places), 3)
	assert.LessOrEqual(t, route.TotalTimeMinutes, 100.0)
}

func TestPlannerBuildRoutes_CafeSequencing(t *testing.T) {
	shortlist := []types.POI{
		// Closest and best rated, so it reliably opens the route.
		testPOI("temple", "Culture & heritage", 21.0290, 105.8545, 0.95, 1.0),
		testPOI("museum", "Culture & heritage", 21.0320, 105.8500, 0.80, 0.7),
		testPOI("lake park", "Nature & Parks", 21.0310, 105.8530, 0.85, 0.7),
		testPOI("garden", "Nature & Parks", 21.0270, 105.8580, 0.75, 0.6),
		testPOI("egg coffee", "Cafe", 21.0300, 105.8560, 0.70, 0.9),
		testPOI("roastery", "Cafe", 21.0260, 105.8520, 0.65, 0.8),
	}

	p := New(Options{
		Mode:           types.TransportModeDriving,
		MaxTimeMinutes: 400,
		TargetPlaces:   5,
		MaxRoutes:      1,
		CafeSequencing: true,
	}, nil)

	routes := p.BuildRoutes(testUser, shortlist)
	require.Len(t, routes, 1)
	places := routes[0].Places
	require.Len(t, places, 5)

	// Two non-break stops arm the counter, so the third slot must be a Cafe.
	assert.NotEqual(t, "Cafe", places[0].Category)
	assert.NotEqual(t, "Cafe", places[1].Category)
	assert.Equal(t, "Cafe", places[2].Category)
}

func TestNextCategory(t *testing.T) {
	alternation := []string{"Culture & heritage", "Nature & Parks", "Restaurant"}

	assert.Equal(t, "Nature & Parks", nextCategory(alternation, "Culture & heritage"))
	assert.Equal(t, "Restaurant", nextCategory(alternation, "Nature & Parks"))
	// Cycles back to the start.
	assert.Equal(t, "Culture & heritage", nextCategory(alternation, "Restaurant"))
	// Unknown category restarts the cycle.
	assert.Equal(t, "Culture & heritage", nextCategory(alternation, "Shopping"))
}

func TestDistinctEnough(t *testing.T) {
	accepted := [][]int{{0, 1, 2, 3}}

	assert.True(t, distinctEnough([]int{4, 5, 6, 7}, accepted))
	assert.True(t, distinctEnough([]int{0, 1, 4, 5}, accepted))
	assert.False(t, distinctEnough([]int{0, 1, 2, 4}, accepted))
	assert.False(t, distinctEnough([]int{3, 2, 1, 0}, accepted))
	assert.True(t, distinctEnough([]int{4, 5, 6, 7}, nil))
}
