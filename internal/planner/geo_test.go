package planner

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

func TestHaversine(t *testing.T) {
	t.Run("zero distance for identical points", func(t *testing.T) {
		p := orb.Point{105.8542, 21.0285}
		assert.Equal(t, 0.0, Haversine(p, p))
	})

	t.Run("one degree of longitude at the equator", func(t *testing.T) {
		a := orb.Point{0, 0}
		b := orb.Point{1, 0}
		// 2*pi*6371/360
		assert.InDelta(t, 111.19, Haversine(a, b), 0.1)
	})

	t.Run("symmetric", func(t *testing.T) {
		a := orb.Point{105.8542, 21.0285}
		b := orb.Point{105.8040, 21.0369}
		assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-12)
	})
}

func TestBearing(t *testing.T) {
	origin := orb.Point{0, 0}

	t.Run("cardinal directions", func(t *testing.T) {
		assert.InDelta(t, 0, Bearing(origin, orb.Point{0, 1}), 0.01)
		assert.InDelta(t, 90, Bearing(origin, orb.Point{1, 0}), 0.01)
		assert.InDelta(t, 180, Bearing(origin, orb.Point{0, -1}), 0.01)
		assert.InDelta(t, 270, Bearing(origin, orb.Point{-1, 0}), 0.01)
	})

	t.Run("normalized to [0,360)", func(t *testing.T) {
		b := Bearing(orb.Point{105.8542, 21.0285}, orb.Point{105.8040, 21.0369})
		assert.GreaterOrEqual(t, b, 0.0)
		assert.Less(t, b, 360.0)
	})
}

func TestBearingDiff(t *testing.T) {
	assert.Equal(t, 0.0, BearingDiff(45, 45))
	assert.Equal(t, 90.0, BearingDiff(0, 90))
	assert.Equal(t, 180.0, BearingDiff(0, 180))
	// Folds the reflex angle.
	assert.Equal(t, 20.0, BearingDiff(350, 10))
	assert.Equal(t, 90.0, BearingDiff(315, 45))
}

func TestDistanceMatrix(t *testing.T) {
	user := orb.Point{105.8542, 21.0285}
	places := []types.POI{
		{Latitude: 21.0369, Longitude: 105.8040},
		{Latitude: 21.0245, Longitude: 105.8412},
	}

	matrix := DistanceMatrix(user, places)
	require.Len(t, matrix, 3)

	t.Run("zero diagonal", func(t *testing.T) {
		for i := range matrix {
			assert.Equal(t, 0.0, matrix[i][i])
		}
	})

	t.Run("mirrored", func(t *testing.T) {
		for i := range matrix {
			for j := range matrix {
				assert.Equal(t, matrix[i][j], matrix[j][i])
			}
		}
	})

	t.Run("row zero is user distances", func(t *testing.T) {
		assert.InDelta(t, Haversine(user, pointOf(places[0])), matrix[0][1], 1e-12)
		assert.InDelta(t, Haversine(user, pointOf(places[1])), matrix[0][2], 1e-12)
	})
}
