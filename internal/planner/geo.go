package planner

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

const earthRadiusKm = 6371

// Haversine returns the great-circle distance in kilometers between two
// points given as orb.Point (lon, lat order).
func Haversine(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing in degrees from a to b, normalized to
// [0, 360).
func Bearing(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// BearingDiff returns the unsigned difference between two bearings folded
// into [0, 180].
func BearingDiff(b1, b2 float64) float64 {
	diff := math.Abs(b1 - b2)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

func pointOf(p types.POI) orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

// DistanceMatrix builds the symmetric (n+1)x(n+1) kilometer matrix over the
// user location and the shortlist. Index 0 is the user; index i+1 is
// places[i]. Only the upper triangle is computed, then mirrored.
func DistanceMatrix(user orb.Point, places []types.POI) [][]float64 {
	n := len(places) + 1
	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
	}

	point := func(i int) orb.Point {
		if i == 0 {
			return user
		}
		return pointOf(places[i-1])
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Haversine(point(i), point(j))
			matrix[i][j] = d
			matrix[j][i] = d
		}
	}
	return matrix
}

// matrixMax returns the largest entry in the matrix, used to normalize
// distance scores.
func matrixMax(matrix [][]float64) float64 {
	largest := 0.0
	for _, row := range matrix {
		for _, v := range row {
			if v > largest {
				largest = v
			}
		}
	}
	return largest
}

// userMaxRadius returns the farthest user-to-POI distance (row 0 of the
// matrix, excluding the diagonal).
func userMaxRadius(matrix [][]float64) float64 {
	largest := 0.0
	for _, v := range matrix[0][1:] {
		if v > largest {
			largest = v
		}
	}
	return largest
}
