package planner

import (
	"math"

	"github.com/paulmach/orb"
)

// combinedScore ranks a candidate from the current matrix position. For the
// last stop the distance term measures the return leg to the user instead of
// the hop from the current position. prevBearing feeds the bearing term and
// only applies to middle stops; without it the term is neutral.
func (b *builder) combinedScore(placeIdx, currentPos int, isFirst, isLast bool, prevBearing *float64) float64 {
	place := b.places[placeIdx]
	similarity := place.Similarity
	rating := ratingOf(place)

	var distanceKm float64
	if isLast {
		distanceKm = b.matrix[placeIdx+1][0]
	} else {
		distanceKm = b.matrix[currentPos][placeIdx+1]
	}
	distanceScore := 1.0
	if b.maxDistance > 0 {
		distanceScore = 1 - distanceKm/b.maxDistance
	}

	switch {
	case isFirst:
		w := firstPOIWeights
		return w.distance*distanceScore + w.similarity*similarity + w.rating*rating
	case isLast:
		w := lastPOIWeights
		return w.distance*distanceScore + w.similarity*similarity + w.rating*rating
	default:
		w := b.opts.middleWeights()
		bearingScore := defaultBearingScore
		if prevBearing != nil {
			bearingScore = b.bearingScore(placeIdx, currentPos, *prevBearing)
		}
		return w.distance*distanceScore + w.similarity*similarity + w.rating*rating + w.bearing*bearingScore
	}
}

// bearingScore grades the turn onto a candidate. Straight-line mode rewards
// continuing in the previous direction; circular mode peaks at right angles.
func (b *builder) bearingScore(placeIdx, currentPos int, prevBearing float64) float64 {
	var from orb.Point
	if currentPos == 0 {
		from = b.user
	} else {
		p := b.places[currentPos-1]
		from = orb.Point{p.Longitude, p.Latitude}
	}
	to := b.places[placeIdx]

	heading := Bearing(from, orb.Point{to.Longitude, to.Latitude})
	diff := BearingDiff(prevBearing, heading)

	if b.opts.CircularRouting {
		return 1 - math.Abs(diff-90)/90
	}
	return 1 - diff/180
}
