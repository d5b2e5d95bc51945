package planner

import (
	"time"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// stayTime returns the POI's curated stay time or the default.
func stayTime(p types.POI) float64 {
	if p.StayTime > 0 {
		return p.StayTime
	}
	return DefaultStayTimeMinutes
}

// ratingOf returns the POI's normalized rating, substituting the neutral
// default when the score is missing.
func ratingOf(p types.POI) float64 {
	if p.Rating > 0 {
		return p.Rating
	}
	return DefaultRating
}

// availableAt reports whether the POI can host a full visit starting at the
// arrival time. With no arrival anchor every POI qualifies.
func availableAt(p types.POI, arrival *time.Time) bool {
	if arrival == nil {
		return true
	}
	return HasEnoughTimeToStay(p.Hours, *arrival, stayTime(p))
}

// sameFoodType reports whether two food POIs match on all three
// classification levels (clean type, main subcategory, specialization).
// Matching pairs are kept apart in a route. Non-food POIs never match.
func sameFoodType(a, b types.POI) bool {
	aType := strOrEmpty(a.PoiTypeClean)
	bType := strOrEmpty(b.PoiTypeClean)

	if _, ok := foodCleanTypes[aType]; !ok {
		return false
	}
	if _, ok := foodCleanTypes[bType]; !ok {
		return false
	}
	if aType != bType {
		return false
	}
	if !strPtrEqual(a.MainSubcategory, b.MainSubcategory) {
		return false
	}
	return strPtrEqual(a.Specialization, b.Specialization)
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// strPtrEqual treats two missing values as equal, so two food POIs with no
// subcategory data still count as duplicates.
func strPtrEqual(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
