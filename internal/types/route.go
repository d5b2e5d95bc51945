package types

// RoutePlace is one stop in a computed route, in visit order.
type RoutePlace struct {
	PlaceID           string        `json:"place_id"`
	Name              string        `json:"place_name"`
	Category          string        `json:"category,omitempty"`
	PoiType           string        `json:"poi_type,omitempty"`
	PoiTypeClean      string        `json:"poi_type_clean,omitempty"`
	MainSubcategory   string        `json:"main_subcategory,omitempty"`
	Specialization    string        `json:"specialization,omitempty"`
	Address           string        `json:"address,omitempty"`
	Latitude          float64       `json:"lat"`
	Longitude         float64       `json:"lon"`
	Similarity        float64       `json:"similarity"`
	Rating            float64       `json:"rating"`
	CombinedScore     float64       `json:"combined_score"`
	TravelTimeMinutes float64       `json:"travel_time_minutes"`
	StayTimeMinutes   float64       `json:"stay_time_minutes"`
	OpenHours         OpenHours     `json:"open_hours,omitempty"`
	ArrivalTime       string        `json:"arrival_time,omitempty"`
	OpenHoursToday    *DayOpenHours `json:"opening_hours_today,omitempty"`
}

// Route is a single planned itinerary. TotalTimeMinutes includes the return
// leg back to the user's position.
type Route struct {
	RouteID           int          `json:"route_id"`
	Places            []RoutePlace `json:"places"`
	TotalTimeMinutes  float64      `json:"total_time_minutes"`
	TravelTimeMinutes float64      `json:"travel_time_minutes"`
	StayTimeMinutes   float64      `json:"stay_time_minutes"`
	TotalScore        float64      `json:"total_score"`
	AvgScore          float64      `json:"avg_score"`
	Efficiency        float64      `json:"efficiency"`
}

// CachedRoutePOI is the compact slot stored in the route cache.
type CachedRoutePOI struct {
	PoiID    string `json:"poi_id"`
	Category string `json:"category"`
}

// CachedRoute is one route's slot list inside the cache entry.
type CachedRoute struct {
	Pois []CachedRoutePOI `json:"pois"`
}

// RouteCacheEntry is the per-user record behind route_metadata:{user_id}.
// Routes is keyed by the stringified route id. AvailablePOIsByCategory holds
// the full semantic shortlist grouped by winning category (ids already placed
// in a route are subtracted at read time); ReplacedPOIsByCategory accumulates
// ids already offered or chosen as replacements so they are not offered twice
// before the pool recycles.
type RouteCacheEntry struct {
	UserID                  string                 `json:"user_id"`
	TransportationMode      string                 `json:"transportation_mode"`
	Routes                  map[string]CachedRoute `json:"routes"`
	AvailablePOIsByCategory map[string][]string    `json:"available_pois_by_category"`
	ReplacedPOIsByCategory  map[string][]string    `json:"replaced_pois_by_category"`
}

// ReplacementCandidate is one suggested swap for a route slot. Deltas compare
// the candidate against the POI being replaced relative to its neighbors in
// the route; positive values mean the candidate is farther.
type ReplacementCandidate struct {
	POI
	TravelTimeDeltaMinutes float64       `json:"travel_time_delta_minutes"`
	DistanceDeltaKm        float64       `json:"distance_delta_km"`
	ProjectedArrival       string        `json:"projected_arrival,omitempty"`
	OpenHoursToday         *DayOpenHours `json:"open_hours_today,omitempty"`
}
