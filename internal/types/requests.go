package types

import (
	"math"
	"time"
)

// Defaults applied by the handlers when the request leaves a field zero.
const (
	DefaultTopK           = 10
	DefaultMaxTimeMinutes = 180
	DefaultTargetPlaces   = 5
	DefaultMaxRoutes      = 3
)

// Seconds converts a duration to seconds rounded to the millisecond, the
// resolution reported in timing breakdowns.
func Seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// TimingBreakdown reports where a request spent its time, in seconds. Every
// success response carries one so latency regressions are diagnosable from
// the payload alone.
type TimingBreakdown struct {
	SpatialSeconds      float64 `json:"spatial_seconds"`
	EmbeddingSeconds    float64 `json:"embedding_seconds"`
	VectorSearchSeconds float64 `json:"vector_search_seconds"`
	DBHydrationSeconds  float64 `json:"db_hydration_seconds"`
	RouteBuildSeconds   float64 `json:"route_build_seconds,omitempty"`
	TotalSeconds        float64 `json:"total_seconds"`
}

// LocationSearchRequest drives POST /api/v1/locations/search. The optional
// time window filters the shortlist to POIs open at some point inside it.
type LocationSearchRequest struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	TransportationMode string  `json:"transportation_mode"`
	TimeWindowStart    string  `json:"time_window_start,omitempty"`
	TimeWindowEnd      string  `json:"time_window_end,omitempty"`
}

type LocationSearchResponse struct {
	Status               string          `json:"status"`
	Results              []POI           `json:"results"`
	Count                int             `json:"count"`
	RadiusUsedMeters     int             `json:"radius_used_meters"`
	FilteredByTime       bool            `json:"filtered_by_time,omitempty"`
	TimeWindow           string          `json:"time_window,omitempty"`
	OriginalResultsCount int             `json:"original_results_count,omitempty"`
	Timing               TimingBreakdown `json:"timing"`
}

// SemanticSearchRequest drives POST /api/v1/semantic/search (unfiltered
// nearest-neighbor over the whole collection).
type SemanticSearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type SemanticSearchResponse struct {
	Status  string          `json:"status"`
	Query   string          `json:"query"`
	Results []POI           `json:"results"`
	Count   int             `json:"count"`
	Timing  TimingBreakdown `json:"timing"`
}

// CombinedSearchRequest drives POST /api/v1/semantic/combined: one spatial
// pass, then the multi-query semantic re-rank constrained to the shortlist.
type CombinedSearchRequest struct {
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	TransportationMode string  `json:"transportation_mode"`
	SemanticQuery      string  `json:"semantic_query"`
	TopK               int     `json:"top_k,omitempty"`
	UserID             string  `json:"user_id,omitempty"`
	CustomerLike       bool    `json:"customer_like,omitempty"`
	CurrentTime        string  `json:"current_time,omitempty"`
	MaxTimeMinutes     float64 `json:"max_time_minutes,omitempty"`
}

type CombinedSearchResponse struct {
	Status           string          `json:"status"`
	Queries          []string        `json:"queries"`
	Results          []POI           `json:"results"`
	Count            int             `json:"count"`
	RadiusUsedMeters int             `json:"radius_used_meters"`
	Timing           TimingBreakdown `json:"timing"`
}

// RouteSearchRequest drives POST /api/v1/route/routes.
type RouteSearchRequest struct {
	UserID             string  `json:"user_id,omitempty"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	TransportationMode string  `json:"transportation_mode"`
	TransportationType string  `json:"transportation_type,omitempty"`
	SemanticQuery      string  `json:"semantic_query"`
	CustomerLike       bool    `json:"customer_like,omitempty"`
	CurrentTime        string  `json:"current_time,omitempty"`
	MaxTimeMinutes     float64 `json:"max_time_minutes,omitempty"`
	TargetPlaces       int     `json:"target_places,omitempty"`
	MaxRoutes          int     `json:"max_routes,omitempty"`
	TopKSemantic       int     `json:"top_k_semantic,omitempty"`
	// ReplaceRoute rebuilds a single fresh route to stand in for
	// RouteIDToReplace instead of answering from scratch.
	ReplaceRoute     bool `json:"replace_route,omitempty"`
	RouteIDToReplace int  `json:"route_id_to_replace,omitempty"`
	DeleteCache      bool `json:"delete_cache,omitempty"`
	// Duration switches the planner from fixed POI count to time-budget mode.
	Duration bool `json:"duration,omitempty"`
}

type RouteSearchResponse struct {
	Status           string          `json:"status"`
	Routes           []Route         `json:"routes"`
	Count            int             `json:"count"`
	Queries          []string        `json:"queries,omitempty"`
	ShortlistCount   int             `json:"shortlist_count"`
	RadiusUsedMeters int             `json:"radius_used_meters"`
	Timing           TimingBreakdown `json:"timing"`
}

// ReplacePOIRequest drives POST /api/v1/route/replace-poi.
type ReplacePOIRequest struct {
	UserID         string `json:"user_id"`
	RouteID        int    `json:"route_id"`
	PoiIDToReplace string `json:"poi_id_to_replace"`
	CurrentTime    string `json:"current_time,omitempty"`
}

type ReplacePOIResponse struct {
	Status     string                 `json:"status"`
	RouteID    int                    `json:"route_id"`
	Category   string                 `json:"category"`
	Candidates []ReplacementCandidate `json:"candidates"`
}

// ConfirmReplacePOIRequest drives POST /api/v1/route/confirm-replace-poi.
type ConfirmReplacePOIRequest struct {
	UserID   string `json:"user_id"`
	RouteID  int    `json:"route_id"`
	OldPoiID string `json:"old_poi_id"`
	NewPoiID string `json:"new_poi_id"`
}

type ConfirmReplacePOIResponse struct {
	Status  string           `json:"status"`
	RouteID int              `json:"route_id"`
	Pois    []CachedRoutePOI `json:"pois"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
