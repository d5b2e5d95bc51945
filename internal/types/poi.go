package types

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// HourRange is a single opening interval within one day, "HH:MM" 24h clock.
// End may be earlier than Start for ranges that cross midnight.
type HourRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DayHours lists the opening intervals for one weekday. Day is the English
// weekday name ("Monday" ... "Sunday") regardless of host locale.
type DayHours struct {
	Day   string      `json:"day"`
	Hours []HourRange `json:"hours"`
}

// OpenHours is the parsed open_hours column. A nil or empty schedule means
// the place publishes no hours and is treated as always open.
type OpenHours []DayHours

// UnmarshalJSON tolerates double-encoded payloads: some rows store the
// schedule as a JSON string containing JSON rather than a JSON array.
func (o *OpenHours) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*o = nil
		return nil
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" || inner == "null" {
			*o = nil
			return nil
		}
		data = []byte(inner)
	}
	var days []DayHours
	if err := json.Unmarshal(data, &days); err != nil {
		return err
	}
	*o = OpenHours(days)
	return nil
}

// ForDay returns the entry for the given English weekday name, nil if the
// day is absent. An entry with an empty Hours slice means explicitly closed.
func (o OpenHours) ForDay(day string) *DayHours {
	for i := range o {
		if strings.EqualFold(o[i].Day, day) {
			return &o[i]
		}
	}
	return nil
}

// DayOpenHours is the per-day slice of a schedule attached to route stops and
// replacement candidates when a starting datetime is known.
type DayOpenHours struct {
	Day    string      `json:"day"`
	Date   string      `json:"date,omitempty"`
	IsOpen bool        `json:"is_open"`
	Ranges []HourRange `json:"ranges,omitempty"`
	Note   string      `json:"note,omitempty"`
}

// POI is the unit every stage trades in: spatial shortlist rows, cell cache
// entries, vector-search hydration and planner input all carry it.
type POI struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	PoiType         string    `json:"poi_type,omitempty"`
	PoiTypeClean    *string   `json:"poi_type_clean,omitempty"`
	MainSubcategory *string   `json:"main_subcategory,omitempty"`
	Specialization  *string   `json:"specialization,omitempty"`
	// Rating is the pre-normalized popularity blend in [0,1]; rows that have
	// not been through the normalization pass read as 0.5.
	Rating   float64   `json:"rating"`
	StayTime float64   `json:"stay_time"`
	Hours    OpenHours `json:"open_hours,omitempty"`

	// Per-request derived fields.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	Similarity     float64  `json:"similarity,omitempty"`
	Category       string   `json:"category,omitempty"`
	CategoryIndex  int      `json:"category_index,omitempty"`
}

// CleanType returns poi_type_clean or "" when unset.
func (p *POI) CleanType() string {
	if p.PoiTypeClean != nil {
		return *p.PoiTypeClean
	}
	return ""
}

// ParsePOIIDs validates a batch of POI id strings, silently dropping
// malformed ones. Order is preserved and duplicates are kept.
func ParsePOIIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
