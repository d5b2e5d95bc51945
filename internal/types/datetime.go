package types

import (
	"fmt"
	"time"
)

// dateTimeLayouts are the accepted shapes of current_time and time-window
// fields, tried in order. Zone-less values are interpreted in the server's
// local time, matching how opening hours are stored.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDateTime parses an ISO-8601 datetime with or without a zone offset.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q, expected ISO-8601", s)
}
