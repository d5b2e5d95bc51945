package planner

import (
	"strconv"
	"strings"
	"time"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

const endOfDayMinutes = 23*60 + 59

// parseClock converts "HH:MM" to minutes since midnight. Malformed input
// parses as 00:00, matching how ingestion treats dirty hour strings.
func parseClock(s string) int {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return h*60 + m
}

// rangeBounds returns the [start, end] minutes of one range. A missing start
// means midnight, a missing end means 23:59.
func rangeBounds(r types.HourRange) (int, int) {
	start := 0
	if r.Start != "" {
		start = parseClock(r.Start)
	}
	end := endOfDayMinutes
	if r.End != "" {
		end = parseClock(r.End)
	}
	return start, end
}

func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func addMinutes(t time.Time, minutes float64) time.Time {
	return t.Add(time.Duration(minutes * float64(time.Minute)))
}

// IsOpenAt reports whether the POI is open at the given instant. POIs with no
// hours data are treated as always open; a weekday with no entry means closed.
func IsOpenAt(hours types.OpenHours, at time.Time) bool {
	if len(hours) == 0 {
		return true
	}
	day := hours.ForDay(at.Weekday().String())
	if day == nil {
		return false
	}
	m := minutesOfDay(at)
	for _, r := range day.Hours {
		start, end := rangeBounds(r)
		if start <= m && m <= end {
			return true
		}
	}
	return false
}

// HasEnoughTimeToStay reports whether both the arrival and the departure
// (arrival + stay) fall inside the POI's opening hours. A visit that crosses
// midnight is valid when the arrival fits an open range on the arrival day
// and the departure fits one on the next day, which covers venues that close
// after midnight.
func HasEnoughTimeToStay(hours types.OpenHours, arrival time.Time, stayMinutes float64) bool {
	if len(hours) == 0 {
		return true
	}

	departure := addMinutes(arrival, stayMinutes)
	arrivalMin := minutesOfDay(arrival)
	departureMin := minutesOfDay(departure)

	if sameDate(arrival, departure) {
		day := hours.ForDay(arrival.Weekday().String())
		if day == nil {
			return false
		}
		for _, r := range day.Hours {
			start, end := rangeBounds(r)
			if start <= arrivalMin && departureMin <= end {
				return true
			}
		}
		return false
	}

	arrivalDay := hours.ForDay(arrival.Weekday().String())
	if arrivalDay == nil {
		return false
	}
	arrivalValid := false
	for _, r := range arrivalDay.Hours {
		start, _ := rangeBounds(r)
		if start <= arrivalMin && arrivalMin <= endOfDayMinutes {
			arrivalValid = true
			break
		}
	}
	if !arrivalValid {
		return false
	}

	departureDay := hours.ForDay(departure.Weekday().String())
	if departureDay == nil {
		return false
	}
	for _, r := range departureDay.Hours {
		_, end := rangeBounds(r)
		if departureMin <= end {
			return true
		}
	}
	return false
}

// OverlapsWindow reports whether the POI is open during any part of
// [start, end]. Ranges whose end precedes their start are treated as
// overnight and close on the following day.
func OverlapsWindow(hours types.OpenHours, start, end time.Time) bool {
	if len(hours) == 0 {
		return true
	}

	for date := startOfDay(start); !date.After(end); date = date.AddDate(0, 0, 1) {
		day := hours.ForDay(date.Weekday().String())
		if day == nil {
			continue
		}
		for _, r := range day.Hours {
			openMin, closeMin := rangeBounds(r)
			openAt := addMinutes(date, float64(openMin))
			closeAt := addMinutes(date, float64(closeMin))
			if closeMin < openMin {
				closeAt = addMinutes(date.AddDate(0, 0, 1), float64(closeMin))
			}

			overlapStart := start
			if openAt.After(overlapStart) {
				overlapStart = openAt
			}
			overlapEnd := end
			if closeAt.Before(overlapEnd) {
				overlapEnd = closeAt
			}
			if overlapStart.Before(overlapEnd) {
				return true
			}
		}
	}
	return false
}

// FilterOpenPOIs keeps the POIs whose opening hours overlap the window.
func FilterOpenPOIs(pois []types.POI, start, end time.Time) []types.POI {
	filtered := make([]types.POI, 0, len(pois))
	for _, poi := range pois {
		if OverlapsWindow(poi.Hours, start, end) {
			filtered = append(filtered, poi)
		}
	}
	return filtered
}

// HoursForDay extracts the opening hours relevant to one calendar day, the
// shape attached to route stops and replacement candidates. POIs without
// hours data surface as always open with an explanatory note.
func HoursForDay(hours types.OpenHours, day time.Time) *types.DayOpenHours {
	name := day.Weekday().String()
	date := day.Format("2006-01-02")

	if len(hours) == 0 {
		return &types.DayOpenHours{
			Day:    name,
			Date:   date,
			IsOpen: true,
			Ranges: []types.HourRange{{Start: "00:00", End: "23:59"}},
			Note:   "No opening hours data (assumed always open)",
		}
	}

	if entry := hours.ForDay(name); entry != nil {
		return &types.DayOpenHours{
			Day:    name,
			Date:   date,
			IsOpen: len(entry.Hours) > 0,
			Ranges: entry.Hours,
		}
	}

	return &types.DayOpenHours{
		Day:    name,
		Date:   date,
		IsOpen: false,
		Ranges: []types.HourRange{},
	}
}
