package types

import (
	"fmt"
	"strings"
)

// TransportMode selects the spatial k-ring size and the assumed travel speed.
type TransportMode string

const (
	TransportModeWalking   TransportMode = "WALKING"
	TransportModeBicycling TransportMode = "BICYCLING"
	TransportModeTransit   TransportMode = "TRANSIT"
	TransportModeFlexible  TransportMode = "FLEXIBLE"
	TransportModeDriving   TransportMode = "DRIVING"
)

// ErrInvalidTransportMode is returned by ParseTransportMode for modes outside
// the supported set.
var ErrInvalidTransportMode = fmt.Errorf("invalid transportation_mode, expected one of WALKING, BICYCLING, TRANSIT, FLEXIBLE, DRIVING")

// ParseTransportMode normalizes and validates a mode string.
func ParseTransportMode(s string) (TransportMode, error) {
	switch m := TransportMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case TransportModeWalking, TransportModeBicycling, TransportModeTransit, TransportModeFlexible, TransportModeDriving:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransportMode, s)
	}
}

// KRing is the hexagon ring count searched around the origin cell.
func (m TransportMode) KRing() int {
	switch m {
	case TransportModeWalking:
		return 2
	case TransportModeBicycling:
		return 3
	case TransportModeTransit, TransportModeFlexible:
		return 4
	case TransportModeDriving:
		return 5
	default:
		return 2
	}
}

// SpeedKmh is the assumed travel speed used to turn leg distances into
// minutes. Unknown modes fall back to 30 km/h.
func (m TransportMode) SpeedKmh() float64 {
	switch m {
	case TransportModeWalking:
		return 5
	case TransportModeBicycling:
		return 15
	case TransportModeTransit:
		return 25
	case TransportModeFlexible:
		return 30
	case TransportModeDriving:
		return 40
	default:
		return 30
	}
}
